package endpoint

import (
	"net/http"

	"github.com/macrat/scout/internal/mcp"
	"github.com/macrat/scout/internal/store"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPHandler creates an HTTP handler for MCP requests.
func MCPHandler(s store.Store) http.Handler {
	server := mcp.NewServer(s)

	return mcpsdk.NewStreamableHTTPHandler(func(req *http.Request) *mcpsdk.Server {
		return server
	}, &mcpsdk.StreamableHTTPOptions{
		Stateless:    true,
		JSONResponse: true,
	})
}
