// Package mcp provides the Model Context Protocol server of Scout.
package mcp

import (
	"time"

	"github.com/macrat/scout/internal/meta"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer creates an MCP server for the given store.
func NewServer(store Store) *mcp.Server {
	impl := &mcp.Implementation{
		Name:    "scout",
		Version: meta.Version,
		Title:   "Scout",
	}

	opts := &mcp.ServerOptions{
		Instructions: "Scout is an uptime monitor that patrols HTTP endpoints and checks the responses with assertion scripts. The snapshot history can be large, so it is recommended to extract necessary information using jq queries instead of fetching all data at once.",
	}

	server := mcp.NewServer(impl, opts)
	AddReadOnlyTools(server, store, time.Now)

	return server
}
