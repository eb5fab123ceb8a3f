package testutil

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/macrat/scout/internal/endpoint"
	"github.com/macrat/scout/internal/journal"
	"github.com/macrat/scout/internal/store"
)

// StartTestServer starts the HTTP interface with NewStore.
func StartTestServer(t testing.TB) (*httptest.Server, store.Store) {
	t.Helper()

	s := NewStore(t)
	srv := httptest.NewServer(endpoint.New(s, journal.New(io.Discard)))
	t.Cleanup(srv.Close)

	return srv, s
}
