package endpoint

import (
	"fmt"
	"net/http"

	"github.com/macrat/scout/internal/store"
)

// HealthzEndpoint is the http.HandlerFunc for /healthz page.
// It reports FAILURE if the store is not readable.
func HealthzEndpoint(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")

		if _, err := s.Targets(r.Context()); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprintln(w, "FAILURE")
			fmt.Fprintln(w, err)
			return
		}

		fmt.Fprintln(w, "HEALTHY")
	}
}
