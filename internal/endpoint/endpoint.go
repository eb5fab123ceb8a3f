// Package endpoint provides the HTTP interface of Scout.
package endpoint

import (
	"errors"
	"net/http"

	"github.com/NYTimes/gziphandler"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/macrat/scout/internal/journal"
	"github.com/macrat/scout/internal/store"
	api "github.com/macrat/scout/lib-scout"
)

// New makes the HTTP handler of Scout.
func New(s store.Store, j *journal.Journal) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(gziphandler.GzipHandler)

		r.Get("/healthz", HealthzEndpoint(s))

		r.Get("/targets", http.RedirectHandler("/targets.txt", http.StatusMovedPermanently).ServeHTTP)
		r.Get("/targets.txt", TargetsTextEndpoint(s, j))
		r.Get("/targets.json", TargetsJSONEndpoint(s, j))
		r.Post("/targets", CreateTargetEndpoint(s, j))

		r.Route("/targets/{id}", func(r chi.Router) {
			r.Get("/", TargetEndpoint(s, j))
			r.Put("/", PutTargetEndpoint(s, j))
			r.Delete("/", DeleteTargetEndpoint(s, j))
			r.Get("/snapshots.json", SnapshotsEndpoint(s, j))
		})
	})

	r.Get("/stream", StreamEndpoint(j))
	r.Handle("/mcp", MCPHandler(s))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	return r
}

func handleError(j *journal.Journal, scope string, err error) {
	if err != nil {
		j.Failure("scout:endpoint", errors.New(scope+": "+err.Error()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// replyError replies err with the status code for its kind.
// Errors other than bad request or not found are journaled as internal failures.
func replyError(w http.ResponseWriter, j *journal.Journal, scope string, err error) {
	switch {
	case errors.Is(err, api.ErrConfiguration):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, api.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		handleError(j, scope, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
