package endpoint

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/macrat/scout/internal/alert"
	"github.com/macrat/scout/internal/config"
	"github.com/macrat/scout/internal/journal"
	"github.com/macrat/scout/internal/scouterr"
	"github.com/macrat/scout/internal/store"
	api "github.com/macrat/scout/lib-scout"
)

const maxSpecSize = 1 << 20

// TargetStatus is a target with its current state, without the snapshot history.
type TargetStatus struct {
	api.Target

	Apdex        *float64      `json:"apdex"`
	ErrorStreak  int           `json:"errorStreak"`
	LastSnapshot *api.Snapshot `json:"lastSnapshot,omitempty"`
}

// NewTargetStatus summarizes t at now.
func NewTargetStatus(t api.Target, now time.Time) TargetStatus {
	s := TargetStatus{
		ErrorStreak: alert.ConsecutiveErrors(t.Snapshots),
	}

	if score, ok := t.Apdex(now); ok {
		s.Apdex = &score
	}
	if last, ok := t.LastSnapshot(); ok {
		s.LastSnapshot = &last
	}

	s.Target = t
	s.Target.Snapshots = nil

	return s
}

// TargetsJSONEndpoint replies target list in json format.
func TargetsJSONEndpoint(s store.Store, j *journal.Journal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, err := s.Targets(r.Context())
		if err != nil {
			replyError(w, j, "targets.json", err)
			return
		}

		now := time.Now()
		xs := make([]TargetStatus, len(ts))
		for i, t := range ts {
			xs[i] = NewTargetStatus(t, now)
		}

		handleError(j, "targets.json", writeJSON(w, http.StatusOK, xs))
	}
}

// TargetsTextEndpoint replies target list in human readable text.
func TargetsTextEndpoint(s store.Store, j *journal.Journal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ts, err := s.Targets(r.Context())
		if err != nil {
			replyError(w, j, "targets.txt", err)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
		handleError(j, "targets.txt", writeTargetsText(w, ts, time.Now()))
	}
}

func writeTargetsText(w io.Writer, ts []api.Target, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "NAME\tSTATUS\tAPDEX\tLATENCY\tCHECKED\tURL")
	for _, t := range ts {
		status, latency, checked := "-", "-", "never"
		if last, ok := t.LastSnapshot(); ok {
			status = last.Status.String()
			if last.ResponseTime > 0 {
				latency = last.ResponseTime.Round(time.Millisecond).String()
			}
			checked = humanize.RelTime(last.Timestamp, now, "ago", "from now")
		}

		apdex := "no data"
		if score, ok := t.Apdex(now); ok {
			apdex = strconv.FormatFloat(score, 'f', 3, 64)
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s %s\n", t.Name, status, apdex, latency, checked, t.Method, t.URL)
	}

	return tw.Flush()
}

// TargetEndpoint replies a target.
func TargetEndpoint(s store.Store, j *journal.Journal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := s.Target(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			replyError(w, j, "target", err)
			return
		}

		handleError(j, "target", writeJSON(w, http.StatusOK, NewTargetStatus(t, time.Now())))
	}
}

func readSpec(r *http.Request) (api.TargetSpec, error) {
	var spec api.TargetSpec

	dec := json.NewDecoder(io.LimitReader(r.Body, maxSpecSize))
	if err := dec.Decode(&spec); err != nil {
		return spec, scouterr.New(api.ErrConfiguration, err, "malformed target definition")
	}

	return spec, nil
}

// CreateTargetEndpoint creates a new target from a TargetSpec in the request body.
func CreateTargetEndpoint(s store.Store, j *journal.Journal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec, err := readSpec(r)
		if err != nil {
			replyError(w, j, "create", err)
			return
		}

		t, err := config.BuildTarget(spec, config.NewID)
		if err != nil {
			replyError(w, j, "create", err)
			return
		}

		if spec.ID != "" {
			if _, err := s.Target(r.Context(), t.ID); err == nil {
				writeError(w, http.StatusConflict, fmt.Sprintf("target already exists: %s", t.ID))
				return
			} else if !errors.Is(err, api.ErrNotFound) {
				replyError(w, j, "create", err)
				return
			}
		}

		if err := s.Put(r.Context(), t); err != nil {
			replyError(w, j, "create", err)
			return
		}
		j.Info("scout:endpoint", fmt.Sprintf("target created: %s (%s)", t.Name, t.ID))

		w.Header().Set("Location", "/targets/"+t.ID)
		handleError(j, "create", writeJSON(w, http.StatusCreated, NewTargetStatus(t, time.Now())))
	}
}

// PutTargetEndpoint creates or replaces the configuration of a target.
// The snapshot history of an existing target is kept.
func PutTargetEndpoint(s store.Store, j *journal.Journal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		spec, err := readSpec(r)
		if err != nil {
			replyError(w, j, "put", err)
			return
		}
		if spec.ID != "" && spec.ID != id {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("id in body does not match to the URL: %q", spec.ID))
			return
		}
		spec.ID = id

		t, err := config.BuildTarget(spec, config.NewID)
		if err != nil {
			replyError(w, j, "put", err)
			return
		}

		if err := s.Put(r.Context(), t); err != nil {
			replyError(w, j, "put", err)
			return
		}
		j.Info("scout:endpoint", fmt.Sprintf("target updated: %s (%s)", t.Name, t.ID))

		stored, err := s.Target(r.Context(), id)
		if err != nil {
			replyError(w, j, "put", err)
			return
		}

		handleError(j, "put", writeJSON(w, http.StatusOK, NewTargetStatus(stored, time.Now())))
	}
}

// DeleteTargetEndpoint removes a target and its history.
func DeleteTargetEndpoint(s store.Store, j *journal.Journal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := s.Delete(r.Context(), id); err != nil {
			replyError(w, j, "delete", err)
			return
		}
		j.Info("scout:endpoint", "target deleted: "+id)

		w.WriteHeader(http.StatusNoContent)
	}
}

// SnapshotsEndpoint replies the snapshot history of a target.
//
// The "since" query filters snapshots by RFC3339 time, and "limit" keeps only the newest snapshots.
func SnapshotsEndpoint(s store.Store, j *journal.Journal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var since time.Time
		if raw := r.URL.Query().Get("since"); raw != "" {
			var err error
			since, err = time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("since must be RFC3339 time but got %q", raw))
				return
			}
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be a positive integer but got %q", raw))
				return
			}
			limit = n
		}

		t, err := s.Target(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			replyError(w, j, "snapshots.json", err)
			return
		}

		handleError(j, "snapshots.json", writeJSON(w, http.StatusOK, filterSnapshots(t.Snapshots, since, limit)))
	}
}

func filterSnapshots(snaps []api.Snapshot, since time.Time, limit int) []api.Snapshot {
	xs := make([]api.Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if !s.Timestamp.Before(since) {
			xs = append(xs, s)
		}
	}
	if limit > 0 && len(xs) > limit {
		xs = xs[len(xs)-limit:]
	}
	return xs
}
