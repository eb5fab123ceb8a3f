package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/macrat/scout/internal/store"
	api "github.com/macrat/scout/lib-scout"
)

// SampleTargets makes targets for tests.
//
// "alpha" has an OK snapshot and a following Error snapshot, so its Apdex score at now is 0.75.
// "bravo" has no snapshot yet.
func SampleTargets(now time.Time) []api.Target {
	return []api.Target{
		{
			ID:          "alpha",
			Name:        "alpha",
			Tags:        []string{"web"},
			Method:      "GET",
			URL:         "https://alpha.example.com/health",
			ReadType:    api.ReadText,
			ApdexTarget: 500,
			Interval:    1,
			Recipients:  []string{"ops@example.com"},
			Snapshots: []api.Snapshot{
				{Timestamp: now.Add(-2 * time.Minute), Status: api.StatusOK, StatusCode: 200, ResponseTime: 100 * time.Millisecond},
				{Timestamp: now.Add(-1 * time.Minute), Status: api.StatusError, StatusCode: 500, ResponseTime: time.Second, ErrMessage: "assertion failed: script returned false", Body: "something wrong"},
			},
		},
		{
			ID:          "bravo",
			Name:        "bravo",
			Method:      "HEAD",
			URL:         "http://bravo.example.com",
			ReadType:    api.ReadText,
			ApdexTarget: 500,
			Interval:    5,
		},
	}
}

// NewStore makes an in-memory store that holds SampleTargets.
func NewStore(t testing.TB) store.Store {
	t.Helper()

	s := store.NewMemory(store.DefaultSnapshotLimit)
	t.Cleanup(func() {
		s.Close()
	})

	for _, x := range SampleTargets(time.Now()) {
		if err := s.Put(context.Background(), x); err != nil {
			t.Fatalf("failed to prepare store: %s", err)
		}
	}

	return s
}
