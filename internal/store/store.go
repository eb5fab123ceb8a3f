// Package store keeps targets and their snapshot history.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/macrat/scout/internal/scouterr"
	api "github.com/macrat/scout/lib-scout"
)

const (
	DefaultSnapshotLimit = 10000
)

var (
	ErrUnknownDriver = errors.New("unknown store driver")
)

// Store is a durable collection of targets.
// All implementations are safe to use from multiple goroutines.
type Store interface {
	// Targets returns all targets sorted by name.
	Targets(ctx context.Context) ([]api.Target, error)

	// Target returns a target. It returns api.ErrNotFound if there is no such target.
	Target(ctx context.Context, id string) (api.Target, error)

	// Put creates or replaces the configuration of a target.
	// The snapshot history of an existing target is kept, and t.Snapshots is used only for a new target.
	Put(ctx context.Context, t api.Target) error

	// Delete removes a target and its history.
	Delete(ctx context.Context, id string) error

	// Commit records the result of a patrol in one atomic write.
	// It applies tr to the stored countdown, and appends snap if it is not nil.
	Commit(ctx context.Context, id string, tr Transition, snap *api.Snapshot) error

	Close() error
}

// Transition is a countdown change computed from a target read at the start of a tick.
type Transition struct {
	// From and Interval are the values the transition was computed from.
	From     int
	Interval int

	Next int
}

// Apply returns the countdown to store for t, the target as it is stored now.
// If t was reconfigured after the transition was computed, its own countdown is kept within [0, interval-1].
func (tr Transition) Apply(t api.Target) int {
	if t.NextPatrol == tr.From && t.Interval == tr.Interval {
		return tr.Next
	}

	n := t.NextPatrol
	if last := t.Interval - 1; n > last {
		n = last
	}
	if n < 0 {
		n = 0
	}
	return n
}

// Open opens a store by driver name.
// Driver is one of "memory", "file", "sqlite", or "postgres".
// Limit is the maximum number of snapshots kept per target; zero means unlimited.
func Open(ctx context.Context, driver, dsn string, limit int) (Store, error) {
	switch driver {
	case "memory":
		return NewMemory(limit), nil
	case "file", "":
		return OpenFile(dsn, limit)
	case "sqlite", "sqlite3":
		return OpenSQLite(ctx, dsn, limit)
	case "postgres", "postgresql":
		return OpenPostgres(ctx, dsn, limit)
	default:
		return nil, scouterr.New(ErrUnknownDriver, nil, "unknown store driver: %q", driver)
	}
}

func notFound(id string) error {
	return scouterr.New(api.ErrNotFound, nil, "target not found: %s", id)
}

func persistenceError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, api.ErrNotFound) {
		return err
	}
	return scouterr.New(api.ErrPersistence, err, format, args...)
}

func sortTargets(ts []api.Target) {
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].Name != ts[j].Name {
			return ts[i].Name < ts[j].Name
		}
		return ts[i].ID < ts[j].ID
	})
}

// collection is an in-memory set of targets.
type collection map[string]api.Target

func (c collection) clone() collection {
	d := make(collection, len(c))
	for k, v := range c {
		d[k] = v
	}
	return d
}

func (c collection) list() []api.Target {
	ts := make([]api.Target, 0, len(c))
	for _, t := range c {
		ts = append(ts, t.Clone())
	}
	sortTargets(ts)
	return ts
}

func (c collection) get(id string) (api.Target, error) {
	t, ok := c[id]
	if !ok {
		return api.Target{}, notFound(id)
	}
	return t.Clone(), nil
}

func (c collection) put(t api.Target, limit int) {
	t = t.Clone()
	if old, ok := c[t.ID]; ok {
		t.Snapshots = old.Snapshots
	} else if limit > 0 && len(t.Snapshots) > limit {
		t.Snapshots = t.Snapshots[len(t.Snapshots)-limit:]
	}
	c[t.ID] = t
}

func (c collection) delete(id string) error {
	if _, ok := c[id]; !ok {
		return notFound(id)
	}
	delete(c, id)
	return nil
}

func (c collection) commit(id string, tr Transition, snap *api.Snapshot, limit int) error {
	t, ok := c[id]
	if !ok {
		return notFound(id)
	}
	t.NextPatrol = tr.Apply(t)
	if snap != nil {
		t.Snapshots = append(t.Snapshots[:len(t.Snapshots):len(t.Snapshots)], *snap)
		if limit > 0 && len(t.Snapshots) > limit {
			t.Snapshots = append([]api.Snapshot(nil), t.Snapshots[len(t.Snapshots)-limit:]...)
		}
	}
	c[id] = t
	return nil
}
