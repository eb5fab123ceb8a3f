package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	api "github.com/macrat/scout/lib-scout"
)

// File is a Store that saves all targets into a JSON file.
// The file is replaced atomically on every write.
type File struct {
	mu    sync.RWMutex
	path  string
	limit int
	c     collection
}

type fileDocument struct {
	Targets []api.Target `json:"targets"`
}

// OpenFile opens a JSON file store.
// The file is created on the first write if it does not exist.
func OpenFile(path string, limit int) (*File, error) {
	if path == "" {
		path = "scout.json"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, persistenceError(err, "ensure data directory")
	}

	f := &File{
		path:  path,
		limit: limit,
		c:     make(collection),
	}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) load() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return persistenceError(err, "read store")
	}
	if len(data) == 0 {
		return nil
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return persistenceError(err, "parse store %s", f.path)
	}

	for _, t := range doc.Targets {
		f.c[t.ID] = t
	}
	return nil
}

func (f *File) persist(c collection) error {
	bytes, err := json.MarshalIndent(fileDocument{Targets: c.list()}, "", "  ")
	if err != nil {
		return persistenceError(err, "encode store")
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", f.path, time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, bytes, 0o644); err != nil {
		return persistenceError(err, "write temp store")
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		return persistenceError(err, "replace store file")
	}
	return nil
}

// update applies fn to a copy of the targets, and replaces the current state only if it was saved.
func (f *File) update(fn func(c collection) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := f.c.clone()
	if err := fn(c); err != nil {
		return err
	}
	if err := f.persist(c); err != nil {
		return err
	}
	f.c = c
	return nil
}

func (f *File) Targets(ctx context.Context) ([]api.Target, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.c.list(), nil
}

func (f *File) Target(ctx context.Context, id string) (api.Target, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.c.get(id)
}

func (f *File) Put(ctx context.Context, t api.Target) error {
	return f.update(func(c collection) error {
		c.put(t, f.limit)
		return nil
	})
}

func (f *File) Delete(ctx context.Context, id string) error {
	return f.update(func(c collection) error {
		return c.delete(id)
	})
}

func (f *File) Commit(ctx context.Context, id string, tr Transition, snap *api.Snapshot) error {
	return f.update(func(c collection) error {
		return c.commit(id, tr, snap, f.limit)
	})
}

func (f *File) Close() error {
	return nil
}
