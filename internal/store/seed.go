package store

import (
	"context"
	"errors"

	api "github.com/macrat/scout/lib-scout"
)

// Seed puts targets defined in configuration into the store.
//
// A target that already exists keeps its countdown, clamped into the new interval.
// New targets start with the countdown of zero.
func Seed(ctx context.Context, s Store, ts []api.Target) (created, updated int, err error) {
	for _, t := range ts {
		old, err := s.Target(ctx, t.ID)
		exists := err == nil
		switch {
		case exists:
			t.NextPatrol = old.NextPatrol
			if t.NextPatrol > t.Interval-1 {
				t.NextPatrol = t.Interval - 1
			}
		case errors.Is(err, api.ErrNotFound):
			t.NextPatrol = 0
		default:
			return created, updated, err
		}

		if err := s.Put(ctx, t); err != nil {
			return created, updated, err
		}

		if exists {
			updated++
		} else {
			created++
		}
	}
	return created, updated, nil
}
