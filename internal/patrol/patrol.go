// Package patrol drives the periodic probes of all targets.
package patrol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/macrat/scout/internal/journal"
	"github.com/macrat/scout/internal/schedule"
	"github.com/macrat/scout/internal/store"
	api "github.com/macrat/scout/lib-scout"
	"github.com/robfig/cron/v3"
)

const (
	DefaultConcurrency = 16
)

// Executor probes a target.
type Executor interface {
	Execute(ctx context.Context, t api.Target) api.Snapshot
}

// Dispatcher sends an alert if the target reached its tolerance.
type Dispatcher interface {
	Dispatch(ctx context.Context, t api.Target, cause error) bool
}

// Countdown decides the transition of a target on a tick.
// It returns the new countdown, and whether the target should be probed on this tick.
//
// The returned countdown is always between 0 and interval-1.
func Countdown(t api.Target) (next int, probe bool) {
	interval := t.Interval
	if interval < 1 {
		interval = 1
	}

	n := t.NextPatrol
	if n > interval-1 {
		n = interval - 1
	}
	if n > 0 {
		return n - 1, false
	}
	return interval - 1, true
}

// Summary is the result of a tick.
type Summary struct {
	Targets int
	Probed  int
	Skipped int

	// Errors is the number of StatusError snapshots.
	Errors int

	// Failures is the number of targets that could not finish their patrol.
	Failures int
}

// Patroller runs patrols of all targets in a store.
type Patroller struct {
	Store    store.Store
	Executor Executor
	Alert    Dispatcher
	Journal  *journal.Journal

	// Concurrency is the maximum number of targets patrolled at once.
	Concurrency int

	// Limiter tracks in-flight patrols. It is created on first use if nil.
	Limiter *Limiter

	limiterOnce sync.Once
}

var discard = journal.New(io.Discard)

func (p *Patroller) journal() *journal.Journal {
	if p.Journal == nil {
		return discard
	}
	return p.Journal
}

func (p *Patroller) concurrency() int {
	if p.Concurrency > 0 {
		return p.Concurrency
	}
	return DefaultConcurrency
}

func (p *Patroller) lock() *Limiter {
	p.limiterOnce.Do(func() {
		if p.Limiter == nil {
			p.Limiter = NewLimiter()
		}
	})
	return p.Limiter
}

// Patrol runs one tick of a target.
// The result is committed to the store in one write, and an alert is dispatched if the probe failed.
// If the target is reconfigured while the probe is running, the store keeps the new countdown.
// It returns the new snapshot, or nil if the target was not probed on this tick.
func (p *Patroller) Patrol(ctx context.Context, t api.Target) (*api.Snapshot, error) {
	next, probe := Countdown(t)
	tr := store.Transition{From: t.NextPatrol, Interval: t.Interval, Next: next}
	if !probe {
		return nil, p.Store.Commit(ctx, t.ID, tr, nil)
	}

	snap := p.Executor.Execute(ctx, t)

	err := p.Store.Commit(ctx, t.ID, tr, &snap)
	p.journal().Snapshot(t, snap)

	if snap.Status == api.StatusError && p.Alert != nil {
		t.NextPatrol = next
		t.AppendSnapshot(snap, 0)
		p.Alert.Dispatch(ctx, t, errors.New(snap.ErrMessage))
	}

	return &snap, err
}

// Tick runs patrols of all targets concurrently, and waits for them to finish.
// A target whose previous patrol is still running is skipped.
// Tick never fails; problems are written to the journal.
func (p *Patroller) Tick(ctx context.Context) Summary {
	targets, err := p.Store.Targets(ctx)
	if err != nil {
		p.journal().Failure("scout:patrol", fmt.Errorf("failed to list targets: %w", err))
		return Summary{Failures: 1}
	}

	var (
		mu  sync.Mutex
		sum = Summary{Targets: len(targets)}
		wg  sync.WaitGroup
		sem = make(chan struct{}, p.concurrency())
	)

	for _, t := range targets {
		if !p.lock().Acquire(t.ID) {
			p.journal().Info("scout:patrol", fmt.Sprintf("skip %s: previous patrol is still running", t.Name))
			mu.Lock()
			sum.Skipped++
			mu.Unlock()
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(t api.Target) {
			defer wg.Done()
			defer func() { <-sem }()
			defer p.lock().Release(t.ID)

			snap, err := p.safePatrol(ctx, t)

			mu.Lock()
			defer mu.Unlock()
			if snap != nil {
				sum.Probed++
				if snap.Status == api.StatusError {
					sum.Errors++
				}
			}
			if err != nil {
				sum.Failures++
			}
		}(t)
	}

	wg.Wait()
	return sum
}

func (p *Patroller) safePatrol(ctx context.Context, t api.Target) (snap *api.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			p.journal().Failure("scout:patrol", fmt.Errorf("%s: %w", t.Name, err))
		}
	}()

	snap, err = p.Patrol(ctx, t)
	if err != nil {
		p.journal().Failure("scout:store", fmt.Errorf("%s: %w", t.Name, err))
	}
	return snap, err
}

// Run calls Tick on the schedule until ctx is canceled.
func (p *Patroller) Run(ctx context.Context, sched schedule.Schedule, loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}

	var wg sync.WaitGroup

	c := cron.New(cron.WithLocation(loc))
	c.Schedule(sched, cron.FuncJob(func() {
		p.Tick(ctx)
	}))

	if sched.NeedKickWhenStart() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Tick(ctx)
		}()
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	wg.Wait()
}
