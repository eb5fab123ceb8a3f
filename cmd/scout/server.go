package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/macrat/scout/internal/endpoint"
	"github.com/macrat/scout/internal/journal"
	"github.com/macrat/scout/internal/meta"
	"github.com/macrat/scout/internal/patrol"
	"github.com/macrat/scout/internal/store"
)

func (cmd *ScoutCommand) RunServer(ctx context.Context, s store.Store, j *journal.Journal, p *patrol.Patroller) (exitCode int) {
	startDebugLogger(j)

	sched, err := cmd.Config.Schedule()
	if err != nil {
		fmt.Fprintf(cmd.ErrStream, "error: %s\n", err)
		return 2
	}
	loc, err := cmd.Config.Location()
	if err != nil {
		fmt.Fprintf(cmd.ErrStream, "error: %s\n", err)
		return 2
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	j.Info("scout:server", fmt.Sprintf("start Scout %s (%s) on http://%s, tick=%s", meta.Version, meta.Commit, cmd.Config.Listen, sched))

	srv := &http.Server{Addr: cmd.Config.Listen, Handler: endpoint.New(s, j)}

	wg := &sync.WaitGroup{}
	wg.Add(2)
	go func() {
		p.Run(ctx, sched, loc)
		wg.Done()
	}()
	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(context.Background()); err != nil {
			j.Failure("scout:server", err)
		}
		wg.Done()
	}()

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		j.Failure("scout:server", err)
		exitCode = 1
	}
	cancel()

	wg.Wait()
	j.Info("scout:server", "stopped")

	return exitCode
}
