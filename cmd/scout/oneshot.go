package main

import (
	"context"
	"fmt"

	"github.com/macrat/scout/internal/patrol"
)

// RunOneshot runs a single tick.
// It returns 1 if any probe failed or any target could not finish its patrol.
func (cmd *ScoutCommand) RunOneshot(ctx context.Context, p *patrol.Patroller) (exitCode int) {
	sum := p.Tick(ctx)

	p.Journal.Info("scout:oneshot", fmt.Sprintf("%d targets, %d probed, %d skipped, %d errors, %d failures", sum.Targets, sum.Probed, sum.Skipped, sum.Errors, sum.Failures))

	if sum.Errors > 0 || sum.Failures > 0 {
		return 1
	}
	return 0
}
