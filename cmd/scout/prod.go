//go:build !debug
// +build !debug

package main

import (
	"github.com/macrat/scout/internal/journal"
)

// startDebugLogger starts debug logger and pprof server.
// But this function nothing to do in production mode.
// Please see also debug.go
func startDebugLogger(j *journal.Journal) {
	// nothing to do.
}
