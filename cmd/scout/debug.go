//go:build debug
// +build debug

package main

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"runtime"
	"time"

	"github.com/macrat/scout/internal/journal"
)

// startDebugLogger starts debug logger and pprof server.
func startDebugLogger(j *journal.Journal) {
	uptime := time.Now()

	report := func(latency time.Duration, message string) {
		j.Write(journal.Entry{
			Status:  journal.StatusInfo,
			Latency: latency,
			Scope:   "scout:debug",
			Message: message,
		})
	}

	go func() {
		report(time.Since(uptime), fmt.Sprintf("start in debug mode: arch=%s os=%s go=%s", runtime.GOARCH, runtime.GOOS, runtime.Version()))

		processStatus := func() {
			var mem runtime.MemStats

			stime := time.Now()
			runtime.ReadMemStats(&mem)
			report(time.Since(stime), fmt.Sprintf(
				"process status: goroutines=%d heap_alloc=%d mallocs=%d frees=%d gc=%d uptime=%.0fs",
				runtime.NumGoroutine(),
				mem.HeapAlloc,
				mem.Mallocs,
				mem.Frees,
				mem.NumGC,
				time.Since(uptime).Seconds(),
			))
		}

		processStatus()

		t := time.Tick(5 * time.Second)
		for range t {
			processStatus()
		}
	}()

	go func() {
		report(0, "start pprof server on http://localhost:6060")
		err := http.ListenAndServe("localhost:6060", nil)
		if err != nil {
			report(0, "pprof server has stopped: "+err.Error())
		}
	}()
}
