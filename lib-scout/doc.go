// Package scout is the data model of Scout, the uptime monitor.
//
// A Target is an HTTP endpoint with its patrol policy, and Snapshots are the history of its probe outcomes.
// This package also has the pure calculations on them: IsWorkTime for active windows, and Apdex for the satisfaction score.
package scout
