package mcp

import (
	"time"

	"github.com/macrat/scout/internal/alert"
	api "github.com/macrat/scout/lib-scout"
)

// SnapshotToMap converts an api.Snapshot to a map for jq processing.
func SnapshotToMap(s api.Snapshot) map[string]any {
	x := map[string]any{
		"time":      s.Timestamp.Format(time.RFC3339),
		"time_unix": int(s.Timestamp.Unix()),
		"status":    s.Status.String(),
	}
	if s.StatusCode != 0 {
		x["status_code"] = s.StatusCode
	}
	if s.ResponseTime > 0 {
		x["response_time_ms"] = s.ResponseTimeMS()
	}
	if s.ErrMessage != "" {
		x["message"] = s.ErrMessage
	}
	return x
}

// TargetToMap converts an api.Target to a map for jq processing.
// Snapshots are summarized into the latest one, the Apdex score, and the error streak.
func TargetToMap(t api.Target, now time.Time) map[string]any {
	tags := make([]any, len(t.Tags))
	for i, tag := range t.Tags {
		tags[i] = tag
	}

	x := map[string]any{
		"id":           t.ID,
		"name":         t.Name,
		"tags":         tags,
		"method":       t.Method,
		"url":          t.URL,
		"interval":     t.Interval,
		"next_patrol":  t.NextPatrol,
		"tolerance":    t.Tolerance,
		"apdex_target": t.ApdexTarget,
		"recipients":   len(t.Recipients),
		"error_streak": alert.ConsecutiveErrors(t.Snapshots),
		"work_time":    t.IsWorkTime(now),
		"apdex":        nil,
		"latest":       nil,
	}

	if score, ok := t.Apdex(now); ok {
		x["apdex"] = score
	}
	if last, ok := t.LastSnapshot(); ok {
		x["latest"] = SnapshotToMap(last)
	}

	return x
}
