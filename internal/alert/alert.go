// Package alert escalates consecutive probe failures to an alert destination.
package alert

import (
	"context"
	"time"

	"github.com/macrat/scout/internal/journal"
	api "github.com/macrat/scout/lib-scout"
)

// Settings provides the alert destination.
type Settings interface {
	// AlertURL returns the URL to send alerts to.
	// Empty string disables alerting.
	AlertURL() string
}

// StaticURL is a Settings that always returns the same URL.
type StaticURL string

func (s StaticURL) AlertURL() string {
	return string(s)
}

// Payload is the alert content sent to the destination.
type Payload struct {
	Recipients []string `json:"recipients"`
	Name       string   `json:"name"`
	ErrMessage string   `json:"errMessage"`
	Detail     Detail   `json:"detail"`
}

// Detail is the additional information of an alert.
type Detail struct {
	TargetID   string `json:"targetId"`
	URL        string `json:"url"`
	Streak     int    `json:"streak"`
	StatusCode int    `json:"statusCode,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// Sink delivers a payload to a destination.
type Sink interface {
	Send(ctx context.Context, url string, p Payload) (response string, err error)
}

// ConsecutiveErrors counts trailing StatusError snapshots.
// Idle snapshots are skipped, and an OK snapshot ends the streak.
func ConsecutiveErrors(snapshots []api.Snapshot) int {
	n := 0
	for i := len(snapshots) - 1; i >= 0; i-- {
		switch snapshots[i].Status {
		case api.StatusOK:
			return n
		case api.StatusError:
			n++
		}
	}
	return n
}

// Threshold returns the streak length that fires an alert for the target.
// It is the tolerance itself, except that a tolerance of zero (or less) returns 1.
// A streak counted right after an error is never 0, so tolerance 0 fires on the first error just like tolerance 1.
func Threshold(t api.Target) int {
	if t.Tolerance < 1 {
		return 1
	}
	return t.Tolerance
}

// ShouldAlert reports whether the latest snapshot of the target reaches the tolerance exactly.
// It fires only once per streak; longer streaks do not fire again.
func ShouldAlert(t api.Target) bool {
	return len(t.Recipients) > 0 && ConsecutiveErrors(t.Snapshots) == Threshold(t)
}

// Dispatcher sends alerts for targets that reached the tolerance.
type Dispatcher struct {
	Settings Settings
	Sink     Sink
	Journal  *journal.Journal
}

// Dispatch checks the target's snapshots and sends an alert if needed.
// The target's snapshots must already include the error that triggered this call.
//
// Dispatch never fails; delivery errors are written to the journal.
// It reports whether an alert was delivered.
func (d Dispatcher) Dispatch(ctx context.Context, t api.Target, cause error) (sent bool) {
	if d.Settings == nil || d.Sink == nil || !ShouldAlert(t) {
		return false
	}

	url := d.Settings.AlertURL()
	if url == "" {
		return false
	}

	p := Payload{
		Recipients: append([]string(nil), t.Recipients...),
		Name:       t.Name,
		Detail: Detail{
			TargetID: t.ID,
			URL:      t.URL,
			Streak:   ConsecutiveErrors(t.Snapshots),
		},
	}
	if cause != nil {
		p.ErrMessage = cause.Error()
	}
	if last, ok := t.LastSnapshot(); ok {
		p.Detail.StatusCode = last.StatusCode
		p.Detail.Timestamp = last.Timestamp.Format(time.RFC3339)
	}

	resp, err := d.Sink.Send(ctx, url, p)
	if err != nil {
		if d.Journal != nil {
			d.Journal.Failure("alert:"+t.Name, err)
		}
		return false
	}
	if d.Journal != nil {
		d.Journal.Info("alert:"+t.Name, resp)
	}
	return true
}
