package scout

import (
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

const (
	DefaultApdexTarget = 500
	MinApdexTarget     = 100
	DefaultInterval    = 5
	MinInterval        = 1
	DefaultTolerance   = 0
)

// ReadType is how to read the response body.
type ReadType string

const (
	ReadText ReadType = "text"
	ReadJSON ReadType = "json"
)

// Header is a pair of HTTP header name and value.
// It is encoded in JSON as ["name", "value"].
type Header struct {
	Name  string
	Value string
}

func (h Header) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{h.Name, h.Value})
}

func (h *Header) UnmarshalJSON(data []byte) error {
	var xs []string
	if err := json.Unmarshal(data, &xs); err != nil {
		return err
	}
	if len(xs) != 2 {
		return fmt.Errorf("header must be [name, value] but got %d elements", len(xs))
	}
	h.Name, h.Value = xs[0], xs[1]
	return nil
}

// Target is a monitored endpoint and its patrol policy.
type Target struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Tags   []string `json:"tags,omitempty"`
	Method string   `json:"method"`
	URL    string   `json:"url"`
	Body   string   `json:"body,omitempty"`

	Headers  []Header `json:"headers,omitempty"`
	ReadType ReadType `json:"readType"`
	TestCase string   `json:"testCase,omitempty"`

	Recipients []string `json:"recipients,omitempty"`

	// ApdexTarget is the satisfied response time in milliseconds.
	ApdexTarget int `json:"apdexTarget"`

	// Interval is the patrol interval in ticks.
	Interval int `json:"interval"`

	// NextPatrol is the countdown to the next patrol in ticks.
	NextPatrol int `json:"nextPatrol"`

	// Tolerance is the count of consecutive errors that escalates to an alert.
	Tolerance int `json:"tolerance"`

	WorkTime  []WorkTimeRange `json:"workTime,omitempty"`
	Snapshots []Snapshot      `json:"snapshots,omitempty"`
}

// ApdexThreshold returns ApdexTarget as a time.Duration.
func (t Target) ApdexThreshold() time.Duration {
	return time.Duration(t.ApdexTarget) * time.Millisecond
}

// Apdex calculates Apdex score of the snapshots in the last 24 hours.
func (t Target) Apdex(now time.Time) (score float64, ok bool) {
	return Apdex(t.Snapshots, t.ApdexThreshold(), now)
}

// IsWorkTime reports whether the target should be probed at now.
func (t Target) IsWorkTime(now time.Time) bool {
	return IsWorkTime(now, t.WorkTime)
}

// LastSnapshot returns the newest snapshot.
func (t Target) LastSnapshot() (Snapshot, bool) {
	if len(t.Snapshots) == 0 {
		return Snapshot{}, false
	}
	return t.Snapshots[len(t.Snapshots)-1], true
}

// HTTPHeader converts Headers to http.Header.
// Headers with empty name are ignored.
func (t Target) HTTPHeader() http.Header {
	h := make(http.Header, len(t.Headers))
	for _, x := range t.Headers {
		if x.Name == "" {
			continue
		}
		h.Add(x.Name, x.Value)
	}
	return h
}

// Clone makes a deep copy of the target.
func (t Target) Clone() Target {
	c := t
	c.Tags = append([]string(nil), t.Tags...)
	c.Headers = append([]Header(nil), t.Headers...)
	c.Recipients = append([]string(nil), t.Recipients...)
	c.WorkTime = append([]WorkTimeRange(nil), t.WorkTime...)
	c.Snapshots = append([]Snapshot(nil), t.Snapshots...)
	return c
}

// AppendSnapshot appends s to the history, and drops the oldest snapshots to keep the history up to limit.
// A limit of zero or less means unlimited.
func (t *Target) AppendSnapshot(s Snapshot, limit int) {
	t.Snapshots = append(t.Snapshots, s)
	if limit > 0 && len(t.Snapshots) > limit {
		t.Snapshots = append([]Snapshot(nil), t.Snapshots[len(t.Snapshots)-limit:]...)
	}
}
