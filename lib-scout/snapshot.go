package scout

import (
	"math"
	"time"

	"github.com/goccy/go-json"
)

// Snapshot is one recorded probe outcome.
// Snapshots are immutable once created, and appended to Target.Snapshots in chronological order.
type Snapshot struct {
	Timestamp time.Time

	Status Status

	// StatusCode is the HTTP status code. Zero means not captured.
	StatusCode int

	// ResponseTime is the time from the request start to the response arrival.
	// Zero means not captured.
	ResponseTime time.Duration

	// ErrMessage is the reason of StatusError.
	ErrMessage string

	// Body is the captured response body.
	// It is only recorded for StatusError snapshots.
	Body string
}

type jsonSnapshot struct {
	Timestamp    string   `json:"timestamp"`
	Status       Status   `json:"status"`
	StatusCode   int      `json:"statusCode,omitempty"`
	ResponseTime *float64 `json:"responseTime,omitempty"`
	ErrMessage   string   `json:"errMessage,omitempty"`
	Body         string   `json:"body,omitempty"`
}

// ResponseTimeMS returns the response time in milliseconds.
func (s Snapshot) ResponseTimeMS() float64 {
	return float64(s.ResponseTime.Microseconds()) / 1000
}

// MarshalJSON implements json.Marshaler.
// The response time is encoded in milliseconds.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	j := jsonSnapshot{
		Timestamp:  s.Timestamp.Format(time.RFC3339Nano),
		Status:     s.Status,
		StatusCode: s.StatusCode,
		ErrMessage: s.ErrMessage,
		Body:       s.Body,
	}
	if s.ResponseTime > 0 {
		ms := s.ResponseTimeMS()
		j.ResponseTime = &ms
	}
	return json.Marshal(j)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var j jsonSnapshot
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}

	ts, err := time.Parse(time.RFC3339Nano, j.Timestamp)
	if err != nil {
		return err
	}

	*s = Snapshot{
		Timestamp:  ts,
		Status:     j.Status,
		StatusCode: j.StatusCode,
		ErrMessage: j.ErrMessage,
		Body:       j.Body,
	}
	if j.ResponseTime != nil {
		s.ResponseTime = time.Duration(math.Round(*j.ResponseTime * float64(time.Millisecond)))
	}

	return nil
}
