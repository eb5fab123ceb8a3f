package scout

import (
	"fmt"
)

const (
	// StatusIdle means the patrol was outside of the target's work time, so no request was issued.
	StatusIdle Status = iota

	// StatusOK means the probe succeeded and the assertion script passed.
	StatusOK

	// StatusError means the request, the body reading, or the assertion script failed.
	StatusError
)

// Status is the status of a snapshot.
type Status int8

// ParseStatus parses status string.
func ParseStatus(raw string) (Status, error) {
	switch raw {
	case "OK":
		return StatusOK, nil
	case "Error":
		return StatusError, nil
	case "Idle":
		return StatusIdle, nil
	default:
		return StatusIdle, fmt.Errorf("unsupported status: %q", raw)
	}
}

// String is make Status a string.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusError:
		return "Error"
	default:
		return "Idle"
	}
}

// MarshalText is marshal Status as text.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is unmarshal text as status.
func (s *Status) UnmarshalText(text []byte) error {
	x, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = x
	return nil
}
