package scout

import (
	"errors"
)

// The errors in Scout can check the error type via errors.Is function.
var (
	// ErrConfiguration is a error for if a target definition was malformed.
	// Targets are rejected with this error when created, never at patrol time.
	ErrConfiguration = errors.New("invalid target configuration")

	// ErrNetwork is a error for if the probe request failed on transport.
	ErrNetwork = errors.New("network error")

	// ErrAssertion is a error for if the assertion script rejected a response.
	ErrAssertion = errors.New("assertion failed")

	// ErrScript is a error for if the assertion script itself was broken.
	ErrScript = errors.New("script error")

	// ErrPersistence is a error for if failed to write to the target store.
	ErrPersistence = errors.New("failed to persist")

	// ErrAlertSend is a error for if failed to deliver an alert.
	ErrAlertSend = errors.New("failed to send alert")

	// ErrNotFound is a error for if the requested target does not exist.
	ErrNotFound = errors.New("target not found")
)
