// Package scouterr has the error types shared by the packages of Scout.
package scouterr

import (
	"fmt"
)

// Error is an error with a kind, like api.ErrNetwork or api.ErrPersistence.
// errors.Is matches both the kind and the cause.
type Error struct {
	kind    error
	cause   error
	message string
}

// New makes an Error of kind.
// The message is formatted from format and args, and followed by the message of cause if cause is not nil.
func New(kind error, cause error, format string, args ...interface{}) Error {
	msg := fmt.Sprintf(format, args...)
	switch {
	case cause == nil:
	case msg == "":
		msg = cause.Error()
	default:
		msg += ": " + cause.Error()
	}

	return Error{kind: kind, cause: cause, message: msg}
}

func (e Error) Error() string {
	return e.message
}

func (e Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// Kind returns the kind error that passed to New.
func (e Error) Kind() error {
	return e.kind
}
