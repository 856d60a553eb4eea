package codeforces

import (
	"errors"
	"fmt"
)

// ErrNotFound marks an upstream "handle not found" answer.
var ErrNotFound = errors.New("codeforces: handle not found")

// TransientError is a failure worth retrying: 5xx, 429, a dropped connection
// or a "not found" answer while the handle may still be propagating.
type TransientError struct {
	Method     string
	StatusCode int
	Comment    string
	Err        error
}

func (e *TransientError) Error() string {
	return formatError("transient", e.Method, e.StatusCode, e.Comment, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func (e *TransientError) HTTPStatusCode() int { return e.StatusCode }

// PermanentError is a failure that is returned without retrying.
type PermanentError struct {
	Method     string
	StatusCode int
	Comment    string
	Err        error
}

func (e *PermanentError) Error() string {
	return formatError("permanent", e.Method, e.StatusCode, e.Comment, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

func (e *PermanentError) HTTPStatusCode() int { return e.StatusCode }

// MalformedPayloadError reports a response that could not be decoded or that
// lacks a required field.
type MalformedPayloadError struct {
	Entity string
	Field  string
	Err    error
}

func (e *MalformedPayloadError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("codeforces: malformed %s payload: missing %s", e.Entity, e.Field)
	}
	return fmt.Sprintf("codeforces: malformed %s payload: %v", e.Entity, e.Err)
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }

func formatError(kind, method string, status int, comment string, err error) string {
	msg := fmt.Sprintf("codeforces %s: %s error", method, kind)
	if status != 0 {
		msg += fmt.Sprintf(" (http %d)", status)
	}
	if comment != "" {
		msg += ": " + comment
	} else if err != nil {
		msg += ": " + err.Error()
	}
	return msg
}

// IsTransient reports whether err carries a retryable cause.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsUpstream reports whether err originates from the Codeforces API rather
// than from local storage.
func IsUpstream(err error) bool {
	var (
		te *TransientError
		pe *PermanentError
		me *MalformedPayloadError
	)
	return errors.As(err, &te) || errors.As(err, &pe) || errors.As(err, &me)
}
