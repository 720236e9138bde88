package advisor

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind distinguishes the failure modes of an advisor call.
type ErrorKind string

const (
	// ErrKindNetwork covers transport and service errors from the provider.
	ErrKindNetwork ErrorKind = "network"
	// ErrKindTimeout covers requests that exceeded their deadline.
	ErrKindTimeout ErrorKind = "timeout"
	// ErrKindMalformed covers responses that are not well-formed structured data.
	ErrKindMalformed ErrorKind = "malformed"
)

// Error is the typed failure returned by advisor calls. It is always
// recoverable by the state machine's routing; it never crashes the process.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("advisor %s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// classifyCallError wraps a provider error with the network/timeout kind.
func classifyCallError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: ErrKindTimeout, Err: err}
	}
	return &Error{Kind: ErrKindNetwork, Err: err}
}

// malformed wraps a parse failure.
func malformed(err error) *Error {
	return &Error{Kind: ErrKindMalformed, Err: err}
}

// KindOf extracts the ErrorKind from err, or "" when err is not an advisor error.
func KindOf(err error) ErrorKind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
