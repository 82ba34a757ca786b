// Package toolerr defines the closed error taxonomy shared by all tool
// components. Every failure a component can raise is one of these kinds; the
// dispatch layer renders them into the uniform tool error envelope and nothing
// else ever crosses the tool boundary.
package toolerr

import (
	"errors"
	"fmt"
)

// Kind classifies a tool-level failure.
type Kind string

const (
	// InvalidArguments means the tool call violated its declared schema.
	InvalidArguments Kind = "InvalidArguments"
	// UnsafeStatement means a mutating SQL statement was rejected.
	UnsafeStatement Kind = "UnsafeStatement"
	// BackendUnavailable means the warehouse backend could not be reached or
	// its credentials are malformed.
	BackendUnavailable Kind = "BackendUnavailable"
	// RemoteServiceError means a transport or auth failure talking to a
	// remote platform service.
	RemoteServiceError Kind = "RemoteServiceError"
	// ResourceNotFound means the remote service reported a missing id.
	ResourceNotFound Kind = "ResourceNotFound"
	// InvalidSpec means a transformation payload failed validation.
	InvalidSpec Kind = "InvalidSpec"
	// QueryExecutionFailed means the backend rejected or failed a SQL query.
	QueryExecutionFailed Kind = "QueryExecutionFailed"
)

// Error is a classified component failure. Message is safe to show to the
// caller; credentials never appear in it.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error, keeping its message verbatim for
// diagnosability.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg = fmt.Sprintf("%s: %s", msg, err.Error())
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf extracts the kind of a classified error. It returns false when the
// error does not carry a kind.
func KindOf(err error) (Kind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
