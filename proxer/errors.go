package proxer

import (
	"errors"
	"fmt"
)

// Kind classifies every error returned by this package.
type Kind int

const (
	// KindUnknown covers internal invariant violations.
	KindUnknown Kind = iota
	// KindInvalidParameters indicates structurally malformed input
	KindInvalidParameters
	// KindUnexpectedResponse indicates a non-200 status or a non-object body
	KindUnexpectedResponse
	// KindTransport indicates a network or protocol level failure
	KindTransport
)

// String returns the string representation of a Kind
func (k Kind) String() string {
	switch k {
	case KindInvalidParameters:
		return "invalid parameters"
	case KindUnexpectedResponse:
		return "unexpected response"
	case KindTransport:
		return "transport failure"
	default:
		return "unknown error"
	}
}

// Sentinels matched by kind through errors.Is.
var (
	// ErrInvalidParameters matches errors of KindInvalidParameters
	ErrInvalidParameters = errors.New("proxer: invalid parameters")
	// ErrUnexpectedResponse matches errors of KindUnexpectedResponse
	ErrUnexpectedResponse = errors.New("proxer: unexpected response")
	// ErrTransport matches errors of KindTransport
	ErrTransport = errors.New("proxer: transport failure")
	// ErrUnknown matches errors of KindUnknown
	ErrUnknown = errors.New("proxer: unknown error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidParameters:
		return ErrInvalidParameters
	case KindUnexpectedResponse:
		return ErrUnexpectedResponse
	case KindTransport:
		return ErrTransport
	default:
		return ErrUnknown
	}
}

// Error is the single error type returned by the client.
type Error struct {
	Kind Kind
	// Op names the failing step, e.g. "build url" or "get".
	Op string
	// Response is set for KindUnexpectedResponse.
	Response *RawResponse
	Err      error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := "proxer: " + e.Kind.String()
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Kind == KindUnexpectedResponse && e.Response != nil {
		msg += fmt.Sprintf(": status %d", e.Response.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf returns the Kind of err, or KindUnknown if err was not produced
// by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func invalidParams(op, format string, args ...any) *Error {
	return &Error{
		Kind: KindInvalidParameters,
		Op:   op,
		Err:  fmt.Errorf(format, args...),
	}
}

// internalize hides builder validation failures from callers. MakeRequest
// has already validated its input, so a builder rejecting it afterwards is
// an invariant violation rather than a caller mistake.
func internalize(err error) error {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindInvalidParameters {
		// Carry the cause, not e, so errors.Is cannot see the old kind.
		return &Error{Kind: KindUnknown, Op: e.Op, Err: e.Err}
	}
	return err
}

// APIError is reported by Response.Err when the upstream body carries a
// non-zero error field.
type APIError struct {
	Code    int
	Message string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("proxer API error: code %d", e.Code)
	}
	return fmt.Sprintf("proxer API error: code %d: %s", e.Code, e.Message)
}
