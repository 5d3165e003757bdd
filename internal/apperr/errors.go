// Package apperr defines the error taxonomy shared by the console core.
package apperr

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	CodeMalformedDocument     = "MALFORMED_DOCUMENT"
	CodePreconditionViolation = "PRECONDITION_VIOLATION"
	CodeStreamFailure         = "STREAM_FAILURE"
	CodeNotFound              = "NOT_FOUND"
)

// Sentinels for errors.Is matching against a code.
var (
	ErrMalformedDocument     = &Error{Code: CodeMalformedDocument}
	ErrPreconditionViolation = &Error{Code: CodePreconditionViolation}
	ErrStreamFailure         = &Error{Code: CodeStreamFailure}
	ErrNotFound              = &Error{Code: CodeNotFound}
)

// Error is a coded error with an optional underlying cause.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Line    int    `json:"line,omitempty"`

	cause error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Line > 0 {
		msg = fmt.Sprintf("%s (line %d)", msg, e.Line)
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

// Unwrap exposes the cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func newError(code, message string, cause error) *Error {
	err := &Error{
		Code:    code,
		Message: message,
		cause:   cause,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewMalformedDocument reports unparseable or structurally invalid markup.
func NewMalformedDocument(message string, cause error) *Error {
	return newError(CodeMalformedDocument, message, cause)
}

// NewPreconditionViolation reports invalid caller input such as zero-sized
// dimensions or a nil node.
func NewPreconditionViolation(format string, args ...any) *Error {
	return newError(CodePreconditionViolation, fmt.Sprintf(format, args...), nil)
}

// NewStreamFailure reports an error raised while converting a batch.
func NewStreamFailure(message string, cause error) *Error {
	return newError(CodeStreamFailure, message, cause)
}

// NewNotFound reports a lookup of an unknown workspace image or preview run.
func NewNotFound(kind, id string) *Error {
	return newError(CodeNotFound, fmt.Sprintf("%s not found: %s", kind, id), nil)
}

// WithLine returns a copy of err annotated with a source line.
func WithLine(err *Error, line int) *Error {
	cp := *err
	cp.Line = line
	return &cp
}

// Code returns the code of the first *Error in err's chain, or "".
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
