package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies failures surfaced to callers.
type ErrorKind string

// Error kinds.
const (
	// KindValidation: the declaration conflicts with the remote structure or
	// a required field is missing. Never retried.
	KindValidation ErrorKind = "validation"
	// KindConfig: connectivity or credentials are invalid, or an orchestration
	// stage failed.
	KindConfig ErrorKind = "config"
	// KindAppwrite: a backend error not otherwise classified.
	KindAppwrite ErrorKind = "appwrite"
	// KindTimeout: a polled resource never reached a terminal state.
	KindTimeout ErrorKind = "timeout"
	// KindAbort: an irrecoverable combination of failures.
	KindAbort ErrorKind = "abort"
)

// Error is the typed error returned by the synchronization engine.
type Error struct {
	Kind    ErrorKind
	Op      string // stage or operation, e.g. "columns"
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError reports a declaration that cannot be reconciled.
func NewValidationError(message string, cause error) *Error {
	return &Error{Kind: KindValidation, Message: message, Err: cause}
}

// NewConfigError reports a configuration or stage failure.
func NewConfigError(op, message string, cause error) *Error {
	return &Error{Kind: KindConfig, Op: op, Message: message, Err: cause}
}

// NewAppwriteError reports a backend failure, preserving its cause.
func NewAppwriteError(message string, cause error) *Error {
	return &Error{Kind: KindAppwrite, Message: message, Err: cause}
}

// NewTimeoutError reports a wait that ran out of attempts.
func NewTimeoutError(message string) *Error {
	return &Error{Kind: KindTimeout, Message: message}
}

// NewAbortError reports an irrecoverable combination of failures.
func NewAbortError(message string, cause error) *Error {
	return &Error{Kind: KindAbort, Message: message, Err: cause}
}

// KindOf returns the kind of the outermost *Error in err's chain, or "" if
// there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// RootKind returns the kind of the innermost *Error in err's chain. A stage
// failure wraps its cause in a Config error; RootKind sees through that
// wrapper to what actually went wrong.
func RootKind(err error) ErrorKind {
	var kind ErrorKind
	for err != nil {
		if e, ok := err.(*Error); ok {
			kind = e.Kind
		}
		err = errors.Unwrap(err)
	}
	return kind
}

// IsKind reports whether any *Error in err's tree has the given kind,
// including errors combined with errors.Join.
func IsKind(err error, kind ErrorKind) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *Error:
		if e == nil {
			return false
		}
		if e.Kind == kind {
			return true
		}
		return IsKind(e.Err, kind)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if IsKind(inner, kind) {
				return true
			}
		}
		return false
	}
	return IsKind(errors.Unwrap(err), kind)
}

// APIError is a failure reported by a backend with a status code.
type APIError struct {
	Code    int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s (%d %s)", e.Message, e.Code, e.Type)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Code)
}

// StatusCode returns the HTTP-equivalent status code.
func (e *APIError) StatusCode() int {
	return e.Code
}

// NotFound builds a 404 APIError.
func NotFound(format string, args ...any) *APIError {
	return &APIError{Code: http.StatusNotFound, Type: "not_found", Message: fmt.Sprintf(format, args...)}
}

// Conflict builds a 409 APIError.
func Conflict(format string, args ...any) *APIError {
	return &APIError{Code: http.StatusConflict, Type: "already_exists", Message: fmt.Sprintf(format, args...)}
}

type statusCoder interface {
	StatusCode() int
}

// StatusCode extracts a status code from err's chain.
func StatusCode(err error) (int, bool) {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode(), true
	}
	return 0, false
}

// IsNotFound reports whether err carries a 404 status.
func IsNotFound(err error) bool {
	code, ok := StatusCode(err)
	return ok && code == http.StatusNotFound
}

// IsConflict reports whether err carries a 409 status.
func IsConflict(err error) bool {
	code, ok := StatusCode(err)
	return ok && code == http.StatusConflict
}
