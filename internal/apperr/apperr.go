// Package apperr defines the error taxonomy shared by the stores, the
// service and the transports. Each error carries a stable machine-readable
// code and a human-readable message; storage errors also record the shape of
// the statement that failed.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindStorage
	KindMalformedInput
	KindMethodNotAllowed
	KindTooLarge
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	case KindMalformedInput:
		return "malformed_input"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	case KindTooLarge:
		return "too_large"
	default:
		return "internal"
	}
}

const (
	CodeIDRequired       = "ID_REQUIRED"
	CodeStateRequired    = "STATE_REQUIRED"
	CodeInvalidState     = "INVALID_STATE"
	CodeNotFound         = "NOT_FOUND"
	CodeSQL              = "SQL_ERROR"
	CodeDBConnection     = "DB_CONNECTION_FAILED"
	CodeStoreIO          = "STORE_IO_ERROR"
	CodeIDExhausted      = "ID_SEQUENCE_EXHAUSTED"
	CodeInvalidJSON      = "INVALID_JSON"
	CodeBodyTooLarge     = "BODY_TOO_LARGE"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeServer           = "SERVER_ERROR"
)

// Sentinels for errors.Is; any *Error of the same Kind matches.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrStorage    = &Error{Kind: KindStorage}
	ErrMalformed  = &Error{Kind: KindMalformedInput}
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Statement is the SQL text or file operation that failed, never its bound values.
	Statement string
	Cause     error
	Stack     []string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Statement != "" {
		msg += fmt.Sprintf(" (%s)", e.Statement)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return t.Kind == e.Kind
}

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindMalformedInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func NotFound(id string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: fmt.Sprintf("game %q does not exist", id)}
}

func Storage(code, statement string, cause error) *Error {
	return &Error{
		Kind:      KindStorage,
		Code:      code,
		Message:   "storage operation failed",
		Statement: statement,
		Cause:     cause,
		Stack:     callers(),
	}
}

func Malformed(cause error) *Error {
	return &Error{Kind: KindMalformedInput, Code: CodeInvalidJSON, Message: "request body is not valid JSON", Cause: cause}
}

func TooLarge(limit int64) *Error {
	return &Error{Kind: KindTooLarge, Code: CodeBodyTooLarge, Message: fmt.Sprintf("request body exceeds %d bytes", limit)}
}

func MethodNotAllowed(method string) *Error {
	return &Error{Kind: KindMethodNotAllowed, Code: CodeMethodNotAllowed, Message: fmt.Sprintf("method %s is not supported", method)}
}

// From returns err as an *Error, wrapping unknown errors as internal ones.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Kind: KindInternal, Code: CodeServer, Message: "internal server error", Cause: err, Stack: callers()}
}

func callers() []string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		stack = append(stack, fmt.Sprintf("%s %s:%d", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return stack
}
