package errors

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// Error is a coded error. Code doubles as the HTTP status the handlers
// answer with, so the service layer decides the taxonomy and the HTTP
// layer only translates.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
	Stack   string `json:"stack,omitempty"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(message string) *Error {
	return &Error{Message: message, Stack: captureStack()}
}

func Errorf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Stack: captureStack()}
}

func WithCode(code int, message string) *Error {
	return &Error{Code: code, Message: message, Stack: captureStack()}
}

func WithCodef(code int, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Stack: captureStack()}
}

// Wrap annotates err with a message, keeping err reachable via Unwrap.
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	code := 0
	if e, ok := err.(*Error); ok {
		code = e.Code
	}
	return &Error{Code: code, Message: message, Err: err, Stack: captureStack()}
}

func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// Domain constructors for the service error taxonomy.

func Validation(message string) *Error    { return WithCode(http.StatusBadRequest, message) }
func Authorization(message string) *Error { return WithCode(http.StatusForbidden, message) }
func NotFound(message string) *Error      { return WithCode(http.StatusNotFound, message) }
func Unavailable(message string) *Error   { return WithCode(http.StatusServiceUnavailable, message) }
func Internal(err error, message string) *Error {
	e := Wrap(err, message)
	if e != nil {
		e.Code = http.StatusInternalServerError
	}
	return e
}

// GetCode returns the error's code, or 0 for foreign errors.
func GetCode(err error) int {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return 0
}

// HTTPStatus maps any error to a response status, defaulting to 500.
func HTTPStatus(err error) int {
	if code := GetCode(err); code >= http.StatusBadRequest {
		return code
	}
	return http.StatusInternalServerError
}

func captureStack() string {
	buf := make([]byte, 1024)
	n := runtime.Stack(buf, false)
	lines := strings.Split(string(buf[:n]), "\n")
	if len(lines) > 6 {
		lines = lines[6:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
