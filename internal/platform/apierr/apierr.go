package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the status-coded error that crosses the service/handler boundary.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(code string, err error) *Error {
	return New(http.StatusBadRequest, code, err)
}

func Unauthorized(code string, err error) *Error {
	return New(http.StatusUnauthorized, code, err)
}

func NotFound(code string, err error) *Error {
	return New(http.StatusNotFound, code, err)
}

func UnsupportedMediaType(code string, err error) *Error {
	return New(http.StatusUnsupportedMediaType, code, err)
}

// StatusOf maps any error to an HTTP status, defaulting to 500.
func StatusOf(err error) (int, string) {
	var ae *Error
	if errors.As(err, &ae) {
		code := ae.Code
		if code == "" {
			code = "internal_error"
		}
		return ae.Status, code
	}
	return http.StatusInternalServerError, "internal_error"
}
