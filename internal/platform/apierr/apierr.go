package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

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

// Invalid marks a malformed submission; the request is rejected before any job exists.
func Invalid(format string, args ...any) *Error {
	return New(http.StatusBadRequest, "invalid_request", fmt.Errorf(format, args...))
}

func NotFound(code string, err error) *Error {
	return New(http.StatusNotFound, code, err)
}

// As extracts an *Error from err, falling back to a 500 wrapper.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		return ae
	}
	return New(http.StatusInternalServerError, "internal_error", err)
}
