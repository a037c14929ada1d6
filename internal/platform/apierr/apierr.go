// Package apierr pairs an error with the HTTP status and stable code a client sees.
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

	// MissingFields is set for incomplete assessments so clients can show what failed.
	MissingFields []string
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

func NotFound(err error) *Error {
	return New(http.StatusNotFound, "not_found", err)
}

// WithMissing attaches the assessment fields that were absent or too short.
func (e *Error) WithMissing(fields []string) *Error {
	if len(fields) > 0 {
		e.MissingFields = append([]string(nil), fields...)
	}
	return e
}

// StatusOf returns the status carried by err, or 500 when err carries none.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}
