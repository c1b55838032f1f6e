package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation         = "validation_error"
	CodeNotFound           = "not_found"
	CodeUpstreamGeneration = "upstream_generation_error"
	CodeInvariant          = "invariant_violation"
	CodeUnauthorized       = "unauthorized"
	CodeInternal           = "internal_error"
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

func Validation(format string, args ...any) *Error {
	return New(http.StatusBadRequest, CodeValidation, fmt.Errorf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func UpstreamGeneration(err error) *Error {
	return New(http.StatusInternalServerError, CodeUpstreamGeneration, err)
}

func Invariant(format string, args ...any) *Error {
	return New(http.StatusInternalServerError, CodeInvariant, fmt.Errorf(format, args...))
}

func Unauthorized(err error) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, err)
}

// HasCode reports whether err wraps an *Error carrying code.
func HasCode(err error, code string) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}
