package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation        = "validation_error"
	CodeNotFound          = "not_found"
	CodeInvalidTransition = "invalid_transition"
	CodeConflict          = "conflict"
	CodeExecutionFailure  = "execution_failure"
	CodeInternal          = "internal"
)

// Detail is one field-level problem attached to a validation error.
type Detail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type Error struct {
	Status  int
	Code    string
	Err     error
	Details []Detail
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

// ValidationDetails is a validation error carrying per-field messages.
func ValidationDetails(msg string, details []Detail) *Error {
	e := New(http.StatusBadRequest, CodeValidation, errors.New(msg))
	e.Details = details
	return e
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func InvalidTransition(format string, args ...any) *Error {
	return New(http.StatusConflict, CodeInvalidTransition, fmt.Errorf(format, args...))
}

func Conflict(format string, args ...any) *Error {
	return New(http.StatusConflict, CodeConflict, fmt.Errorf(format, args...))
}

func ExecutionFailure(err error) *Error {
	return New(http.StatusUnprocessableEntity, CodeExecutionFailure, err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, err)
}

// As returns err as an *Error, wrapping anything unrecognised as internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}
