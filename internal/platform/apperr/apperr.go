// Package apperr defines the error taxonomy of the service. Every core
// operation reports failures as one of these kinds so callers can
// distinguish "fix your input" (validation) from "no longer actionable"
// (state conflict), missing entities, and inventory shortfalls.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Kind classifies an application error.
type Kind int

const (
	// KindValidation covers missing/invalid fields, out-of-range
	// enumerations, malformed dates, and non-positive quantities.
	KindValidation Kind = iota
	// KindStateConflict covers operations attempted from an illegal
	// lifecycle state.
	KindStateConflict
	// KindNotFound covers references to entities that do not exist.
	KindNotFound
	// KindCapacity covers insufficient compatible, unassigned, unexpired
	// inventory.
	KindCapacity
	// KindConflict covers concurrent-claim losses ("unit no longer
	// available").
	KindConflict
	// KindForbidden covers role/ownership violations.
	KindForbidden
)

// Error is a typed application error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is match on kind so sentinel comparisons work across
// wrapped chains.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

// Kind sentinels for errors.Is checks.
var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrStateConflict = &Error{Kind: KindStateConflict}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrCapacity      = &Error{Kind: KindCapacity}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrForbidden     = &Error{Kind: KindForbidden}
)

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func StateConflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindStateConflict, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Capacity(format string, args ...interface{}) *Error {
	return &Error{Kind: KindCapacity, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Msg: fmt.Sprintf(format, args...)}
}

// HTTPStatus maps an error to the status code handlers should return.
// Unrecognized errors are treated as internal.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindStateConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindCapacity:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// HTTP converts an application error into the echo error handlers return.
// Internal errors get a generic message so repository details never leak.
func HTTP(err error) error {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		return echo.NewHTTPError(status, "internal error")
	}
	return echo.NewHTTPError(status, err.Error())
}
