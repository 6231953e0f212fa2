// Package apperr defines the error kinds the API distinguishes and how each
// one is reported to clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrSlotTaken         = errors.New("slot taken")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrProvider          = errors.New("provider error")
	ErrSignatureMismatch = errors.New("signature mismatch")
)

// Error is an error with a message that is safe to show to API clients.
// DevMessage is only ever logged.
type Error struct {
	Kind          error
	StatusCode    int
	ClientMessage string
	DevMessage    string
	Err           error
}

func (e *Error) Error() string {
	msg := e.DevMessage
	if msg == "" {
		msg = e.ClientMessage
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newErr(kind error, msg string) *Error {
	return &Error{Kind: kind, StatusCode: statusFor(kind), ClientMessage: msg}
}

func Validation(msg string) *Error   { return newErr(ErrValidation, msg) }
func NotFound(msg string) *Error     { return newErr(ErrNotFound, msg) }
func SlotTaken(msg string) *Error    { return newErr(ErrSlotTaken, msg) }
func Unauthorized(msg string) *Error { return newErr(ErrUnauthorized, msg) }
func Forbidden(msg string) *Error    { return newErr(ErrForbidden, msg) }
func Conflict(msg string) *Error     { return newErr(ErrConflict, msg) }

func SignatureMismatch() *Error {
	return newErr(ErrSignatureMismatch, "Invalid signature")
}

// Provider wraps a failed call to an external API. A status outside the
// 4xx/5xx range collapses to 500.
func Provider(status int, msg string, err error) *Error {
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	return &Error{
		Kind:          ErrProvider,
		StatusCode:    status,
		ClientMessage: msg,
		Err:           err,
	}
}

// Wrap attaches a developer-facing cause to a client-facing error.
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

func statusFor(kind error) int {
	switch kind {
	case ErrValidation, ErrSlotTaken, ErrSignatureMismatch:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Status resolves the HTTP status and client message for any error.
// Bare sentinels get a generic message; everything else is an opaque 500.
func Status(err error) (int, string) {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode, e.ClientMessage
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, ErrSlotTaken):
		return http.StatusBadRequest, "Time slot is already booked"
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, "Missing data"
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ErrSignatureMismatch):
		return http.StatusBadRequest, "Invalid signature"
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, "already exists"
	}
	return http.StatusInternalServerError, "internal error"
}
