package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", Validation("Missing data"), http.StatusBadRequest, "Missing data"},
		{"not found", NotFound("Doctor not found"), http.StatusNotFound, "Doctor not found"},
		{"slot taken", SlotTaken("Time slot is already booked"), http.StatusBadRequest, "Time slot is already booked"},
		{"unauthorized", Unauthorized("no session"), http.StatusUnauthorized, "no session"},
		{"forbidden", Forbidden("Unauthorized access"), http.StatusForbidden, "Unauthorized access"},
		{"conflict", Conflict("Doctor already exists"), http.StatusConflict, "Doctor already exists"},
		{"signature", SignatureMismatch(), http.StatusBadRequest, "Invalid signature"},
		{"provider passthrough", Provider(http.StatusTooManyRequests, "rate limited", nil), http.StatusTooManyRequests, "rate limited"},
		{"provider odd status", Provider(204, "weird", nil), http.StatusInternalServerError, "weird"},
		{"wrapped sentinel", fmt.Errorf("appointment x: %w", ErrNotFound), http.StatusNotFound, "not found"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := Status(tt.err)
			if status != tt.status {
				t.Errorf("status = %d, want %d", status, tt.status)
			}
			if msg != tt.msg {
				t.Errorf("msg = %q, want %q", msg, tt.msg)
			}
		})
	}
}

func TestErrorMatchesKindAndCause(t *testing.T) {
	cause := errors.New("pg down")
	err := fmt.Errorf("book: %w", SlotTaken("taken").Wrap(cause))

	if !errors.Is(err, ErrSlotTaken) {
		t.Error("expected ErrSlotTaken")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("unexpected ErrNotFound")
	}
}
