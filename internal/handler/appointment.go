package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"appointment-booking-api/internal/apperr"
	"appointment-booking-api/internal/booking"
)

type scheduleMeetingRequest struct {
	Date     string `json:"date" validate:"required"`
	Purpose  string `json:"purpose" validate:"required"`
	DoctorID string `json:"doctor" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
}

func (h *Handler) scheduleMeeting(w http.ResponseWriter, r *http.Request) {
	var req scheduleMeetingRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	at, err := h.parseInstant(req.Date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	a, err := h.opts.Bookings.Book(r.Context(), booking.BookRequest{
		Date:     at,
		Purpose:  req.Purpose,
		DoctorID: req.DoctorID,
		Email:    req.Email,
		Name:     req.Name,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Meeting scheduled successfully",
		"appointment": h.appointment(a),
	})
}

func (h *Handler) listAppointments(w http.ResponseWriter, r *http.Request) {
	list, err := h.opts.Bookings.ListByUser(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": h.appointments(list)})
}

func (h *Handler) doctorAppointments(w http.ResponseWriter, r *http.Request) {
	list, err := h.opts.Bookings.ListByDoctor(r.Context(), r.URL.Query().Get("doctor_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": h.appointments(list)})
}

type createAppointmentRequest struct {
	ID              string `json:"id"`
	DoctorID        string `json:"doctor_id" validate:"required"`
	UserID          string `json:"user_id" validate:"required"`
	Date            string `json:"date" validate:"required"`
	Purpose         string `json:"purpose" validate:"required"`
	MeetingURL      string `json:"meeting_url" validate:"required"`
	ModeratorURL    string `json:"moderator_url" validate:"required"`
	MeetingPassword string `json:"meeting_password" validate:"required"`
}

func (h *Handler) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	at, err := h.parseInstant(req.Date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	a, err := h.opts.Bookings.Create(r.Context(), booking.CreateRequest{
		ID:              req.ID,
		DoctorID:        req.DoctorID,
		UserID:          req.UserID,
		Date:            at,
		Purpose:         req.Purpose,
		MeetingURL:      req.MeetingURL,
		ModeratorURL:    req.ModeratorURL,
		MeetingPassword: req.MeetingPassword,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.appointment(a))
}

// link fields are optional; omitting all three provisions a fresh link
type rescheduleRequest struct {
	Date            string `json:"date" validate:"required"`
	MeetingURL      string `json:"meeting_url"`
	ModeratorURL    string `json:"moderator_url"`
	MeetingPassword string `json:"meeting_password"`
}

func (h *Handler) rescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	at, err := h.parseInstant(req.Date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	a, err := h.opts.Bookings.Reschedule(r.Context(), booking.RescheduleRequest{
		ID:              chi.URLParam(r, "id"),
		Date:            at,
		MeetingURL:      req.MeetingURL,
		ModeratorURL:    req.ModeratorURL,
		MeetingPassword: req.MeetingPassword,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.appointment(a))
}

func (h *Handler) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, r, apperr.Validation("Missing appointment id"))
		return
	}
	if err := h.opts.Bookings.Cancel(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Appointment canceled successfully"})
}
