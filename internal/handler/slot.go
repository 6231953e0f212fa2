package handler

import (
	"net/http"

	"appointment-booking-api/internal/apperr"
	"appointment-booking-api/internal/schedule"
)

func (h *Handler) availableSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	doctorID, date := q.Get("doctor_id"), q.Get("date")
	if doctorID == "" || date == "" {
		h.writeError(w, r, apperr.Validation("Missing data"))
		return
	}
	day, err := schedule.ParseDay(date, h.loc)
	if err != nil {
		h.writeError(w, r, apperr.Validation("Invalid date format").Wrap(err))
		return
	}

	open, err := h.opts.Bookings.AvailableSlots(r.Context(), doctorID, day)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]string, 0, len(open))
	for _, t := range open {
		out = append(out, schedule.Format(t, h.loc))
	}
	writeJSON(w, http.StatusOK, map[string]any{"available_slots": out})
}

func (h *Handler) unavailableSlots(w http.ResponseWriter, r *http.Request) {
	list, err := h.opts.Bookings.UnavailableSlots(r.Context(), r.URL.Query().Get("doctor_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]unavailableJSON, 0, len(list))
	for i := range list {
		out = append(out, h.unavailable(&list[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"unavailable_slots": out})
}

type blockSlotRequest struct {
	DoctorID string `json:"doctor_id" validate:"required"`
	Date     string `json:"date" validate:"required"`
}

func (h *Handler) blockSlot(w http.ResponseWriter, r *http.Request) {
	var req blockSlotRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	at, err := h.parseInstant(req.Date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	slot, err := h.opts.Bookings.BlockSlot(r.Context(), req.DoctorID, at)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"slot": h.unavailable(slot)})
}
