package handler

import (
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"appointment-booking-api/internal/apperr"
	"appointment-booking-api/internal/model"
	"appointment-booking-api/internal/schedule"
)

const maxBody = 1 << 20

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError is the one place errors become responses.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	} else {
		h.log.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// decode reads a JSON body into v and validates it. Any failure is a
// validation error with message "Missing data".
func (h *Handler) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v); err != nil {
		return apperr.Validation("Missing data").Wrap(err)
	}
	if err := h.validate.Struct(v); err != nil {
		return apperr.Validation("Missing data").Wrap(err)
	}
	return nil
}

func (h *Handler) parseInstant(s string) (time.Time, error) {
	t, err := schedule.ParseInstant(s, h.loc)
	if err != nil {
		return time.Time{}, apperr.Validation("Invalid date format").Wrap(err)
	}
	return t, nil
}

type personJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type appointmentJSON struct {
	ID              string     `json:"id"`
	Date            string     `json:"date"`
	Purpose         string     `json:"purpose"`
	Doctor          personJSON `json:"doctor"`
	User            personJSON `json:"user"`
	MeetingURL      string     `json:"meeting_url"`
	ModeratorURL    string     `json:"moderator_url"`
	MeetingPassword string     `json:"meeting_password"`
}

func (h *Handler) appointment(a *model.Appointment) appointmentJSON {
	return appointmentJSON{
		ID:              a.ID,
		Date:            schedule.Format(a.Date, h.loc),
		Purpose:         a.Purpose,
		Doctor:          personJSON{ID: a.Doctor.ID, Name: a.Doctor.Name, Email: a.Doctor.Email},
		User:            personJSON{ID: a.User.ID, Name: a.User.Name, Email: a.User.Email},
		MeetingURL:      a.MeetingURL,
		ModeratorURL:    a.ModeratorURL,
		MeetingPassword: a.MeetingPassword,
	}
}

func (h *Handler) appointments(list []model.Appointment) []appointmentJSON {
	out := make([]appointmentJSON, 0, len(list))
	for i := range list {
		out = append(out, h.appointment(&list[i]))
	}
	return out
}

func doctorJSON(d *model.Doctor) personJSON {
	return personJSON{ID: d.ID, Name: d.Name, Email: d.Email}
}

type unavailableJSON struct {
	ID       int64  `json:"id"`
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
}

func (h *Handler) unavailable(u *model.UnavailableSlot) unavailableJSON {
	return unavailableJSON{ID: u.ID, DoctorID: u.DoctorID, Date: schedule.Format(u.Date, h.loc)}
}
