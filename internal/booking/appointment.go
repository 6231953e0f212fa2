package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"appointment-booking-api/internal/apperr"
	"appointment-booking-api/internal/meeting"
	"appointment-booking-api/internal/model"
	"appointment-booking-api/internal/notify"
	"appointment-booking-api/internal/schedule"
)

type BookRequest struct {
	Date     time.Time
	Purpose  string
	DoctorID string
	Email    string
	Name     string
}

// Book reserves a slot for the requester, creating or renaming their user
// row, and emails both parties. A slot that is already booked or blocked
// yields ErrSlotTaken.
func (s *Service) Book(ctx context.Context, req BookRequest) (*model.Appointment, error) {
	if req.Purpose == "" || req.DoctorID == "" || req.Email == "" || req.Name == "" || req.Date.IsZero() {
		return nil, apperr.Validation("Missing data")
	}
	at := req.Date.UTC()
	if !schedule.IsSlotStart(at, s.loc) {
		return nil, apperr.Validation("Time is not a bookable slot")
	}

	doctor, err := s.repo.DoctorByID(ctx, req.DoctorID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("Doctor not found").Wrap(err)
		}
		return nil, err
	}

	taken, err := s.repo.TakenTimes(ctx, doctor.ID, at, at.Add(schedule.SlotLength))
	if err != nil {
		return nil, err
	}
	if len(taken) > 0 {
		return nil, apperr.SlotTaken("Time slot is already booked")
	}

	key := slotKey(doctor.ID, at)
	held, token, err := s.locks.TryLock(ctx, key, lockTTL)
	switch {
	case err != nil:
		// the unique constraint still guards the insert
		s.log.Warn("slot lock unavailable", zap.String("key", key), zap.Error(err))
	case !held:
		return nil, apperr.SlotTaken("Time slot is already booked")
	default:
		defer func() {
			if err := s.locks.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
				s.log.Warn("slot unlock failed", zap.String("key", key), zap.Error(err))
			}
		}()
	}

	link, err := s.links.Provision(ctx, meeting.Request{
		Topic:    req.Purpose,
		Start:    at,
		Duration: schedule.SlotLength,
	})
	if err != nil {
		return nil, err
	}

	a := &model.Appointment{
		ID:              uuid.NewString(),
		Date:            at,
		Purpose:         req.Purpose,
		DoctorID:        doctor.ID,
		MeetingURL:      link.URL,
		ModeratorURL:    link.ModeratorURL,
		MeetingPassword: link.Password,
		Doctor:          *doctor,
	}
	u := &model.User{ID: uuid.NewString(), Email: req.Email, Name: req.Name}
	if err := s.repo.BookAppointment(ctx, a, u); err != nil {
		s.orphaned(link, err)
		if errors.Is(err, apperr.ErrSlotTaken) {
			return nil, apperr.SlotTaken("Time slot is already booked").Wrap(err)
		}
		return nil, err
	}

	s.log.Info("appointment booked",
		zap.String("appointment_id", a.ID),
		zap.String("doctor_id", a.DoctorID),
		zap.String("user_id", a.UserID),
		zap.Time("date", a.Date),
	)

	doctorMsg, patientMsg := notify.BookingMessages(a, s.loc)
	s.mail.Send(ctx, doctorMsg)
	s.mail.Send(ctx, patientMsg)

	return a, nil
}

// CreateRequest inserts an appointment whose user and link already exist.
// An empty ID is generated.
type CreateRequest struct {
	ID              string
	DoctorID        string
	UserID          string
	Date            time.Time
	Purpose         string
	MeetingURL      string
	ModeratorURL    string
	MeetingPassword string
}

// Create requires an available time slot row at req.Date.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*model.Appointment, error) {
	if req.DoctorID == "" || req.UserID == "" || req.Purpose == "" || req.Date.IsZero() {
		return nil, apperr.Validation("Missing data")
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	a := &model.Appointment{
		ID:              id,
		Date:            req.Date.UTC(),
		Purpose:         req.Purpose,
		DoctorID:        req.DoctorID,
		UserID:          req.UserID,
		MeetingURL:      req.MeetingURL,
		ModeratorURL:    req.ModeratorURL,
		MeetingPassword: req.MeetingPassword,
	}
	if err := s.repo.CreateAppointment(ctx, a); err != nil {
		switch {
		case errors.Is(err, apperr.ErrSlotTaken):
			return nil, apperr.SlotTaken("Time slot is not available").Wrap(err)
		case errors.Is(err, apperr.ErrNotFound):
			return nil, apperr.NotFound("Doctor or user not found").Wrap(err)
		}
		return nil, err
	}
	return s.repo.GetAppointment(ctx, a.ID)
}

// ListByUser returns an empty list for an unknown email.
func (s *Service) ListByUser(ctx context.Context, email string) ([]model.Appointment, error) {
	if email == "" {
		return nil, apperr.Validation("Missing user email")
	}
	u, err := s.repo.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return []model.Appointment{}, nil
		}
		return nil, err
	}
	out, err := s.repo.ListAppointmentsByUser(ctx, u.ID)
	return orEmpty(out), err
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID string) ([]model.Appointment, error) {
	if doctorID == "" {
		return nil, apperr.Validation("Missing doctor_id")
	}
	out, err := s.repo.ListAppointmentsByDoctor(ctx, doctorID)
	return orEmpty(out), err
}

// Cancel deletes the appointment and frees its slot.
func (s *Service) Cancel(ctx context.Context, id string) error {
	if err := s.repo.DeleteAppointment(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NotFound("Appointment not found").Wrap(err)
		}
		return err
	}
	s.log.Info("appointment cancelled", zap.String("appointment_id", id))
	return nil
}

// RescheduleRequest moves an appointment. When all link fields are empty a
// new meeting link is provisioned for the new time.
type RescheduleRequest struct {
	ID              string
	Date            time.Time
	MeetingURL      string
	ModeratorURL    string
	MeetingPassword string
}

func (s *Service) Reschedule(ctx context.Context, req RescheduleRequest) (*model.Appointment, error) {
	if req.Date.IsZero() {
		return nil, apperr.Validation("Missing data")
	}
	a, err := s.repo.GetAppointment(ctx, req.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("Appointment not found").Wrap(err)
		}
		return nil, err
	}

	at := req.Date.UTC()
	taken, err := s.repo.TakenTimes(ctx, a.DoctorID, at, at.Add(schedule.SlotLength))
	if err != nil {
		return nil, err
	}
	for _, t := range taken {
		// the appointment's own current time does not block it
		if !t.Equal(a.Date) {
			return nil, apperr.SlotTaken("New time slot is not available")
		}
	}

	a.Date = at
	a.MeetingURL, a.ModeratorURL, a.MeetingPassword = req.MeetingURL, req.ModeratorURL, req.MeetingPassword
	var link *meeting.Link
	if req.MeetingURL == "" && req.ModeratorURL == "" && req.MeetingPassword == "" {
		link, err = s.links.Provision(ctx, meeting.Request{
			Topic:    a.Purpose,
			Start:    a.Date,
			Duration: schedule.SlotLength,
		})
		if err != nil {
			return nil, err
		}
		a.MeetingURL, a.ModeratorURL, a.MeetingPassword = link.URL, link.ModeratorURL, link.Password
	}

	if err := s.repo.RescheduleAppointment(ctx, a); err != nil {
		s.orphaned(link, err)
		switch {
		case errors.Is(err, apperr.ErrSlotTaken):
			return nil, apperr.SlotTaken("New time slot is not available").Wrap(err)
		case errors.Is(err, apperr.ErrNotFound):
			return nil, apperr.NotFound("Appointment not found").Wrap(err)
		}
		return nil, err
	}
	s.log.Info("appointment rescheduled", zap.String("appointment_id", a.ID), zap.Time("date", a.Date))
	return a, nil
}

// orphaned records a provisioned meeting that no appointment will reference
// so it can be removed at the provider.
func (s *Service) orphaned(link *meeting.Link, cause error) {
	if link == nil {
		return
	}
	s.log.Warn("meeting link orphaned",
		zap.String("room_id", link.RoomID),
		zap.String("meeting_url", link.URL),
		zap.Error(cause),
	)
}

func slotKey(doctorID string, at time.Time) string {
	return fmt.Sprintf("slot:%s:%d", doctorID, at.Unix())
}

func orEmpty(a []model.Appointment) []model.Appointment {
	if a == nil {
		return []model.Appointment{}
	}
	return a
}
