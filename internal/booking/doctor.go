package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"appointment-booking-api/internal/apperr"
	"appointment-booking-api/internal/model"
	"appointment-booking-api/internal/schedule"
)

// RegisterDoctor creates the doctor together with a year of open slots.
func (s *Service) RegisterDoctor(ctx context.Context, name, email string) (*model.Doctor, error) {
	if name == "" || email == "" {
		return nil, apperr.Validation("Missing data")
	}
	d := &model.Doctor{ID: uuid.NewString(), Name: name, Email: email}
	slots := schedule.Horizon(s.now(), schedule.HorizonDays, s.loc)
	if err := s.repo.CreateDoctor(ctx, d, slots); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("Doctor already exists").Wrap(err)
		}
		return nil, err
	}
	s.log.Info("doctor registered", zap.String("doctor_id", d.ID), zap.Int("slots", len(slots)))
	return d, nil
}

func (s *Service) ListDoctors(ctx context.Context) ([]model.Doctor, error) {
	out, err := s.repo.ListDoctors(ctx)
	if out == nil {
		out = []model.Doctor{}
	}
	return out, err
}

func (s *Service) DoctorByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	if email == "" {
		return nil, apperr.Validation("Missing email")
	}
	d, err := s.repo.DoctorByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("Doctor not found").Wrap(err)
		}
		return nil, err
	}
	return d, nil
}

func (s *Service) IsDoctor(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, apperr.Validation("Missing user email")
	}
	_, err := s.repo.DoctorByEmail(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperr.ErrNotFound):
		return false, nil
	}
	return false, err
}

// AvailableSlots lists the open slot starts on the local day containing day,
// excluding booked appointments and doctor-side blocks.
func (s *Service) AvailableSlots(ctx context.Context, doctorID string, day time.Time) ([]time.Time, error) {
	if doctorID == "" || day.IsZero() {
		return nil, apperr.Validation("Missing data")
	}
	from, to := schedule.DayBounds(day, s.loc)
	taken, err := s.repo.TakenTimes(ctx, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	return schedule.Available(day, s.loc, taken), nil
}

func (s *Service) UnavailableSlots(ctx context.Context, doctorID string) ([]model.UnavailableSlot, error) {
	if doctorID == "" {
		return nil, apperr.Validation("Missing doctor_id")
	}
	out, err := s.repo.ListUnavailable(ctx, doctorID)
	if out == nil {
		out = []model.UnavailableSlot{}
	}
	return out, err
}

func (s *Service) BlockSlot(ctx context.Context, doctorID string, at time.Time) (*model.UnavailableSlot, error) {
	if doctorID == "" || at.IsZero() {
		return nil, apperr.Validation("Missing data")
	}
	u, err := s.repo.BlockSlot(ctx, doctorID, at.UTC())
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("Doctor not found").Wrap(err)
		}
		return nil, err
	}
	return u, nil
}
