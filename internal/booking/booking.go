// Package booking is the appointment ledger and doctor directory. It owns
// the booking rules and leaves persistence to a Repository.
package booking

import (
	"context"
	"time"

	"go.uber.org/zap"

	"appointment-booking-api/internal/meeting"
	"appointment-booking-api/internal/model"
	"appointment-booking-api/internal/notify"
)

type Repository interface {
	BookAppointment(ctx context.Context, a *model.Appointment, u *model.User) error
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	ListAppointmentsByUser(ctx context.Context, userID string) ([]model.Appointment, error)
	ListAppointmentsByDoctor(ctx context.Context, doctorID string) ([]model.Appointment, error)
	RescheduleAppointment(ctx context.Context, a *model.Appointment) error
	DeleteAppointment(ctx context.Context, id string) error

	UserByEmail(ctx context.Context, email string) (*model.User, error)

	CreateDoctor(ctx context.Context, d *model.Doctor, slots []time.Time) error
	DoctorByID(ctx context.Context, id string) (*model.Doctor, error)
	DoctorByEmail(ctx context.Context, email string) (*model.Doctor, error)
	ListDoctors(ctx context.Context) ([]model.Doctor, error)

	TakenTimes(ctx context.Context, doctorID string, from, to time.Time) ([]time.Time, error)
	BlockSlot(ctx context.Context, doctorID string, at time.Time) (*model.UnavailableSlot, error)
	ListUnavailable(ctx context.Context, doctorID string) ([]model.UnavailableSlot, error)
}

type Notifier interface {
	Send(ctx context.Context, m notify.Message)
}

type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, string, error)
	Unlock(ctx context.Context, key, token string) error
}

const lockTTL = 30 * time.Second

type Service struct {
	repo  Repository
	links meeting.Provisioner
	mail  Notifier
	locks Locker
	loc   *time.Location
	log   *zap.Logger
	now   func() time.Time
}

func New(repo Repository, links meeting.Provisioner, mail Notifier, locks Locker, loc *time.Location, log *zap.Logger) *Service {
	return &Service{
		repo:  repo,
		links: links,
		mail:  mail,
		locks: locks,
		loc:   loc,
		log:   log,
		now:   time.Now,
	}
}
