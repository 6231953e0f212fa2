package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"appointment-booking-api/internal/apperr"
	"appointment-booking-api/internal/model"
)

const appointmentCols = `a.id, a.date, a.purpose, a.doctor_id, a.user_id,
	a.meeting_url, a.moderator_url, a.meeting_password,
	d.id, d.name, d.email, u.id, u.name, u.email`

const appointmentFrom = ` FROM appointments a
	JOIN doctors d ON d.id = a.doctor_id
	JOIN users u ON u.id = a.user_id`

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	a := &model.Appointment{}
	err := row.Scan(&a.ID, &a.Date, &a.Purpose, &a.DoctorID, &a.UserID,
		&a.MeetingURL, &a.ModeratorURL, &a.MeetingPassword,
		&a.Doctor.ID, &a.Doctor.Name, &a.Doctor.Email,
		&a.User.ID, &a.User.Name, &a.User.Email)
	if err != nil {
		return nil, err
	}
	a.Date = a.Date.UTC()
	return a, nil
}

func insertAppointment(ctx context.Context, tx pgx.Tx, a *model.Appointment) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO appointments
		 (id, date, purpose, doctor_id, user_id, meeting_url, moderator_url, meeting_password)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.Date.UTC(), a.Purpose, a.DoctorID, a.UserID,
		a.MeetingURL, a.ModeratorURL, a.MeetingPassword,
	)
	switch pgCode(err) {
	case "":
		return err
	case uniqueViolation:
		// the (doctor_id, date) constraint caught a concurrent booking
		return fmt.Errorf("appointment %s: %w", a.ID, apperr.ErrSlotTaken)
	case foreignKeyViolation:
		return fmt.Errorf("appointment %s references: %w", a.ID, apperr.ErrNotFound)
	}
	return err
}

// BookAppointment upserts the requesting user and inserts the appointment,
// occupying the matching slot row when the doctor has one. A blocked
// instant is rejected with ErrSlotTaken. On success a.User
// holds the stored user.
func (s *Store) BookAppointment(ctx context.Context, a *model.Appointment, u *model.User) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := upsertUser(ctx, tx, u); err != nil {
		return err
	}
	a.UserID = u.ID
	a.User = *u

	if err := claimInstant(ctx, tx, a.DoctorID, a.Date); err != nil {
		return err
	}
	if err := insertAppointment(ctx, tx, a); err != nil {
		return err
	}
	if err := occupySlot(ctx, tx, a.DoctorID, a.Date, a.ID, false); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CreateAppointment inserts an appointment for existing user and doctor rows.
// The doctor must have an available, unblocked slot at a.Date.
func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := claimInstant(ctx, tx, a.DoctorID, a.Date); err != nil {
		return err
	}
	if err := insertAppointment(ctx, tx, a); err != nil {
		return err
	}
	if err := occupySlot(ctx, tx, a.DoctorID, a.Date, a.ID, true); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	a, err := scanAppointment(s.pool.QueryRow(ctx,
		`SELECT `+appointmentCols+appointmentFrom+` WHERE a.id = $1`, id))
	if err != nil {
		return nil, notFound(err, "appointment "+id)
	}
	return a, nil
}

func (s *Store) ListAppointmentsByUser(ctx context.Context, userID string) ([]model.Appointment, error) {
	return s.listAppointments(ctx, `WHERE a.user_id = $1`, userID)
}

func (s *Store) ListAppointmentsByDoctor(ctx context.Context, doctorID string) ([]model.Appointment, error) {
	return s.listAppointments(ctx, `WHERE a.doctor_id = $1`, doctorID)
}

func (s *Store) listAppointments(ctx context.Context, where string, args ...any) ([]model.Appointment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+appointmentCols+appointmentFrom+` `+where+` ORDER BY a.date`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// RescheduleAppointment moves the appointment to a.Date and stores its new
// meeting link. The old slot is released and the new one occupied in the
// same transaction; the new slot must exist, be available and not be
// blocked.
func (s *Store) RescheduleAppointment(ctx context.Context, a *model.Appointment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var doctorID string
	err = tx.QueryRow(ctx,
		`SELECT doctor_id FROM appointments WHERE id = $1 FOR UPDATE`, a.ID,
	).Scan(&doctorID)
	if err != nil {
		return notFound(err, "appointment "+a.ID)
	}
	if err := claimInstant(ctx, tx, doctorID, a.Date); err != nil {
		return err
	}

	if err := releaseSlots(ctx, tx, a.ID); err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE appointments
		 SET date=$1, meeting_url=$2, moderator_url=$3, meeting_password=$4, updated_at=NOW()
		 WHERE id=$5`,
		a.Date.UTC(), a.MeetingURL, a.ModeratorURL, a.MeetingPassword, a.ID,
	)
	if err != nil {
		if pgCode(err) == uniqueViolation {
			return fmt.Errorf("appointment %s: %w", a.ID, apperr.ErrSlotTaken)
		}
		return err
	}

	if err := occupySlot(ctx, tx, doctorID, a.Date, a.ID, true); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DeleteAppointment removes the appointment and makes its slot bookable again.
func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := releaseSlots(ctx, tx, id); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("appointment %s: %w", id, apperr.ErrNotFound)
	}
	return tx.Commit(ctx)
}
