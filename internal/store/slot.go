package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"appointment-booking-api/internal/apperr"
	"appointment-booking-api/internal/model"
)

// occupySlot flips the doctor's slot at start to unavailable and binds it to
// the appointment. The update only matches an available row, so two
// concurrent callers cannot both win. With strict unset a missing slot row
// is accepted; a row that exists but is taken never is.
func occupySlot(ctx context.Context, tx pgx.Tx, doctorID string, start time.Time, appointmentID string, strict bool) error {
	tag, err := tx.Exec(ctx,
		`UPDATE time_slots SET is_available = FALSE, appointment_id = $3
		 WHERE doctor_id = $1 AND start_time = $2 AND is_available`,
		doctorID, start.UTC(), appointmentID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if strict {
		return fmt.Errorf("slot %s: %w", start.UTC().Format(time.RFC3339), apperr.ErrSlotTaken)
	}

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM time_slots WHERE doctor_id = $1 AND start_time = $2)`,
		doctorID, start.UTC(),
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("slot %s: %w", start.UTC().Format(time.RFC3339), apperr.ErrSlotTaken)
	}
	return nil
}

// lockInstant serializes writers of one (doctor, instant) until the
// transaction ends. Appointment writes and BlockSlot both take it, so a
// block cannot slip in between the check and the insert.
func lockInstant(ctx context.Context, tx pgx.Tx, doctorID string, at time.Time) error {
	_, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		fmt.Sprintf("%s|%d", doctorID, at.Unix()),
	)
	return err
}

// claimInstant takes the instant lock and fails with ErrSlotTaken when the
// doctor has blocked the instant.
func claimInstant(ctx context.Context, tx pgx.Tx, doctorID string, at time.Time) error {
	if err := lockInstant(ctx, tx, doctorID, at); err != nil {
		return err
	}
	var blocked bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM unavailable_slots WHERE doctor_id = $1 AND date = $2)`,
		doctorID, at.UTC(),
	).Scan(&blocked)
	if err != nil {
		return err
	}
	if blocked {
		return fmt.Errorf("slot %s blocked: %w", at.UTC().Format(time.RFC3339), apperr.ErrSlotTaken)
	}
	return nil
}

func releaseSlots(ctx context.Context, tx pgx.Tx, appointmentID string) error {
	_, err := tx.Exec(ctx,
		`UPDATE time_slots SET is_available = TRUE, appointment_id = NULL
		 WHERE appointment_id = $1`, appointmentID,
	)
	return err
}

// SlotAt returns the doctor's slot row starting at start.
func (s *Store) SlotAt(ctx context.Context, doctorID string, start time.Time) (*model.TimeSlot, error) {
	ts := &model.TimeSlot{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, doctor_id, start_time, is_available, appointment_id
		 FROM time_slots WHERE doctor_id = $1 AND start_time = $2`,
		doctorID, start.UTC(),
	).Scan(&ts.ID, &ts.DoctorID, &ts.StartTime, &ts.IsAvailable, &ts.AppointmentID)
	if err != nil {
		return nil, notFound(err, "slot")
	}
	ts.StartTime = ts.StartTime.UTC()
	return ts, nil
}

// CountSlots returns how many slot rows the doctor has in [from, to).
func (s *Store) CountSlots(ctx context.Context, doctorID string, from, to time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM time_slots
		 WHERE doctor_id = $1 AND start_time >= $2 AND start_time < $3`,
		doctorID, from.UTC(), to.UTC(),
	).Scan(&n)
	return n, err
}

// TakenTimes returns the booked and explicitly blocked instants of the doctor
// in [from, to).
func (s *Store) TakenTimes(ctx context.Context, doctorID string, from, to time.Time) ([]time.Time, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT date FROM appointments
		 WHERE doctor_id = $1 AND date >= $2 AND date < $3
		 UNION ALL
		 SELECT date FROM unavailable_slots
		 WHERE doctor_id = $1 AND date >= $2 AND date < $3`,
		doctorID, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t.UTC())
	}
	return out, rows.Err()
}
