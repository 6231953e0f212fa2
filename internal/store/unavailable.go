package store

import (
	"context"
	"fmt"
	"time"

	"appointment-booking-api/internal/apperr"
	"appointment-booking-api/internal/model"
)

// BlockSlot records a doctor-side block. Blocking the same instant twice
// returns the existing row.
func (s *Store) BlockSlot(ctx context.Context, doctorID string, at time.Time) (*model.UnavailableSlot, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := lockInstant(ctx, tx, doctorID, at); err != nil {
		return nil, err
	}

	u := &model.UnavailableSlot{}
	err = tx.QueryRow(ctx,
		`INSERT INTO unavailable_slots (doctor_id, date) VALUES ($1,$2)
		 ON CONFLICT (doctor_id, date) DO UPDATE SET date = EXCLUDED.date
		 RETURNING id, doctor_id, date`,
		doctorID, at.UTC(),
	).Scan(&u.ID, &u.DoctorID, &u.Date)
	if err != nil {
		if pgCode(err) == foreignKeyViolation {
			return nil, fmt.Errorf("doctor %s: %w", doctorID, apperr.ErrNotFound)
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	u.Date = u.Date.UTC()
	return u, nil
}

func (s *Store) ListUnavailable(ctx context.Context, doctorID string) ([]model.UnavailableSlot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, doctor_id, date FROM unavailable_slots
		 WHERE doctor_id = $1 ORDER BY date`, doctorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UnavailableSlot
	for rows.Next() {
		var u model.UnavailableSlot
		if err := rows.Scan(&u.ID, &u.DoctorID, &u.Date); err != nil {
			return nil, err
		}
		u.Date = u.Date.UTC()
		out = append(out, u)
	}
	return out, rows.Err()
}
