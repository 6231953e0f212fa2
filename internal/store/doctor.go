package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"appointment-booking-api/internal/apperr"
	"appointment-booking-api/internal/model"
)

// CreateDoctor inserts the doctor and bulk-loads its slots in one transaction.
func (s *Store) CreateDoctor(ctx context.Context, d *model.Doctor, slots []time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO doctors (id, name, email) VALUES ($1,$2,$3)`,
		d.ID, d.Name, d.Email,
	)
	if err != nil {
		if pgCode(err) == uniqueViolation {
			return fmt.Errorf("doctor %s: %w", d.Email, apperr.ErrConflict)
		}
		return err
	}

	if len(slots) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"time_slots"},
			[]string{"doctor_id", "start_time", "is_available"},
			pgx.CopyFromSlice(len(slots), func(i int) ([]any, error) {
				return []any{d.ID, slots[i].UTC(), true}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy slots: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) DoctorByID(ctx context.Context, id string) (*model.Doctor, error) {
	d := &model.Doctor{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email FROM doctors WHERE id = $1`, id,
	).Scan(&d.ID, &d.Name, &d.Email)
	if err != nil {
		return nil, notFound(err, "doctor "+id)
	}
	return d, nil
}

func (s *Store) DoctorByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	d := &model.Doctor{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email FROM doctors WHERE email = $1`, email,
	).Scan(&d.ID, &d.Name, &d.Email)
	if err != nil {
		return nil, notFound(err, "doctor "+email)
	}
	return d, nil
}

func (s *Store) ListDoctors(ctx context.Context) ([]model.Doctor, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, email FROM doctors ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Doctor
	for rows.Next() {
		var d model.Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Email); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
