package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"appointment-booking-api/internal/model"
)

// upsertUser creates the user or refreshes the display name of an existing
// one. u is overwritten with the stored row.
func upsertUser(ctx context.Context, tx pgx.Tx, u *model.User) error {
	return tx.QueryRow(ctx,
		`INSERT INTO users (id, email, name) VALUES ($1,$2,$3)
		 ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()
		 RETURNING id, email, name`,
		u.ID, u.Email, u.Name,
	).Scan(&u.ID, &u.Email, &u.Name)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	u := &model.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.Name)
	if err != nil {
		return nil, notFound(err, "user "+email)
	}
	return u, nil
}
