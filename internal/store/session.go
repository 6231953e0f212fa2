package store

import (
	"context"

	"appointment-booking-api/internal/model"
)

// SaveSession replaces the deployment's provider session.
func (s *Store) SaveSession(ctx context.Context, sess *model.OAuthSession) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO oauth_sessions (id, access_token, refresh_token, expiry, updated_at)
		 VALUES ($1,$2,$3,$4,NOW())
		 ON CONFLICT (id) DO UPDATE
		 SET access_token = EXCLUDED.access_token,
		     refresh_token = EXCLUDED.refresh_token,
		     expiry = EXCLUDED.expiry,
		     updated_at = NOW()`,
		model.SessionID, sess.AccessToken, sess.RefreshToken, sess.Expiry.UTC(),
	)
	return err
}

func (s *Store) LoadSession(ctx context.Context) (*model.OAuthSession, error) {
	sess := &model.OAuthSession{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, access_token, refresh_token, expiry, updated_at
		 FROM oauth_sessions WHERE id = $1`, model.SessionID,
	).Scan(&sess.ID, &sess.AccessToken, &sess.RefreshToken, &sess.Expiry, &sess.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "oauth session")
	}
	sess.Expiry = sess.Expiry.UTC()
	return sess, nil
}
