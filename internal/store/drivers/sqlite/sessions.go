package sqlite

import (
	"context"
	"time"

	"github.com/tailortalk/server/internal/domain"
)

type sessionsRepo struct {
	q dbtx
}

func (r *sessionsRepo) UpsertSession(ctx context.Context, s domain.Session) error {
	// Primary key on user_id makes "at most one session per user" structural:
	// a new session simply supersedes the old row.
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sessions (user_id, created_at, expires_at, revoked, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			revoked    = excluded.revoked,
			updated_at = excluded.updated_at`,
		s.UserID, s.CreatedAt, s.ExpiresAt, s.Revoked, s.UpdatedAt,
	)
	return err
}

func (r *sessionsRepo) GetSession(ctx context.Context, userID string) (domain.Session, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT user_id, created_at, expires_at, revoked, updated_at
		FROM sessions WHERE user_id = ?`, userID)

	var s domain.Session
	if err := row.Scan(&s.UserID, &s.CreatedAt, &s.ExpiresAt, &s.Revoked, &s.UpdatedAt); err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	return s, nil
}

func (r *sessionsRepo) RevokeSession(ctx context.Context, userID string, now time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE sessions SET revoked = 1, updated_at = ? WHERE user_id = ?`,
		now, userID,
	)
	return err
}

func (r *sessionsRepo) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM sessions WHERE revoked = 1 OR expires_at < ?`, cutoff)
	return err
}
