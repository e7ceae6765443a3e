package sqlite

import (
	"context"

	"github.com/tailortalk/server/internal/domain"
)

type credentialsRepo struct {
	q dbtx
}

func (r *credentialsRepo) UpsertCredential(ctx context.Context, c domain.EncryptedCredential) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO credentials (user_id, ciphertext, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			ciphertext = excluded.ciphertext,
			updated_at = excluded.updated_at`,
		c.UserID, c.Ciphertext, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *credentialsRepo) GetCredential(ctx context.Context, userID string) (domain.EncryptedCredential, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT user_id, ciphertext, created_at, updated_at
		FROM credentials WHERE user_id = ?`, userID)

	var c domain.EncryptedCredential
	if err := row.Scan(&c.UserID, &c.Ciphertext, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.EncryptedCredential{}, mapNotFound(err)
	}
	return c, nil
}

func (r *credentialsRepo) DeleteCredential(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM credentials WHERE user_id = ?`, userID)
	return err
}

func (r *credentialsRepo) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT user_id FROM credentials ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
