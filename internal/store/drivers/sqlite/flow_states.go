package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/tailortalk/server/internal/domain"
	"github.com/tailortalk/server/internal/store"
)

type flowStatesRepo struct {
	q dbtx
}

func (r *flowStatesRepo) CreateFlowState(ctx context.Context, f domain.FlowState) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO flow_states (id, state_hash, user_hint, scopes, redirect_uri, expires_at, used_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.StateHash, f.UserHint, joinScopes(f.Scopes), f.RedirectURI, f.ExpiresAt, f.UsedAt, f.CreatedAt,
	)
	return err
}

func (r *flowStatesRepo) GetFlowStateByHash(ctx context.Context, hash string) (domain.FlowState, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT id, state_hash, user_hint, scopes, redirect_uri, expires_at, used_at, created_at
		FROM flow_states WHERE state_hash = ?`, hash)

	var (
		f      domain.FlowState
		scopes string
		usedAt sql.NullTime
	)
	if err := row.Scan(&f.ID, &f.StateHash, &f.UserHint, &scopes, &f.RedirectURI, &f.ExpiresAt, &usedAt, &f.CreatedAt); err != nil {
		return domain.FlowState{}, mapNotFound(err)
	}
	f.Scopes = splitScopes(scopes)
	if usedAt.Valid {
		t := usedAt.Time
		f.UsedAt = &t
	}
	return f, nil
}

func (r *flowStatesRepo) MarkFlowStateUsed(ctx context.Context, id string, now time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE flow_states SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		now, id,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Already consumed, or the state never existed.
		return store.ErrNotFound
	}
	return nil
}

func (r *flowStatesRepo) DeleteExpiredFlowStates(ctx context.Context, now time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		DELETE FROM flow_states WHERE expires_at < ? OR used_at IS NOT NULL`, now)
	return err
}
