package store

import (
	"context"
	"errors"
	"time"

	"github.com/tailortalk/server/internal/domain"
)

var ErrNotFound = errors.New("store: not found")

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Credentials() Credentials
	Sessions() Sessions
	FlowStates() FlowStates

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Credentials interface {
	// UpsertCredential writes the encrypted bundle for a user, replacing any
	// prior record.
	UpsertCredential(ctx context.Context, c domain.EncryptedCredential) error

	// GetCredential returns the encrypted bundle, or ErrNotFound.
	GetCredential(ctx context.Context, userID string) (domain.EncryptedCredential, error)

	// DeleteCredential removes the bundle; no error when absent.
	DeleteCredential(ctx context.Context, userID string) error

	// ListUserIDs returns the ids of all users with a stored bundle, in
	// insertion order. Each call re-queries the current set.
	ListUserIDs(ctx context.Context) ([]string, error)
}

type Sessions interface {
	// UpsertSession creates or replaces the session row for s.UserID.
	UpsertSession(ctx context.Context, s domain.Session) error

	// GetSession returns the session for a user, or ErrNotFound.
	GetSession(ctx context.Context, userID string) (domain.Session, error)

	// RevokeSession flips revoked=1 and bumps updated_at. No error when the
	// session is absent or already revoked.
	RevokeSession(ctx context.Context, userID string, now time.Time) error

	// DeleteSessionsBefore removes revoked sessions and sessions whose
	// expiry is before the cutoff (housekeeping).
	DeleteSessionsBefore(ctx context.Context, cutoff time.Time) error
}

type FlowStates interface {
	// CreateFlowState stores a freshly minted authorization request state.
	CreateFlowState(ctx context.Context, f domain.FlowState) error

	// GetFlowStateByHash fetches a flow state by the fingerprint of its
	// state token, or ErrNotFound.
	GetFlowStateByHash(ctx context.Context, hash string) (domain.FlowState, error)

	// MarkFlowStateUsed marks a state as consumed to prevent replay.
	MarkFlowStateUsed(ctx context.Context, id string, now time.Time) error

	// DeleteExpiredFlowStates removes consumed and expired states.
	DeleteExpiredFlowStates(ctx context.Context, now time.Time) error
}
