package sqlite

import (
	"context"
	"database/sql"

	"github.com/tailortalk/server/internal/store"
)

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // caller will commit/rollback and outer DB stays open

// Ping is a no-op for transactions; the connection is already established.
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Credentials() store.Credentials { return &credentialsRepo{q: t.tx} }
func (t *txStore) Sessions() store.Sessions       { return &sessionsRepo{q: t.tx} }
func (t *txStore) FlowStates() store.FlowStates   { return &flowStatesRepo{q: t.tx} }

func (t *txStore) ApplyMigrations() error { return nil } // migrations are applied before any tx starts
