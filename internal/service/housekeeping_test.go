package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tailortalk/server/internal/domain"
	"github.com/tailortalk/server/internal/store"
	"github.com/tailortalk/server/pkg/cryptox"
)

func TestHousekeepingCleanup(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sessions := newSessionService(st)

	now := time.Now().UTC()

	// A session well past expiry plus retention.
	require.NoError(t, st.Sessions().UpsertSession(ctx, domain.Session{
		UserID:    "stale",
		CreatedAt: now.Add(-200 * time.Hour),
		ExpiresAt: now.Add(-100 * time.Hour),
		UpdatedAt: now.Add(-200 * time.Hour),
	}))

	// A consumed flow state and an expired one.
	used := now.Add(-time.Hour)
	require.NoError(t, st.FlowStates().CreateFlowState(ctx, domain.FlowState{
		ID:        "flow-used",
		StateHash: cryptox.FingerprintToken("used-state"),
		ExpiresAt: now.Add(time.Hour),
		UsedAt:    &used,
		CreatedAt: now.Add(-2 * time.Hour),
	}))
	require.NoError(t, st.FlowStates().CreateFlowState(ctx, domain.FlowState{
		ID:        "flow-expired",
		StateHash: cryptox.FingerprintToken("expired-state"),
		ExpiresAt: now.Add(-time.Hour),
		CreatedAt: now.Add(-2 * time.Hour),
	}))

	// A pending flow that must survive.
	require.NoError(t, st.FlowStates().CreateFlowState(ctx, domain.FlowState{
		ID:        "flow-pending",
		StateHash: cryptox.FingerprintToken("pending-state"),
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}))

	// The consumed marker must survive the write, or the purge below could
	// never pick the row up.
	got, err := st.FlowStates().GetFlowStateByHash(ctx, cryptox.FingerprintToken("used-state"))
	require.NoError(t, err)
	require.NotNil(t, got.UsedAt)

	hk := NewHousekeepingService(st, sessions, newTestLogger(), time.Hour)
	hk.Cleanup(ctx)

	_, err = st.Sessions().GetSession(ctx, "stale")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.FlowStates().GetFlowStateByHash(ctx, cryptox.FingerprintToken("used-state"))
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.FlowStates().GetFlowStateByHash(ctx, cryptox.FingerprintToken("expired-state"))
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.FlowStates().GetFlowStateByHash(ctx, cryptox.FingerprintToken("pending-state"))
	require.NoError(t, err)
}

func TestHousekeepingStartStop(t *testing.T) {
	st := newTestStore(t)
	sessions := newSessionService(st)

	hk := NewHousekeepingService(st, sessions, newTestLogger(), time.Hour)
	hk.Start()
	hk.Stop()
}
