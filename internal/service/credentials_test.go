package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tailortalk/server/internal/domain"
	"github.com/tailortalk/server/internal/store"
)

func testBundle(userID string) domain.Credential {
	return domain.Credential{
		UserID:       userID,
		AccessToken:  "ya29.access-" + userID,
		RefreshToken: "1//refresh-" + userID,
		Expiry:       futureExpiry(time.Hour),
		Scopes:       []string{"https://www.googleapis.com/auth/calendar"},
		ClientID:     "test-client",
		Email:        userID + "@example.com",
	}
}

func TestCredentialRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newCredentialService(t, st)

	bundle := testBundle("user-a")
	require.NoError(t, svc.Put(ctx, bundle))

	got, err := svc.Get(ctx, "user-a")
	require.NoError(t, err)
	require.Equal(t, bundle, got)
}

func TestCredentialStoredFormIsOpaque(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newCredentialService(t, st)

	require.NoError(t, svc.Put(ctx, testBundle("user-a")))

	rec, err := st.Credentials().GetCredential(ctx, "user-a")
	require.NoError(t, err)
	require.NotContains(t, string(rec.Ciphertext), "ya29.access-user-a")
	require.NotContains(t, string(rec.Ciphertext), "1//refresh-user-a")
}

func TestCredentialPutOverwrites(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newCredentialService(t, st)

	first := testBundle("user-a")
	require.NoError(t, svc.Put(ctx, first))

	second := first
	second.AccessToken = "ya29.rotated"
	require.NoError(t, svc.Put(ctx, second))

	got, err := svc.Get(ctx, "user-a")
	require.NoError(t, err)
	require.Equal(t, "ya29.rotated", got.AccessToken)
}

func TestCredentialGetUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc := newCredentialService(t, newTestStore(t))

	_, err := svc.Get(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCredentialGetWrongKey(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newCredentialService(t, st)

	require.NoError(t, svc.Put(ctx, testBundle("user-a")))

	// Same store, different master secret: ciphertext no longer opens.
	other := &CredentialService{
		Store:  st,
		Cipher: newTestCipher(t, "some-other-secret"),
		Locks:  &UserLocks{},
	}
	_, err := other.Get(ctx, "user-a")
	require.ErrorIs(t, err, ErrDecryption)
}

func TestCredentialDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newCredentialService(t, st)

	require.NoError(t, svc.Put(ctx, testBundle("user-a")))
	require.NoError(t, svc.Delete(ctx, "user-a"))

	_, err := svc.Get(ctx, "user-a")
	require.ErrorIs(t, err, store.ErrNotFound)

	// Deleting again is a no-op.
	require.NoError(t, svc.Delete(ctx, "user-a"))
}

func TestCredentialListUsers(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newCredentialService(t, st)

	collect := func() []string {
		var out []string
		for id, err := range svc.ListUsers(ctx) {
			require.NoError(t, err)
			out = append(out, id)
		}
		return out
	}

	require.Empty(t, collect())

	require.NoError(t, svc.Put(ctx, testBundle("user-a")))
	require.NoError(t, svc.Put(ctx, testBundle("user-b")))
	require.ElementsMatch(t, []string{"user-a", "user-b"}, collect())

	// The sequence is restartable and reflects later writes.
	require.NoError(t, svc.Delete(ctx, "user-a"))
	require.Equal(t, []string{"user-b"}, collect())
}
