package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tailortalk/server/pkg/jwtx"
)

func newTestCodec(t *testing.T) *jwtx.Codec {
	t.Helper()

	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = 42
	}
	codec, err := jwtx.NewCodec(seed, "tailortalk", time.Hour)
	require.NoError(t, err)
	return codec
}

func TestAuthnMiddleware(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	var gotUserID string
	protected := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}), AuthnMiddleware(codec))

	t.Run("valid token passes and injects user id", func(t *testing.T) {
		token, _, err := codec.Mint("a1b2c3d4e5f60718", "alice@example.com", time.Now())
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "a1b2c3d4e5f60718", gotUserID)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		token, _, err := codec.Mint("user", "", time.Now().Add(-2*time.Hour))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
