package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/tailortalk/server/internal/store/drivers/sqlite"
	"github.com/tailortalk/server/pkg/cryptox"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newTestCipher(t *testing.T, secret string) *cryptox.Cipher {
	t.Helper()

	c, err := cryptox.NewCipher([]byte(secret))
	require.NoError(t, err)
	return c
}

func newCredentialService(t *testing.T, st *sqlite.Store) *CredentialService {
	t.Helper()

	return &CredentialService{
		Store:  st,
		Cipher: newTestCipher(t, "test-master-secret"),
		Locks:  &UserLocks{},
	}
}

// fakeProvider is an httptest stand-in for Google's token endpoint.
type fakeProvider struct {
	srv *httptest.Server

	exchangeCalls atomic.Int64
	refreshCalls  atomic.Int64

	// failExchange makes the token endpoint reject authorization codes.
	failExchange atomic.Bool

	// accessToken and refreshToken returned on success.
	accessToken  string
	refreshToken string
	expiresIn    int
	scope        string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()

	p := &fakeProvider{
		accessToken:  "ya29.test-access",
		refreshToken: "1//test-refresh",
		expiresIn:    3600,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())

		if r.Form.Get("grant_type") == "refresh_token" {
			p.refreshCalls.Add(1)
		} else {
			p.exchangeCalls.Add(1)
		}

		if p.failExchange.Load() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}

		resp := map[string]any{
			"access_token":  p.accessToken,
			"token_type":    "Bearer",
			"refresh_token": p.refreshToken,
			"expires_in":    p.expiresIn,
		}
		if p.scope != "" {
			resp["scope"] = p.scope
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func (p *fakeProvider) endpoint() oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:  p.srv.URL + "/auth",
		TokenURL: p.srv.URL + "/token",
		// Match google.Endpoint so the oauth2 client does not probe both
		// auth styles, which would double-count token endpoint calls.
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// stubIdentity resolves every token to a fixed account.
type stubIdentity struct {
	identity Identity
	err      error
}

func (s stubIdentity) Resolve(ctx context.Context, ts oauth2.TokenSource) (Identity, error) {
	return s.identity, s.err
}

func newFlowService(t *testing.T, st *sqlite.Store, provider *fakeProvider, resolver IdentityResolver) *FlowService {
	t.Helper()

	locks := &UserLocks{}
	creds := &CredentialService{Store: st, Cipher: newTestCipher(t, "test-master-secret"), Locks: locks}
	sessions := &SessionService{Store: st, Locks: locks}

	return &FlowService{
		Store:       st,
		Credentials: creds,
		Sessions:    sessions,
		Locks:       locks,
		OAuth: oauth2.Config{
			ClientID:     "test-client",
			ClientSecret: "test-secret",
			RedirectURL:  "http://localhost:8080/v1/auth/callback",
			Scopes:       GoogleScopes,
			Endpoint:     provider.endpoint(),
		},
		Identity: resolver,
	}
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func futureExpiry(d time.Duration) time.Time {
	return time.Now().UTC().Add(d).Truncate(time.Second)
}
