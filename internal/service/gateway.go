package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tailortalk/server/internal/store"
	"github.com/tailortalk/server/pkg/slogx"
	"golang.org/x/oauth2"
)

// AuthGateway is the single entry point the booking and chat logic calls:
// "is this user authenticated", "give me a valid token", "revoke this user".
type AuthGateway struct {
	Credentials *CredentialService
	Sessions    *SessionService
	Flow        *FlowService
	Locks       *UserLocks

	// RevokeURL is the provider's token-revocation endpoint
	// (GoogleRevokeURL in production; tests point it elsewhere).
	RevokeURL string

	// HTTPClient for the revocation call. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	ProviderTimeout time.Duration
}

// IsAuthenticated reports whether the user has an active session and a
// readable credential bundle. Any failure on the path reads as "not
// authenticated"; no partial state is ever reported as success.
func (g *AuthGateway) IsAuthenticated(ctx context.Context, userID string) (bool, error) {
	active, err := g.Sessions.IsActive(ctx, userID)
	if err != nil {
		return false, err
	}
	if !active {
		return false, nil
	}

	if _, err := g.Credentials.Get(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, ErrDecryption) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ValidToken refreshes the user's access token if needed and returns it.
// Missing session or bundle, and refresh rejections, surface as
// ErrAuthenticationRequired so the caller can restart the flow.
func (g *AuthGateway) ValidToken(ctx context.Context, userID string) (string, error) {
	active, err := g.Sessions.IsActive(ctx, userID)
	if err != nil {
		return "", err
	}
	if !active {
		return "", fmt.Errorf("%w: no active session for user %s", ErrAuthenticationRequired, userID)
	}

	bundle, err := g.Flow.RefreshIfNeeded(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound), errors.Is(err, ErrDecryption):
			return "", fmt.Errorf("%w: %w", ErrAuthenticationRequired, err)
		case errors.Is(err, ErrRefreshFailed):
			return "", fmt.Errorf("%w: %w", ErrAuthenticationRequired, err)
		default:
			return "", err
		}
	}
	return bundle.AccessToken, nil
}

// TokenSource adapts ValidToken for Google API clients.
func (g *AuthGateway) TokenSource(ctx context.Context, userID string) (oauth2.TokenSource, error) {
	token, err := g.ValidToken(ctx, userID)
	if err != nil {
		return nil, err
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}), nil
}

// RevokeAccess revokes the user's session and deletes the credential bundle,
// then makes a best-effort call to the provider's revocation endpoint.
// Provider failure is logged, not fatal: local state is already cleaned up.
func (g *AuthGateway) RevokeAccess(ctx context.Context, userID string) error {
	log := slogx.FromContext(ctx)

	unlock := g.Locks.Lock(userID)

	// Grab the token for the provider-side revocation before deleting it.
	bundle, getErr := g.Credentials.Get(ctx, userID)

	if err := g.Sessions.Store.Sessions().RevokeSession(ctx, userID, time.Now().UTC()); err != nil {
		unlock()
		return err
	}
	if err := g.Credentials.Store.Credentials().DeleteCredential(ctx, userID); err != nil {
		unlock()
		return err
	}
	unlock()

	if getErr != nil {
		// Nothing to revoke upstream.
		return nil
	}

	token := bundle.RefreshToken
	if token == "" {
		token = bundle.AccessToken
	}
	if err := g.revokeUpstream(ctx, token); err != nil {
		log.Warn("provider token revocation failed", "user_id", userID, "err", err)
	}
	return nil
}

func (g *AuthGateway) revokeUpstream(ctx context.Context, token string) error {
	if g.RevokeURL == "" || token == "" {
		return nil
	}

	timeout := g.ProviderTimeout
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := g.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revocation endpoint returned %d", resp.StatusCode)
	}
	return nil
}
