package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tailortalk/server/internal/domain"
	"github.com/tailortalk/server/internal/store"
	"github.com/tailortalk/server/pkg/cryptox"
	"github.com/tailortalk/server/pkg/idx"
	"github.com/tailortalk/server/pkg/slogx"
	"golang.org/x/oauth2"
)

const (
	// DefaultStateTTL bounds how long an abandoned flow stays redeemable.
	DefaultStateTTL = 10 * time.Minute

	// DefaultRefreshMargin is the safety margin before access-token expiry
	// at which a refresh is triggered.
	DefaultRefreshMargin = 5 * time.Minute

	// DefaultProviderTimeout bounds token-exchange and refresh calls.
	DefaultProviderTimeout = 15 * time.Second
)

// FlowService drives the three-legged authorization-code handshake against
// Google. One flow moves Pending -> Completed, or dies by expiry; its state
// token is consumable exactly once.
type FlowService struct {
	Store       store.Store
	Credentials *CredentialService
	Sessions    *SessionService
	Locks       *UserLocks

	// OAuth carries client id/secret, redirect URL, default scopes and the
	// provider endpoints. Tests point Endpoint at an httptest server.
	OAuth oauth2.Config

	// Identity resolves the authenticated account after a code exchange.
	Identity IdentityResolver

	StateTTL        time.Duration
	RefreshMargin   time.Duration
	ProviderTimeout time.Duration
}

// StartedFlow is what Start hands back to the HTTP layer. ID is the flow
// record's id, safe to log; State is the secret that must not be.
type StartedFlow struct {
	ID      string
	AuthURL string
	State   string
}

func (f *FlowService) stateTTL() time.Duration {
	if f.StateTTL > 0 {
		return f.StateTTL
	}
	return DefaultStateTTL
}

func (f *FlowService) refreshMargin() time.Duration {
	if f.RefreshMargin > 0 {
		return f.RefreshMargin
	}
	return DefaultRefreshMargin
}

func (f *FlowService) providerTimeout() time.Duration {
	if f.ProviderTimeout > 0 {
		return f.ProviderTimeout
	}
	return DefaultProviderTimeout
}

// Start mints a fresh state token, persists the pending flow record and
// returns the authorization URL to send the user to. Purely local: nothing
// is sent to the provider here.
//
// userHint optionally names the user starting the flow; it becomes the
// fallback identity if the provider's userinfo lookup fails. scopes defaults
// to the configured scope set when empty.
func (f *FlowService) Start(ctx context.Context, userHint string, scopes []string) (StartedFlow, error) {
	cfg := f.OAuth
	if len(scopes) > 0 {
		cfg.Scopes = scopes
	} else {
		scopes = cfg.Scopes
	}

	state, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return StartedFlow{}, err
	}

	now := time.Now().UTC()
	record := domain.FlowState{
		ID:          idx.New().String(),
		StateHash:   cryptox.FingerprintToken(state),
		UserHint:    userHint,
		Scopes:      scopes,
		RedirectURI: cfg.RedirectURL,
		ExpiresAt:   now.Add(f.stateTTL()),
		CreatedAt:   now,
	}
	if err := f.Store.FlowStates().CreateFlowState(ctx, record); err != nil {
		return StartedFlow{}, fmt.Errorf("persist flow state: %w", err)
	}

	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
	return StartedFlow{ID: record.ID, AuthURL: authURL, State: state}, nil
}

// Complete consumes the flow matching state, exchanges code for tokens,
// persists the encrypted bundle and opens a session. Returns the resolved
// user id.
//
// The state lookup-and-consume runs in one transaction, so a replayed
// callback loses the race and gets ErrInvalidState.
func (f *FlowService) Complete(ctx context.Context, code, state string) (string, error) {
	log := slogx.FromContext(ctx)
	now := time.Now().UTC()

	var flow domain.FlowState
	err := f.Store.WithTx(ctx, func(tx store.Tx) error {
		got, err := tx.FlowStates().GetFlowStateByHash(ctx, cryptox.FingerprintToken(state))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidState
			}
			return err
		}
		if !got.Consumable(now) {
			return ErrInvalidState
		}
		if err := tx.FlowStates().MarkFlowStateUsed(ctx, got.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidState
			}
			return err
		}
		flow = got
		return nil
	})
	if err != nil {
		return "", err
	}

	token, err := f.exchange(ctx, code)
	if err != nil {
		return "", err
	}

	userID := flow.UserHint
	var email string
	identity, err := f.Identity.Resolve(ctx, f.OAuth.TokenSource(ctx, token))
	if err == nil && identity.Email != "" {
		userID = domain.UserIDFromEmail(identity.Email)
		email = identity.Email
	} else if userID == "" {
		return "", fmt.Errorf("%w: identity lookup failed: %w", ErrTokenExchange, err)
	} else {
		log.Warn("userinfo lookup failed, using caller-supplied user hint", "err", err)
	}

	scopes := flow.Scopes
	if granted, ok := token.Extra("scope").(string); ok && strings.TrimSpace(granted) != "" {
		scopes = strings.Fields(granted)
	}

	bundle := domain.Credential{
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry.UTC(),
		Scopes:       scopes,
		ClientID:     f.OAuth.ClientID,
		Email:        email,
	}

	unlock := f.Locks.Lock(userID)
	defer unlock()

	if err := f.Credentials.putLocked(ctx, bundle); err != nil {
		return "", err
	}
	if _, err := f.Sessions.createLocked(ctx, userID); err != nil {
		return "", err
	}

	log.Info("authentication flow completed", "user_id", userID)
	return userID, nil
}

// RefreshIfNeeded returns the user's bundle, refreshing the access token
// first when its expiry is within the safety margin. The per-user lock is
// held only around the local read and write, never across the provider call.
func (f *FlowService) RefreshIfNeeded(ctx context.Context, userID string) (domain.Credential, error) {
	unlock := f.Locks.Lock(userID)
	bundle, err := f.Credentials.Get(ctx, userID)
	unlock()
	if err != nil {
		return domain.Credential{}, err
	}

	if time.Until(bundle.Expiry) > f.refreshMargin() {
		return bundle, nil
	}

	if bundle.RefreshToken == "" {
		return domain.Credential{}, fmt.Errorf("%w: no refresh token for user %s", ErrRefreshFailed, userID)
	}

	token, err := f.refresh(ctx, bundle.RefreshToken)
	if err != nil {
		return domain.Credential{}, err
	}

	unlock = f.Locks.Lock(userID)
	defer unlock()

	// Re-read under the lock: a concurrent refresh may have won, or a
	// concurrent revoke may have deleted the bundle entirely.
	current, err := f.Credentials.Get(ctx, userID)
	if err != nil {
		return domain.Credential{}, err
	}
	if current.Expiry.After(bundle.Expiry) && current.Expiry.After(token.Expiry) {
		return current, nil
	}

	current.AccessToken = token.AccessToken
	current.Expiry = token.Expiry.UTC()
	if token.RefreshToken != "" {
		current.RefreshToken = token.RefreshToken
	}
	if err := f.Credentials.putLocked(ctx, current); err != nil {
		return domain.Credential{}, err
	}
	return current, nil
}

// exchange redeems an authorization code, retrying once on a transient
// transport failure. Provider rejections are not retried.
func (f *FlowService) exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := f.exchangeOnce(ctx, code)
	if err == nil {
		return token, nil
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return nil, fmt.Errorf("%w: provider rejected code: %w", ErrTokenExchange, err)
	}

	token, err = f.exchangeOnce(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}
	return token, nil
}

func (f *FlowService) exchangeOnce(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, f.providerTimeout())
	defer cancel()
	return f.OAuth.Exchange(ctx, code)
}

func (f *FlowService) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, f.providerTimeout())
	defer cancel()

	token, err := f.OAuth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	return token, nil
}
