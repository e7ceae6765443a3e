package service

import (
	"context"
	"errors"
	"time"

	"github.com/tailortalk/server/internal/domain"
	"github.com/tailortalk/server/internal/store"
)

// DefaultSessionTTL is how long a session stays valid after creation.
const DefaultSessionTTL = 24 * time.Hour

// DefaultSessionRetention is how long expired sessions linger before
// housekeeping removes the rows.
const DefaultSessionRetention = 72 * time.Hour

// SessionService tracks which users are currently authenticated. Session
// validity is independent of credential validity: a session can be active
// while the access token underneath it is being refreshed.
type SessionService struct {
	Store store.Store
	Locks *UserLocks

	// TTL defaults to DefaultSessionTTL when zero.
	TTL time.Duration

	// Retention defaults to DefaultSessionRetention when zero.
	Retention time.Duration
}

func (s *SessionService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultSessionTTL
}

func (s *SessionService) retention() time.Duration {
	if s.Retention > 0 {
		return s.Retention
	}
	return DefaultSessionRetention
}

// Create creates the session for userID with a fresh expiry, superseding any
// prior session for the same user.
func (s *SessionService) Create(ctx context.Context, userID string) (domain.Session, error) {
	unlock := s.Locks.Lock(userID)
	defer unlock()

	return s.createLocked(ctx, userID)
}

func (s *SessionService) createLocked(ctx context.Context, userID string) (domain.Session, error) {
	now := time.Now().UTC()
	session := domain.Session{
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl()),
		Revoked:   false,
		UpdatedAt: now,
	}
	if err := s.Store.Sessions().UpsertSession(ctx, session); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

// IsActive reports whether a session exists, is not revoked, and has not
// expired.
func (s *SessionService) IsActive(ctx context.Context, userID string) (bool, error) {
	session, err := s.Store.Sessions().GetSession(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return session.ActiveAt(time.Now().UTC()), nil
}

// Get returns the raw session record, or store.ErrNotFound.
func (s *SessionService) Get(ctx context.Context, userID string) (domain.Session, error) {
	return s.Store.Sessions().GetSession(ctx, userID)
}

// Revoke marks the user's session revoked. Idempotent: revoking an absent or
// already-revoked session is a no-op.
func (s *SessionService) Revoke(ctx context.Context, userID string) error {
	unlock := s.Locks.Lock(userID)
	defer unlock()

	return s.Store.Sessions().RevokeSession(ctx, userID, time.Now().UTC())
}

// PurgeExpired removes revoked sessions and sessions past expiry plus the
// retention window. Credentials are untouched; credential revocation is a
// separate, explicit action.
func (s *SessionService) PurgeExpired(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.retention())
	return s.Store.Sessions().DeleteSessionsBefore(ctx, cutoff)
}
