package domain

import "time"

// Session is an active authenticated session for one user. There is at most
// one row per user id; creating a new session supersedes the old one.
//
// A session can be active while the underlying access token is mid-refresh:
// session validity and credential validity are tracked independently.
type Session struct {
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
	UpdatedAt time.Time
}

// ActiveAt reports whether the session counts as active at the given time:
// not revoked and not yet expired.
func (s Session) ActiveAt(t time.Time) bool {
	return !s.Revoked && t.Before(s.ExpiresAt)
}
