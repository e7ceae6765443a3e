package domain

import "time"

// FlowState is the transient record for one in-flight OAuth authorization
// flow. The random state token itself is never stored; only its SHA-256
// fingerprint, so the table cannot be used to forge callbacks.
//
// A flow moves Pending -> Completed (UsedAt set) or dies by expiry. A state
// is consumable exactly once.
type FlowState struct {
	ID          string
	StateHash   string
	UserHint    string // caller-supplied user id, or "" for anonymous flows
	Scopes      []string
	RedirectURI string
	ExpiresAt   time.Time
	UsedAt      *time.Time
	CreatedAt   time.Time
}

// Consumable reports whether the flow state can still accept its callback at
// the given time.
func (f FlowState) Consumable(t time.Time) bool {
	return f.UsedAt == nil && t.Before(f.ExpiresAt)
}
