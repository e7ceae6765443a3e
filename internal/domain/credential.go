package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Credential is one user's token grant from Google. The JSON form of this
// struct is what gets encrypted and written to the credentials table; the
// plaintext never touches disk.
type Credential struct {
	UserID       string    `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry"`
	Scopes       []string  `json:"scopes"`
	ClientID     string    `json:"client_id"`
	Email        string    `json:"email,omitempty"`
}

// EncryptedCredential is the stored form of a Credential: an opaque
// AES-256-GCM ciphertext keyed by user id.
type EncryptedCredential struct {
	UserID     string
	Ciphertext []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UserIDFromEmail derives a stable, non-reversible user identifier from a
// Google account email: the first 16 hex chars of its SHA-256 digest.
func UserIDFromEmail(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])[:16]
}
