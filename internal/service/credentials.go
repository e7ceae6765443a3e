package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/tailortalk/server/internal/domain"
	"github.com/tailortalk/server/internal/store"
	"github.com/tailortalk/server/pkg/cryptox"
)

// CredentialService owns durable, encrypted, per-user storage of credential
// bundles. Other components receive decrypted copies, never mutation access
// to stored state.
type CredentialService struct {
	Store  store.Store
	Cipher *cryptox.Cipher
	Locks  *UserLocks
}

// Put encrypts the bundle and writes it keyed by bundle.UserID, overwriting
// any prior record. I/O failures surface as ErrStorageWrite.
func (s *CredentialService) Put(ctx context.Context, bundle domain.Credential) error {
	unlock := s.Locks.Lock(bundle.UserID)
	defer unlock()

	return s.putLocked(ctx, bundle)
}

// putLocked is Put without acquiring the user lock; callers that already
// hold it (refresh, flow completion) use this.
func (s *CredentialService) putLocked(ctx context.Context, bundle domain.Credential) error {
	plaintext, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encode credential bundle: %w", err)
	}

	ciphertext, err := s.Cipher.Seal(plaintext)
	if err != nil {
		return fmt.Errorf("seal credential bundle: %w", err)
	}

	now := time.Now().UTC()
	rec := domain.EncryptedCredential{
		UserID:     bundle.UserID,
		Ciphertext: ciphertext,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Store.Credentials().UpsertCredential(ctx, rec); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	return nil
}

// Get decrypts and returns the user's bundle. Returns store.ErrNotFound when
// no bundle exists, ErrDecryption when the ciphertext does not open with the
// current key (key rotated or corrupt data).
func (s *CredentialService) Get(ctx context.Context, userID string) (domain.Credential, error) {
	rec, err := s.Store.Credentials().GetCredential(ctx, userID)
	if err != nil {
		return domain.Credential{}, err
	}

	plaintext, err := s.Cipher.Open(rec.Ciphertext)
	if err != nil {
		if errors.Is(err, cryptox.ErrDecrypt) {
			return domain.Credential{}, fmt.Errorf("%w: user %s", ErrDecryption, userID)
		}
		return domain.Credential{}, err
	}

	var bundle domain.Credential
	if err := json.Unmarshal(plaintext, &bundle); err != nil {
		return domain.Credential{}, fmt.Errorf("%w: user %s: %w", ErrDecryption, userID, err)
	}
	return bundle, nil
}

// Delete removes the user's bundle. Idempotent.
func (s *CredentialService) Delete(ctx context.Context, userID string) error {
	unlock := s.Locks.Lock(userID)
	defer unlock()

	return s.Store.Credentials().DeleteCredential(ctx, userID)
}

// ListUsers yields the ids of users with a stored bundle. The sequence is
// restartable: each range re-queries the current set.
func (s *CredentialService) ListUsers(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ids, err := s.Store.Credentials().ListUserIDs(ctx)
		if err != nil {
			yield("", err)
			return
		}
		for _, id := range ids {
			if !yield(id, nil) {
				return
			}
		}
	}
}
