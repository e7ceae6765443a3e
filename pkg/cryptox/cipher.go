package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrDecrypt reports that a ciphertext could not be opened with the current
// key. This usually means the key was rotated or the stored data is corrupt.
var ErrDecrypt = errors.New("cryptox: decryption failed")

const keySize = 32 // AES-256

// Cipher provides authenticated symmetric encryption (AES-256-GCM) for
// secrets at rest. The key is derived once from a master secret and held by
// the Cipher instance; it is never exposed through any method.
//
// Construct one at startup and pass it by reference to whatever needs it.
// There is deliberately no package-level key state.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives an AES-256 key from the given master secret using
// HKDF-SHA256 and returns a ready-to-use Cipher. The secret may be any
// length; an empty secret is rejected.
func NewCipher(secret []byte) (*Cipher, error) {
	if len(secret) == 0 {
		return nil, errors.New("cryptox: master secret must not be empty")
	}

	key, err := DeriveKey(secret, "credential-encryption", keySize)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create GCM: %w", err)
	}

	return &Cipher{aead: aead}, nil
}

// DeriveKey expands the master secret into size bytes of key material bound
// to the given purpose label. Distinct purposes yield independent keys, so a
// single configured secret can feed both the storage cipher and token
// signing without key reuse.
func DeriveKey(secret []byte, purpose string, size int) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, nil, []byte(purpose))
	key := make([]byte, size)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("cryptox: derive %q key: %w", purpose, err)
	}
	return key, nil
}

// Seal encrypts and authenticates plaintext.
// The output format is: [12-byte nonce][encrypted data][16-byte auth tag].
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("cryptox: generate nonce: %w", err)
	}

	// Seal appends the ciphertext and auth tag to the nonce.
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal. Any tampering, truncation or key
// mismatch yields ErrDecrypt.
func (c *Cipher) Open(ciphertext []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrDecrypt
	}

	nonce, data := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, data, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
