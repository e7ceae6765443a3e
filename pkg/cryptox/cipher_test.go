package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	t.Parallel()

	c, err := NewCipher([]byte("test-master-secret"))
	require.NoError(t, err)

	plaintext := []byte(`{"access_token":"ya29.test","refresh_token":"1//test"}`)

	ciphertext, err := c.Seal(plaintext)
	require.NoError(t, err)
	require.NotEqual(t, plaintext, ciphertext)

	opened, err := c.Open(ciphertext)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestCipherNonceVariesPerSeal(t *testing.T) {
	t.Parallel()

	c, err := NewCipher([]byte("test-master-secret"))
	require.NoError(t, err)

	a, err := c.Seal([]byte("same plaintext"))
	require.NoError(t, err)
	b, err := c.Seal([]byte("same plaintext"))
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestCipherWrongKey(t *testing.T) {
	t.Parallel()

	first, err := NewCipher([]byte("key-one"))
	require.NoError(t, err)
	second, err := NewCipher([]byte("key-two"))
	require.NoError(t, err)

	ciphertext, err := first.Seal([]byte("secret material"))
	require.NoError(t, err)

	_, err = second.Open(ciphertext)
	require.ErrorIs(t, err, ErrDecrypt)
}

func TestCipherTamperedCiphertext(t *testing.T) {
	t.Parallel()

	c, err := NewCipher([]byte("test-master-secret"))
	require.NoError(t, err)

	ciphertext, err := c.Seal([]byte("secret material"))
	require.NoError(t, err)

	ciphertext[len(ciphertext)-1] ^= 0xFF
	_, err = c.Open(ciphertext)
	require.ErrorIs(t, err, ErrDecrypt)
}

func TestCipherTruncatedCiphertext(t *testing.T) {
	t.Parallel()

	c, err := NewCipher([]byte("test-master-secret"))
	require.NoError(t, err)

	_, err = c.Open([]byte{0x01, 0x02, 0x03})
	require.ErrorIs(t, err, ErrDecrypt)
}

func TestNewCipherRejectsEmptySecret(t *testing.T) {
	t.Parallel()

	_, err := NewCipher(nil)
	require.Error(t, err)
}

func TestDeriveKeyPurposeSeparation(t *testing.T) {
	t.Parallel()

	secret := []byte("shared-master-secret")

	enc, err := DeriveKey(secret, "credential-encryption", 32)
	require.NoError(t, err)
	sign, err := DeriveKey(secret, "session-token-signing", 32)
	require.NoError(t, err)

	require.Len(t, enc, 32)
	require.Len(t, sign, 32)
	require.NotEqual(t, enc, sign)

	// Deterministic for a fixed secret and purpose.
	again, err := DeriveKey(secret, "credential-encryption", 32)
	require.NoError(t, err)
	require.Equal(t, enc, again)
}
