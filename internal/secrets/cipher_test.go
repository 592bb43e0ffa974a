package secrets

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func TestNewCipher_RejectsBadKeys(t *testing.T) {
	t.Parallel()

	_, err := NewCipher("not-hex")
	require.Error(t, err)

	_, err = NewCipher(hex.EncodeToString([]byte("short")))
	require.Error(t, err)
}

func TestCipher_RoundTrip(t *testing.T) {
	t.Parallel()

	c, err := NewCipher(testKey)
	require.NoError(t, err)

	plaintext := "ya29.provider-access-token"
	encrypted, err := c.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, encrypted)

	decrypted, err := c.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestCipher_EmptyStringPassesThrough(t *testing.T) {
	t.Parallel()

	c, err := NewCipher(testKey)
	require.NoError(t, err)

	encrypted, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, encrypted)

	decrypted, err := c.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, decrypted)
}

func TestCipher_NoncesDiffer(t *testing.T) {
	t.Parallel()

	c, err := NewCipher(testKey)
	require.NoError(t, err)

	a, err := c.Encrypt("same input")
	require.NoError(t, err)
	b, err := c.Encrypt("same input")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCipher_RejectsTamperedCiphertext(t *testing.T) {
	t.Parallel()

	c, err := NewCipher(testKey)
	require.NoError(t, err)

	encrypted, err := c.Encrypt("secret")
	require.NoError(t, err)

	tampered := []byte(encrypted)
	if tampered[10] == 'A' {
		tampered[10] = 'B'
	} else {
		tampered[10] = 'A'
	}
	_, err = c.Decrypt(string(tampered))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = c.Decrypt("%%%")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}
