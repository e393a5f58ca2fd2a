package secret

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestNew_ShortKey(t *testing.T) {
	_, err := New("too-short")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32")
}

func TestRoundTrip(t *testing.T) {
	c, err := New(testKey)
	require.NoError(t, err)

	for _, plain := range []string{"sk-live-abc123", "pässwörd", strings.Repeat("x", 4096)} {
		enc, err := c.Encrypt(plain)
		require.NoError(t, err)
		assert.NotEqual(t, plain, enc)

		dec, err := c.Decrypt(enc)
		require.NoError(t, err)
		assert.Equal(t, plain, dec)
	}
}

func TestEncrypt_NonceVaries(t *testing.T) {
	c, err := New(testKey)
	require.NoError(t, err)

	a, _ := c.Encrypt("same")
	b, _ := c.Encrypt("same")
	assert.NotEqual(t, a, b)
}

func TestEmpty(t *testing.T) {
	c, err := New(testKey)
	require.NoError(t, err)

	enc, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, enc)

	dec, err := c.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, dec)
}

func TestDecrypt_Tampered(t *testing.T) {
	c, err := New(testKey)
	require.NoError(t, err)

	enc, err := c.Encrypt("secret")
	require.NoError(t, err)

	b := []byte(enc)
	i := len(b) / 2
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}

	_, err = c.Decrypt(string(b))
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestDecrypt_WrongKey(t *testing.T) {
	a, err := New(testKey)
	require.NoError(t, err)
	b, err := New(strings.Repeat("z", 40))
	require.NoError(t, err)

	enc, err := a.Encrypt("secret")
	require.NoError(t, err)

	_, err = b.Decrypt(enc)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestDecrypt_Garbage(t *testing.T) {
	c, err := New(testKey)
	require.NoError(t, err)

	for _, in := range []string{"!!!not base64!!!", "QUJD"} {
		_, err := c.Decrypt(in)
		assert.ErrorIs(t, err, ErrDecrypt, in)
	}
}
