// Package secret encrypts provider API keys and target passwords at rest.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	MinKeyLength = 32

	kdfIterations = 100000
	kdfKeyLength  = 32
)

var kdfSalt = []byte("sql_check_tool_salt")

var ErrDecrypt = errors.New("decrypting credential")

// Cipher is an AES-256-GCM sealer keyed from a passphrase. It is safe for
// concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

func New(passphrase string) (*Cipher, error) {
	if len(passphrase) < MinKeyLength {
		return nil, fmt.Errorf("encryption key must be at least %d characters", MinKeyLength)
	}

	key := pbkdf2.Key([]byte(passphrase), kdfSalt, kdfIterations, kdfKeyLength, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating block cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt returns nonce||ciphertext as URL-safe base64. Empty input stays
// empty.
func (c *Cipher) Encrypt(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

func (c *Cipher) Decrypt(text string) (string, error) {
	if text == "" {
		return "", nil
	}

	raw, err := base64.URLEncoding.DecodeString(text)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	n := c.aead.NonceSize()
	if len(raw) < n {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}

	plain, err := c.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(plain), nil
}
