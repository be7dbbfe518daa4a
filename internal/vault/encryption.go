// Package vault encrypts the credentials stored in the database (AI keys, image host
// secrets, GitHub tokens) under a key derived from the configured master key.
package vault

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/charlesng35/omnikit/pkg/crypto"
)

const minSaltLength = 16

// additionalData binds every ciphertext to this vault format.
var additionalData = []byte("omnikit/vault/v1")

// Crypto seals and opens stored secrets with AES-GCM.
type Crypto struct {
	key    []byte
	salt   []byte
	params crypto.KDFParams
}

// Option adjusts key derivation.
type Option func(*Crypto)

// WithSalt replaces the salt derived from the master key. It must be at least 16 bytes.
func WithSalt(salt []byte) Option {
	salt = append([]byte(nil), salt...)
	return func(c *Crypto) { c.salt = salt }
}

// WithKDFParams replaces the default argon2id parameters.
func WithKDFParams(params crypto.KDFParams) Option {
	return func(c *Crypto) { c.params = params }
}

// NewCrypto derives the data key from masterKey with argon2id. Without WithSalt the
// salt is taken from the SHA-256 of the master key, so a restart with the same key
// derives the same data key.
func NewCrypto(masterKey []byte, opts ...Option) (*Crypto, error) {
	if len(masterKey) == 0 {
		return nil, errors.New("vault crypto: master key is required")
	}

	c := &Crypto{params: crypto.DefaultKDFParams()}
	for _, opt := range opts {
		opt(c)
	}

	switch {
	case len(c.salt) == 0:
		sum := sha256.Sum256(masterKey)
		c.salt = sum[:minSaltLength]
	case len(c.salt) < minSaltLength:
		return nil, fmt.Errorf("vault crypto: salt must be at least %d bytes (got %d)", minSaltLength, len(c.salt))
	}

	key, err := crypto.DeriveKey(masterKey, c.salt, c.params)
	if err != nil {
		return nil, fmt.Errorf("vault crypto: derive key: %w", err)
	}
	c.key = key
	return c, nil
}

// Encrypt seals plaintext and returns it base64 encoded.
func (c *Crypto) Encrypt(plaintext []byte) (string, error) {
	return crypto.Encrypt(plaintext, c.key, additionalData)
}

// Decrypt opens a payload produced by Encrypt.
func (c *Crypto) Decrypt(ciphertext string) ([]byte, error) {
	return crypto.Decrypt(ciphertext, c.key, additionalData)
}

// SealString encrypts a credential for storage. An empty value stays empty so an unset
// secret remains distinguishable from a configured one.
func (c *Crypto) SealString(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	return c.Encrypt([]byte(value))
}

// OpenString reverses SealString.
func (c *Crypto) OpenString(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	plain, err := c.Decrypt(ciphertext)
	if err != nil {
		return "", fmt.Errorf("vault crypto: %w", err)
	}
	return string(plain), nil
}

// Salt returns a copy of the derivation salt.
func (c *Crypto) Salt() []byte {
	return append([]byte(nil), c.salt...)
}

// Parameters returns the argon2id parameters the key was derived with.
func (c *Crypto) Parameters() crypto.KDFParams {
	return c.params
}
