package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const minSaltLength = 16

// ErrMalformedHash is returned when an encoded argon2id hash cannot be parsed.
var ErrMalformedHash = errors.New("argon2: malformed encoded hash")

// KDFParams sets the argon2id cost factors. MemoryKiB is expressed in kibibytes.
type KDFParams struct {
	Iterations  uint32
	MemoryKiB   uint32
	Parallelism uint8
	KeyLen      uint32
}

// DefaultKDFParams are used for vault key derivation and toolkit hashes.
func DefaultKDFParams() KDFParams {
	return KDFParams{Iterations: 2, MemoryKiB: 64 * 1024, Parallelism: 4, KeyLen: 32}
}

// Validate rejects parameters argon2id cannot run with, and key lengths AES cannot use.
func (p KDFParams) Validate() error {
	switch {
	case p.Iterations == 0:
		return errors.New("argon2: iterations must be positive")
	case p.Parallelism == 0:
		return errors.New("argon2: parallelism must be positive")
	case p.MemoryKiB < 8*uint32(p.Parallelism):
		return errors.New("argon2: memory must be at least 8 KiB per lane")
	}
	switch p.KeyLen {
	case 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("argon2: key length must be 16, 24 or 32 bytes (got %d)", p.KeyLen)
	}
}

// DeriveKey stretches secret into a symmetric key.
func DeriveKey(secret, salt []byte, params KDFParams) ([]byte, error) {
	if len(secret) == 0 {
		return nil, errors.New("argon2: secret is required")
	}
	if len(salt) < minSaltLength {
		return nil, fmt.Errorf("argon2: salt must be at least %d bytes (got %d)", minSaltLength, len(salt))
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return argon2.IDKey(secret, salt, params.Iterations, params.MemoryKiB, params.Parallelism, params.KeyLen), nil
}

// HashArgon2id hashes secret with a random salt and returns the PHC string form:
// $argon2id$v=19$m=65536,t=2,p=4$<salt>$<hash>.
func HashArgon2id(secret string, params KDFParams) (string, error) {
	salt := make([]byte, minSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("argon2: salt: %w", err)
	}
	key, err := DeriveKey([]byte(secret), salt, params)
	if err != nil {
		return "", err
	}
	enc := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, params.MemoryKiB, params.Iterations, params.Parallelism,
		enc.EncodeToString(salt), enc.EncodeToString(key)), nil
}

// VerifyArgon2id reports whether secret matches a hash produced by HashArgon2id.
func VerifyArgon2id(secret, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, ErrMalformedHash
	}

	var params KDFParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.MemoryKiB, &params.Iterations, &params.Parallelism); err != nil {
		return false, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrMalformedHash
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, ErrMalformedHash
	}
	params.KeyLen = uint32(len(want))

	got, err := DeriveKey([]byte(secret), salt, params)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
