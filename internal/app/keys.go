package app

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrVaultKeyMissing is returned by MasterKey when no key is configured.
var ErrVaultKeyMissing = errors.New("vault.encryption_key must be configured")

// DecodeKey decodes a key written as hex or base64. Hex is tried first, then both base64
// variants; anything else is used verbatim.
func DecodeKey(value string) ([]byte, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil, fmt.Errorf("key value is empty")
	}

	if len(v)%2 == 0 {
		if decoded, err := hex.DecodeString(v); err == nil {
			return decoded, nil
		}
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding} {
		if decoded, err := enc.DecodeString(v); err == nil {
			return decoded, nil
		}
	}
	return []byte(v), nil
}

// KeyByteLength reports how many bytes DecodeKey would yield for value. Blank input is zero.
func KeyByteLength(value string) (int, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	decoded, err := DecodeKey(value)
	if err != nil {
		return 0, err
	}
	return len(decoded), nil
}

// MasterKey decodes the vault key and checks it is sized for AES-128, AES-192 or AES-256.
func (c VaultConfig) MasterKey() ([]byte, error) {
	if strings.TrimSpace(c.EncryptionKey) == "" {
		return nil, ErrVaultKeyMissing
	}
	key, err := DecodeKey(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("vault.encryption_key: %w", err)
	}
	switch len(key) {
	case 16, 24, 32:
		return key, nil
	default:
		return nil, fmt.Errorf("vault.encryption_key must decode to 16, 24, or 32 bytes (current: %d)", len(key))
	}
}
