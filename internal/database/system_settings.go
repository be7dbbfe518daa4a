package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/charlesng35/omnikit/internal/models"
)

// VaultKeyFingerprintSetting holds the SHA-256 fingerprint of the vault key that
// encrypted the stored credentials.
const VaultKeyFingerprintSetting = "vault.key_fingerprint"

var (
	// ErrVaultKeyMismatch means the configured vault key cannot decrypt existing credentials.
	ErrVaultKeyMismatch = errors.New("system settings: vault key does not match stored fingerprint")

	errNilDB = errors.New("system settings: db is nil")
)

// GetSystemSetting returns the stored value, or "" when the key was never written.
func GetSystemSetting(ctx context.Context, db *gorm.DB, key string) (string, error) {
	if db == nil {
		return "", errNilDB
	}

	var setting models.SystemSetting
	err := db.WithContext(ctx).Take(&setting, clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("system settings: get %q: %w", key, err)
	}
	return setting.Value, nil
}

// UpsertSystemSetting writes value under key, replacing any previous value.
func UpsertSystemSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	if db == nil {
		return errNilDB
	}
	if key = strings.TrimSpace(key); key == "" {
		return errors.New("system settings: key is required")
	}

	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.SystemSetting{Key: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("system settings: upsert %q: %w", key, err)
	}
	return nil
}

// VaultKeyFingerprint returns the hex SHA-256 digest of a vault key.
func VaultKeyFingerprint(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

// EnsureVaultEncryptionKey pins the vault key on first start and refuses any other
// key afterwards. Rotation means re-encrypting every credential offline.
func EnsureVaultEncryptionKey(ctx context.Context, db *gorm.DB, key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("system settings: vault key is empty")
	}

	want := VaultKeyFingerprint(key)
	stored, err := GetSystemSetting(ctx, db, VaultKeyFingerprintSetting)
	if err != nil {
		return err
	}

	switch strings.TrimSpace(stored) {
	case "":
		return UpsertSystemSetting(ctx, db, VaultKeyFingerprintSetting, want)
	case want:
		return nil
	default:
		return ErrVaultKeyMismatch
	}
}
