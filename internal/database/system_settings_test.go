package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/models"
)

func settingsDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.SystemSetting{}))
	return db
}

func TestSystemSettingRoundTrip(t *testing.T) {
	db := settingsDB(t)
	ctx := context.Background()

	value, err := GetSystemSetting(ctx, db, "missing")
	require.NoError(t, err)
	require.Empty(t, value)

	for _, want := range []string{"first", "second", ""} {
		require.NoError(t, UpsertSystemSetting(ctx, db, " sample ", want))
		got, err := GetSystemSetting(ctx, db, "sample")
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	var rows int64
	require.NoError(t, db.Model(&models.SystemSetting{}).Count(&rows).Error)
	require.EqualValues(t, 1, rows)

	require.Error(t, UpsertSystemSetting(ctx, db, "  ", "value"))
	require.ErrorIs(t, UpsertSystemSetting(ctx, nil, "k", "v"), errNilDB)
	_, err = GetSystemSetting(ctx, nil, "k")
	require.ErrorIs(t, err, errNilDB)
}

func TestEnsureVaultEncryptionKey(t *testing.T) {
	db := settingsDB(t)
	ctx := context.Background()

	require.NoError(t, EnsureVaultEncryptionKey(ctx, db, "initial"))
	stored, err := GetSystemSetting(ctx, db, VaultKeyFingerprintSetting)
	require.NoError(t, err)
	require.Equal(t, VaultKeyFingerprint("initial"), stored)
	require.NotContains(t, stored, "initial")

	require.NoError(t, EnsureVaultEncryptionKey(ctx, db, " initial "))
	require.ErrorIs(t, EnsureVaultEncryptionKey(ctx, db, "updated"), ErrVaultKeyMismatch)
	require.Error(t, EnsureVaultEncryptionKey(ctx, db, ""))
}
