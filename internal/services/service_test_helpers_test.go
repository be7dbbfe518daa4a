package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/database/testutil"
	"github.com/charlesng35/omnikit/internal/models"
	"github.com/charlesng35/omnikit/internal/vault"
	apperrors "github.com/charlesng35/omnikit/pkg/errors"
)

func openSeededDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithSeedData())
}

func createOperator(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()

	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret",
		IsActive: true,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func newTestAudit(t *testing.T, db *gorm.DB) *AuditService {
	t.Helper()

	audit, err := NewAuditService(db)
	require.NoError(t, err)
	return audit
}

func newTestVault(t *testing.T) *vault.Crypto {
	t.Helper()

	crypto, err := vault.NewCrypto([]byte("services-test-master-key"))
	require.NoError(t, err)
	return crypto
}

func requireAppError(t *testing.T, err error, code string) {
	t.Helper()

	require.Error(t, err)
	appErr := apperrors.FromError(err)
	require.Equal(t, code, appErr.Code, "unexpected error: %v", err)
}
