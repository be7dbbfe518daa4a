package providers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/database/testutil"
	"github.com/charlesng35/omnikit/internal/models"
	"github.com/charlesng35/omnikit/pkg/crypto"
)

func TestAuthenticateSuccessResetsCounters(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	current := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	provider := newLocalProvider(t, db, LocalConfig{Clock: now})
	user := createUser(t, db, "alice", "password123", 3)

	result, err := provider.Authenticate(context.Background(), AuthenticateInput{
		Identifier: "ALICE",
		Password:   "password123",
		IPAddress:  "127.0.0.1",
	})
	require.NoError(t, err)
	require.Equal(t, user.ID, result.ID)

	var updated models.User
	require.NoError(t, db.Take(&updated, "id = ?", user.ID).Error)

	require.Equal(t, 0, updated.FailedAttempts)
	require.Nil(t, updated.LockedUntil)
	require.NotNil(t, updated.LastLoginAt)
	require.True(t, updated.LastLoginAt.Equal(current))
	require.Equal(t, "127.0.0.1", updated.LastLoginIP)
}

func TestAuthenticateInvalidPasswordLocksAccount(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	current := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	provider := newLocalProvider(t, db, LocalConfig{
		LockoutThreshold: 3,
		LockoutDuration:  10 * time.Minute,
		Clock:            now,
	})
	user := createUser(t, db, "bob", "correct", 1)

	err := tryAuthenticate(provider, "bob", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	err = tryAuthenticate(provider, "bob@example.com", "wrong")
	require.ErrorIs(t, err, ErrAccountLocked)

	var updated models.User
	require.NoError(t, db.Take(&updated, "id = ?", user.ID).Error)
	require.Equal(t, 3, updated.FailedAttempts)
	require.NotNil(t, updated.LockedUntil)
	require.True(t, updated.LockedUntil.Equal(current.Add(10*time.Minute)))

	// Correct password is still refused while locked.
	err = tryAuthenticate(provider, "bob", "correct")
	require.ErrorIs(t, err, ErrAccountLocked)
}

func TestAuthenticateUnlocksAfterDuration(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	current := time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	provider := newLocalProvider(t, db, LocalConfig{Clock: now})
	user := createUser(t, db, "carol", "secret", 5)

	past := current.Add(-time.Minute)
	require.NoError(t, db.Model(user).Update("locked_until", past).Error)

	require.ErrorIs(t, tryAuthenticate(provider, "carol", "wrong"), ErrInvalidCredentials)

	var reset models.User
	require.NoError(t, db.Take(&reset, "id = ?", user.ID).Error)
	require.Equal(t, 1, reset.FailedAttempts)
	require.Nil(t, reset.LockedUntil)

	result, err := provider.Authenticate(context.Background(), AuthenticateInput{Identifier: "carol", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, user.ID, result.ID)
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	provider := newLocalProvider(t, db, LocalConfig{})

	user := createUser(t, db, "dave", "secret", 0)
	require.NoError(t, db.Model(user).Update("is_active", false).Error)

	require.ErrorIs(t, tryAuthenticate(provider, "dave", "secret"), ErrAccountDisabled)
	// A wrong password does not reveal that the account is disabled.
	require.ErrorIs(t, tryAuthenticate(provider, "dave", "guess"), ErrInvalidCredentials)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	provider := newLocalProvider(t, db, LocalConfig{})

	require.ErrorIs(t, tryAuthenticate(provider, "ghost", "secret"), ErrInvalidCredentials)
	require.ErrorIs(t, tryAuthenticate(provider, "", ""), ErrInvalidCredentials)
}

func TestRegisterHashesPassword(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	provider := newLocalProvider(t, db, LocalConfig{})

	user, err := provider.Register(context.Background(), RegisterInput{
		Username:    "erin",
		Email:       "Erin@Example.com",
		Password:    "initial",
		DisplayName: "Erin",
		IsRoot:      true,
	})
	require.NoError(t, err)
	require.NotEqual(t, "initial", user.Password)
	require.True(t, crypto.VerifyPassword(user.Password, "initial"))
	require.Equal(t, "erin@example.com", user.Email)
	require.True(t, user.IsRoot)
	require.True(t, user.IsActive)

	_, err = provider.Register(context.Background(), RegisterInput{Username: "x"})
	require.Error(t, err)
}

func TestAuthenticateUpgradesWeakHash(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	provider := newLocalProvider(t, db, LocalConfig{})
	user := createUser(t, db, "frank", "old-password", 0)

	weak, err := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Model(user).Update("password", string(weak)).Error)

	require.NoError(t, tryAuthenticate(provider, "frank", "old-password"))

	var stored models.User
	require.NoError(t, db.Take(&stored, "id = ?", user.ID).Error)
	require.NotEqual(t, string(weak), stored.Password)
	require.False(t, crypto.PasswordNeedsRehash(stored.Password))
	require.True(t, crypto.VerifyPassword(stored.Password, "old-password"))
}

func tryAuthenticate(provider *LocalProvider, identifier, password string) error {
	_, err := provider.Authenticate(context.Background(), AuthenticateInput{
		Identifier: identifier,
		Password:   password,
	})
	return err
}

func newLocalProvider(t *testing.T, db *gorm.DB, cfg LocalConfig) *LocalProvider {
	t.Helper()

	provider, err := NewLocalProvider(db, cfg)
	require.NoError(t, err)
	return provider
}

func createUser(t *testing.T, db *gorm.DB, username, password string, failed int) *models.User {
	t.Helper()

	hashed, err := crypto.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		Username:       username,
		Email:          username + "@example.com",
		Password:       hashed,
		IsActive:       true,
		FailedAttempts: failed,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
