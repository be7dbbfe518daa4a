package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/cache"
	"github.com/charlesng35/omnikit/internal/database/testutil"
	"github.com/charlesng35/omnikit/internal/models"
	"github.com/charlesng35/omnikit/pkg/crypto"
)

func TestCreateSessionGeneratesTokens(t *testing.T) {
	db, svc, clock := setupSessionService(t, nil)
	user := createTestUser(t, db, "user-create")

	tokens, session, err := svc.CreateSession(context.Background(), user.ID, SessionMetadata{
		IPAddress: "10.0.0.1 ",
		UserAgent: "unit-test",
		Username:  "user-create",
	})
	require.NoError(t, err)

	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)
	require.NotNil(t, session)
	require.Equal(t, user.ID, session.UserID)
	require.Equal(t, "10.0.0.1", session.IPAddress)
	require.Equal(t, "unit-test", session.UserAgent)

	var reloaded models.Session
	require.NoError(t, db.Take(&reloaded, "id = ?", session.ID).Error)
	require.Equal(t, tokens.RefreshToken, reloaded.RefreshToken)
	require.True(t, reloaded.ExpiresAt.After(clock.Now()))
	require.True(t, reloaded.LastUsedAt.Equal(clock.Now()))

	require.NoError(t, svc.ValidateSession(context.Background(), session.ID))
}

func TestRefreshSessionRotatesToken(t *testing.T) {
	db, svc, clock := setupSessionService(t, nil)
	user := createTestUser(t, db, "user-refresh")

	tokens, session, err := svc.CreateSession(context.Background(), user.ID, SessionMetadata{})
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)

	newTokens, updatedSession, err := svc.RefreshSession(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, tokens.RefreshToken, newTokens.RefreshToken)
	require.NotEqual(t, tokens.AccessToken, newTokens.AccessToken)

	require.Equal(t, session.ID, updatedSession.ID)
	require.Equal(t, newTokens.RefreshToken, updatedSession.RefreshToken)
	require.True(t, updatedSession.LastUsedAt.Equal(clock.Now()))

	_, _, err = svc.RefreshSession(context.Background(), tokens.RefreshToken)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRefreshSessionCarriesUsernameAndChecksOwner(t *testing.T) {
	db, svc, clock := setupSessionService(t, nil)
	user := createTestUser(t, db, "user-claims")

	tokens, _, err := svc.CreateSession(context.Background(), user.ID, SessionMetadata{Username: "user-claims"})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	rotated, _, err := svc.RefreshSession(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)

	claims, err := svc.jwt.ValidateAccessToken(rotated.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-claims", claims.Username)
	require.Equal(t, user.ID, claims.UserID)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)
	_, _, err = svc.RefreshSession(context.Background(), rotated.RefreshToken)
	require.ErrorIs(t, err, ErrSessionRevoked)
}

func TestRefreshSessionWithDatabaseCache(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	store := cache.NewDatabaseStore(db)
	_, svc, clock := setupSessionServiceWithDB(t, db, NewDatabaseSessionCache(store))
	user := createTestUser(t, db, "user-cached")

	tokens, _, err := svc.CreateSession(context.Background(), user.ID, SessionMetadata{})
	require.NoError(t, err)

	key, ok := cacheKeyFor(tokens.RefreshToken)
	require.True(t, ok)
	require.NotContains(t, key, tokens.RefreshToken)

	_, found, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, found)

	clock.Advance(time.Minute)
	rotated, _, err := svc.RefreshSession(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)

	_, found, err = store.Get(context.Background(), key)
	require.NoError(t, err)
	require.False(t, found)

	_, _, err = svc.RefreshSession(context.Background(), rotated.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshSessionExpired(t *testing.T) {
	db, svc, clock := setupSessionService(t, nil)
	user := createTestUser(t, db, "user-expired")

	tokens, session, err := svc.CreateSession(context.Background(), user.ID, SessionMetadata{})
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Session{}).
		Where("id = ?", session.ID).
		Update("expires_at", clock.Now().Add(-time.Minute)).Error)

	_, _, err = svc.RefreshSession(context.Background(), tokens.RefreshToken)
	require.ErrorIs(t, err, ErrSessionExpired)
	require.ErrorIs(t, svc.ValidateSession(context.Background(), session.ID), ErrSessionExpired)
}

func TestRevokeSessionPreventsRefresh(t *testing.T) {
	db, svc, clock := setupSessionService(t, nil)
	user := createTestUser(t, db, "user-revoke")

	tokens, session, err := svc.CreateSession(context.Background(), user.ID, SessionMetadata{})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeSession(context.Background(), session.ID))

	err = svc.RevokeSession(context.Background(), "non-existent")
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, _, err = svc.RefreshSession(context.Background(), tokens.RefreshToken)
	require.ErrorIs(t, err, ErrSessionRevoked)
	require.ErrorIs(t, svc.ValidateSession(context.Background(), session.ID), ErrSessionRevoked)

	var stored models.Session
	require.NoError(t, db.Take(&stored, "id = ?", session.ID).Error)
	require.NotNil(t, stored.RevokedAt)
	require.True(t, stored.RevokedAt.After(clock.Now().Add(-time.Nanosecond)))
}

func TestCleanupExpiredRemovesStaleSessions(t *testing.T) {
	db, svc, clock := setupSessionService(t, nil)
	user := createTestUser(t, db, "user-cleanup")

	_, keep, err := svc.CreateSession(context.Background(), user.ID, SessionMetadata{})
	require.NoError(t, err)
	_, revoked, err := svc.CreateSession(context.Background(), user.ID, SessionMetadata{})
	require.NoError(t, err)
	_, expired, err := svc.CreateSession(context.Background(), user.ID, SessionMetadata{})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeSession(context.Background(), revoked.ID))
	require.NoError(t, db.Model(&models.Session{}).
		Where("id = ?", expired.ID).
		Update("expires_at", clock.Now().Add(-time.Hour)).Error)

	removed, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	var remaining []models.Session
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, keep.ID, remaining[0].ID)
}

func TestRevokeUserSessions(t *testing.T) {
	db, svc, _ := setupSessionService(t, nil)
	user := createTestUser(t, db, "user-all")

	for i := 0; i < 2; i++ {
		_, _, err := svc.CreateSession(context.Background(), user.ID, SessionMetadata{})
		require.NoError(t, err)
	}

	require.NoError(t, svc.RevokeUserSessions(context.Background(), user.ID))

	var active int64
	require.NoError(t, db.Model(&models.Session{}).Where("revoked_at IS NULL").Count(&active).Error)
	require.Zero(t, active)
}

func setupSessionService(t *testing.T, sessionCache SessionCache) (*gorm.DB, *SessionService, *testClock) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	return setupSessionServiceWithDB(t, db, sessionCache)
}

func setupSessionServiceWithDB(t *testing.T, db *gorm.DB, sessionCache SessionCache) (*gorm.DB, *SessionService, *testClock) {
	t.Helper()

	clock := &testClock{current: time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)}

	jwtService, err := NewJWTService(JWTConfig{
		Secret:         "session-secret",
		AccessTokenTTL: time.Hour,
		Clock:          clock.Now,
	})
	require.NoError(t, err)

	sessionService, err := NewSessionService(db, jwtService, SessionConfig{
		RefreshTokenTTL: 2 * time.Hour,
		RefreshLength:   24,
		Clock:           clock.Now,
		Cache:           sessionCache,
	})
	require.NoError(t, err)

	return db, sessionService, clock
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hashed, err := crypto.HashPassword("password")
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hashed,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

type testClock struct {
	current time.Time
}

func (c *testClock) Now() time.Time {
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func TestListAndRevokeOwnedSessions(t *testing.T) {
	db, svc, clock := setupSessionService(t, nil)
	owner := createTestUser(t, db, "user-owner")
	other := createTestUser(t, db, "user-other")
	ctx := context.Background()

	_, first, err := svc.CreateSession(ctx, owner.ID, SessionMetadata{UserAgent: "laptop"})
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, second, err := svc.CreateSession(ctx, owner.ID, SessionMetadata{UserAgent: "phone"})
	require.NoError(t, err)
	_, foreign, err := svc.CreateSession(ctx, other.ID, SessionMetadata{})
	require.NoError(t, err)

	sessions, err := svc.ListUserSessions(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, second.ID, sessions[0].ID)
	require.Equal(t, first.ID, sessions[1].ID)

	require.ErrorIs(t, svc.RevokeOwnedSession(ctx, owner.ID, foreign.ID), ErrSessionNotFound)
	require.NoError(t, svc.RevokeOwnedSession(ctx, owner.ID, first.ID))
	require.ErrorIs(t, svc.RevokeOwnedSession(ctx, owner.ID, first.ID), ErrSessionNotFound)

	sessions, err = svc.ListUserSessions(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, second.ID, sessions[0].ID)

	require.NoError(t, svc.ValidateSession(ctx, foreign.ID))
	require.NoError(t, svc.RevokeUserSessions(ctx, other.ID))
	require.NoError(t, svc.RevokeUserSessions(ctx, other.ID))
}
