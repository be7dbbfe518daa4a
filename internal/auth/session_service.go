package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/models"
	"github.com/charlesng35/omnikit/pkg/crypto"
	"github.com/charlesng35/omnikit/pkg/logger"
	"github.com/charlesng35/omnikit/pkg/metrics"
)

const (
	// DefaultRefreshTokenTTL is the fallback refresh token lifetime.
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour

	defaultRefreshLength = 48
)

// SessionConfig describes tunable behaviour for the SessionService.
type SessionConfig struct {
	RefreshTokenTTL time.Duration
	RefreshLength   int
	Clock           func() time.Time
	Cache           SessionCache
}

// SessionMetadata describes the client a session is issued to. Username is stamped on the
// access token so audit entries can name the actor without a lookup.
type SessionMetadata struct {
	IPAddress string
	UserAgent string
	Username  string
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

var (
	// ErrSessionNotFound indicates that no session matches the provided token or identifier.
	ErrSessionNotFound = errors.New("session: not found")
	// ErrSessionRevoked marks a revoked session, or one whose owner has been deactivated.
	ErrSessionRevoked = errors.New("session: revoked")
	// ErrSessionExpired signals that a refresh token has reached its expiry.
	ErrSessionExpired = errors.New("session: expired")
	// ErrSessionInvalidToken is returned for blank tokens and identifiers.
	ErrSessionInvalidToken = errors.New("session: invalid token")
)

var errSessionCacheMiss = errors.New("session cache miss")

// SessionCache caches sessions by refresh token so refreshes skip the sessions table.
type SessionCache interface {
	Get(ctx context.Context, refreshToken string) (*models.Session, error)
	Set(ctx context.Context, session *models.Session, ttl time.Duration) error
	Delete(ctx context.Context, refreshToken string) error
}

// SessionService issues refresh sessions, rotates their tokens and revokes them. Access
// tokens carry the session id, so a revoked session stops authenticating immediately.
type SessionService struct {
	db         *gorm.DB
	jwt        *JWTService
	refreshTTL time.Duration
	tokenLen   int
	now        func() time.Time
	cache      SessionCache
	log        *zap.Logger
}

func NewSessionService(db *gorm.DB, jwtService *JWTService, cfg SessionConfig) (*SessionService, error) {
	if db == nil {
		return nil, errors.New("session service: db is required")
	}
	if jwtService == nil {
		return nil, errors.New("session service: jwt service is required")
	}

	s := &SessionService{
		db:         db,
		jwt:        jwtService,
		refreshTTL: DefaultRefreshTokenTTL,
		tokenLen:   defaultRefreshLength,
		now:        time.Now,
		cache:      cfg.Cache,
		log:        logger.WithModule("sessions"),
	}
	if cfg.RefreshTokenTTL > 0 {
		s.refreshTTL = cfg.RefreshTokenTTL
	}
	if cfg.RefreshLength > 0 {
		s.tokenLen = cfg.RefreshLength
	}
	if cfg.Clock != nil {
		s.now = cfg.Clock
	}
	return s, nil
}

// CreateSession stores a new session and issues its first token pair.
func (s *SessionService) CreateSession(ctx context.Context, userID string, meta SessionMetadata) (TokenPair, *models.Session, error) {
	if strings.TrimSpace(userID) == "" {
		return TokenPair{}, nil, errors.New("session service: user id is required")
	}

	refreshToken, err := crypto.GenerateToken(s.tokenLen)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: generate refresh token: %w", err)
	}

	now := s.now()
	session := &models.Session{
		UserID:       userID,
		RefreshToken: refreshToken,
		IPAddress:    clip(meta.IPAddress, 64),
		UserAgent:    clip(meta.UserAgent, 512),
		ExpiresAt:    now.Add(s.refreshTTL),
		LastUsedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: create session: %w", err)
	}
	metrics.ActiveSessions.Inc()

	pair, err := s.issue(session, strings.TrimSpace(meta.Username))
	if err != nil {
		return TokenPair{}, nil, err
	}
	s.cacheSet(ctx, session)
	return pair, session, nil
}

// RefreshSession rotates the refresh token and issues a new access token. The presented
// token is single-use: a second refresh with it fails with ErrSessionNotFound.
func (s *SessionService) RefreshSession(ctx context.Context, refreshToken string) (TokenPair, *models.Session, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return TokenPair{}, nil, ErrSessionInvalidToken
	}

	session, err := s.lookup(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, nil, err
	}

	now := s.now()
	if err := s.usable(session, now); err != nil {
		return TokenPair{}, nil, err
	}

	var owner models.User
	err = s.db.WithContext(ctx).Select("id", "username", "is_active").Take(&owner, "id = ?", session.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TokenPair{}, nil, ErrSessionNotFound
	}
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: load session owner: %w", err)
	}
	if !owner.IsActive {
		return TokenPair{}, nil, ErrSessionRevoked
	}

	rotated, err := crypto.GenerateToken(s.tokenLen)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: generate refresh token: %w", err)
	}

	expiresAt := now.Add(s.refreshTTL)
	result := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ? AND refresh_token = ? AND revoked_at IS NULL", session.ID, refreshToken).
		Updates(map[string]any{
			"refresh_token": rotated,
			"expires_at":    expiresAt,
			"last_used_at":  now,
		})
	if result.Error != nil {
		return TokenPair{}, nil, fmt.Errorf("session service: rotate session: %w", result.Error)
	}
	s.cacheDelete(ctx, refreshToken)
	if result.RowsAffected == 0 {
		// Rotated or revoked concurrently.
		return TokenPair{}, nil, ErrSessionNotFound
	}

	session.RefreshToken = rotated
	session.ExpiresAt = expiresAt
	session.LastUsedAt = now

	pair, err := s.issue(session, owner.Username)
	if err != nil {
		return TokenPair{}, nil, err
	}
	s.cacheSet(ctx, session)
	return pair, session, nil
}

// ValidateSession reports whether the session referenced by an access token is still usable.
func (s *SessionService) ValidateSession(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrSessionInvalidToken
	}

	var session models.Session
	err := s.db.WithContext(ctx).Select("id", "revoked_at", "expires_at").Take(&session, "id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("session service: load session: %w", err)
	}
	return s.usable(&session, s.now())
}

// ListUserSessions returns the user's live sessions, most recently used first.
func (s *SessionService) ListUserSessions(ctx context.Context, userID string) ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, s.now()).
		Order("last_used_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("session service: list sessions: %w", err)
	}
	return sessions, nil
}

// RevokeSession revokes a session by id.
func (s *SessionService) RevokeSession(ctx context.Context, sessionID string) error {
	return s.revoke(ctx, "id = ?", sessionID)
}

// RevokeOwnedSession revokes sessionID only when it belongs to userID; anything else is
// reported as ErrSessionNotFound.
func (s *SessionService) RevokeOwnedSession(ctx context.Context, userID, sessionID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrSessionInvalidToken
	}
	return s.revoke(ctx, "id = ? AND user_id = ?", sessionID, userID)
}

// RevokeUserSessions revokes every live session of a user. It is not an error for the user
// to have none.
func (s *SessionService) RevokeUserSessions(ctx context.Context, userID string) error {
	err := s.revoke(ctx, "user_id = ?", userID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	return err
}

func (s *SessionService) revoke(ctx context.Context, where string, args ...any) error {
	if len(args) == 0 || strings.TrimSpace(fmt.Sprint(args[0])) == "" {
		return ErrSessionInvalidToken
	}
	scope := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Session{}).Where(where, args...).Where("revoked_at IS NULL")
	}

	var tokens []string
	if s.cache != nil {
		if err := scope().Pluck("refresh_token", &tokens).Error; err != nil {
			s.log.Warn("session cache eviction lookup failed", zap.Error(err))
		}
	}

	result := scope().Update("revoked_at", s.now())
	if result.Error != nil {
		return fmt.Errorf("session service: revoke: %w", result.Error)
	}
	for _, token := range tokens {
		s.cacheDelete(ctx, token)
	}
	if result.RowsAffected == 0 {
		return ErrSessionNotFound
	}
	metrics.ActiveSessions.Sub(float64(result.RowsAffected))
	return nil
}

// CleanupExpired deletes expired and revoked sessions and returns how many were removed.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	now := s.now()
	stale := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Session{}).Where("expires_at < ? OR revoked_at IS NOT NULL", now)
	}

	var liveExpired int64
	if err := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("expires_at < ? AND revoked_at IS NULL", now).
		Count(&liveExpired).Error; err != nil {
		return 0, fmt.Errorf("session service: count expired sessions: %w", err)
	}

	var tokens []string
	if s.cache != nil {
		if err := stale().Pluck("refresh_token", &tokens).Error; err != nil {
			s.log.Warn("session cache eviction lookup failed", zap.Error(err))
		}
	}

	result := stale().Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("session service: cleanup expired sessions: %w", result.Error)
	}
	for _, token := range tokens {
		s.cacheDelete(ctx, token)
	}
	if liveExpired > 0 {
		metrics.ActiveSessions.Sub(float64(liveExpired))
	}
	return result.RowsAffected, nil
}

func (s *SessionService) lookup(ctx context.Context, refreshToken string) (*models.Session, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, refreshToken)
		switch {
		case err == nil && cached != nil:
			return cached, nil
		case err != nil && !errors.Is(err, errSessionCacheMiss):
			s.log.Warn("session cache lookup failed", zap.Error(err))
		}
	}

	var session models.Session
	err := s.db.WithContext(ctx).Where("refresh_token = ?", refreshToken).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session service: find session: %w", err)
	}
	return &session, nil
}

func (s *SessionService) usable(session *models.Session, now time.Time) error {
	switch {
	case session.Live(now):
		return nil
	case session.RevokedAt != nil:
		return ErrSessionRevoked
	default:
		return ErrSessionExpired
	}
}

func (s *SessionService) issue(session *models.Session, username string) (TokenPair, error) {
	access, err := s.jwt.GenerateAccessToken(AccessTokenInput{
		UserID:    session.UserID,
		SessionID: session.ID,
		Username:  username,
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("session service: generate access token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: session.RefreshToken}, nil
}

func (s *SessionService) cacheSet(ctx context.Context, session *models.Session) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, session, s.refreshTTL); err != nil {
		s.log.Warn("session cache write failed", zap.Error(err))
	}
}

func (s *SessionService) cacheDelete(ctx context.Context, refreshToken string) {
	if s.cache == nil || strings.TrimSpace(refreshToken) == "" {
		return
	}
	if err := s.cache.Delete(ctx, refreshToken); err != nil {
		s.log.Warn("session cache delete failed", zap.Error(err))
	}
}

// clip trims value and cuts it to at most n runes to fit the session columns.
func clip(value string, n int) string {
	value = strings.TrimSpace(value)
	if runes := []rune(value); len(runes) > n {
		return string(runes[:n])
	}
	return value
}
