package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/charlesng35/omnikit/internal/cache"
	"github.com/charlesng35/omnikit/internal/models"
)

const sessionCacheKeyPrefix = "auth:session:"

// storeSessionCache keeps sessions in a cache.Store keyed by a digest of the refresh token,
// so raw tokens never reach the cache table.
type storeSessionCache struct {
	store cache.Store
}

// cacheEnvelope carries the refresh token, which models.Session hides from JSON.
type cacheEnvelope struct {
	Session      models.Session `json:"session"`
	RefreshToken string         `json:"refresh_token"`
}

// NewDatabaseSessionCache wraps store as a SessionCache. A nil store yields a nil cache.
func NewDatabaseSessionCache(store cache.Store) SessionCache {
	if store == nil {
		return nil
	}
	return &storeSessionCache{store: store}
}

func (c *storeSessionCache) Get(ctx context.Context, refreshToken string) (*models.Session, error) {
	key, ok := cacheKeyFor(refreshToken)
	if !ok {
		return nil, errSessionCacheMiss
	}

	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errSessionCacheMiss
	}

	var env cacheEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("session cache: decode: %w", err)
	}
	if env.RefreshToken != refreshToken {
		return nil, errSessionCacheMiss
	}
	session := env.Session
	session.RefreshToken = env.RefreshToken
	return &session, nil
}

func (c *storeSessionCache) Set(ctx context.Context, session *models.Session, ttl time.Duration) error {
	if session == nil {
		return errors.New("session cache: session is nil")
	}
	key, ok := cacheKeyFor(session.RefreshToken)
	if !ok {
		return errors.New("session cache: refresh token missing")
	}

	raw, err := json.Marshal(cacheEnvelope{Session: *session, RefreshToken: session.RefreshToken})
	if err != nil {
		return fmt.Errorf("session cache: encode: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.store.Set(ctx, key, raw, ttl)
}

func (c *storeSessionCache) Delete(ctx context.Context, refreshToken string) error {
	key, ok := cacheKeyFor(refreshToken)
	if !ok {
		return nil
	}
	return c.store.Delete(ctx, key)
}

func cacheKeyFor(refreshToken string) (string, bool) {
	token := strings.TrimSpace(refreshToken)
	if token == "" {
		return "", false
	}
	sum := sha256.Sum256([]byte(token))
	return sessionCacheKeyPrefix + hex.EncodeToString(sum[:]), true
}
