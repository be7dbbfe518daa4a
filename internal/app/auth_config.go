package app

import (
	"strings"
	"time"

	"github.com/charlesng35/omnikit/internal/auth"
	"github.com/charlesng35/omnikit/internal/auth/providers"
)

const (
	defaultIssuer           = "omnikit"
	defaultRefreshLength    = 48
	defaultLockoutThreshold = 5
	defaultLockoutDuration  = 15 * time.Minute
)

// JWTServiceConfig maps the jwt section onto auth.JWTConfig.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	issuer := strings.TrimSpace(c.JWT.Issuer)
	if issuer == "" {
		issuer = defaultIssuer
	}
	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         issuer,
		AccessTokenTTL: positiveOr(c.JWT.TTL, auth.DefaultAccessTokenTTL),
	}
}

// SessionServiceConfig maps the session section onto auth.SessionConfig. The cache is wired
// by the caller.
func (c AuthConfig) SessionServiceConfig() auth.SessionConfig {
	return auth.SessionConfig{
		RefreshTokenTTL: positiveOr(c.Session.RefreshTTL, auth.DefaultRefreshTokenTTL),
		RefreshLength:   positiveOr(c.Session.RefreshLength, defaultRefreshLength),
	}
}

// LocalProviderConfig maps the lockout policy onto providers.LocalConfig.
func (c AuthConfig) LocalProviderConfig() providers.LocalConfig {
	return providers.LocalConfig{
		LockoutThreshold: positiveOr(c.Local.LockoutThreshold, defaultLockoutThreshold),
		LockoutDuration:  positiveOr(c.Local.LockoutDuration, defaultLockoutDuration),
	}
}

func positiveOr[T ~int | ~int64](value, fallback T) T {
	if value <= 0 {
		return fallback
	}
	return value
}
