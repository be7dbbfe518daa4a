package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(JWTConfig{Secret: "   "})
	require.EqualError(t, err, "jwt: secret must be provided")
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	current := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewJWTService(JWTConfig{
		Secret:         "super-secret",
		Issuer:         "omnikit",
		AccessTokenTTL: time.Hour,
		Clock:          now,
	})
	require.NoError(t, err)
	require.Equal(t, time.Hour, svc.TTL())

	token, err := svc.GenerateAccessToken(AccessTokenInput{
		UserID:    "user-123",
		SessionID: "session-456",
		Username:  "admin",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-123", claims.UserID)
	require.Equal(t, "session-456", claims.SessionID)
	require.Equal(t, "session-456", claims.ID)
	require.Equal(t, "admin", claims.Username)
	require.Equal(t, "omnikit", claims.Issuer)
	require.Equal(t, jwt.ClaimStrings{AccessTokenAudience}, claims.Audience)
	require.True(t, claims.IssuedAt.Time.Equal(current))
	require.True(t, claims.ExpiresAt.Time.Equal(current.Add(time.Hour)))
}

func TestGenerateAccessTokenRequiresUser(t *testing.T) {
	svc, err := NewJWTService(JWTConfig{Secret: "secret"})
	require.NoError(t, err)

	_, err = svc.GenerateAccessToken(AccessTokenInput{SessionID: "s"})
	require.ErrorIs(t, err, ErrMissingSubject)
	require.Equal(t, DefaultAccessTokenTTL, svc.TTL())
}

func TestValidateAccessTokenRejections(t *testing.T) {
	current := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)
	now := func() time.Time { return current }

	svc, err := NewJWTService(JWTConfig{Secret: "secret", Issuer: "omnikit", AccessTokenTTL: time.Minute, Clock: now})
	require.NoError(t, err)
	token, err := svc.GenerateAccessToken(AccessTokenInput{UserID: "user-123"})
	require.NoError(t, err)

	t.Run("signature", func(t *testing.T) {
		other, err := NewJWTService(JWTConfig{Secret: "other-secret", Issuer: "omnikit", Clock: now})
		require.NoError(t, err)
		_, err = other.ValidateAccessToken(token)
		require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("issuer", func(t *testing.T) {
		other, err := NewJWTService(JWTConfig{Secret: "secret", Issuer: "someone-else", Clock: now})
		require.NoError(t, err)
		_, err = other.ValidateAccessToken(token)
		require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
	})

	t.Run("audience", func(t *testing.T) {
		foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			UserID: "user-123",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "omnikit",
				Audience:  jwt.ClaimStrings{"another-service"},
				ExpiresAt: jwt.NewNumericDate(current.Add(time.Minute)),
			},
		})
		signed, err := foreign.SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = svc.ValidateAccessToken(signed)
		require.ErrorIs(t, err, jwt.ErrTokenInvalidAudience)
	})

	t.Run("expired", func(t *testing.T) {
		later := current.Add(2 * time.Minute)
		expired, err := NewJWTService(JWTConfig{Secret: "secret", Issuer: "omnikit", Clock: func() time.Time { return later }})
		require.NoError(t, err)
		_, err = expired.ValidateAccessToken(token)
		require.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("")
		require.Error(t, err)
	})
}
