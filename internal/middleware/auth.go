package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/omnikit/internal/auditctx"
	iauth "github.com/charlesng35/omnikit/internal/auth"
	apperrors "github.com/charlesng35/omnikit/pkg/errors"
	"github.com/charlesng35/omnikit/pkg/response"
)

// Gin context keys set once a request is authenticated.
const (
	CtxClaimsKey    = "authClaims"
	CtxUserIDKey    = "userID"
	CtxSessionIDKey = "sessionID"
)

// SessionValidator confirms that the session behind an access token is still live.
type SessionValidator interface {
	ValidateSession(ctx context.Context, sessionID string) error
}

// Auth requires a valid bearer access token. With a non-nil sessions validator a token
// stops working as soon as its session is revoked, not only when it expires.
func Auth(jwt *iauth.JWTService, sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c)
			return
		}

		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			unauthorized(c)
			return
		}
		if sessions != nil {
			if err := sessions.ValidateSession(c.Request.Context(), claims.SessionID); err != nil {
				unauthorized(c)
				return
			}
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		if claims.SessionID != "" {
			c.Set(CtxSessionIDKey, claims.SessionID)
		}

		ctx := c.Request.Context()
		if _, ok := auditctx.FromContext(ctx); !ok {
			ctx = auditctx.WithActor(ctx, auditctx.Actor{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent()})
		}
		c.Request = c.Request.WithContext(auditctx.WithIdentity(ctx, claims.UserID, claims.Username))

		c.Next()
	}
}

// bearerToken extracts the credentials of an "Authorization: Bearer <token>" header.
// The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	response.Error(c, apperrors.ErrUnauthorized)
	c.Abort()
}
