package handlers

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/omnikit/internal/middleware"
	apperrors "github.com/charlesng35/omnikit/pkg/errors"
	"github.com/charlesng35/omnikit/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// ownerID returns the authenticated user id. It writes a 401 and returns false when the
// auth middleware did not run.
func ownerID(c *gin.Context) (string, bool) {
	userID := strings.TrimSpace(c.GetString(middleware.CtxUserIDKey))
	if userID == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return "", false
	}
	return userID, true
}

// pathID reads a required :id style path parameter.
func pathID(c *gin.Context, name, label string) (string, bool) {
	id := strings.TrimSpace(c.Param(name))
	if id == "" {
		response.Error(c, apperrors.NewBadRequest(label+" id is required"))
		return "", false
	}
	return id, true
}

// optionalID normalises an optional id from a payload; blank means absent.
func optionalID(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
