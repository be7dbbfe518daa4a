package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/charlesng35/omnikit/internal/auth"
	"github.com/charlesng35/omnikit/internal/auth/providers"
	"github.com/charlesng35/omnikit/internal/middleware"
	"github.com/charlesng35/omnikit/internal/models"
	"github.com/charlesng35/omnikit/internal/services"
	apperrors "github.com/charlesng35/omnikit/pkg/errors"
	"github.com/charlesng35/omnikit/pkg/metrics"
	"github.com/charlesng35/omnikit/pkg/response"
)

var (
	errInvalidCredentials = apperrors.New("INVALID_CREDENTIALS", "Invalid username or password", http.StatusUnauthorized)
	errAccountLocked      = apperrors.New("AUTH_LOCKED", "Account is temporarily locked", http.StatusUnauthorized)
)

// AuthHandler manages authentication flows (login/refresh/logout/me).
type AuthHandler struct {
	db       *gorm.DB
	local    *providers.LocalProvider
	sessions *iauth.SessionService
	audit    *services.AuditService
}

func NewAuthHandler(db *gorm.DB, local *providers.LocalProvider, sessions *iauth.SessionService, audit *services.AuditService) (*AuthHandler, error) {
	if db == nil || local == nil || sessions == nil {
		return nil, errors.New("auth handler: db, local provider and sessions are required")
	}
	return &AuthHandler{db: db, local: local, sessions: sessions, audit: audit}, nil
}

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required,notblank"`
	Password   string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type userDTO struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
	IsRoot      bool   `json:"is_root"`
	IsActive    bool   `json:"is_active"`
}

func mapUser(user *models.User) userDTO {
	return userDTO{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Avatar:      user.Avatar,
		IsRoot:      user.IsRoot,
		IsActive:    user.IsActive,
	}
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	ctx := requestContext(c)
	identifier := strings.TrimSpace(req.Identifier)

	user, err := h.local.Authenticate(ctx, providers.AuthenticateInput{
		Identifier: identifier,
		Password:   req.Password,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		h.record(c, nil, identifier, "auth.login", services.AuditResultFailure)
		switch {
		case errors.Is(err, providers.ErrAccountLocked):
			response.Error(c, errAccountLocked)
		case errors.Is(err, providers.ErrInvalidCredentials), errors.Is(err, providers.ErrAccountDisabled):
			response.Error(c, errInvalidCredentials)
		default:
			response.Error(c, apperrors.Wrap(err, "authenticate"))
		}
		return
	}

	pair, _, err := h.sessions.CreateSession(ctx, user.ID, iauth.SessionMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Username:  user.Username,
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		response.Error(c, apperrors.Wrap(err, "create session"))
		return
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	h.record(c, &user.ID, user.Username, "auth.login", services.AuditResultSuccess)

	response.Success(c, http.StatusOK, gin.H{
		"tokens": tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
		"user":   mapUser(user),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,notblank"`
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, _, err := h.sessions.RefreshSession(requestContext(c), strings.TrimSpace(req.RefreshToken))
	if err != nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	sid := strings.TrimSpace(c.GetString(middleware.CtxSessionIDKey))
	if sid == "" {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.sessions.RevokeSession(requestContext(c), sid); err != nil && !errors.Is(err, iauth.ErrSessionNotFound) {
		response.Error(c, apperrors.Wrap(err, "revoke session"))
		return
	}
	h.record(c, &userID, "", "auth.logout", services.AuditResultSuccess)

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

type sessionDTO struct {
	ID         string    `json:"id"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Current    bool      `json:"current"`
}

// GET /api/auth/sessions
func (h *AuthHandler) Sessions(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	sessions, err := h.sessions.ListUserSessions(requestContext(c), userID)
	if err != nil {
		response.Error(c, apperrors.Wrap(err, "list sessions"))
		return
	}

	current := c.GetString(middleware.CtxSessionIDKey)
	out := make([]sessionDTO, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionDTO{
			ID:         s.ID,
			IPAddress:  s.IPAddress,
			UserAgent:  s.UserAgent,
			CreatedAt:  s.CreatedAt,
			LastUsedAt: s.LastUsedAt,
			ExpiresAt:  s.ExpiresAt,
			Current:    s.ID == current,
		})
	}
	response.Success(c, http.StatusOK, out)
}

// DELETE /api/auth/sessions/:id
func (h *AuthHandler) RevokeSession(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	sessionID, ok := pathID(c, "id", "session")
	if !ok {
		return
	}

	err := h.sessions.RevokeOwnedSession(requestContext(c), userID, sessionID)
	if errors.Is(err, iauth.ErrSessionNotFound) {
		response.Error(c, apperrors.NewNotFound("Session not found"))
		return
	}
	if err != nil {
		response.Error(c, apperrors.Wrap(err, "revoke session"))
		return
	}
	h.record(c, &userID, "", "auth.session_revoke", services.AuditResultSuccess)
	response.Ack(c)
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}

	var user models.User
	if err := h.db.WithContext(requestContext(c)).Take(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, apperrors.ErrUnauthorized)
			return
		}
		response.Error(c, apperrors.Wrap(err, "load user"))
		return
	}

	response.Success(c, http.StatusOK, mapUser(&user))
}

func (h *AuthHandler) record(c *gin.Context, userID *string, username, action, result string) {
	if h.audit == nil {
		return
	}
	_ = h.audit.Log(requestContext(c), services.AuditEntry{
		UserID:    userID,
		Username:  username,
		Action:    action,
		Resource:  "session",
		Result:    result,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
}
