package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/omnikit/internal/handlers/testutil"
	"github.com/charlesng35/omnikit/internal/models"
)

func TestAuthHandler_LoginRefreshLogout(t *testing.T) {
	env := testutil.NewEnv(t)
	root := env.CreateRootUser("AuthPassw0rd!")

	login := env.Login(root.Username, "AuthPassw0rd!")
	token := login.AccessToken()
	require.True(t, login.User.IsRoot)

	me := env.Request(http.MethodGet, "/api/auth/me", nil, token)
	meData := testutil.DecodeData[testutil.UserPayload](t, me, http.StatusOK)
	require.Equal(t, login.User.ID, meData.ID)
	require.Equal(t, login.User.Email, meData.Email)

	refreshPayload := map[string]string{"refresh_token": login.Tokens.RefreshToken}
	refresh := env.Request(http.MethodPost, "/api/auth/refresh", refreshPayload, "")
	refreshed := testutil.DecodeData[testutil.TokenPair](t, refresh, http.StatusOK)
	require.NotEmpty(t, refreshed.AccessToken)
	require.NotEqual(t, login.Tokens.RefreshToken, refreshed.RefreshToken)

	// the rotated refresh token cannot be replayed
	replay := env.Request(http.MethodPost, "/api/auth/refresh", refreshPayload, "")
	testutil.RequireError(t, replay, http.StatusUnauthorized, "UNAUTHORIZED")

	logout := env.Request(http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, logout.Code, logout.Body.String())

	// the access token dies with its session
	revoked := env.Request(http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusUnauthorized, revoked.Code)

	unauth := env.Request(http.MethodGet, "/api/auth/me", nil, "")
	require.Equal(t, http.StatusUnauthorized, unauth.Code)

	var actions []string
	require.NoError(t, env.DB.Model(&models.AuditLog{}).Order("created_at ASC").Pluck("action", &actions).Error)
	require.Contains(t, actions, "auth.login")
	require.Contains(t, actions, "auth.logout")
}

func TestAuthHandler_LoginValidation(t *testing.T) {
	env := testutil.NewEnv(t)

	payload := map[string]any{
		"identifier": " ",
		"password":   "",
	}

	resp := env.Request(http.MethodPost, "/api/auth/login", payload, "")
	testutil.RequireError(t, resp, http.StatusBadRequest, "BAD_REQUEST")
}

func TestAuthHandler_WrongPasswordAndLockout(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateUser("RightPassw0rd!", false)

	for i := 0; i < 5; i++ {
		resp := env.Request(http.MethodPost, "/api/auth/login", map[string]string{
			"identifier": user.Username,
			"password":   "wrong",
		}, "")
		require.Equal(t, http.StatusUnauthorized, resp.Code, resp.Body.String())
	}

	locked := env.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"identifier": user.Username,
		"password":   "RightPassw0rd!",
	}, "")
	testutil.RequireError(t, locked, http.StatusUnauthorized, "AUTH_LOCKED")
}

func TestAuthHandler_DisabledUser(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateUser("Passw0rd!", false)
	require.NoError(t, env.DB.Model(user).Update("is_active", false).Error)

	resp := env.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"identifier": user.Username,
		"password":   "Passw0rd!",
	}, "")
	testutil.RequireError(t, resp, http.StatusUnauthorized, "INVALID_CREDENTIALS")
}

func TestAuthRoutes_RateLimited(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithRateLimit(2, time.Minute))

	body := map[string]string{"identifier": "nobody", "password": "x"}
	for i := 0; i < 2; i++ {
		resp := env.Request(http.MethodPost, "/api/auth/login", body, "")
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	}

	resp := env.Request(http.MethodPost, "/api/auth/login", body, "")
	testutil.RequireError(t, resp, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED")
	require.NotEmpty(t, resp.Header().Get("Retry-After"))
}

func TestAuthHandler_SessionManagement(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateUser("SessionPassw0rd!", false)

	laptop := env.Login(user.Username, "SessionPassw0rd!")
	phone := env.Login(user.Username, "SessionPassw0rd!")

	type session struct {
		ID      string `json:"id"`
		Current bool   `json:"current"`
	}
	listed := testutil.DecodeData[[]session](t, env.Request(http.MethodGet, "/api/auth/sessions", nil, laptop.AccessToken()), http.StatusOK)
	require.Len(t, listed, 2)

	var phoneID string
	for _, s := range listed {
		if !s.Current {
			phoneID = s.ID
		}
	}
	require.NotEmpty(t, phoneID)

	other := env.CreateUser("OtherPassw0rd!", false)
	otherLogin := env.Login(other.Username, "OtherPassw0rd!")
	foreign := env.Request(http.MethodDelete, "/api/auth/sessions/"+phoneID, nil, otherLogin.AccessToken())
	testutil.RequireError(t, foreign, http.StatusNotFound, "NOT_FOUND")

	revoke := env.Request(http.MethodDelete, "/api/auth/sessions/"+phoneID, nil, laptop.AccessToken())
	require.Equal(t, http.StatusOK, revoke.Code, revoke.Body.String())

	require.Equal(t, http.StatusUnauthorized, env.Request(http.MethodGet, "/api/auth/me", nil, phone.AccessToken()).Code)
	require.Equal(t, http.StatusOK, env.Request(http.MethodGet, "/api/auth/me", nil, laptop.AccessToken()).Code)
}
