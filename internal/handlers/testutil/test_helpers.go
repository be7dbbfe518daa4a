package testutil

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/api"
	"github.com/charlesng35/omnikit/internal/app"
	iauth "github.com/charlesng35/omnikit/internal/auth"
	sharedtestutil "github.com/charlesng35/omnikit/internal/database/testutil"
	"github.com/charlesng35/omnikit/internal/models"
	"github.com/charlesng35/omnikit/internal/monitoring"
	"github.com/charlesng35/omnikit/internal/vault"
	"github.com/charlesng35/omnikit/pkg/crypto"
	"github.com/charlesng35/omnikit/pkg/response"
)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	JWT      *iauth.JWTService
	Sessions *iauth.SessionService
	Config   *app.Config
}

// Option adjusts the configuration or dependencies before the router is built.
type Option func(*app.Config, *api.Dependencies)

// WithGitHubAPI points GitHub calls at url, typically an httptest server.
func WithGitHubAPI(url string) Option {
	return func(cfg *app.Config, _ *api.Dependencies) {
		cfg.Integrations.GitHubAPIURL = url
	}
}

// WithRateLimit enables the auth rate limiter.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(cfg *app.Config, _ *api.Dependencies) {
		cfg.Server.RateLimit = app.RateLimitConfig{Enabled: true, Requests: requests, Window: window}
	}
}

// NewEnv provisions a fresh handler test environment with migrations and seed data applied.
func NewEnv(t *testing.T, opts ...Option) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData())

	jwtSecret := "test-suite-super-secret-key-32-bytes!!"
	cfg := &app.Config{
		Vault: app.VaultConfig{
			EncryptionKey: "0123456789abcdef0123456789abcdef",
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: jwtSecret,
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
			Session: app.SessionSettings{
				RefreshTTL:    24 * time.Hour,
				RefreshLength: 48,
			},
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	sessionSvc, err := iauth.NewSessionService(db, jwtSvc, cfg.Auth.SessionServiceConfig())
	require.NoError(t, err)

	crypto, err := vault.NewCrypto([]byte(cfg.Vault.EncryptionKey))
	require.NoError(t, err)

	deps := api.Dependencies{
		Config:   cfg,
		DB:       db,
		JWT:      jwtSvc,
		Sessions: sessionSvc,
		Vault:    crypto,
	}
	for _, opt := range opts {
		opt(cfg, &deps)
	}

	router, err := api.NewRouter(deps)
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		JWT:      jwtSvc,
		Sessions: sessionSvc,
		Config:   cfg,
	}
}

// CreateUser inserts an active user with a random username and returns the record.
func (e *Env) CreateUser(password string, root bool) *models.User {
	e.T.Helper()

	prefix := "user-"
	if root {
		prefix = "root-"
	}
	username := prefix + uuid.NewString()
	hashed, err := crypto.HashPassword(password)
	require.NoError(e.T, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hashed,
		IsActive: true,
		IsRoot:   root,
	}
	require.NoError(e.T, e.DB.Create(user).Error)
	return user
}

// CreateRootUser inserts a new active root user.
func (e *Env) CreateRootUser(password string) *models.User {
	e.T.Helper()
	return e.CreateUser(password, true)
}

// TokenPair mirrors the handler token payload.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// UserPayload captures the user fields returned from auth endpoints.
type UserPayload struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	IsRoot      bool   `json:"is_root"`
	IsActive    bool   `json:"is_active"`
}

// LoginResult bundles the JSON response from POST /api/auth/login.
type LoginResult struct {
	Tokens TokenPair   `json:"tokens"`
	User   UserPayload `json:"user"`
}

// AccessToken is a shorthand for the issued access token.
func (r LoginResult) AccessToken() string {
	return r.Tokens.AccessToken
}

// Login authenticates using the local provider and returns the issued token pair.
func (e *Env) Login(username, password string) LoginResult {
	e.T.Helper()

	payload := map[string]string{
		"identifier": username,
		"password":   password,
	}

	w := e.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.Tokens.AccessToken)
	require.NotEmpty(e.T, result.Tokens.RefreshToken)
	require.Equal(e.T, username, result.User.Username)

	return result
}

// LoginAs creates a user and logs it in, returning the access token.
func (e *Env) LoginAs(root bool) (*models.User, string) {
	e.T.Helper()
	const password = "Secret123!"
	user := e.CreateUser(password, root)
	return user, e.Login(user.Username, password).AccessToken()
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// DecodeData asserts a successful envelope with the expected status and decodes its data.
func DecodeData[T any](t *testing.T, w *httptest.ResponseRecorder, status int) T {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := DecodeResponse(t, w)
	require.True(t, resp.Success, w.Body.String())
	var out T
	DecodeInto(t, resp.Data, &out)
	return out
}

// RequireError asserts an error envelope with the given status and code.
func RequireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := DecodeResponse(t, w)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	require.Equal(t, code, resp.Error.Code, w.Body.String())
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	buf := bytes.NewBuffer(nil)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.serve(req, token)
}

// Upload sends a multipart form with a single file field plus extra text fields.
func (e *Env) Upload(path, filename string, content []byte, fields map[string]string, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(e.T, err)
	_, err = part.Write(content)
	require.NoError(e.T, err)
	for key, value := range fields {
		require.NoError(e.T, writer.WriteField(key, value))
	}
	require.NoError(e.T, writer.Close())

	req, err := http.NewRequest(http.MethodPost, path, &buf)
	require.NoError(e.T, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return e.serve(req, token)
}

func (e *Env) serve(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// WithHTTPClient overrides the client used for outbound integration calls.
func WithHTTPClient(client *http.Client) Option {
	return func(_ *app.Config, deps *api.Dependencies) {
		deps.HTTPClient = client
	}
}

// WithJobs exposes maintenance job history to the readiness probe.
func WithJobs(jobs monitoring.JobReporter) Option {
	return func(_ *app.Config, deps *api.Dependencies) {
		deps.Jobs = jobs
	}
}
