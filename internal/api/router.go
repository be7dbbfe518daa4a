package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/app"
	iauth "github.com/charlesng35/omnikit/internal/auth"
	"github.com/charlesng35/omnikit/internal/auth/providers"
	"github.com/charlesng35/omnikit/internal/handlers"
	"github.com/charlesng35/omnikit/internal/middleware"
	"github.com/charlesng35/omnikit/internal/monitoring"
	"github.com/charlesng35/omnikit/internal/monitoring/checks"
	"github.com/charlesng35/omnikit/internal/services"
	"github.com/charlesng35/omnikit/internal/vault"
)

// Dependencies carries the long-lived infrastructure the router builds its services from.
type Dependencies struct {
	Config   *app.Config
	DB       *gorm.DB
	JWT      *iauth.JWTService
	Sessions *iauth.SessionService
	Vault    *vault.Crypto
	// Audit is optional; a service is created when nil.
	Audit *services.AuditService
	// RateStore backs the auth rate limiter. Nil falls back to an in-process store.
	RateStore middleware.RateStore
	// HTTPClient is used for AI provider and GitHub calls. Nil uses a client with the configured timeout.
	HTTPClient *http.Client
	// Jobs reports maintenance history to the readiness probe. Nil when maintenance is disabled.
	Jobs monitoring.JobReporter
}

func (d Dependencies) validate() error {
	switch {
	case d.Config == nil:
		return errors.New("config must be provided")
	case d.DB == nil:
		return errors.New("database handle must be provided")
	case d.JWT == nil:
		return errors.New("jwt service must be provided")
	case d.Sessions == nil:
		return errors.New("session service must be provided")
	case d.Vault == nil:
		return errors.New("vault crypto must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config

	h, err := buildHandlers(deps)
	if err != nil {
		return nil, err
	}

	metricsEndpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
	if metricsEndpoint == "" {
		metricsEndpoint = "/metrics"
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics(metricsEndpoint))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins...))

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", h.monitoring.Readiness)
		r.GET("/health/live", h.monitoring.Liveness)
		r.GET("/api/health", h.monitoring.Readiness)
	}
	if cfg.Monitoring.Prometheus.Enabled {
		r.GET(metricsEndpoint, gin.WrapH(promhttp.Handler()))
	}

	auth := r.Group("/api/auth")
	if rl := cfg.Server.RateLimit; rl.Enabled {
		store := deps.RateStore
		if store == nil {
			store = middleware.NewMemoryRateStore()
		}
		auth.Use(middleware.RateLimit(store, rl.Requests, rl.Window))
	}
	{
		auth.POST("/login", h.auth.Login)
		auth.POST("/refresh", h.auth.Refresh)
	}

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.JWT, deps.Sessions))
	requireRoot := middleware.RequireRoot(deps.DB)

	api.GET("/auth/me", h.auth.Me)
	api.POST("/auth/logout", h.auth.Logout)
	api.GET("/auth/sessions", h.auth.Sessions)
	api.DELETE("/auth/sessions/:id", h.auth.RevokeSession)

	registerMenuRoutes(api, h.menu, h.tools, requireRoot)
	registerIntegrationRoutes(api, h.aiProviders, h.imageAccounts, h.githubTargets)
	registerNoteRoutes(api, h.notes)
	registerUserRoutes(api, h.users, requireRoot)
	registerAdminRoutes(api, h.settings, h.audit, h.monitoring, requireRoot)
	registerToolkitRoutes(api, h.toolkit)

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

type handlerSet struct {
	auth          *handlers.AuthHandler
	menu          *handlers.MenuHandler
	tools         *handlers.ToolHandler
	aiProviders   *handlers.AiProviderHandler
	imageAccounts *handlers.ImageAccountHandler
	githubTargets *handlers.GitHubTargetHandler
	notes         *handlers.NoteHandler
	settings      *handlers.SettingsHandler
	audit         *handlers.AuditHandler
	toolkit       *handlers.ToolkitHandler
	monitoring    *handlers.MonitoringHandler
	users         *handlers.UserHandler
}

func buildHandlers(deps Dependencies) (*handlerSet, error) {
	cfg := deps.Config
	db := deps.DB

	auditSvc := deps.Audit
	if auditSvc == nil {
		var err error
		if auditSvc, err = services.NewAuditService(db); err != nil {
			return nil, err
		}
	}

	local, err := providers.NewLocalProvider(db, cfg.Auth.LocalProviderConfig())
	if err != nil {
		return nil, fmt.Errorf("local provider: %w", err)
	}

	menuSvc, err := services.NewMenuService(db, auditSvc, cfg.Menu.MenuServiceConfig())
	if err != nil {
		return nil, err
	}
	toolSvc, err := services.NewToolService(db, auditSvc, menuSvc)
	if err != nil {
		return nil, err
	}

	integrations := cfg.Integrations.IntegrationConfig()
	aiSvc, err := services.NewAiProviderService(db, deps.Vault, auditSvc, deps.HTTPClient, integrations)
	if err != nil {
		return nil, err
	}
	imageSvc, err := services.NewImageAccountService(db, deps.Vault, auditSvc)
	if err != nil {
		return nil, err
	}
	githubSvc, err := services.NewGitHubTargetService(db, deps.Vault, auditSvc, deps.HTTPClient, integrations)
	if err != nil {
		return nil, err
	}
	noteSvc, err := services.NewNoteService(db, auditSvc)
	if err != nil {
		return nil, err
	}
	configSvc, err := services.NewSystemConfigService(db, deps.Vault, auditSvc)
	if err != nil {
		return nil, err
	}
	userSvc, err := services.NewUserService(db, auditSvc, deps.Sessions, menuSvc)
	if err != nil {
		return nil, err
	}

	set := &handlerSet{toolkit: handlers.NewToolkitHandler()}
	if set.auth, err = handlers.NewAuthHandler(db, local, deps.Sessions, auditSvc); err != nil {
		return nil, err
	}
	if set.menu, err = handlers.NewMenuHandler(menuSvc); err != nil {
		return nil, err
	}
	if set.tools, err = handlers.NewToolHandler(toolSvc); err != nil {
		return nil, err
	}
	if set.aiProviders, err = handlers.NewAiProviderHandler(aiSvc); err != nil {
		return nil, err
	}
	if set.imageAccounts, err = handlers.NewImageAccountHandler(imageSvc); err != nil {
		return nil, err
	}
	if set.githubTargets, err = handlers.NewGitHubTargetHandler(githubSvc); err != nil {
		return nil, err
	}
	if set.notes, err = handlers.NewNoteHandler(noteSvc); err != nil {
		return nil, err
	}
	if set.settings, err = handlers.NewSettingsHandler(configSvc); err != nil {
		return nil, err
	}
	if set.audit, err = handlers.NewAuditHandler(auditSvc); err != nil {
		return nil, err
	}
	if set.users, err = handlers.NewUserHandler(userSvc); err != nil {
		return nil, err
	}
	if set.monitoring, err = handlers.NewMonitoringHandler(buildHealthManager(deps), deps.Jobs); err != nil {
		return nil, err
	}
	return set, nil
}

func buildHealthManager(deps Dependencies) *monitoring.HealthManager {
	healthCfg := deps.Config.Monitoring.Health
	manager := monitoring.NewHealthManager(healthCfg.Timeout)
	manager.Register(
		checks.Database(deps.DB),
		checks.Vault(deps.Vault),
	)
	if deps.Jobs != nil {
		manager.Register(checks.Maintenance(deps.Jobs, healthCfg.MaintenanceMaxAge))
	}
	return manager
}
