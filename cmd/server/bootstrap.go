package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/api"
	"github.com/charlesng35/omnikit/internal/app"
	"github.com/charlesng35/omnikit/internal/app/maintenance"
	iauth "github.com/charlesng35/omnikit/internal/auth"
	"github.com/charlesng35/omnikit/internal/auth/providers"
	"github.com/charlesng35/omnikit/internal/cache"
	"github.com/charlesng35/omnikit/internal/database"
	"github.com/charlesng35/omnikit/internal/middleware"
	"github.com/charlesng35/omnikit/internal/models"
	"github.com/charlesng35/omnikit/internal/services"
	"github.com/charlesng35/omnikit/internal/vault"
	"github.com/charlesng35/omnikit/pkg/crypto"
)

const (
	generatedRootPasswordBytes = 18
	defaultRootUsername        = "admin"
	defaultRootEmail           = "admin@localhost"
)

// runtimeStack owns everything that lives as long as the server process.
type runtimeStack struct {
	DB      *gorm.DB
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime opens storage, wires services and background jobs, and builds the router.
// On error everything opened so far is released.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (stack *runtimeStack, err error) {
	stack = &runtimeStack{}
	defer func() {
		if err != nil {
			stack.Shutdown(context.Background(), log)
			stack = nil
		}
	}()

	if os.Getenv("GIN_DEBUG") != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	if stack.DB, err = openDatabase(cfg, log); err != nil {
		return stack, err
	}
	sealer, err := openVault(ctx, stack.DB, cfg.Vault)
	if err != nil {
		return stack, err
	}

	store := cache.NewDatabaseStore(stack.DB)
	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return stack, fmt.Errorf("initialise jwt service: %w", err)
	}
	sessionCfg := cfg.Auth.SessionServiceConfig()
	sessionCfg.Cache = iauth.NewDatabaseSessionCache(store)
	sessions, err := iauth.NewSessionService(stack.DB, jwtSvc, sessionCfg)
	if err != nil {
		return stack, fmt.Errorf("initialise session service: %w", err)
	}
	audit, err := services.NewAuditService(stack.DB)
	if err != nil {
		return stack, fmt.Errorf("initialise audit service: %w", err)
	}

	if err = ensureRootUser(ctx, stack.DB, cfg, log); err != nil {
		return stack, err
	}
	if err = stack.startMaintenance(cfg.Maintenance, sessions, audit, store); err != nil {
		return stack, err
	}

	deps := api.Dependencies{
		Config:    cfg,
		DB:        stack.DB,
		JWT:       jwtSvc,
		Sessions:  sessions,
		Vault:     sealer,
		Audit:     audit,
		RateStore: middleware.NewStoreRateStore(store),
	}
	if stack.Cleaner != nil {
		deps.Jobs = stack.Cleaner
	}
	if stack.Router, err = api.NewRouter(deps); err != nil {
		return stack, fmt.Errorf("build api router: %w", err)
	}
	return stack, nil
}

// openVault checks the configured key against the stored fingerprint before using it.
func openVault(ctx context.Context, db *gorm.DB, cfg app.VaultConfig) (*vault.Crypto, error) {
	if err := database.EnsureVaultEncryptionKey(ctx, db, cfg.EncryptionKey); err != nil {
		return nil, err
	}
	key, err := cfg.MasterKey()
	if err != nil {
		return nil, err
	}
	sealer, err := vault.NewCrypto(key)
	if err != nil {
		return nil, fmt.Errorf("initialise vault crypto: %w", err)
	}
	return sealer, nil
}

func (s *runtimeStack) startMaintenance(cfg app.MaintenanceConfig, sessions *iauth.SessionService, audit *services.AuditService, store *cache.DatabaseStore) error {
	if !cfg.Enabled {
		return nil
	}
	s.Cleaner = maintenance.NewCleaner(sessions, audit,
		maintenance.WithCachePurger(store),
		maintenance.WithAuditRetention(cfg.AuditRetention),
		maintenance.WithSessionSchedule(cfg.SessionSchedule),
		maintenance.WithAuditSchedule(cfg.AuditSchedule),
		maintenance.WithCacheSchedule(cfg.CacheSchedule),
	)
	if err := s.Cleaner.Start(); err != nil {
		return fmt.Errorf("start maintenance jobs: %w", err)
	}
	return nil
}

// Shutdown stops the cron scheduler, runs one final cleanup pass and closes the database.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}
	if s.Cleaner != nil {
		if stopped := s.Cleaner.Stop(); stopped != nil {
			<-stopped.Done()
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}
	if s.DB == nil {
		return
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		log.Warn("database handle unavailable on shutdown", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}

// ensureRootUser creates the operator account when the users table is empty. Without a
// configured password a random one is generated and logged once.
func ensureRootUser(ctx context.Context, db *gorm.DB, cfg *app.Config, log *zap.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	bootstrap := cfg.Auth.Bootstrap
	password := bootstrap.Password
	generated := strings.TrimSpace(password) == ""
	if generated {
		token, err := crypto.GenerateToken(generatedRootPasswordBytes)
		if err != nil {
			return fmt.Errorf("generate root password: %w", err)
		}
		password = token
	}

	local, err := providers.NewLocalProvider(db, cfg.Auth.LocalProviderConfig())
	if err != nil {
		return fmt.Errorf("local provider: %w", err)
	}
	user, err := local.Register(ctx, providers.RegisterInput{
		Username:    orDefault(bootstrap.Username, defaultRootUsername),
		Email:       orDefault(bootstrap.Email, defaultRootEmail),
		Password:    password,
		DisplayName: "Administrator",
		IsRoot:      true,
	})
	if err != nil {
		return fmt.Errorf("create root user: %w", err)
	}

	if !generated {
		log.Info("created root user", zap.String("username", user.Username))
		return nil
	}
	log.Warn("created root user with generated password; change it after first login",
		zap.String("username", user.Username),
		zap.String("password", password),
	)
	return nil
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

// ensureSecretsPresent rejects configurations the services cannot start with.
func ensureSecretsPresent(cfg *app.Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Auth.JWT.Secret = strings.TrimSpace(cfg.Auth.JWT.Secret)
	if cfg.Auth.JWT.Secret == "" {
		return errors.New("auth.jwt.secret must be configured")
	}

	cfg.Vault.EncryptionKey = strings.TrimSpace(cfg.Vault.EncryptionKey)
	_, err := cfg.Vault.MasterKey()
	return err
}

func openDatabase(cfg *app.Config, log *zap.Logger) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.AutoMigrateAndSeed(db); err != nil {
		if sqlDB, derr := db.DB(); derr == nil {
			_ = sqlDB.Close()
		}
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}
	log.Info("database connected", zap.String("driver", dbCfg.Driver))
	return db, nil
}
