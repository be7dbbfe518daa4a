package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/database"
	"github.com/charlesng35/omnikit/internal/models"
	"github.com/charlesng35/omnikit/internal/vault"
	apperrors "github.com/charlesng35/omnikit/pkg/errors"
	"github.com/charlesng35/omnikit/pkg/logger"
)

// SystemConfigView is the singleton configuration as shown on the settings page.
type SystemConfigView struct {
	models.SystemConfig
	HasWeatherAPIKey bool `json:"has_weather_api_key"`
}

// UpdateSystemConfigInput enumerates mutable settings. Nil fields are left untouched and an
// empty WeatherAPIKey removes the stored key.
type UpdateSystemConfigInput struct {
	SiteTitle      *string `json:"site_title" validate:"omitempty,max=80"`
	Locale         *string `json:"locale" validate:"omitempty,oneof=zh-CN en-US"`
	Theme          *string `json:"theme" validate:"omitempty,oneof=light dark system"`
	WeatherEnabled *bool   `json:"weather_enabled"`
	WeatherCity    *string `json:"weather_city" validate:"omitempty,max=120"`
	WeatherAPIKey  *string `json:"weather_api_key"`
}

var (
	supportedLocales = map[string]struct{}{"zh-CN": {}, "en-US": {}}
	supportedThemes  = map[string]struct{}{"light": {}, "dark": {}, "system": {}}
)

// SystemConfigService coordinates persistence for installation-wide preferences.
type SystemConfigService struct {
	db     *gorm.DB
	crypto *vault.Crypto
	audit  *AuditService
	log    *zap.Logger
}

// NewSystemConfigService constructs a service once dependencies are supplied.
func NewSystemConfigService(db *gorm.DB, crypto *vault.Crypto, audit *AuditService) (*SystemConfigService, error) {
	if db == nil {
		return nil, fmt.Errorf("system config service: db is required")
	}
	if crypto == nil {
		return nil, fmt.Errorf("system config service: vault is required")
	}
	return &SystemConfigService{db: db, crypto: crypto, audit: audit, log: logger.WithModule("settings")}, nil
}

// Get returns the current configuration, creating the default row on first use.
func (s *SystemConfigService) Get(ctx context.Context) (*SystemConfigView, error) {
	ctx = ensureContext(ctx)

	cfg, err := loadSystemConfig(s.db.WithContext(ctx))
	if err != nil {
		return nil, operationFailed(s.log, "load system config", err)
	}
	view := systemConfigView(*cfg)
	return &view, nil
}

// Update persists the supplied changes and returns the resulting state.
func (s *SystemConfigService) Update(ctx context.Context, input UpdateSystemConfigInput) (*SystemConfigView, error) {
	ctx = ensureContext(ctx)

	var (
		cfg     *models.SystemConfig
		changed []string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if cfg, err = loadSystemConfig(tx); err != nil {
			return err
		}

		if input.SiteTitle != nil {
			cfg.SiteTitle = strings.TrimSpace(*input.SiteTitle)
			changed = append(changed, "site_title")
		}
		if input.Locale != nil {
			locale := strings.TrimSpace(*input.Locale)
			if _, ok := supportedLocales[locale]; !ok {
				return apperrors.NewBadRequest("locale must be zh-CN or en-US")
			}
			cfg.Locale = locale
			changed = append(changed, "locale")
		}
		if input.Theme != nil {
			theme := strings.ToLower(strings.TrimSpace(*input.Theme))
			if _, ok := supportedThemes[theme]; !ok {
				return apperrors.NewBadRequest("theme must be light, dark or system")
			}
			cfg.Theme = theme
			changed = append(changed, "theme")
		}
		if input.WeatherCity != nil {
			cfg.WeatherCity = strings.TrimSpace(*input.WeatherCity)
			changed = append(changed, "weather_city")
		}
		if input.WeatherAPIKey != nil {
			if cfg.WeatherAPIKey, err = sealOptional(s.crypto, *input.WeatherAPIKey); err != nil {
				return fmt.Errorf("seal weather key: %w", err)
			}
			changed = append(changed, "weather_api_key")
		}
		if input.WeatherEnabled != nil {
			cfg.WeatherEnabled = *input.WeatherEnabled
			changed = append(changed, "weather_enabled")
		}

		if cfg.WeatherEnabled && (cfg.WeatherCity == "" || cfg.WeatherAPIKey == "") {
			return apperrors.NewBadRequest("weather widget needs a city and an API key")
		}
		return tx.Save(cfg).Error
	})

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "settings.update",
		Resource: "system_config",
		Result:   auditResult(err),
		Metadata: map[string]any{"fields": changed},
	})
	if err != nil {
		return nil, operationFailed(s.log, "update system config", err)
	}
	view := systemConfigView(*cfg)
	return &view, nil
}

func loadSystemConfig(db *gorm.DB) (*models.SystemConfig, error) {
	var cfg models.SystemConfig
	err := db.Take(&cfg, "id = ?", models.SystemConfigID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg = database.DefaultSystemConfig()
		if err := db.Where(models.SystemConfig{ID: models.SystemConfigID}).Attrs(cfg).FirstOrCreate(&cfg).Error; err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func systemConfigView(cfg models.SystemConfig) SystemConfigView {
	return SystemConfigView{SystemConfig: cfg, HasWeatherAPIKey: cfg.WeatherAPIKey != ""}
}
