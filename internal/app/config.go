package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the OmniKit backend.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Vault        VaultConfig        `mapstructure:"vault"`
	Menu         MenuConfig         `mapstructure:"menu"`
	Integrations IntegrationsConfig `mapstructure:"integrations"`
	Maintenance  MaintenanceConfig  `mapstructure:"maintenance"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int             `mapstructure:"port"`
	LogLevel  string          `mapstructure:"log_level"`
	LogFormat string          `mapstructure:"log_format"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	// CORSOrigins lists allowed browser origins. Empty allows any origin.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// RateLimitConfig throttles the public authentication endpoints.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string            `mapstructure:"driver"`
	Path     string            `mapstructure:"path"`
	DSN      string            `mapstructure:"dsn"`
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Name     string            `mapstructure:"name"`
	User     string            `mapstructure:"user"`
	Password string            `mapstructure:"password"`
	Options  map[string]string `mapstructure:"options"`
}

// VaultConfig holds the key protecting stored integration credentials.
type VaultConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"`
}

// MenuConfig tunes the menu tree cache and order assignment retries.
type MenuConfig struct {
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	CacheCleanup      time.Duration `mapstructure:"cache_cleanup"`
	OrderRetries      int           `mapstructure:"order_retries"`
	OrderRetryBackoff time.Duration `mapstructure:"order_retry_backoff"`
}

// IntegrationsConfig configures outbound calls to AI providers and GitHub.
type IntegrationsConfig struct {
	HTTPTimeout  time.Duration `mapstructure:"http_timeout"`
	GitHubAPIURL string        `mapstructure:"github_api_url"`
	CommitAuthor string        `mapstructure:"commit_author"`
	CommitEmail  string        `mapstructure:"commit_email"`
	ChatRate     int           `mapstructure:"chat_rate_per_minute"`
}

// MaintenanceConfig schedules background cleanup jobs. Schedules use cron syntax.
type MaintenanceConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	SessionSchedule string        `mapstructure:"session_schedule"`
	AuditSchedule   string        `mapstructure:"audit_schedule"`
	CacheSchedule   string        `mapstructure:"cache_schedule"`
	AuditRetention  time.Duration `mapstructure:"audit_retention"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints. MaintenanceMaxAge is how old the last job run may be
// before readiness reports degraded.
type HealthConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaintenanceMaxAge time.Duration `mapstructure:"maintenance_max_age"`
}

// AuthConfig captures all authentication-related settings.
type AuthConfig struct {
	JWT       JWTSettings       `mapstructure:"jwt"`
	Session   SessionSettings   `mapstructure:"session"`
	Local     LocalAuthSettings `mapstructure:"local"`
	Bootstrap BootstrapSettings `mapstructure:"bootstrap"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// SessionSettings configures refresh tokens and session lifetimes.
type SessionSettings struct {
	RefreshTTL    time.Duration `mapstructure:"refresh_token_ttl"`
	RefreshLength int           `mapstructure:"refresh_token_length"`
}

// LocalAuthSettings defines controls for the local auth provider.
type LocalAuthSettings struct {
	LockoutThreshold int           `mapstructure:"lockout_threshold"`
	LockoutDuration  time.Duration `mapstructure:"lockout_duration"`
}

// BootstrapSettings describes the operator account created on an empty database.
type BootstrapSettings struct {
	Username string `mapstructure:"username"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("OMNIKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.requests", 20)
	v.SetDefault("server.rate_limit.window", "1m")
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/omnikit.sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 0)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")

	v.SetDefault("vault.encryption_key", "")

	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.issuer", "omnikit")
	v.SetDefault("auth.jwt.access_token_ttl", "15m")
	v.SetDefault("auth.session.refresh_token_ttl", "720h") // 30 days
	v.SetDefault("auth.session.refresh_token_length", 48)
	v.SetDefault("auth.local.lockout_threshold", 5)
	v.SetDefault("auth.local.lockout_duration", "15m")
	v.SetDefault("auth.bootstrap.username", "admin")
	v.SetDefault("auth.bootstrap.email", "admin@localhost")
	v.SetDefault("auth.bootstrap.password", "")

	v.SetDefault("menu.cache_ttl", "10m")
	v.SetDefault("menu.cache_cleanup", "30m")
	v.SetDefault("menu.order_retries", 5)
	v.SetDefault("menu.order_retry_backoff", "20ms")

	v.SetDefault("integrations.http_timeout", "60s")
	v.SetDefault("integrations.github_api_url", "https://api.github.com")
	v.SetDefault("integrations.commit_author", "OmniKit")
	v.SetDefault("integrations.commit_email", "omnikit@users.noreply.github.com")
	v.SetDefault("integrations.chat_rate_per_minute", 30)

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.session_schedule", "@every 1h")
	v.SetDefault("maintenance.audit_schedule", "@daily")
	v.SetDefault("maintenance.cache_schedule", "@every 15m")
	v.SetDefault("maintenance.audit_retention", "2160h") // 90 days

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
	v.SetDefault("monitoring.health_check.timeout", "3s")
	v.SetDefault("monitoring.health_check.maintenance_max_age", "26h")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
