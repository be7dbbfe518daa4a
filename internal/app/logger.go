package app

import (
	"strings"

	"github.com/charlesng35/omnikit/pkg/logger"
)

// ConfigureLogging initialises the global logger from the server settings, defaulting to
// info level JSON output. Every entry is tagged with the service name.
func ConfigureLogging(cfg ServerConfig) error {
	level := strings.TrimSpace(cfg.LogLevel)
	if level == "" {
		level = "info"
	}
	return logger.InitWithOptions(logger.Options{
		Level:  level,
		Format: cfg.LogFormat,
		Fields: map[string]string{"service": "omnikit"},
	})
}
