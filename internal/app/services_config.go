package app

import (
	"strings"

	"github.com/charlesng35/omnikit/internal/services"
)

// MenuServiceConfig converts MenuConfig into MenuService parameters.
func (c MenuConfig) MenuServiceConfig() services.MenuConfig {
	return services.MenuConfig{
		CacheTTL:      c.CacheTTL,
		CacheCleanup:  c.CacheCleanup,
		OrderRetries:  c.OrderRetries,
		RetryInterval: c.OrderRetryBackoff,
	}
}

// IntegrationConfig converts IntegrationsConfig into the parameters shared by the AI and
// GitHub services.
func (c IntegrationsConfig) IntegrationConfig() services.IntegrationConfig {
	return services.IntegrationConfig{
		HTTPTimeout:  c.HTTPTimeout,
		GitHubAPIURL: strings.TrimSpace(c.GitHubAPIURL),
		CommitAuthor: strings.TrimSpace(c.CommitAuthor),
		CommitEmail:  strings.TrimSpace(c.CommitEmail),
		ChatRate:     c.ChatRate,
	}
}
