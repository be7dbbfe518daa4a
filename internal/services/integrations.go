package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/vault"
	"github.com/charlesng35/omnikit/pkg/metrics"
)

const (
	defaultGitHubAPIURL   = "https://api.github.com"
	defaultHTTPTimeout    = 30 * time.Second
	maxUpstreamErrorBytes = 4 << 10
)

// IntegrationConfig tunes outbound calls to AI providers and GitHub.
type IntegrationConfig struct {
	HTTPTimeout  time.Duration
	GitHubAPIURL string
	CommitAuthor string
	CommitEmail  string
	// ChatRate is the number of chat completions an owner may start per minute. Zero disables throttling.
	ChatRate int
}

func (c IntegrationConfig) withDefaults() IntegrationConfig {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = defaultHTTPTimeout
	}
	c.GitHubAPIURL = strings.TrimRight(strings.TrimSpace(c.GitHubAPIURL), "/")
	if c.GitHubAPIURL == "" {
		c.GitHubAPIURL = defaultGitHubAPIURL
	}
	return c
}

// upstreamStatusError carries a non-2xx reply from a third-party API.
type upstreamStatusError struct {
	Integration string
	StatusCode  int
	Body        string
}

func (e *upstreamStatusError) Error() string {
	return fmt.Sprintf("%s: upstream returned status %d: %s", e.Integration, e.StatusCode, e.Body)
}

// callJSON sends payload as JSON and decodes a 2xx reply into out. Latency is recorded per
// integration and status.
func callJSON(ctx context.Context, client *http.Client, integration, method, url string, headers map[string]string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", integration, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", integration, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	started := time.Now()
	res, err := client.Do(req)
	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(integration, "error").Observe(time.Since(started).Seconds())
		return fmt.Errorf("%s: request failed: %w", integration, err)
	}
	defer res.Body.Close()
	metrics.UpstreamRequests.WithLabelValues(integration, strconv.Itoa(res.StatusCode)).Observe(time.Since(started).Seconds())

	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, maxUpstreamErrorBytes))
		return &upstreamStatusError{Integration: integration, StatusCode: res.StatusCode, Body: string(snippet)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", integration, err)
	}
	return nil
}

// sealOptional encrypts value unless it is blank, in which case it stores nothing.
func sealOptional(crypto *vault.Crypto, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if crypto == nil {
		return "", fmt.Errorf("vault is not configured")
	}
	return crypto.SealString(value)
}

// clearOwnerDefaults unsets is_default on every row of model owned by ownerID except keepID.
func clearOwnerDefaults(tx *gorm.DB, model any, ownerID, keepID string) error {
	return tx.Model(model).
		Where("user_id = ? AND id <> ? AND is_default = ?", ownerID, keepID, true).
		Update("is_default", false).Error
}

// ownerHasRows reports whether ownerID already owns a row of model.
func ownerHasRows(tx *gorm.DB, model any, ownerID string) (bool, error) {
	var count int64
	if err := tx.Model(model).Where("user_id = ?", ownerID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
