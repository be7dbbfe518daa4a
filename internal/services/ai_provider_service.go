package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/juju/ratelimit"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/models"
	"github.com/charlesng35/omnikit/internal/vault"
	apperrors "github.com/charlesng35/omnikit/pkg/errors"
	"github.com/charlesng35/omnikit/pkg/logger"
)

const aiIntegration = "ai"

// AiProviderView is an AiProvider as returned to clients. The key itself never leaves the server.
type AiProviderView struct {
	models.AiProvider
	HasAPIKey bool `json:"has_api_key"`
}

// CreateAiProviderInput describes a new provider.
type CreateAiProviderInput struct {
	Name      string
	BaseURL   string
	APIKey    string
	Model     string
	Models    []string
	IsDefault bool
	IsActive  *bool
}

// UpdateAiProviderInput patches a provider. Nil fields are left untouched. An empty APIKey
// removes the stored key.
type UpdateAiProviderInput struct {
	Name      *string
	BaseURL   *string
	APIKey    *string
	Model     *string
	Models    *[]string
	IsDefault *bool
	IsActive  *bool
}

// ChatMessage is one turn of an OpenAI-compatible conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatInput selects a provider and carries the conversation to complete.
type ChatInput struct {
	ProviderID  string
	Model       string
	Messages    []ChatMessage
	Temperature *float64
	MaxTokens   int
}

// ChatUsage mirrors the token accounting returned by the provider.
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResult is the first completion choice.
type ChatResult struct {
	ProviderID   string    `json:"provider_id"`
	Model        string    `json:"model"`
	Content      string    `json:"content"`
	FinishReason string    `json:"finish_reason,omitempty"`
	Usage        ChatUsage `json:"usage"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage ChatUsage `json:"usage"`
}

// AiProviderService manages AI provider credentials and proxies chat completions.
type AiProviderService struct {
	db     *gorm.DB
	crypto *vault.Crypto
	audit  *AuditService
	client *http.Client
	cfg    IntegrationConfig
	log    *zap.Logger

	bucketsMu sync.Mutex
	buckets   map[string]*ratelimit.Bucket
}

// NewAiProviderService constructs the service. client may be nil.
func NewAiProviderService(db *gorm.DB, crypto *vault.Crypto, audit *AuditService, client *http.Client, cfg IntegrationConfig) (*AiProviderService, error) {
	if db == nil {
		return nil, errors.New("ai provider service: db is required")
	}
	if crypto == nil {
		return nil, errors.New("ai provider service: vault is required")
	}
	cfg = cfg.withDefaults()
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &AiProviderService{
		db:      db,
		crypto:  crypto,
		audit:   audit,
		client:  client,
		cfg:     cfg,
		log:     logger.WithModule("ai"),
		buckets: make(map[string]*ratelimit.Bucket),
	}, nil
}

// List returns the owner's providers, default first.
func (s *AiProviderService) List(ctx context.Context, ownerID string) ([]AiProviderView, error) {
	ctx = ensureContext(ctx)

	var rows []models.AiProvider
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("is_default DESC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, operationFailed(s.log, "list ai providers", err, zap.String("owner", ownerID))
	}

	views := make([]AiProviderView, 0, len(rows))
	for _, row := range rows {
		views = append(views, aiProviderView(row))
	}
	return views, nil
}

// Get loads one of the owner's providers.
func (s *AiProviderService) Get(ctx context.Context, ownerID, id string) (*AiProviderView, error) {
	provider, err := s.load(s.db.WithContext(ensureContext(ctx)), ownerID, id)
	if err != nil {
		return nil, operationFailed(s.log, "load ai provider", err, zap.String("provider", id))
	}
	view := aiProviderView(*provider)
	return &view, nil
}

// Create stores a provider. The owner's first provider becomes the default.
func (s *AiProviderService) Create(ctx context.Context, ownerID string, input CreateAiProviderInput) (*AiProviderView, error) {
	ctx = ensureContext(ctx)

	provider := models.AiProvider{
		UserID:    strings.TrimSpace(ownerID),
		Name:      strings.TrimSpace(input.Name),
		Model:     strings.TrimSpace(input.Model),
		IsDefault: input.IsDefault,
		IsActive:  true,
	}
	if input.IsActive != nil {
		provider.IsActive = *input.IsActive
	}

	err := func() error {
		if provider.UserID == "" {
			return apperrors.ErrUnauthorized
		}
		if provider.Name == "" {
			return apperrors.NewBadRequest("name is required")
		}
		baseURL, err := normaliseBaseURL(input.BaseURL)
		if err != nil {
			return err
		}
		provider.BaseURL = baseURL

		if provider.Models, err = encodeModelList(input.Models); err != nil {
			return err
		}
		if provider.APIKey, err = sealOptional(s.crypto, input.APIKey); err != nil {
			return fmt.Errorf("seal api key: %w", err)
		}

		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			exists, err := ownerHasRows(tx, &models.AiProvider{}, provider.UserID)
			if err != nil {
				return err
			}
			if !exists {
				provider.IsDefault = true
			}
			if err := tx.Create(&provider).Error; err != nil {
				return err
			}
			if provider.IsDefault {
				return clearOwnerDefaults(tx, &models.AiProvider{}, provider.UserID, provider.ID)
			}
			return nil
		})
	}()

	s.record(ctx, ownerID, "ai_provider.create", provider.ID, err, map[string]any{"name": provider.Name})
	if err != nil {
		return nil, operationFailed(s.log, "create ai provider", err, zap.String("owner", ownerID))
	}
	view := aiProviderView(provider)
	return &view, nil
}

// Update patches a provider.
func (s *AiProviderService) Update(ctx context.Context, ownerID, id string, input UpdateAiProviderInput) (*AiProviderView, error) {
	ctx = ensureContext(ctx)

	var provider *models.AiProvider
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		provider, err = s.load(tx, ownerID, id)
		if err != nil {
			return err
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return apperrors.NewBadRequest("name is required")
			}
			provider.Name = name
		}
		if input.BaseURL != nil {
			if provider.BaseURL, err = normaliseBaseURL(*input.BaseURL); err != nil {
				return err
			}
		}
		if input.APIKey != nil {
			if provider.APIKey, err = sealOptional(s.crypto, *input.APIKey); err != nil {
				return fmt.Errorf("seal api key: %w", err)
			}
		}
		if input.Model != nil {
			provider.Model = strings.TrimSpace(*input.Model)
		}
		if input.Models != nil {
			if provider.Models, err = encodeModelList(*input.Models); err != nil {
				return err
			}
		}
		if input.IsActive != nil {
			provider.IsActive = *input.IsActive
		}
		if input.IsDefault != nil {
			provider.IsDefault = *input.IsDefault
		}

		if err := tx.Save(provider).Error; err != nil {
			return err
		}
		if provider.IsDefault {
			return clearOwnerDefaults(tx, &models.AiProvider{}, provider.UserID, provider.ID)
		}
		return nil
	})

	s.record(ctx, ownerID, "ai_provider.update", id, err, nil)
	if err != nil {
		return nil, operationFailed(s.log, "update ai provider", err, zap.String("provider", id))
	}
	view := aiProviderView(*provider)
	return &view, nil
}

// Delete removes a provider. When the default goes, the oldest remaining provider takes over.
func (s *AiProviderService) Delete(ctx context.Context, ownerID, id string) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		provider, err := s.load(tx, ownerID, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(provider).Error; err != nil {
			return err
		}
		if !provider.IsDefault {
			return nil
		}

		var next models.AiProvider
		err = tx.Where("user_id = ?", provider.UserID).Order("created_at ASC").Take(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&next).Update("is_default", true).Error
	})

	s.record(ctx, ownerID, "ai_provider.delete", id, err, nil)
	return operationFailed(s.log, "delete ai provider", err, zap.String("provider", id))
}

// Chat forwards a conversation to the selected provider's /chat/completions endpoint.
// Without a ProviderID the owner's default active provider is used.
func (s *AiProviderService) Chat(ctx context.Context, ownerID string, input ChatInput) (*ChatResult, error) {
	ctx = ensureContext(ctx)

	if len(input.Messages) == 0 {
		return nil, apperrors.NewBadRequest("messages are required")
	}
	for _, message := range input.Messages {
		switch message.Role {
		case "system", "user", "assistant":
		default:
			return nil, apperrors.NewBadRequest(fmt.Sprintf("unsupported message role %q", message.Role))
		}
	}
	if !s.allowChat(ownerID) {
		return nil, apperrors.ErrRateLimit
	}

	provider, err := s.resolveChatProvider(ctx, ownerID, strings.TrimSpace(input.ProviderID))
	if err != nil {
		return nil, operationFailed(s.log, "resolve ai provider", err, zap.String("owner", ownerID))
	}

	model := strings.TrimSpace(input.Model)
	if model == "" {
		model = provider.Model
	}
	if model == "" {
		return nil, apperrors.NewBadRequest("model is required")
	}

	headers := map[string]string{}
	if provider.APIKey != "" {
		key, err := s.crypto.OpenString(provider.APIKey)
		if err != nil {
			return nil, operationFailed(s.log, "open ai provider key", err, zap.String("provider", provider.ID))
		}
		headers["Authorization"] = "Bearer " + key
	}

	var reply chatCompletionResponse
	err = callJSON(ctx, s.client, aiIntegration, http.MethodPost, provider.BaseURL+"/chat/completions", headers,
		chatCompletionRequest{
			Model:       model,
			Messages:    input.Messages,
			Temperature: input.Temperature,
			MaxTokens:   input.MaxTokens,
		}, &reply)

	s.record(ctx, ownerID, "ai.chat", provider.ID, err, map[string]any{"model": model, "messages": len(input.Messages)})
	if err != nil {
		return nil, s.upstreamError(err, provider.ID)
	}
	if len(reply.Choices) == 0 {
		return nil, apperrors.NewUpstream("AI provider returned no choices")
	}

	result := &ChatResult{
		ProviderID:   provider.ID,
		Model:        model,
		Content:      reply.Choices[0].Message.Content,
		FinishReason: reply.Choices[0].FinishReason,
		Usage:        reply.Usage,
	}
	if reply.Model != "" {
		result.Model = reply.Model
	}
	return result, nil
}

func (s *AiProviderService) resolveChatProvider(ctx context.Context, ownerID, providerID string) (*models.AiProvider, error) {
	db := s.db.WithContext(ctx)
	if providerID != "" {
		provider, err := s.load(db, ownerID, providerID)
		if err != nil {
			return nil, err
		}
		if !provider.IsActive {
			return nil, apperrors.NewBadRequest("AI provider is disabled")
		}
		return provider, nil
	}

	var provider models.AiProvider
	err := db.Where("user_id = ? AND is_active = ?", ownerID, true).
		Order("is_default DESC, created_at ASC").
		Take(&provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("No active AI provider configured")
	}
	if err != nil {
		return nil, err
	}
	return &provider, nil
}

func (s *AiProviderService) upstreamError(err error, providerID string) error {
	var statusErr *upstreamStatusError
	if errors.As(err, &statusErr) {
		s.log.Warn("ai provider rejected request",
			zap.String("provider", providerID),
			zap.Int("status", statusErr.StatusCode),
			zap.String("body", statusErr.Body),
		)
		return apperrors.NewUpstream(fmt.Sprintf("AI provider returned status %d", statusErr.StatusCode))
	}
	return apperrors.NewUpstream("AI provider request failed").WithInternal(err)
}

// allowChat takes one token from the owner's bucket.
func (s *AiProviderService) allowChat(ownerID string) bool {
	if s.cfg.ChatRate <= 0 {
		return true
	}

	s.bucketsMu.Lock()
	bucket, ok := s.buckets[ownerID]
	if !ok {
		rate := int64(s.cfg.ChatRate)
		bucket = ratelimit.NewBucketWithQuantum(time.Minute, rate, rate)
		s.buckets[ownerID] = bucket
	}
	s.bucketsMu.Unlock()

	return bucket.TakeAvailable(1) == 1
}

func (s *AiProviderService) load(db *gorm.DB, ownerID, id string) (*models.AiProvider, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperrors.ErrUnauthorized
	}
	var provider models.AiProvider
	err := db.Where("id = ? AND user_id = ?", strings.TrimSpace(id), ownerID).Take(&provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("AI provider not found")
	}
	if err != nil {
		return nil, err
	}
	return &provider, nil
}

func (s *AiProviderService) record(ctx context.Context, ownerID, action, id string, err error, meta map[string]any) {
	resource := "ai_provider"
	if id != "" {
		resource += ":" + id
	}
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   trimmedPtr(&ownerID),
		Action:   action,
		Resource: resource,
		Result:   auditResult(err),
		Metadata: meta,
	})
}

func aiProviderView(provider models.AiProvider) AiProviderView {
	return AiProviderView{AiProvider: provider, HasAPIKey: provider.APIKey != ""}
}

// normaliseBaseURL accepts absolute http(s) URLs and strips trailing slashes.
func normaliseBaseURL(raw string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "", apperrors.NewBadRequest("base_url is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", apperrors.NewBadRequest("base_url must be an absolute http(s) URL")
	}
	return raw, nil
}

func encodeModelList(list []string) (datatypes.JSON, error) {
	cleaned := make([]string, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, model := range list {
		model = strings.TrimSpace(model)
		if model == "" {
			continue
		}
		if _, dup := seen[model]; dup {
			continue
		}
		seen[model] = struct{}{}
		cleaned = append(cleaned, model)
	}
	encoded, err := json.Marshal(cleaned)
	if err != nil {
		return nil, fmt.Errorf("encode model list: %w", err)
	}
	return datatypes.JSON(encoded), nil
}
