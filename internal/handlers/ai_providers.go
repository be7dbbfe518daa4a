package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/omnikit/internal/services"
	"github.com/charlesng35/omnikit/pkg/response"
)

// AiProviderHandler manages OpenAI-compatible providers and the chat proxy.
type AiProviderHandler struct {
	svc *services.AiProviderService
}

func NewAiProviderHandler(svc *services.AiProviderService) (*AiProviderHandler, error) {
	if svc == nil {
		return nil, errors.New("ai provider handler: service is required")
	}
	return &AiProviderHandler{svc: svc}, nil
}

type createAiProviderRequest struct {
	Name      string   `json:"name" validate:"required,notblank,max=100"`
	BaseURL   string   `json:"base_url" validate:"required,url"`
	APIKey    string   `json:"api_key"`
	Model     string   `json:"model" validate:"max=200"`
	Models    []string `json:"models" validate:"max=100,dive,max=200"`
	IsDefault bool     `json:"is_default"`
	IsActive  *bool    `json:"is_active"`
}

type updateAiProviderRequest struct {
	Name      *string   `json:"name" validate:"omitempty,notblank,max=100"`
	BaseURL   *string   `json:"base_url" validate:"omitempty,url"`
	APIKey    *string   `json:"api_key"`
	Model     *string   `json:"model" validate:"omitempty,max=200"`
	Models    *[]string `json:"models" validate:"omitempty,max=100,dive,max=200"`
	IsDefault *bool     `json:"is_default"`
	IsActive  *bool     `json:"is_active"`
}

type chatRequest struct {
	ProviderID  string                 `json:"provider_id"`
	Model       string                 `json:"model"`
	Messages    []services.ChatMessage `json:"messages" validate:"required,min=1,max=200"`
	Temperature *float64               `json:"temperature" validate:"omitempty,min=0,max=2"`
	MaxTokens   int                    `json:"max_tokens" validate:"min=0,max=128000"`
}

// GET /api/ai-providers
func (h *AiProviderHandler) List(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	providers, err := h.svc.List(requestContext(c), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, providers)
}

// POST /api/ai-providers
func (h *AiProviderHandler) Create(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	var req createAiProviderRequest
	if !bindAndValidate(c, &req) {
		return
	}

	provider, err := h.svc.Create(requestContext(c), owner, services.CreateAiProviderInput{
		Name:      req.Name,
		BaseURL:   req.BaseURL,
		APIKey:    req.APIKey,
		Model:     req.Model,
		Models:    req.Models,
		IsDefault: req.IsDefault,
		IsActive:  req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, provider)
}

// PATCH /api/ai-providers/:id
func (h *AiProviderHandler) Update(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "provider")
	if !ok {
		return
	}
	var req updateAiProviderRequest
	if !bindAndValidate(c, &req) {
		return
	}

	provider, err := h.svc.Update(requestContext(c), owner, id, services.UpdateAiProviderInput{
		Name:      req.Name,
		BaseURL:   req.BaseURL,
		APIKey:    req.APIKey,
		Model:     req.Model,
		Models:    req.Models,
		IsDefault: req.IsDefault,
		IsActive:  req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, provider)
}

// DELETE /api/ai-providers/:id
func (h *AiProviderHandler) Delete(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "provider")
	if !ok {
		return
	}
	if err := h.svc.Delete(requestContext(c), owner, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Ack(c)
}

// POST /api/ai/chat
func (h *AiProviderHandler) Chat(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	var req chatRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.svc.Chat(requestContext(c), owner, services.ChatInput{
		ProviderID:  req.ProviderID,
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}
