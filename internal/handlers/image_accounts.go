package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/omnikit/internal/services"
	"github.com/charlesng35/omnikit/pkg/response"
)

// ImageAccountHandler manages Cloudinary and TinyPNG credentials.
type ImageAccountHandler struct {
	svc *services.ImageAccountService
}

func NewImageAccountHandler(svc *services.ImageAccountService) (*ImageAccountHandler, error) {
	if svc == nil {
		return nil, errors.New("image account handler: service is required")
	}
	return &ImageAccountHandler{svc: svc}, nil
}

type createImageAccountRequest struct {
	Provider  string `json:"provider" validate:"required,oneof=cloudinary tinypng"`
	Name      string `json:"name" validate:"required,notblank,max=100"`
	CloudName string `json:"cloud_name" validate:"max=100"`
	APIKey    string `json:"api_key" validate:"required,notblank"`
	APISecret string `json:"api_secret"`
	IsDefault bool   `json:"is_default"`
}

type updateImageAccountRequest struct {
	Name      *string `json:"name" validate:"omitempty,notblank,max=100"`
	CloudName *string `json:"cloud_name" validate:"omitempty,max=100"`
	APIKey    *string `json:"api_key"`
	APISecret *string `json:"api_secret"`
	IsDefault *bool   `json:"is_default"`
}

// GET /api/image-accounts?provider=
func (h *ImageAccountHandler) List(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	accounts, err := h.svc.List(requestContext(c), owner, strings.TrimSpace(c.Query("provider")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, accounts)
}

// POST /api/image-accounts
func (h *ImageAccountHandler) Create(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	var req createImageAccountRequest
	if !bindAndValidate(c, &req) {
		return
	}

	account, err := h.svc.Create(requestContext(c), owner, services.CreateImageAccountInput{
		Provider:  req.Provider,
		Name:      req.Name,
		CloudName: req.CloudName,
		APIKey:    req.APIKey,
		APISecret: req.APISecret,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, account)
}

// PATCH /api/image-accounts/:id
func (h *ImageAccountHandler) Update(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "account")
	if !ok {
		return
	}
	var req updateImageAccountRequest
	if !bindAndValidate(c, &req) {
		return
	}

	account, err := h.svc.Update(requestContext(c), owner, id, services.UpdateImageAccountInput{
		Name:      req.Name,
		CloudName: req.CloudName,
		APIKey:    req.APIKey,
		APISecret: req.APISecret,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, account)
}

// DELETE /api/image-accounts/:id
func (h *ImageAccountHandler) Delete(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "account")
	if !ok {
		return
	}
	if err := h.svc.Delete(requestContext(c), owner, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Ack(c)
}
