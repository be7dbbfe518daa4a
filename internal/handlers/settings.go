package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/omnikit/internal/services"
	"github.com/charlesng35/omnikit/pkg/response"
)

// SettingsHandler reads and updates the installation-wide configuration.
type SettingsHandler struct {
	svc *services.SystemConfigService
}

func NewSettingsHandler(svc *services.SystemConfigService) (*SettingsHandler, error) {
	if svc == nil {
		return nil, errors.New("settings handler: service is required")
	}
	return &SettingsHandler{svc: svc}, nil
}

// GET /api/settings
func (h *SettingsHandler) Get(c *gin.Context) {
	cfg, err := h.svc.Get(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, cfg)
}

// PUT /api/settings
func (h *SettingsHandler) Update(c *gin.Context) {
	var req services.UpdateSystemConfigInput
	if !bindAndValidate(c, &req) {
		return
	}
	cfg, err := h.svc.Update(requestContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, cfg)
}
