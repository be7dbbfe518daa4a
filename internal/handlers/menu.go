package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/omnikit/internal/services"
	"github.com/charlesng35/omnikit/pkg/response"
)

// MenuHandler exposes the caller's navigation tree.
type MenuHandler struct {
	svc *services.MenuService
}

func NewMenuHandler(svc *services.MenuService) (*MenuHandler, error) {
	if svc == nil {
		return nil, errors.New("menu handler: service is required")
	}
	return &MenuHandler{svc: svc}, nil
}

type addToolRequest struct {
	ToolID   string  `json:"tool_id" validate:"required,notblank"`
	ParentID *string `json:"parent_id"`
}

type createFolderRequest struct {
	Name     string  `json:"name" validate:"required,notblank,max=100"`
	NameEn   *string `json:"name_en" validate:"omitempty,max=100"`
	Icon     *string `json:"icon" validate:"omitempty,max=64"`
	ParentID *string `json:"parent_id"`
}

type updateMenuItemRequest struct {
	Label   *string `json:"label" validate:"omitempty,max=100"`
	LabelEn *string `json:"label_en" validate:"omitempty,max=100"`
	Icon    *string `json:"icon" validate:"omitempty,max=64"`
}

type moveMenuItemRequest struct {
	Direction string `json:"direction" validate:"required"`
}

type compactMenuRequest struct {
	ParentID *string `json:"parent_id"`
}

// GET /api/menu
func (h *MenuHandler) List(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}

	tree, err := h.svc.GetMenuItems(requestContext(c), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tree)
}

// POST /api/menu/tools
func (h *MenuHandler) AddTool(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	var req addToolRequest
	if !bindAndValidate(c, &req) {
		return
	}

	item, err := h.svc.AddToolToMenu(requestContext(c), owner, req.ToolID, optionalID(req.ParentID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, item)
}

// POST /api/menu/folders
func (h *MenuHandler) CreateFolder(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	var req createFolderRequest
	if !bindAndValidate(c, &req) {
		return
	}

	item, err := h.svc.CreateFolder(requestContext(c), owner, services.CreateFolderInput{
		Name:     req.Name,
		NameEn:   req.NameEn,
		Icon:     req.Icon,
		ParentID: optionalID(req.ParentID),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, item)
}

// PATCH /api/menu/:id
func (h *MenuHandler) Update(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "menu item")
	if !ok {
		return
	}
	var req updateMenuItemRequest
	if !bindAndValidate(c, &req) {
		return
	}

	item, err := h.svc.UpdateMenuItem(requestContext(c), owner, id, services.UpdateMenuItemInput{
		Label:   req.Label,
		LabelEn: req.LabelEn,
		Icon:    req.Icon,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, item)
}

// DELETE /api/menu/:id?on_children=promote|cascade|reject
func (h *MenuHandler) Delete(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "menu item")
	if !ok {
		return
	}
	policy, err := services.ParseDeletePolicy(c.Query("on_children"))
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.svc.DeleteMenuItem(requestContext(c), owner, id, policy); err != nil {
		response.Error(c, err)
		return
	}
	response.Ack(c)
}

// POST /api/menu/:id/move
func (h *MenuHandler) Move(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "menu item")
	if !ok {
		return
	}
	var req moveMenuItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	direction, err := services.ParseMoveDirection(req.Direction)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.svc.MoveMenuItem(requestContext(c), owner, id, direction); err != nil {
		response.Error(c, err)
		return
	}
	response.Ack(c)
}

// POST /api/menu/compact
func (h *MenuHandler) Compact(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	var req compactMenuRequest
	if c.Request.ContentLength != 0 && !bindAndValidate(c, &req) {
		return
	}

	changed, err := h.svc.CompactMenuOrder(requestContext(c), owner, optionalID(req.ParentID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": changed})
}

// ToolHandler exposes the global tool catalog.
type ToolHandler struct {
	svc *services.ToolService
}

func NewToolHandler(svc *services.ToolService) (*ToolHandler, error) {
	if svc == nil {
		return nil, errors.New("tool handler: service is required")
	}
	return &ToolHandler{svc: svc}, nil
}

type setToolActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// GET /api/tools
func (h *ToolHandler) List(c *gin.Context) {
	tools, err := h.svc.GetTools(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tools)
}

// PATCH /api/tools/:id
func (h *ToolHandler) SetActive(c *gin.Context) {
	id, ok := pathID(c, "id", "tool")
	if !ok {
		return
	}
	var req setToolActiveRequest
	if !bindAndValidate(c, &req) {
		return
	}

	tool, err := h.svc.SetToolActive(requestContext(c), id, *req.IsActive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tool)
}
