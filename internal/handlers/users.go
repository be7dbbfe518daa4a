package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/omnikit/internal/services"
	"github.com/charlesng35/omnikit/pkg/response"
)

// UserHandler exposes operator account administration and self-service password changes.
type UserHandler struct {
	svc *services.UserService
}

func NewUserHandler(svc *services.UserService) (*UserHandler, error) {
	if svc == nil {
		return nil, errors.New("user handler: service is required")
	}
	return &UserHandler{svc: svc}, nil
}

type createUserRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=64,username"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name" validate:"omitempty,max=128"`
	IsRoot      bool   `json:"is_root"`
}

type updateUserRequest struct {
	Email       *string `json:"email" validate:"omitempty,email"`
	DisplayName *string `json:"display_name" validate:"omitempty,max=128"`
	IsRoot      *bool   `json:"is_root"`
	IsActive    *bool   `json:"is_active"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// GET /api/users?q=&active=&page=&per_page=
func (h *UserHandler) List(c *gin.Context) {
	page, per := pageQuery(c)
	opts := services.ListUsersOptions{Page: page, PageSize: per, Query: c.Query("q")}
	if raw := strings.TrimSpace(c.Query("active")); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			opts.IsActive = &active
		}
	}

	users, total, err := h.svc.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, users, page, per, total)
}

// GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id", "user")
	if !ok {
		return
	}
	user, err := h.svc.GetByID(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// POST /api/users
func (h *UserHandler) Create(c *gin.Context) {
	actor, ok := ownerID(c)
	if !ok {
		return
	}
	var req createUserRequest
	if !bindAndValidate(c, &req) {
		return
	}
	user, err := h.svc.Create(requestContext(c), actor, services.CreateUserInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		IsRoot:      req.IsRoot,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

// PATCH /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	actor, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "user")
	if !ok {
		return
	}
	var req updateUserRequest
	if !bindAndValidate(c, &req) {
		return
	}
	user, err := h.svc.Update(requestContext(c), actor, id, services.UpdateUserInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		IsRoot:      req.IsRoot,
		IsActive:    req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	actor, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "user")
	if !ok {
		return
	}
	if err := h.svc.Delete(requestContext(c), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Ack(c)
}

// PUT /api/auth/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, ok := ownerID(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.ChangePassword(requestContext(c), userID, req.CurrentPassword, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}
	response.Ack(c)
}
