package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/omnikit/internal/services"
	apperrors "github.com/charlesng35/omnikit/pkg/errors"
	"github.com/charlesng35/omnikit/pkg/response"
)

const maxUploadFormBytes = 21 << 20

// GitHubTargetHandler manages repository upload targets.
type GitHubTargetHandler struct {
	svc *services.GitHubTargetService
}

func NewGitHubTargetHandler(svc *services.GitHubTargetService) (*GitHubTargetHandler, error) {
	if svc == nil {
		return nil, errors.New("github target handler: service is required")
	}
	return &GitHubTargetHandler{svc: svc}, nil
}

type createGitHubTargetRequest struct {
	Name       string `json:"name" validate:"required,notblank,max=100"`
	RepoOwner  string `json:"repo_owner" validate:"required,notblank,max=100,reponame"`
	Repo       string `json:"repo" validate:"required,notblank,max=100,reponame"`
	Branch     string `json:"branch" validate:"max=255"`
	PathPrefix string `json:"path_prefix" validate:"max=255"`
	Token      string `json:"token" validate:"required,notblank"`
	IsDefault  bool   `json:"is_default"`
}

type updateGitHubTargetRequest struct {
	Name       *string `json:"name" validate:"omitempty,notblank,max=100"`
	RepoOwner  *string `json:"repo_owner" validate:"omitempty,notblank,max=100,reponame"`
	Repo       *string `json:"repo" validate:"omitempty,notblank,max=100,reponame"`
	Branch     *string `json:"branch" validate:"omitempty,max=255"`
	PathPrefix *string `json:"path_prefix" validate:"omitempty,max=255"`
	Token      *string `json:"token"`
	IsDefault  *bool   `json:"is_default"`
}

// GET /api/github-targets
func (h *GitHubTargetHandler) List(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	targets, err := h.svc.List(requestContext(c), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, targets)
}

// POST /api/github-targets
func (h *GitHubTargetHandler) Create(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	var req createGitHubTargetRequest
	if !bindAndValidate(c, &req) {
		return
	}

	target, err := h.svc.Create(requestContext(c), owner, services.CreateGitHubTargetInput{
		Name:       req.Name,
		RepoOwner:  req.RepoOwner,
		Repo:       req.Repo,
		Branch:     req.Branch,
		PathPrefix: req.PathPrefix,
		Token:      req.Token,
		IsDefault:  req.IsDefault,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, target)
}

// PATCH /api/github-targets/:id
func (h *GitHubTargetHandler) Update(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "target")
	if !ok {
		return
	}
	var req updateGitHubTargetRequest
	if !bindAndValidate(c, &req) {
		return
	}

	target, err := h.svc.Update(requestContext(c), owner, id, services.UpdateGitHubTargetInput{
		Name:       req.Name,
		RepoOwner:  req.RepoOwner,
		Repo:       req.Repo,
		Branch:     req.Branch,
		PathPrefix: req.PathPrefix,
		Token:      req.Token,
		IsDefault:  req.IsDefault,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, target)
}

// DELETE /api/github-targets/:id
func (h *GitHubTargetHandler) Delete(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "target")
	if !ok {
		return
	}
	if err := h.svc.Delete(requestContext(c), owner, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Ack(c)
}

// POST /api/github-targets/:id/verify
func (h *GitHubTargetHandler) Verify(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "target")
	if !ok {
		return
	}
	if err := h.svc.Verify(requestContext(c), owner, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"verified": true})
}

// POST /api/github-targets/:id/upload (multipart: file, directory?, message?)
func (h *GitHubTargetHandler) Upload(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "target")
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadFormBytes)
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("file could not be read"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("file could not be read"))
		return
	}

	result, err := h.svc.Upload(requestContext(c), owner, id, services.GitHubUploadInput{
		Filename:  header.Filename,
		Directory: c.PostForm("directory"),
		Message:   c.PostForm("message"),
		Content:   content,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}
