package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/models"
	"github.com/charlesng35/omnikit/internal/vault"
	apperrors "github.com/charlesng35/omnikit/pkg/errors"
	"github.com/charlesng35/omnikit/pkg/logger"
)

const (
	githubIntegration    = "github"
	defaultGitHubBranch  = "main"
	maxGitHubUploadBytes = 20 << 20
)

// GitHubTargetView hides the stored token.
type GitHubTargetView struct {
	models.GitHubTarget
	HasToken bool `json:"has_token"`
}

// CreateGitHubTargetInput describes a new upload target.
type CreateGitHubTargetInput struct {
	Name       string
	RepoOwner  string
	Repo       string
	Branch     string
	PathPrefix string
	Token      string
	IsDefault  bool
}

// UpdateGitHubTargetInput patches a target. Nil fields are left untouched.
type UpdateGitHubTargetInput struct {
	Name       *string
	RepoOwner  *string
	Repo       *string
	Branch     *string
	PathPrefix *string
	Token      *string
	IsDefault  *bool
}

// GitHubUploadInput is a single file to commit into a target.
type GitHubUploadInput struct {
	Filename string
	// Directory is appended below the target's path prefix.
	Directory string
	Message   string
	Content   []byte
}

// GitHubUploadResult describes the committed file.
type GitHubUploadResult struct {
	Path        string `json:"path"`
	SHA         string `json:"sha"`
	CommitSHA   string `json:"commit_sha"`
	HTMLURL     string `json:"html_url"`
	DownloadURL string `json:"download_url"`
	CDNURL      string `json:"cdn_url"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

type githubCommitter struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type githubPutContentsRequest struct {
	Message   string           `json:"message"`
	Content   string           `json:"content"`
	Branch    string           `json:"branch,omitempty"`
	Committer *githubCommitter `json:"committer,omitempty"`
}

type githubPutContentsResponse struct {
	Content struct {
		Path        string `json:"path"`
		SHA         string `json:"sha"`
		HTMLURL     string `json:"html_url"`
		DownloadURL string `json:"download_url"`
	} `json:"content"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type githubRepository struct {
	FullName    string `json:"full_name"`
	Private     bool   `json:"private"`
	Permissions struct {
		Push bool `json:"push"`
	} `json:"permissions"`
}

// GitHubTargetService manages repository upload targets and commits files through the
// GitHub contents API.
type GitHubTargetService struct {
	db     *gorm.DB
	crypto *vault.Crypto
	audit  *AuditService
	client *http.Client
	cfg    IntegrationConfig
	log    *zap.Logger
}

// NewGitHubTargetService constructs the service. client may be nil.
func NewGitHubTargetService(db *gorm.DB, crypto *vault.Crypto, audit *AuditService, client *http.Client, cfg IntegrationConfig) (*GitHubTargetService, error) {
	if db == nil {
		return nil, errors.New("github target service: db is required")
	}
	if crypto == nil {
		return nil, errors.New("github target service: vault is required")
	}
	cfg = cfg.withDefaults()
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &GitHubTargetService{
		db:     db,
		crypto: crypto,
		audit:  audit,
		client: client,
		cfg:    cfg,
		log:    logger.WithModule("github"),
	}, nil
}

// List returns the owner's targets, default first.
func (s *GitHubTargetService) List(ctx context.Context, ownerID string) ([]GitHubTargetView, error) {
	ctx = ensureContext(ctx)

	var rows []models.GitHubTarget
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("is_default DESC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, operationFailed(s.log, "list github targets", err, zap.String("owner", ownerID))
	}

	views := make([]GitHubTargetView, 0, len(rows))
	for _, row := range rows {
		views = append(views, githubTargetView(row))
	}
	return views, nil
}

// Create stores a target. The owner's first target becomes the default.
func (s *GitHubTargetService) Create(ctx context.Context, ownerID string, input CreateGitHubTargetInput) (*GitHubTargetView, error) {
	ctx = ensureContext(ctx)

	target := models.GitHubTarget{
		UserID:     strings.TrimSpace(ownerID),
		Name:       strings.TrimSpace(input.Name),
		RepoOwner:  strings.TrimSpace(input.RepoOwner),
		Repo:       strings.TrimSpace(input.Repo),
		Branch:     strings.TrimSpace(input.Branch),
		PathPrefix: cleanRepoDir(input.PathPrefix),
		IsDefault:  input.IsDefault,
	}
	if target.Branch == "" {
		target.Branch = defaultGitHubBranch
	}

	err := func() error {
		if target.UserID == "" {
			return apperrors.ErrUnauthorized
		}
		if err := validateGitHubTarget(target); err != nil {
			return err
		}
		if strings.TrimSpace(input.Token) == "" {
			return apperrors.NewBadRequest("token is required")
		}
		var err error
		if target.Token, err = sealOptional(s.crypto, input.Token); err != nil {
			return fmt.Errorf("seal token: %w", err)
		}

		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			exists, err := ownerHasRows(tx, &models.GitHubTarget{}, target.UserID)
			if err != nil {
				return err
			}
			if !exists {
				target.IsDefault = true
			}
			if err := tx.Create(&target).Error; err != nil {
				return err
			}
			if target.IsDefault {
				return clearOwnerDefaults(tx, &models.GitHubTarget{}, target.UserID, target.ID)
			}
			return nil
		})
	}()

	s.record(ctx, ownerID, "github_target.create", target.ID, err, map[string]any{"repo": target.RepoOwner + "/" + target.Repo})
	if err != nil {
		return nil, operationFailed(s.log, "create github target", err, zap.String("owner", ownerID))
	}
	view := githubTargetView(target)
	return &view, nil
}

// Update patches a target.
func (s *GitHubTargetService) Update(ctx context.Context, ownerID, id string, input UpdateGitHubTargetInput) (*GitHubTargetView, error) {
	ctx = ensureContext(ctx)

	var target *models.GitHubTarget
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if target, err = s.load(tx, ownerID, id); err != nil {
			return err
		}

		if input.Name != nil {
			target.Name = strings.TrimSpace(*input.Name)
		}
		if input.RepoOwner != nil {
			target.RepoOwner = strings.TrimSpace(*input.RepoOwner)
		}
		if input.Repo != nil {
			target.Repo = strings.TrimSpace(*input.Repo)
		}
		if input.Branch != nil {
			target.Branch = strings.TrimSpace(*input.Branch)
			if target.Branch == "" {
				target.Branch = defaultGitHubBranch
			}
		}
		if input.PathPrefix != nil {
			target.PathPrefix = cleanRepoDir(*input.PathPrefix)
		}
		if err := validateGitHubTarget(*target); err != nil {
			return err
		}
		if input.Token != nil {
			if strings.TrimSpace(*input.Token) == "" {
				return apperrors.NewBadRequest("token is required")
			}
			if target.Token, err = sealOptional(s.crypto, *input.Token); err != nil {
				return fmt.Errorf("seal token: %w", err)
			}
		}
		if input.IsDefault != nil {
			target.IsDefault = *input.IsDefault
		}

		if err := tx.Save(target).Error; err != nil {
			return err
		}
		if target.IsDefault {
			return clearOwnerDefaults(tx, &models.GitHubTarget{}, target.UserID, target.ID)
		}
		return nil
	})

	s.record(ctx, ownerID, "github_target.update", id, err, nil)
	if err != nil {
		return nil, operationFailed(s.log, "update github target", err, zap.String("target", id))
	}
	view := githubTargetView(*target)
	return &view, nil
}

// Delete removes a target.
func (s *GitHubTargetService) Delete(ctx context.Context, ownerID, id string) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := s.load(tx, ownerID, id)
		if err != nil {
			return err
		}
		return tx.Delete(target).Error
	})

	s.record(ctx, ownerID, "github_target.delete", id, err, nil)
	return operationFailed(s.log, "delete github target", err, zap.String("target", id))
}

// Verify checks that the stored token can push to the target repository.
func (s *GitHubTargetService) Verify(ctx context.Context, ownerID, id string) error {
	ctx = ensureContext(ctx)

	target, token, err := s.loadWithToken(ctx, ownerID, id)
	if err != nil {
		return err
	}

	var repo githubRepository
	endpoint := fmt.Sprintf("%s/repos/%s/%s", s.cfg.GitHubAPIURL, url.PathEscape(target.RepoOwner), url.PathEscape(target.Repo))
	if err := callJSON(ctx, s.client, githubIntegration, http.MethodGet, endpoint, githubHeaders(token), nil, &repo); err != nil {
		return s.upstreamError(err, target.ID)
	}
	if !repo.Permissions.Push {
		return apperrors.NewBadRequest("token cannot push to " + repo.FullName)
	}
	return nil
}

// Upload commits a file into the target repository and returns its public URLs. An
// existing file at the same path is a conflict.
func (s *GitHubTargetService) Upload(ctx context.Context, ownerID, id string, input GitHubUploadInput) (*GitHubUploadResult, error) {
	ctx = ensureContext(ctx)

	filename := path.Base(strings.TrimSpace(strings.ReplaceAll(input.Filename, "\\", "/")))
	if filename == "" || filename == "." || filename == "/" || filename == ".." {
		return nil, apperrors.NewBadRequest("filename is required")
	}
	if len(input.Content) == 0 {
		return nil, apperrors.NewBadRequest("file is empty")
	}
	if len(input.Content) > maxGitHubUploadBytes {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("file exceeds %d MiB", maxGitHubUploadBytes>>20))
	}

	target, token, err := s.loadWithToken(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	repoPath := path.Join(target.PathPrefix, cleanRepoDir(input.Directory), filename)
	message := strings.TrimSpace(input.Message)
	if message == "" {
		message = "Upload " + filename
	}

	payload := githubPutContentsRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(input.Content),
		Branch:  target.Branch,
	}
	if s.cfg.CommitAuthor != "" && s.cfg.CommitEmail != "" {
		payload.Committer = &githubCommitter{Name: s.cfg.CommitAuthor, Email: s.cfg.CommitEmail}
	}

	var reply githubPutContentsResponse
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		s.cfg.GitHubAPIURL, url.PathEscape(target.RepoOwner), url.PathEscape(target.Repo), escapeRepoPath(repoPath))
	err = callJSON(ctx, s.client, githubIntegration, http.MethodPut, endpoint, githubHeaders(token), payload, &reply)

	s.record(ctx, ownerID, "github_target.upload", target.ID, err, map[string]any{"path": repoPath, "size": len(input.Content)})
	if err != nil {
		return nil, s.upstreamError(err, target.ID)
	}

	result := &GitHubUploadResult{
		Path:        reply.Content.Path,
		SHA:         reply.Content.SHA,
		CommitSHA:   reply.Commit.SHA,
		HTMLURL:     reply.Content.HTMLURL,
		DownloadURL: reply.Content.DownloadURL,
		ContentType: mimetype.Detect(input.Content).String(),
		Size:        len(input.Content),
	}
	if result.Path == "" {
		result.Path = repoPath
	}
	result.CDNURL = fmt.Sprintf("https://cdn.jsdelivr.net/gh/%s/%s@%s/%s", target.RepoOwner, target.Repo, target.Branch, result.Path)
	return result, nil
}

func (s *GitHubTargetService) loadWithToken(ctx context.Context, ownerID, id string) (*models.GitHubTarget, string, error) {
	target, err := s.load(s.db.WithContext(ctx), ownerID, id)
	if err != nil {
		return nil, "", operationFailed(s.log, "load github target", err, zap.String("target", id))
	}
	token, err := s.crypto.OpenString(target.Token)
	if err != nil {
		return nil, "", operationFailed(s.log, "open github token", err, zap.String("target", id))
	}
	return target, token, nil
}

func (s *GitHubTargetService) upstreamError(err error, targetID string) error {
	var statusErr *upstreamStatusError
	if !errors.As(err, &statusErr) {
		return apperrors.NewUpstream("GitHub request failed").WithInternal(err)
	}

	s.log.Warn("github rejected request",
		zap.String("target", targetID),
		zap.Int("status", statusErr.StatusCode),
		zap.String("body", statusErr.Body),
	)
	switch statusErr.StatusCode {
	case http.StatusUnprocessableEntity, http.StatusConflict:
		return apperrors.NewConflict("A file already exists at this path")
	case http.StatusNotFound:
		return apperrors.NewNotFound("Repository or branch not found")
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.NewUpstream("GitHub rejected the token")
	default:
		return apperrors.NewUpstream(fmt.Sprintf("GitHub returned status %d", statusErr.StatusCode))
	}
}

func (s *GitHubTargetService) load(db *gorm.DB, ownerID, id string) (*models.GitHubTarget, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperrors.ErrUnauthorized
	}
	var target models.GitHubTarget
	err := db.Where("id = ? AND user_id = ?", strings.TrimSpace(id), ownerID).Take(&target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("GitHub target not found")
	}
	if err != nil {
		return nil, err
	}
	return &target, nil
}

func (s *GitHubTargetService) record(ctx context.Context, ownerID, action, id string, err error, meta map[string]any) {
	resource := "github_target"
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

func githubHeaders(token string) map[string]string {
	return map[string]string{
		"Accept":               "application/vnd.github+json",
		"Authorization":        "Bearer " + token,
		"X-GitHub-Api-Version": "2022-11-28",
	}
}

func validateGitHubTarget(target models.GitHubTarget) error {
	switch {
	case target.Name == "":
		return apperrors.NewBadRequest("name is required")
	case target.RepoOwner == "" || strings.Contains(target.RepoOwner, "/"):
		return apperrors.NewBadRequest("owner must be a GitHub user or organisation")
	case target.Repo == "" || strings.Contains(target.Repo, "/"):
		return apperrors.NewBadRequest("repo must be a repository name")
	}
	return nil
}

// cleanRepoDir normalises a directory inside a repository: forward slashes, no leading or
// trailing slash, and no parent references.
func cleanRepoDir(dir string) string {
	dir = strings.ReplaceAll(strings.TrimSpace(dir), "\\", "/")
	parts := strings.Split(dir, "/")
	kept := parts[:0]
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || part == "." || part == ".." {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "/")
}

func escapeRepoPath(repoPath string) string {
	parts := strings.Split(repoPath, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func githubTargetView(target models.GitHubTarget) GitHubTargetView {
	return GitHubTargetView{GitHubTarget: target, HasToken: target.Token != ""}
}
