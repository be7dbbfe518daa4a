package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/charlesng35/omnikit/pkg/errors"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func newGitHubFixture(t *testing.T, apiURL string) (*GitHubTargetService, string) {
	t.Helper()

	db := openSeededDB(t)
	user := createOperator(t, db, "uploader")
	svc, err := NewGitHubTargetService(db, newTestVault(t), newTestAudit(t, db), nil, IntegrationConfig{
		GitHubAPIURL: apiURL,
		CommitAuthor: "OmniKit",
		CommitEmail:  "bot@omnikit.local",
	})
	require.NoError(t, err)
	return svc, user.ID
}

func TestGitHubTargetCRUD(t *testing.T) {
	svc, owner := newGitHubFixture(t, "")
	ctx := context.Background()

	first, err := svc.Create(ctx, owner, CreateGitHubTargetInput{
		Name:       "Blog assets",
		RepoOwner:  "acme",
		Repo:       "site",
		PathPrefix: "/assets//img/../",
		Token:      "ghp_secret",
	})
	require.NoError(t, err)
	require.True(t, first.IsDefault)
	require.True(t, first.HasToken)
	require.Equal(t, "main", first.Branch)
	require.Equal(t, "assets/img", first.PathPrefix)
	require.NotContains(t, first.Token, "ghp_secret")

	second, err := svc.Create(ctx, owner, CreateGitHubTargetInput{Name: "Docs", RepoOwner: "acme", Repo: "docs", Branch: "gh-pages", Token: "t", IsDefault: true})
	require.NoError(t, err)

	targets, err := svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, targets, 2)
	require.Equal(t, second.ID, targets[0].ID)
	require.False(t, targets[1].IsDefault)

	updated, err := svc.Update(ctx, owner, first.ID, UpdateGitHubTargetInput{Branch: stringPtr(""), Repo: stringPtr("site-v2")})
	require.NoError(t, err)
	require.Equal(t, "main", updated.Branch)
	require.Equal(t, "site-v2", updated.Repo)

	_, err = svc.Update(ctx, owner, first.ID, UpdateGitHubTargetInput{Repo: stringPtr("acme/site")})
	requireAppError(t, err, apperrors.ErrBadRequest.Code)

	_, err = svc.Create(ctx, owner, CreateGitHubTargetInput{Name: "No token", RepoOwner: "a", Repo: "b"})
	requireAppError(t, err, apperrors.ErrBadRequest.Code)

	require.NoError(t, svc.Delete(ctx, owner, first.ID))
	requireAppError(t, svc.Delete(ctx, owner, first.ID), apperrors.ErrNotFound.Code)
}

func TestGitHubTargetUploadCommitsFile(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) > 1 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"Invalid request.\n\n\"sha\" wasn't supplied."}`))
			return
		}

		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/repos/acme/site/contents/assets/2026/10/logo.png", r.URL.Path)
		require.Equal(t, "Bearer ghp_secret", r.Header.Get("Authorization"))
		require.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))

		var body githubPutContentsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		decoded, err := base64.StdEncoding.DecodeString(body.Content)
		require.NoError(t, err)
		require.Equal(t, pngHeader, decoded)
		require.Equal(t, "main", body.Branch)
		require.Equal(t, "Upload logo.png", body.Message)
		require.NotNil(t, body.Committer)
		require.Equal(t, "OmniKit", body.Committer.Name)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"content": {"path": "assets/2026/10/logo.png", "sha": "abc", "html_url": "https://github.com/acme/site/blob/main/assets/2026/10/logo.png", "download_url": "https://raw.githubusercontent.com/acme/site/main/assets/2026/10/logo.png"},
			"commit": {"sha": "def"}
		}`))
	}))
	t.Cleanup(server.Close)

	svc, owner := newGitHubFixture(t, server.URL+"/")
	ctx := context.Background()

	target, err := svc.Create(ctx, owner, CreateGitHubTargetInput{Name: "Site", RepoOwner: "acme", Repo: "site", PathPrefix: "assets", Token: "ghp_secret"})
	require.NoError(t, err)

	result, err := svc.Upload(ctx, owner, target.ID, GitHubUploadInput{
		Filename:  "../logo.png",
		Directory: "2026/10",
		Content:   pngHeader,
	})
	require.NoError(t, err)
	require.Equal(t, "assets/2026/10/logo.png", result.Path)
	require.Equal(t, "abc", result.SHA)
	require.Equal(t, "def", result.CommitSHA)
	require.Equal(t, "image/png", result.ContentType)
	require.Equal(t, len(pngHeader), result.Size)
	require.Equal(t, "https://cdn.jsdelivr.net/gh/acme/site@main/assets/2026/10/logo.png", result.CDNURL)

	_, err = svc.Upload(ctx, owner, target.ID, GitHubUploadInput{Filename: "logo.png", Directory: "2026/10", Content: pngHeader})
	requireAppError(t, err, apperrors.ErrConflict.Code)
}

func TestGitHubTargetUploadValidation(t *testing.T) {
	svc, owner := newGitHubFixture(t, "http://127.0.0.1:1")
	ctx := context.Background()

	target, err := svc.Create(ctx, owner, CreateGitHubTargetInput{Name: "Site", RepoOwner: "acme", Repo: "site", Token: "t"})
	require.NoError(t, err)

	_, err = svc.Upload(ctx, owner, target.ID, GitHubUploadInput{Filename: "a.txt"})
	requireAppError(t, err, apperrors.ErrBadRequest.Code)

	_, err = svc.Upload(ctx, owner, target.ID, GitHubUploadInput{Filename: " ", Content: []byte("x")})
	requireAppError(t, err, apperrors.ErrBadRequest.Code)

	_, err = svc.Upload(ctx, owner, "missing", GitHubUploadInput{Filename: "a.txt", Content: []byte("x")})
	requireAppError(t, err, apperrors.ErrNotFound.Code)

	_, err = svc.Upload(ctx, owner, target.ID, GitHubUploadInput{Filename: "a.txt", Content: []byte("x")})
	requireAppError(t, err, apperrors.ErrUpstream.Code)
}

func TestGitHubTargetVerify(t *testing.T) {
	var push atomic.Bool
	push.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/acme/site", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"full_name":   "acme/site",
			"permissions": map[string]bool{"push": push.Load()},
		})
	}))
	t.Cleanup(server.Close)

	svc, owner := newGitHubFixture(t, server.URL)
	ctx := context.Background()
	target, err := svc.Create(ctx, owner, CreateGitHubTargetInput{Name: "Site", RepoOwner: "acme", Repo: "site", Token: "t"})
	require.NoError(t, err)

	require.NoError(t, svc.Verify(ctx, owner, target.ID))

	push.Store(false)
	requireAppError(t, svc.Verify(ctx, owner, target.ID), apperrors.ErrBadRequest.Code)
}

func TestCleanRepoDir(t *testing.T) {
	require.Equal(t, "", cleanRepoDir(" / "))
	require.Equal(t, "a/b", cleanRepoDir(`\a\..\b/`))
	require.Equal(t, "img/2026", cleanRepoDir("./img//2026/."))
}
