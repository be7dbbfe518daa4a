package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/omnikit/internal/handlers/testutil"
)

type noteView struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Pinned  bool   `json:"pinned"`
}

func TestNoteHandler_CRUD(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.LoginAs(false)

	groceries := testutil.DecodeData[noteView](t, env.Request(http.MethodPost, "/api/notes", map[string]any{
		"title":   "  Groceries ",
		"content": "milk, eggs",
	}, token), http.StatusCreated)
	require.Equal(t, "Groceries", groceries.Title)
	require.False(t, groceries.Pinned)

	todo := testutil.DecodeData[noteView](t, env.Request(http.MethodPost, "/api/notes", map[string]any{
		"title":  "Release checklist",
		"pinned": true,
	}, token), http.StatusCreated)

	list := testutil.DecodeData[[]noteView](t, env.Request(http.MethodGet, "/api/notes", nil, token), http.StatusOK)
	require.Len(t, list, 2)
	require.Equal(t, todo.ID, list[0].ID, "pinned notes come first")

	found := testutil.DecodeData[[]noteView](t, env.Request(http.MethodGet, "/api/notes?q=EGGS", nil, token), http.StatusOK)
	require.Len(t, found, 1)
	require.Equal(t, groceries.ID, found[0].ID)

	pinned := testutil.DecodeData[[]noteView](t, env.Request(http.MethodGet, "/api/notes?pinned=true", nil, token), http.StatusOK)
	require.Len(t, pinned, 1)
	require.Equal(t, todo.ID, pinned[0].ID)

	updated := testutil.DecodeData[noteView](t, env.Request(http.MethodPatch, "/api/notes/"+groceries.ID, map[string]any{
		"content": "milk, eggs, bread",
		"pinned":  true,
	}, token), http.StatusOK)
	require.Equal(t, "Groceries", updated.Title)
	require.Equal(t, "milk, eggs, bread", updated.Content)
	require.True(t, updated.Pinned)

	fetched := testutil.DecodeData[noteView](t, env.Request(http.MethodGet, "/api/notes/"+groceries.ID, nil, token), http.StatusOK)
	require.Equal(t, updated, fetched)

	w := env.Request(http.MethodPatch, "/api/notes/"+groceries.ID, map[string]any{"title": "   "}, token)
	testutil.RequireError(t, w, http.StatusBadRequest, "BAD_REQUEST")

	w = env.Request(http.MethodDelete, "/api/notes/"+todo.ID, nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/notes/"+todo.ID, nil, token)
	testutil.RequireError(t, w, http.StatusNotFound, "NOT_FOUND")
}

func TestNoteHandler_Validation(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.LoginAs(false)

	w := env.Request(http.MethodPost, "/api/notes", map[string]any{"content": "untitled"}, token)
	testutil.RequireError(t, w, http.StatusBadRequest, "BAD_REQUEST")

	w = env.Request(http.MethodPost, "/api/notes", map[string]any{"title": ""}, "")
	testutil.RequireError(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestNoteHandler_OwnerIsolation(t *testing.T) {
	env := testutil.NewEnv(t)
	_, token := env.LoginAs(false)
	_, otherToken := env.LoginAs(false)

	note := testutil.DecodeData[noteView](t, env.Request(http.MethodPost, "/api/notes", map[string]any{
		"title": "Private",
	}, token), http.StatusCreated)

	w := env.Request(http.MethodGet, "/api/notes/"+note.ID, nil, otherToken)
	testutil.RequireError(t, w, http.StatusNotFound, "NOT_FOUND")

	w = env.Request(http.MethodDelete, "/api/notes/"+note.ID, nil, otherToken)
	testutil.RequireError(t, w, http.StatusNotFound, "NOT_FOUND")

	others := testutil.DecodeData[[]noteView](t, env.Request(http.MethodGet, "/api/notes", nil, otherToken), http.StatusOK)
	require.Empty(t, others)
}
