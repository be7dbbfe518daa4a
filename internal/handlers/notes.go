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

// NoteHandler serves the caller's notes.
type NoteHandler struct {
	svc *services.NoteService
}

func NewNoteHandler(svc *services.NoteService) (*NoteHandler, error) {
	if svc == nil {
		return nil, errors.New("note handler: service is required")
	}
	return &NoteHandler{svc: svc}, nil
}

type createNoteRequest struct {
	Title   string `json:"title" validate:"required,notblank"`
	Content string `json:"content"`
	Pinned  bool   `json:"pinned"`
}

type updateNoteRequest struct {
	Title   *string `json:"title" validate:"omitempty,notblank"`
	Content *string `json:"content"`
	Pinned  *bool   `json:"pinned"`
}

// GET /api/notes?q=&pinned=
func (h *NoteHandler) List(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	pinned, _ := strconv.ParseBool(strings.TrimSpace(c.Query("pinned")))

	notes, err := h.svc.List(requestContext(c), owner, services.ListNotesOptions{
		Query:      c.Query("q"),
		PinnedOnly: pinned,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, notes)
}

// GET /api/notes/:id
func (h *NoteHandler) Get(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "note")
	if !ok {
		return
	}
	note, err := h.svc.Get(requestContext(c), owner, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, note)
}

// POST /api/notes
func (h *NoteHandler) Create(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	var req createNoteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	note, err := h.svc.Create(requestContext(c), owner, services.CreateNoteInput{
		Title:   req.Title,
		Content: req.Content,
		Pinned:  req.Pinned,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, note)
}

// PATCH /api/notes/:id
func (h *NoteHandler) Update(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "note")
	if !ok {
		return
	}
	var req updateNoteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	note, err := h.svc.Update(requestContext(c), owner, id, services.UpdateNoteInput{
		Title:   req.Title,
		Content: req.Content,
		Pinned:  req.Pinned,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, note)
}

// DELETE /api/notes/:id
func (h *NoteHandler) Delete(c *gin.Context) {
	owner, ok := ownerID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "note")
	if !ok {
		return
	}
	if err := h.svc.Delete(requestContext(c), owner, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Ack(c)
}
