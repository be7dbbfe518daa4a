package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/models"
	apperrors "github.com/charlesng35/omnikit/pkg/errors"
	"github.com/charlesng35/omnikit/pkg/logger"
)

const maxNoteTitleLength = 200

// NoteService manages CRUD operations for an owner's notes.
type NoteService struct {
	db    *gorm.DB
	audit *AuditService
	log   *zap.Logger
}

// NewNoteService constructs a note service once a database handle is supplied.
func NewNoteService(db *gorm.DB, audit *AuditService) (*NoteService, error) {
	if db == nil {
		return nil, errors.New("note service: db is required")
	}
	return &NoteService{db: db, audit: audit, log: logger.WithModule("notes")}, nil
}

// ListNotesOptions controls how notes are filtered.
type ListNotesOptions struct {
	// Query matches title or content, case-insensitively.
	Query      string
	PinnedOnly bool
}

// CreateNoteInput captures the fields of a new note.
type CreateNoteInput struct {
	Title   string
	Content string
	Pinned  bool
}

// UpdateNoteInput describes mutable note fields. A nil pointer indicates no change.
type UpdateNoteInput struct {
	Title   *string
	Content *string
	Pinned  *bool
}

// List returns the owner's notes, pinned first, most recently edited next.
func (s *NoteService) List(ctx context.Context, ownerID string, opts ListNotesOptions) ([]models.Note, error) {
	ctx = ensureContext(ctx)

	q := s.db.WithContext(ctx).Where("user_id = ?", ownerID)
	if term := strings.ToLower(strings.TrimSpace(opts.Query)); term != "" {
		like := "%" + escapeLike(term) + "%"
		q = q.Where("(LOWER(title) LIKE ? ESCAPE '!' OR LOWER(content) LIKE ? ESCAPE '!')", like, like)
	}
	if opts.PinnedOnly {
		q = q.Where("pinned = ?", true)
	}

	var notes []models.Note
	if err := q.Order("pinned DESC, updated_at DESC, id ASC").Find(&notes).Error; err != nil {
		return nil, operationFailed(s.log, "list notes", err, zap.String("owner", ownerID))
	}
	return notes, nil
}

// Get retrieves one of the owner's notes.
func (s *NoteService) Get(ctx context.Context, ownerID, id string) (*models.Note, error) {
	note, err := s.load(s.db.WithContext(ensureContext(ctx)), ownerID, id)
	if err != nil {
		return nil, operationFailed(s.log, "load note", err, zap.String("note", id))
	}
	return note, nil
}

// Create persists a new note.
func (s *NoteService) Create(ctx context.Context, ownerID string, input CreateNoteInput) (*models.Note, error) {
	ctx = ensureContext(ctx)

	note := models.Note{
		UserID:  strings.TrimSpace(ownerID),
		Title:   strings.TrimSpace(input.Title),
		Content: input.Content,
		Pinned:  input.Pinned,
	}

	err := func() error {
		if note.UserID == "" {
			return apperrors.ErrUnauthorized
		}
		if err := validateNoteTitle(note.Title); err != nil {
			return err
		}
		return s.db.WithContext(ctx).Create(&note).Error
	}()

	s.record(ctx, ownerID, "note.create", note.ID, err)
	if err != nil {
		return nil, operationFailed(s.log, "create note", err, zap.String("owner", ownerID))
	}
	return &note, nil
}

// Update applies the provided changes to an existing note.
func (s *NoteService) Update(ctx context.Context, ownerID, id string, input UpdateNoteInput) (*models.Note, error) {
	ctx = ensureContext(ctx)

	var note *models.Note
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if note, err = s.load(tx, ownerID, id); err != nil {
			return err
		}

		if input.Title != nil {
			note.Title = strings.TrimSpace(*input.Title)
			if err := validateNoteTitle(note.Title); err != nil {
				return err
			}
		}
		if input.Content != nil {
			note.Content = *input.Content
		}
		if input.Pinned != nil {
			note.Pinned = *input.Pinned
		}
		return tx.Save(note).Error
	})

	s.record(ctx, ownerID, "note.update", id, err)
	if err != nil {
		return nil, operationFailed(s.log, "update note", err, zap.String("note", id))
	}
	return note, nil
}

// Delete removes a note by identifier.
func (s *NoteService) Delete(ctx context.Context, ownerID, id string) error {
	ctx = ensureContext(ctx)

	err := func() error {
		if strings.TrimSpace(ownerID) == "" {
			return apperrors.ErrUnauthorized
		}
		result := s.db.WithContext(ctx).Delete(&models.Note{}, "id = ? AND user_id = ?", strings.TrimSpace(id), ownerID)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.NewNotFound("Note not found")
		}
		return nil
	}()

	s.record(ctx, ownerID, "note.delete", id, err)
	return operationFailed(s.log, "delete note", err, zap.String("note", id))
}

func (s *NoteService) load(db *gorm.DB, ownerID, id string) (*models.Note, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperrors.ErrUnauthorized
	}
	var note models.Note
	err := db.Where("id = ? AND user_id = ?", strings.TrimSpace(id), ownerID).Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("Note not found")
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (s *NoteService) record(ctx context.Context, ownerID, action, id string, err error) {
	resource := "note"
	if id != "" {
		resource += ":" + id
	}
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   trimmedPtr(&ownerID),
		Action:   action,
		Resource: resource,
		Result:   auditResult(err),
	})
}

func validateNoteTitle(title string) error {
	if title == "" {
		return apperrors.NewBadRequest("title is required")
	}
	if len([]rune(title)) > maxNoteTitleLength {
		return apperrors.NewBadRequest("title is too long")
	}
	return nil
}

func escapeLike(term string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(term)
}
