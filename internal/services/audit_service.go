package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/auditctx"
	"github.com/charlesng35/omnikit/internal/models"
)

// Audit results.
const (
	AuditResultSuccess = "success"
	AuditResultFailure = "failure"
)

// AuditEntry captures a single audit event to persist.
type AuditEntry struct {
	UserID    *string
	Username  string
	Action    string
	Resource  string
	Result    string
	IPAddress string
	UserAgent string
	RequestID string
	Metadata  map[string]any
}

// AuditFilters encapsulates optional filters when querying audit logs. A Resource ending in
// "*" matches by prefix, so "menu_item:*" selects every menu item event.
type AuditFilters struct {
	UserID   string
	Action   string
	Result   string
	Resource string
	Since    *time.Time
	Until    *time.Time
}

// AuditListOptions controls pagination and filtering for audit queries.
type AuditListOptions struct {
	Page     int
	PageSize int
	Filters  AuditFilters
}

// AuditService persists and retrieves audit log entries.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService constructs an AuditService using the provided database handle.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db}, nil
}

// Log stores an audit entry. Missing actor fields are filled from the request context.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	ctx = ensureContext(ctx)

	if actor, ok := auditctx.FromContext(ctx); ok {
		entry.inherit(actor)
	}
	row, err := entry.row()
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// inherit copies actor details into fields the caller left empty.
func (e *AuditEntry) inherit(actor auditctx.Actor) {
	if e.UserID == nil && actor.UserID != "" {
		e.UserID = stringPtr(actor.UserID)
	}
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&e.Username, actor.Username)
	fill(&e.IPAddress, actor.IPAddress)
	fill(&e.UserAgent, actor.UserAgent)
	fill(&e.RequestID, actor.RequestID)
}

func (e AuditEntry) row() (models.AuditLog, error) {
	row := models.AuditLog{
		UserID:    trimmedPtr(e.UserID),
		Action:    strings.TrimSpace(e.Action),
		Resource:  strings.TrimSpace(e.Resource),
		Result:    strings.TrimSpace(e.Result),
		Username:  strings.TrimSpace(e.Username),
		IPAddress: strings.TrimSpace(e.IPAddress),
		UserAgent: strings.TrimSpace(e.UserAgent),
		RequestID: strings.TrimSpace(e.RequestID),
	}
	switch {
	case row.Action == "":
		return row, errors.New("audit service: action is required")
	case row.Result == "":
		return row, errors.New("audit service: result is required")
	}
	if e.Metadata != nil {
		encoded, err := json.Marshal(e.Metadata)
		if err != nil {
			return row, fmt.Errorf("audit service: marshal metadata: %w", err)
		}
		row.Metadata = datatypes.JSON(encoded)
	}
	return row, nil
}

// List returns paginated audit logs ordered by creation time descending.
func (s *AuditService) List(ctx context.Context, opts AuditListOptions) ([]models.AuditLog, int64, error) {
	ctx = ensureContext(ctx)

	page, perPage := NormalisePage(opts.Page, opts.PageSize)

	query := opts.Filters.apply(s.db.WithContext(ctx).Model(&models.AuditLog{}))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: count logs: %w", err)
	}

	var results []models.AuditLog
	if err := query.
		Order("created_at DESC, id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&results).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: list logs: %w", err)
	}

	return results, total, nil
}

// CleanupOlderThan removes audit logs older than the supplied retention window.
func (s *AuditService) CleanupOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	ctx = ensureContext(ctx)

	if retention <= 0 {
		return 0, errors.New("audit service: retention must be positive")
	}

	result := s.db.WithContext(ctx).
		Where("created_at < ?", time.Now().Add(-retention)).
		Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit service: cleanup logs: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (filters AuditFilters) apply(query *gorm.DB) *gorm.DB {
	for column, value := range map[string]string{
		"user_id": filters.UserID,
		"action":  filters.Action,
		"result":  filters.Result,
	} {
		if value != "" {
			query = query.Where(column+" = ?", value)
		}
	}
	if prefix, ok := strings.CutSuffix(filters.Resource, "*"); ok {
		query = query.Where("resource LIKE ? ESCAPE '!'", escapeLike(prefix)+"%")
	} else if filters.Resource != "" {
		query = query.Where("resource = ?", filters.Resource)
	}
	if filters.Since != nil {
		query = query.Where("created_at >= ?", *filters.Since)
	}
	if filters.Until != nil {
		query = query.Where("created_at <= ?", *filters.Until)
	}
	return query
}
