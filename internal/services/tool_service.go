package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/models"
	apperrors "github.com/charlesng35/omnikit/pkg/errors"
	"github.com/charlesng35/omnikit/pkg/logger"
)

// ToolService exposes the utility catalog.
type ToolService struct {
	db    *gorm.DB
	audit *AuditService
	menu  *MenuService
	log   *zap.Logger
}

// NewToolService constructs a ToolService. menu may be nil; when set its cached trees are
// dropped whenever a tool changes.
func NewToolService(db *gorm.DB, audit *AuditService, menu *MenuService) (*ToolService, error) {
	if db == nil {
		return nil, errors.New("tool service: db is required")
	}
	return &ToolService{db: db, audit: audit, menu: menu, log: logger.WithModule("tools")}, nil
}

// GetTools returns every tool ordered by category, then order, then name.
func (s *ToolService) GetTools(ctx context.Context) ([]models.Tool, error) {
	ctx = ensureContext(ctx)

	var tools []models.Tool
	if err := s.db.WithContext(ctx).
		Order("category ASC, sort_order ASC, name ASC").
		Find(&tools).Error; err != nil {
		return nil, operationFailed(s.log, "list tools", err)
	}
	return tools, nil
}

// GetTool loads a single tool.
func (s *ToolService) GetTool(ctx context.Context, id string) (*models.Tool, error) {
	ctx = ensureContext(ctx)

	var tool models.Tool
	err := s.db.WithContext(ctx).Take(&tool, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("Tool not found")
	}
	if err != nil {
		return nil, operationFailed(s.log, "load tool", err, zap.String("tool", id))
	}
	return &tool, nil
}

// SetToolActive toggles a tool's activation flag.
func (s *ToolService) SetToolActive(ctx context.Context, id string, active bool) (*models.Tool, error) {
	ctx = ensureContext(ctx)

	tool, err := s.GetTool(ctx, id)
	if err != nil {
		return nil, err
	}

	if tool.IsActive != active {
		if err := s.db.WithContext(ctx).Model(tool).Update("is_active", active).Error; err != nil {
			return nil, operationFailed(s.log, "update tool", err, zap.String("tool", id))
		}
		tool.IsActive = active
		if s.menu != nil {
			s.menu.InvalidateAll()
		}
	}

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "tool.set_active",
		Resource: fmt.Sprintf("tool:%s", tool.ID),
		Result:   AuditResultSuccess,
		Metadata: map[string]any{"component": tool.Component, "is_active": active},
	})
	return tool, nil
}
