package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/models"
	apperrors "github.com/charlesng35/omnikit/pkg/errors"
	"github.com/charlesng35/omnikit/pkg/logger"
	"github.com/charlesng35/omnikit/pkg/metrics"
)

const defaultFolderIcon = "folder"

// MoveDirection selects the neighbour a menu item swaps places with.
type MoveDirection string

const (
	MoveUp   MoveDirection = "up"
	MoveDown MoveDirection = "down"
)

// DeletePolicy decides what happens to the children of a deleted menu item.
type DeletePolicy string

const (
	// DeletePromote re-parents children onto the deleted item's parent.
	DeletePromote DeletePolicy = "promote"
	// DeleteCascade removes the whole subtree.
	DeleteCascade DeletePolicy = "cascade"
	// DeleteReject refuses to delete an item that still has children.
	DeleteReject DeletePolicy = "reject"
)

// ParseMoveDirection validates a client supplied direction.
func ParseMoveDirection(value string) (MoveDirection, error) {
	switch MoveDirection(strings.ToLower(strings.TrimSpace(value))) {
	case MoveUp:
		return MoveUp, nil
	case MoveDown:
		return MoveDown, nil
	default:
		return "", apperrors.NewBadRequest("direction must be \"up\" or \"down\"")
	}
}

// ParseDeletePolicy validates a client supplied child policy. Empty selects DeletePromote.
func ParseDeletePolicy(value string) (DeletePolicy, error) {
	switch DeletePolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", DeletePromote:
		return DeletePromote, nil
	case DeleteCascade:
		return DeleteCascade, nil
	case DeleteReject:
		return DeleteReject, nil
	default:
		return "", apperrors.NewBadRequest("on_children must be one of promote, cascade, reject")
	}
}

// MenuConfig tunes caching and order assignment retries.
type MenuConfig struct {
	CacheTTL      time.Duration
	CacheCleanup  time.Duration
	OrderRetries  int
	RetryInterval time.Duration
}

// MenuNode is a menu item with its resolved tool and ordered children.
type MenuNode struct {
	ID        string       `json:"id"`
	ParentID  *string      `json:"parent_id"`
	Label     *string      `json:"label"`
	LabelEn   *string      `json:"label_en"`
	Icon      *string      `json:"icon"`
	IsFolder  bool         `json:"is_folder"`
	ToolID    *string      `json:"tool_id"`
	Tool      *models.Tool `json:"tool,omitempty"`
	Order     int          `json:"order"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Children  []MenuNode   `json:"children"`
}

// CreateFolderInput describes a new folder.
type CreateFolderInput struct {
	Name     string
	NameEn   *string
	Icon     *string
	ParentID *string
}

// UpdateMenuItemInput patches a menu item. Nil fields are left untouched; a blank value
// clears an optional field.
type UpdateMenuItemInput struct {
	Label   *string
	LabelEn *string
	Icon    *string
}

// MenuService owns the per-owner navigation tree.
type MenuService struct {
	db    *gorm.DB
	audit *AuditService
	cfg   MenuConfig
	log   *zap.Logger

	trees *gocache.Cache

	genMu       sync.Mutex
	epoch       uint64
	generations map[string]uint64
}

// treeVersion identifies the cache state a tree was read under. epoch moves on InvalidateAll,
// owner moves on every mutation of that owner's menu.
type treeVersion struct {
	epoch uint64
	owner uint64
}

// NewMenuService constructs a MenuService.
func NewMenuService(db *gorm.DB, audit *AuditService, cfg MenuConfig) (*MenuService, error) {
	if db == nil {
		return nil, errors.New("menu service: db is required")
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.CacheCleanup <= 0 {
		cfg.CacheCleanup = 30 * time.Minute
	}
	if cfg.OrderRetries <= 0 {
		cfg.OrderRetries = 5
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 20 * time.Millisecond
	}

	return &MenuService{
		db:          db,
		audit:       audit,
		cfg:         cfg,
		log:         logger.WithModule("menu"),
		trees:       gocache.New(cfg.CacheTTL, cfg.CacheCleanup),
		generations: make(map[string]uint64),
	}, nil
}

// GetMenuItems returns the owner's menu forest ordered by sort order at every level.
// Leaves whose tool no longer resolves are left out.
func (s *MenuService) GetMenuItems(ctx context.Context, ownerID string) ([]MenuNode, error) {
	ctx = ensureContext(ctx)
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	if cached, ok := s.trees.Get(ownerID); ok {
		metrics.MenuTreeCache.WithLabelValues("hit").Inc()
		return cloneMenuNodes(cached.([]MenuNode)), nil
	}
	metrics.MenuTreeCache.WithLabelValues("miss").Inc()

	version := s.version(ownerID)

	var items []models.MenuItem
	if err := s.db.WithContext(ctx).
		Preload("Tool").
		Where("user_id = ?", ownerID).
		Order("sort_order ASC, created_at ASC, id ASC").
		Find(&items).Error; err != nil {
		return nil, operationFailed(s.log, "load menu", err, zap.String("owner", ownerID))
	}

	tree := buildMenuTree(items)
	s.storeTree(ownerID, version, tree)

	return cloneMenuNodes(tree), nil
}

// AddToolToMenu appends a leaf bound to toolID under parentID (root when nil).
func (s *MenuService) AddToolToMenu(ctx context.Context, ownerID, toolID string, parentID *string) (*models.MenuItem, error) {
	ctx = ensureContext(ctx)
	parentID = trimmedPtr(parentID)

	item, err := s.addToolToMenu(ctx, ownerID, toolID, parentID)
	s.finish(ctx, ownerID, "add_tool", item, err, map[string]any{
		"tool_id":   strings.TrimSpace(toolID),
		"parent_id": parentID,
	})
	if err != nil {
		return nil, operationFailed(s.log, "add tool to menu", err, zap.String("owner", ownerID))
	}
	return item, nil
}

func (s *MenuService) addToolToMenu(ctx context.Context, ownerID, toolID string, parentID *string) (*models.MenuItem, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperrors.ErrUnauthorized
	}
	toolID = strings.TrimSpace(toolID)
	if toolID == "" {
		return nil, apperrors.NewBadRequest("tool id is required")
	}

	var tool models.Tool
	if err := s.db.WithContext(ctx).Select("id").Take(&tool, "id = ?", toolID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Tool not found")
		}
		return nil, fmt.Errorf("menu service: load tool: %w", err)
	}

	item := &models.MenuItem{
		UserID:   ownerID,
		ParentID: parentID,
		IsFolder: false,
		ToolID:   stringPtr(tool.ID),
	}
	if err := s.appendItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// CreateFolder appends a folder under input.ParentID (root when nil).
func (s *MenuService) CreateFolder(ctx context.Context, ownerID string, input CreateFolderInput) (*models.MenuItem, error) {
	ctx = ensureContext(ctx)
	input.ParentID = trimmedPtr(input.ParentID)

	item, err := s.createFolder(ctx, ownerID, input)
	s.finish(ctx, ownerID, "create_folder", item, err, map[string]any{
		"name":      strings.TrimSpace(input.Name),
		"parent_id": input.ParentID,
	})
	if err != nil {
		return nil, operationFailed(s.log, "create folder", err, zap.String("owner", ownerID))
	}
	return item, nil
}

func (s *MenuService) createFolder(ctx context.Context, ownerID string, input CreateFolderInput) (*models.MenuItem, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperrors.ErrUnauthorized
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("folder name is required")
	}

	icon := trimmedPtr(input.Icon)
	if icon == nil {
		icon = stringPtr(defaultFolderIcon)
	}

	item := &models.MenuItem{
		UserID:   ownerID,
		ParentID: input.ParentID,
		Label:    stringPtr(name),
		LabelEn:  trimmedPtr(input.NameEn),
		Icon:     icon,
		IsFolder: true,
	}
	if err := s.appendItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateMenuItem patches the label, English label and icon of an item.
func (s *MenuService) UpdateMenuItem(ctx context.Context, ownerID, itemID string, input UpdateMenuItemInput) (*models.MenuItem, error) {
	ctx = ensureContext(ctx)

	item, err := s.updateMenuItem(ctx, ownerID, itemID, input)
	s.finish(ctx, ownerID, "update", item, err, map[string]any{"item_id": itemID})
	if err != nil {
		return nil, operationFailed(s.log, "update menu item", err, zap.String("owner", ownerID), zap.String("item", itemID))
	}
	return item, nil
}

func (s *MenuService) updateMenuItem(ctx context.Context, ownerID, itemID string, input UpdateMenuItemInput) (*models.MenuItem, error) {
	db := s.db.WithContext(ctx)

	item, err := loadMenuItem(db, ownerID, itemID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Label != nil {
		label := trimmedPtr(input.Label)
		if label == nil && item.IsFolder {
			return nil, apperrors.NewBadRequest("folder name is required")
		}
		updates["label"] = label
	}
	if input.LabelEn != nil {
		updates["label_en"] = trimmedPtr(input.LabelEn)
	}
	if input.Icon != nil {
		updates["icon"] = trimmedPtr(input.Icon)
	}

	if len(updates) == 0 {
		return item, nil
	}

	if err := db.Model(item).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("menu service: update item: %w", err)
	}
	return loadMenuItem(db, ownerID, item.ID)
}

// DeleteMenuItem removes an item, handling its children according to policy.
func (s *MenuService) DeleteMenuItem(ctx context.Context, ownerID, itemID string, policy DeletePolicy) error {
	ctx = ensureContext(ctx)

	var removed int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		removed, err = deleteMenuItem(tx, ownerID, itemID, policy)
		return err
	})
	s.finish(ctx, ownerID, "delete", &models.MenuItem{BaseModel: models.BaseModel{ID: itemID}}, err, map[string]any{
		"policy":  string(policy),
		"removed": removed,
	})
	return operationFailed(s.log, "delete menu item", err, zap.String("owner", ownerID), zap.String("item", itemID))
}

func deleteMenuItem(tx *gorm.DB, ownerID, itemID string, policy DeletePolicy) (int, error) {
	switch policy {
	case "":
		policy = DeletePromote
	case DeletePromote, DeleteCascade, DeleteReject:
	default:
		return 0, apperrors.NewBadRequest("on_children must be one of promote, cascade, reject")
	}

	item, err := loadMenuItem(tx, ownerID, itemID)
	if err != nil {
		return 0, err
	}

	children, err := loadSiblings(tx, ownerID, &item.ID)
	if err != nil {
		return 0, err
	}

	switch {
	case len(children) == 0:
	case policy == DeleteReject:
		return 0, apperrors.NewConflict("Menu item still has children")
	case policy == DeleteCascade:
		return deleteSubtree(tx, ownerID, item.ID)
	case policy == DeletePromote:
		next, err := nextSiblingOrder(tx, ownerID, item.ParentID)
		if err != nil {
			return 0, err
		}
		for i, child := range children {
			if err := tx.Model(&models.MenuItem{}).
				Where("id = ? AND user_id = ?", child.ID, ownerID).
				Updates(map[string]any{
					"parent_id":  item.ParentID,
					"parent_key": models.ParentKey(item.ParentID),
					"sort_order": next + i,
				}).Error; err != nil {
				return 0, fmt.Errorf("menu service: promote child: %w", err)
			}
		}
	}

	if err := tx.Delete(&models.MenuItem{}, "id = ? AND user_id = ?", item.ID, ownerID).Error; err != nil {
		return 0, fmt.Errorf("menu service: delete item: %w", err)
	}
	return 1, nil
}

// deleteSubtree removes rootID and every descendant, deepest level first so parent
// references never dangle between statements.
func deleteSubtree(tx *gorm.DB, ownerID, rootID string) (int, error) {
	levels := [][]string{{rootID}}
	for frontier := levels[0]; len(frontier) > 0; {
		var next []string
		if err := tx.Model(&models.MenuItem{}).
			Where("user_id = ? AND parent_id IN ?", ownerID, frontier).
			Pluck("id", &next).Error; err != nil {
			return 0, fmt.Errorf("menu service: collect subtree: %w", err)
		}
		if len(next) > 0 {
			levels = append(levels, next)
		}
		frontier = next
	}

	removed := 0
	for i := len(levels) - 1; i >= 0; i-- {
		result := tx.Where("user_id = ? AND id IN ?", ownerID, levels[i]).Delete(&models.MenuItem{})
		if result.Error != nil {
			return 0, fmt.Errorf("menu service: delete subtree: %w", result.Error)
		}
		removed += int(result.RowsAffected)
	}
	return removed, nil
}

// MoveMenuItem swaps an item's order with its nearest sibling in direction. Moving past
// either end is a successful no-op.
func (s *MenuService) MoveMenuItem(ctx context.Context, ownerID, itemID string, direction MoveDirection) error {
	ctx = ensureContext(ctx)

	err := s.retryOnConflict(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return moveMenuItem(tx, ownerID, itemID, direction)
		})
	})
	s.finish(ctx, ownerID, "move", &models.MenuItem{BaseModel: models.BaseModel{ID: itemID}}, err, map[string]any{
		"direction": string(direction),
	})
	return operationFailed(s.log, "move menu item", err, zap.String("owner", ownerID), zap.String("item", itemID))
}

func moveMenuItem(tx *gorm.DB, ownerID, itemID string, direction MoveDirection) error {
	var (
		cmp   string
		order string
	)
	switch direction {
	case MoveUp:
		cmp, order = "<", "sort_order DESC"
	case MoveDown:
		cmp, order = ">", "sort_order ASC"
	default:
		return apperrors.NewBadRequest("direction must be \"up\" or \"down\"")
	}

	item, err := loadMenuItem(tx, ownerID, itemID)
	if err != nil {
		return err
	}

	var neighbour models.MenuItem
	err = tx.Where("user_id = ? AND parent_key = ? AND sort_order "+cmp+" ?", ownerID, item.ParentKey, item.Order).
		Order(order).
		Take(&neighbour).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("menu service: load neighbour: %w", err)
	}

	parking, err := parkingOrder(tx, ownerID, item.ParentKey)
	if err != nil {
		return err
	}

	steps := []struct {
		id    string
		order int
	}{
		{item.ID, parking},
		{neighbour.ID, item.Order},
		{item.ID, neighbour.Order},
	}
	for _, step := range steps {
		if err := setSortOrder(tx, ownerID, step.id, step.order); err != nil {
			return err
		}
	}
	return nil
}

// CompactMenuOrder renumbers a sibling group to 0..n-1 keeping relative order and returns
// how many items changed position value.
func (s *MenuService) CompactMenuOrder(ctx context.Context, ownerID string, parentID *string) (int, error) {
	ctx = ensureContext(ctx)
	parentID = trimmedPtr(parentID)

	var changed int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		changed, err = compactSiblings(tx, ownerID, parentID)
		return err
	})
	s.finish(ctx, ownerID, "compact", nil, err, map[string]any{
		"parent_id": parentID,
		"changed":   changed,
	})
	if err != nil {
		return 0, operationFailed(s.log, "compact menu order", err, zap.String("owner", ownerID))
	}
	return changed, nil
}

func compactSiblings(tx *gorm.DB, ownerID string, parentID *string) (int, error) {
	if parentID != nil {
		if _, err := loadMenuItem(tx, ownerID, *parentID); err != nil {
			return 0, err
		}
	}

	siblings, err := loadSiblings(tx, ownerID, parentID)
	if err != nil {
		return 0, err
	}

	var moved []models.MenuItem
	for i, sibling := range siblings {
		if sibling.Order != i {
			moved = append(moved, sibling)
		}
	}
	if len(moved) == 0 {
		return 0, nil
	}

	// Park every moving item on a negative value first so no final value collides
	// with an order still held by another sibling.
	for i, sibling := range moved {
		if err := setSortOrder(tx, ownerID, sibling.ID, -(i + 1)); err != nil {
			return 0, err
		}
	}
	for i, sibling := range siblings {
		if sibling.Order == i {
			continue
		}
		if err := setSortOrder(tx, ownerID, sibling.ID, i); err != nil {
			return 0, err
		}
	}
	return len(moved), nil
}

// InvalidateAll drops every cached tree, used when shared tool data changes. Trees still
// being loaded when it runs are not cached.
func (s *MenuService) InvalidateAll() {
	s.genMu.Lock()
	s.epoch++
	s.genMu.Unlock()
	s.trees.Flush()
}

// InvalidateOwner drops the cached tree of one owner, e.g. after their rows were removed
// outside this service.
func (s *MenuService) InvalidateOwner(ownerID string) {
	s.invalidate(strings.TrimSpace(ownerID))
}

func (s *MenuService) invalidate(ownerID string) {
	s.genMu.Lock()
	s.generations[ownerID]++
	s.genMu.Unlock()
	s.trees.Delete(ownerID)
}

func (s *MenuService) version(ownerID string) treeVersion {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return treeVersion{epoch: s.epoch, owner: s.generations[ownerID]}
}

// storeTree caches tree unless any invalidation happened after it was read.
func (s *MenuService) storeTree(ownerID string, version treeVersion, tree []MenuNode) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.epoch != version.epoch || s.generations[ownerID] != version.owner {
		return
	}
	s.trees.SetDefault(ownerID, tree)
}

// appendItem inserts item at the end of its sibling group. Concurrent appends to the same
// group collide on the sibling order index and are retried with a fresh order.
func (s *MenuService) appendItem(ctx context.Context, item *models.MenuItem) error {
	return s.retryOnConflict(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if item.ParentID != nil {
				if _, err := loadMenuItem(tx, item.UserID, *item.ParentID); err != nil {
					if apperrors.HasCode(err, apperrors.ErrNotFound.Code) {
						return apperrors.NewNotFound("Parent menu item not found")
					}
					return err
				}
			}

			next, err := nextSiblingOrder(tx, item.UserID, item.ParentID)
			if err != nil {
				return err
			}
			item.Order = next

			return tx.Create(item).Error
		})
	})
}

func (s *MenuService) retryOnConflict(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.RetryInterval
	policy.MaxInterval = 10 * s.cfg.RetryInterval
	policy.MaxElapsedTime = 0

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) || !isUniqueConstraintError(err) {
			return backoff.Permanent(err)
		}
		s.log.Debug("sibling order conflict, retrying", zap.Int("attempt", attempt))
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.cfg.OrderRetries)), ctx))
}

// finish records metrics and audit for a mutation and invalidates the owner's tree on success.
func (s *MenuService) finish(ctx context.Context, ownerID, op string, item *models.MenuItem, err error, meta map[string]any) {
	result := auditResult(err)
	metrics.MenuMutations.WithLabelValues(op, result).Inc()

	if err == nil {
		s.invalidate(ownerID)
	}

	resource := "menu"
	if item != nil && item.ID != "" {
		resource = "menu_item:" + item.ID
	}
	if err != nil {
		meta["error"] = apperrors.FromError(err).Code
	}

	var userID *string
	if strings.TrimSpace(ownerID) != "" {
		userID = stringPtr(ownerID)
	}
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   userID,
		Action:   "menu." + op,
		Resource: resource,
		Result:   result,
		Metadata: meta,
	})
}

func loadMenuItem(db *gorm.DB, ownerID, itemID string) (*models.MenuItem, error) {
	itemID = strings.TrimSpace(itemID)
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperrors.ErrUnauthorized
	}
	if itemID == "" {
		return nil, apperrors.NewNotFound("Menu item not found")
	}

	var item models.MenuItem
	err := db.Where("id = ? AND user_id = ?", itemID, ownerID).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("Menu item not found")
	}
	if err != nil {
		return nil, fmt.Errorf("menu service: load item: %w", err)
	}
	return &item, nil
}

func loadSiblings(db *gorm.DB, ownerID string, parentID *string) ([]models.MenuItem, error) {
	var siblings []models.MenuItem
	if err := db.Where("user_id = ? AND parent_key = ?", ownerID, models.ParentKey(parentID)).
		Order("sort_order ASC, created_at ASC, id ASC").
		Find(&siblings).Error; err != nil {
		return nil, fmt.Errorf("menu service: load siblings: %w", err)
	}
	return siblings, nil
}

// nextSiblingOrder returns max(order)+1 for the group, or 0 when it is empty.
func nextSiblingOrder(db *gorm.DB, ownerID string, parentID *string) (int, error) {
	var maxOrder int
	if err := db.Model(&models.MenuItem{}).
		Where("user_id = ? AND parent_key = ?", ownerID, models.ParentKey(parentID)).
		Select("COALESCE(MAX(sort_order), -1)").
		Scan(&maxOrder).Error; err != nil {
		return 0, fmt.Errorf("menu service: next order: %w", err)
	}
	if maxOrder < 0 {
		return 0, nil
	}
	return maxOrder + 1, nil
}

// parkingOrder returns an order value no sibling in the group currently holds.
func parkingOrder(db *gorm.DB, ownerID, parentKey string) (int, error) {
	var minOrder int
	if err := db.Model(&models.MenuItem{}).
		Where("user_id = ? AND parent_key = ?", ownerID, parentKey).
		Select("COALESCE(MIN(sort_order), 0)").
		Scan(&minOrder).Error; err != nil {
		return 0, fmt.Errorf("menu service: parking order: %w", err)
	}
	if minOrder > 0 {
		return -1, nil
	}
	return minOrder - 1, nil
}

func setSortOrder(db *gorm.DB, ownerID, itemID string, order int) error {
	if err := db.Model(&models.MenuItem{}).
		Where("id = ? AND user_id = ?", itemID, ownerID).
		Update("sort_order", order).Error; err != nil {
		return fmt.Errorf("menu service: set order: %w", err)
	}
	return nil
}

// buildMenuTree assembles items (already sorted) into a forest of arbitrary depth.
func buildMenuTree(items []models.MenuItem) []MenuNode {
	byParent := make(map[string][]models.MenuItem, len(items))
	for _, item := range items {
		byParent[item.ParentKey] = append(byParent[item.ParentKey], item)
	}

	visited := make(map[string]struct{}, len(items))
	var build func(parentKey string) []MenuNode
	build = func(parentKey string) []MenuNode {
		group := byParent[parentKey]
		nodes := make([]MenuNode, 0, len(group))
		for _, item := range group {
			if _, seen := visited[item.ID]; seen {
				continue
			}
			visited[item.ID] = struct{}{}

			if !item.IsFolder && item.Tool == nil {
				continue
			}

			node := MenuNode{
				ID:        item.ID,
				ParentID:  item.ParentID,
				Label:     item.Label,
				LabelEn:   item.LabelEn,
				Icon:      item.Icon,
				IsFolder:  item.IsFolder,
				ToolID:    item.ToolID,
				Tool:      item.Tool,
				Order:     item.Order,
				CreatedAt: item.CreatedAt,
				UpdatedAt: item.UpdatedAt,
			}
			node.Children = build(item.ID)
			nodes = append(nodes, node)
		}
		return nodes
	}

	return build("")
}

func cloneMenuNodes(nodes []MenuNode) []MenuNode {
	if nodes == nil {
		return nil
	}
	out := make([]MenuNode, len(nodes))
	for i, node := range nodes {
		cpy := node
		if node.Tool != nil {
			tool := *node.Tool
			cpy.Tool = &tool
		}
		cpy.Children = cloneMenuNodes(node.Children)
		out[i] = cpy
	}
	return out
}
