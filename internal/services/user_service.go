package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/models"
	"github.com/charlesng35/omnikit/pkg/crypto"
	apperrors "github.com/charlesng35/omnikit/pkg/errors"
	"github.com/charlesng35/omnikit/pkg/logger"
)

const minPasswordLength = 8

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.NewNotFound("User not found")
	// ErrLastRootUser protects the installation from losing its final active operator.
	ErrLastRootUser = apperrors.New("USER_LAST_ROOT", "The last active root user cannot be removed or demoted", http.StatusConflict)
	// ErrSelfModification blocks operators from locking themselves out.
	ErrSelfModification = apperrors.NewBadRequest("You cannot deactivate or delete your own account")
	// ErrCurrentPassword is returned when a password change presents the wrong current password.
	ErrCurrentPassword = apperrors.NewBadRequest("Current password is incorrect")
)

// SessionRevoker ends every session belonging to a user.
type SessionRevoker interface {
	RevokeUserSessions(ctx context.Context, userID string) error
}

// CreateUserInput describes the fields accepted when creating a user.
type CreateUserInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	IsRoot      bool
}

// UpdateUserInput enumerates mutable user attributes. A nil pointer indicates no change.
type UpdateUserInput struct {
	Email       *string
	DisplayName *string
	IsRoot      *bool
	IsActive    *bool
}

// ListUsersOptions controls filtering and pagination for user listing.
type ListUsersOptions struct {
	Page     int
	PageSize int
	Query    string
	IsActive *bool
}

// UserService manages operator accounts. Owned data is removed with the account.
type UserService struct {
	db       *gorm.DB
	audit    *AuditService
	sessions SessionRevoker
	menu     *MenuService
	log      *zap.Logger
}

// NewUserService constructs a UserService. sessions may be nil, in which case deactivation
// leaves existing sessions to expire. menu may be nil; when set the cached tree of a deleted
// user is dropped.
func NewUserService(db *gorm.DB, audit *AuditService, sessions SessionRevoker, menu *MenuService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db, audit: audit, sessions: sessions, menu: menu, log: logger.WithModule("users")}, nil
}

// List retrieves users matching the supplied filters, newest first.
func (s *UserService) List(ctx context.Context, opts ListUsersOptions) ([]models.User, int64, error) {
	ctx = ensureContext(ctx)

	page, perPage := NormalisePage(opts.Page, opts.PageSize)

	query := s.db.WithContext(ctx).Model(&models.User{})
	if opts.IsActive != nil {
		query = query.Where("is_active = ?", *opts.IsActive)
	}
	if q := strings.ToLower(strings.TrimSpace(opts.Query)); q != "" {
		like := "%" + escapeLike(q) + "%"
		query = query.Where("(LOWER(username) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!')", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, operationFailed(s.log, "count users", err)
	}

	var users []models.User
	if err := query.
		Order("created_at DESC, id ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&users).Error; err != nil {
		return nil, 0, operationFailed(s.log, "list users", err)
	}
	return users, total, nil
}

// GetByID loads a user by identifier.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.load(s.db.WithContext(ensureContext(ctx)), id)
	if err != nil {
		return nil, operationFailed(s.log, "load user", err, zap.String("user", id))
	}
	return user, nil
}

// Create provisions a new local user with a hashed password.
func (s *UserService) Create(ctx context.Context, actorID string, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	user := models.User{
		Username:    strings.TrimSpace(input.Username),
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		DisplayName: strings.TrimSpace(input.DisplayName),
		IsRoot:      input.IsRoot,
		IsActive:    true,
	}

	err := func() error {
		if user.Username == "" {
			return apperrors.NewBadRequest("username is required")
		}
		if user.Email == "" {
			return apperrors.NewBadRequest("email is required")
		}
		if err := validatePassword(input.Password); err != nil {
			return err
		}
		hashed, err := crypto.HashPassword(input.Password)
		if err != nil {
			return err
		}
		user.Password = hashed
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.NewConflict("username or email already exists")
			}
			return err
		}
		return nil
	}()

	s.record(ctx, actorID, "user.create", user.ID, err, map[string]any{"username": user.Username, "is_root": user.IsRoot})
	if err != nil {
		return nil, operationFailed(s.log, "create user", err, zap.String("username", user.Username))
	}
	return &user, nil
}

// Update applies administrative changes. Demoting or deactivating the last active root
// user is refused, as is deactivating one's own account.
func (s *UserService) Update(ctx context.Context, actorID, id string, input UpdateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user *models.User
	revoke := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if user, err = s.load(tx, id); err != nil {
			return err
		}

		if input.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*input.Email))
			if email == "" {
				return apperrors.NewBadRequest("email must not be blank")
			}
			user.Email = email
		}
		if input.DisplayName != nil {
			user.DisplayName = strings.TrimSpace(*input.DisplayName)
		}

		losesRoot := false
		if input.IsRoot != nil {
			losesRoot = user.IsRoot && !*input.IsRoot
			user.IsRoot = *input.IsRoot
		}
		if input.IsActive != nil {
			if !*input.IsActive && user.ID == actorID {
				return ErrSelfModification
			}
			losesRoot = losesRoot || (user.IsRoot && user.IsActive && !*input.IsActive)
			revoke = user.IsActive && !*input.IsActive
			user.IsActive = *input.IsActive
		}
		if losesRoot {
			if err := ensureAnotherRoot(tx, user.ID); err != nil {
				return err
			}
		}

		if err := tx.Save(user).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.NewConflict("username or email already exists")
			}
			return err
		}
		return nil
	})

	s.record(ctx, actorID, "user.update", id, err, nil)
	if err != nil {
		return nil, operationFailed(s.log, "update user", err, zap.String("user", id))
	}

	if revoke {
		s.revokeSessions(ctx, user.ID)
	}
	return user, nil
}

// Delete removes a user together with every resource they own.
func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.load(tx, id)
		if err != nil {
			return err
		}
		if user.ID == actorID {
			return ErrSelfModification
		}
		if user.IsRoot && user.IsActive {
			if err := ensureAnotherRoot(tx, user.ID); err != nil {
				return err
			}
		}

		// Menu rows reference their parents; detach them before the purge.
		if err := tx.Model(&models.MenuItem{}).Where("user_id = ?", user.ID).UpdateColumn("parent_id", nil).Error; err != nil {
			return err
		}
		owned := []any{
			&models.MenuItem{},
			&models.Note{},
			&models.AiProvider{},
			&models.ImageHostAccount{},
			&models.GitHubTarget{},
			&models.Session{},
		}
		for _, model := range owned {
			if err := tx.Where("user_id = ?", user.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(user).Error
	})

	s.record(ctx, actorID, "user.delete", id, err, nil)
	if err != nil {
		return operationFailed(s.log, "delete user", err, zap.String("user", id))
	}
	if s.menu != nil {
		s.menu.InvalidateOwner(id)
	}
	return nil
}

// ChangePassword replaces the caller's password after verifying the current one. Every
// session of the user is revoked, so the client must sign in again.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	ctx = ensureContext(ctx)

	err := func() error {
		user, err := s.load(s.db.WithContext(ctx), userID)
		if err != nil {
			return err
		}
		if !crypto.VerifyPassword(user.Password, currentPassword) {
			return ErrCurrentPassword
		}
		if err := validatePassword(newPassword); err != nil {
			return err
		}
		hashed, err := crypto.HashPassword(newPassword)
		if err != nil {
			return err
		}
		return s.db.WithContext(ctx).Model(user).Update("password", hashed).Error
	}()

	s.record(ctx, userID, "user.password_change", userID, err, nil)
	if err != nil {
		return operationFailed(s.log, "change password", err, zap.String("user", userID))
	}
	s.revokeSessions(ctx, userID)
	return nil
}

func (s *UserService) load(db *gorm.DB, id string) (*models.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrUserNotFound
	}
	var user models.User
	err := db.Take(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) revokeSessions(ctx context.Context, userID string) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.RevokeUserSessions(ctx, userID); err != nil {
		s.log.Warn("revoke user sessions failed", zap.String("user", userID), zap.Error(err))
	}
}

func (s *UserService) record(ctx context.Context, actorID, action, id string, err error, metadata map[string]any) {
	resource := "user"
	if id != "" {
		resource += ":" + id
	}
	recordAudit(s.audit, ctx, AuditEntry{
		UserID:   trimmedPtr(&actorID),
		Action:   action,
		Resource: resource,
		Result:   auditResult(err),
		Metadata: metadata,
	})
}

func ensureAnotherRoot(tx *gorm.DB, excludeID string) error {
	var others int64
	if err := tx.Model(&models.User{}).
		Where("is_root = ? AND is_active = ? AND id <> ?", true, true, excludeID).
		Count(&others).Error; err != nil {
		return err
	}
	if others == 0 {
		return ErrLastRootUser
	}
	return nil
}

func validatePassword(password string) error {
	if len([]rune(password)) < minPasswordLength {
		return apperrors.NewBadRequest("password must be at least 8 characters")
	}
	return nil
}
