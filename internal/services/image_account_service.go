package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/omnikit/internal/models"
	"github.com/charlesng35/omnikit/internal/vault"
	apperrors "github.com/charlesng35/omnikit/pkg/errors"
	"github.com/charlesng35/omnikit/pkg/logger"
)

// ImageAccountView hides stored secrets behind presence flags.
type ImageAccountView struct {
	models.ImageHostAccount
	HasAPIKey    bool `json:"has_api_key"`
	HasAPISecret bool `json:"has_api_secret"`
}

// CreateImageAccountInput describes a new image host account.
type CreateImageAccountInput struct {
	Provider  string
	Name      string
	CloudName string
	APIKey    string
	APISecret string
	IsDefault bool
}

// UpdateImageAccountInput patches an account. The provider cannot change.
type UpdateImageAccountInput struct {
	Name      *string
	CloudName *string
	APIKey    *string
	APISecret *string
	IsDefault *bool
}

// ImageAccountService stores credentials for Cloudinary and TinyPNG. Only one account per
// provider is the owner's default.
type ImageAccountService struct {
	db     *gorm.DB
	crypto *vault.Crypto
	audit  *AuditService
	log    *zap.Logger
}

// NewImageAccountService constructs the service.
func NewImageAccountService(db *gorm.DB, crypto *vault.Crypto, audit *AuditService) (*ImageAccountService, error) {
	if db == nil {
		return nil, errors.New("image account service: db is required")
	}
	if crypto == nil {
		return nil, errors.New("image account service: vault is required")
	}
	return &ImageAccountService{db: db, crypto: crypto, audit: audit, log: logger.WithModule("image_accounts")}, nil
}

// List returns the owner's accounts, optionally filtered by provider.
func (s *ImageAccountService) List(ctx context.Context, ownerID, provider string) ([]ImageAccountView, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Where("user_id = ?", ownerID)
	if provider = strings.ToLower(strings.TrimSpace(provider)); provider != "" {
		query = query.Where("provider = ?", provider)
	}

	var rows []models.ImageHostAccount
	if err := query.Order("provider ASC, is_default DESC, created_at ASC").Find(&rows).Error; err != nil {
		return nil, operationFailed(s.log, "list image accounts", err, zap.String("owner", ownerID))
	}

	views := make([]ImageAccountView, 0, len(rows))
	for _, row := range rows {
		views = append(views, imageAccountView(row))
	}
	return views, nil
}

// Create stores an account. The first account of a provider becomes its default.
func (s *ImageAccountService) Create(ctx context.Context, ownerID string, input CreateImageAccountInput) (*ImageAccountView, error) {
	ctx = ensureContext(ctx)

	account := models.ImageHostAccount{
		UserID:    strings.TrimSpace(ownerID),
		Provider:  strings.ToLower(strings.TrimSpace(input.Provider)),
		Name:      strings.TrimSpace(input.Name),
		CloudName: strings.TrimSpace(input.CloudName),
		IsDefault: input.IsDefault,
	}

	err := func() error {
		if account.UserID == "" {
			return apperrors.ErrUnauthorized
		}
		if err := validateImageAccount(account); err != nil {
			return err
		}
		var err error
		if account.APIKey, err = sealOptional(s.crypto, input.APIKey); err != nil {
			return fmt.Errorf("seal api key: %w", err)
		}
		if account.APISecret, err = sealOptional(s.crypto, input.APISecret); err != nil {
			return fmt.Errorf("seal api secret: %w", err)
		}
		if account.APIKey == "" {
			return apperrors.NewBadRequest("api_key is required")
		}

		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&models.ImageHostAccount{}).
				Where("user_id = ? AND provider = ?", account.UserID, account.Provider).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				account.IsDefault = true
			}
			if err := tx.Create(&account).Error; err != nil {
				return err
			}
			if account.IsDefault {
				return clearProviderDefaults(tx, account)
			}
			return nil
		})
	}()

	s.record(ctx, ownerID, "image_account.create", account.ID, err, map[string]any{"provider": account.Provider})
	if err != nil {
		return nil, operationFailed(s.log, "create image account", err, zap.String("owner", ownerID))
	}
	view := imageAccountView(account)
	return &view, nil
}

// Update patches an account.
func (s *ImageAccountService) Update(ctx context.Context, ownerID, id string, input UpdateImageAccountInput) (*ImageAccountView, error) {
	ctx = ensureContext(ctx)

	var account *models.ImageHostAccount
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if account, err = s.load(tx, ownerID, id); err != nil {
			return err
		}

		if input.Name != nil {
			account.Name = strings.TrimSpace(*input.Name)
		}
		if input.CloudName != nil {
			account.CloudName = strings.TrimSpace(*input.CloudName)
		}
		if err := validateImageAccount(*account); err != nil {
			return err
		}
		if input.APIKey != nil {
			if strings.TrimSpace(*input.APIKey) == "" {
				return apperrors.NewBadRequest("api_key is required")
			}
			if account.APIKey, err = sealOptional(s.crypto, *input.APIKey); err != nil {
				return fmt.Errorf("seal api key: %w", err)
			}
		}
		if input.APISecret != nil {
			if account.APISecret, err = sealOptional(s.crypto, *input.APISecret); err != nil {
				return fmt.Errorf("seal api secret: %w", err)
			}
		}
		if input.IsDefault != nil {
			account.IsDefault = *input.IsDefault
		}

		if err := tx.Save(account).Error; err != nil {
			return err
		}
		if account.IsDefault {
			return clearProviderDefaults(tx, *account)
		}
		return nil
	})

	s.record(ctx, ownerID, "image_account.update", id, err, nil)
	if err != nil {
		return nil, operationFailed(s.log, "update image account", err, zap.String("account", id))
	}
	view := imageAccountView(*account)
	return &view, nil
}

// Delete removes an account.
func (s *ImageAccountService) Delete(ctx context.Context, ownerID, id string) error {
	ctx = ensureContext(ctx)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.load(tx, ownerID, id)
		if err != nil {
			return err
		}
		return tx.Delete(account).Error
	})

	s.record(ctx, ownerID, "image_account.delete", id, err, nil)
	return operationFailed(s.log, "delete image account", err, zap.String("account", id))
}

func (s *ImageAccountService) load(db *gorm.DB, ownerID, id string) (*models.ImageHostAccount, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperrors.ErrUnauthorized
	}
	var account models.ImageHostAccount
	err := db.Where("id = ? AND user_id = ?", strings.TrimSpace(id), ownerID).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("Image account not found")
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *ImageAccountService) record(ctx context.Context, ownerID, action, id string, err error, meta map[string]any) {
	resource := "image_account"
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

func validateImageAccount(account models.ImageHostAccount) error {
	switch account.Provider {
	case models.ImageHostCloudinary:
		if account.CloudName == "" {
			return apperrors.NewBadRequest("cloud_name is required for cloudinary")
		}
	case models.ImageHostTinyPNG:
	default:
		return apperrors.NewBadRequest("provider must be cloudinary or tinypng")
	}
	if account.Name == "" {
		return apperrors.NewBadRequest("name is required")
	}
	return nil
}

func clearProviderDefaults(tx *gorm.DB, account models.ImageHostAccount) error {
	return tx.Model(&models.ImageHostAccount{}).
		Where("user_id = ? AND provider = ? AND id <> ? AND is_default = ?", account.UserID, account.Provider, account.ID, true).
		Update("is_default", false).Error
}

func imageAccountView(account models.ImageHostAccount) ImageAccountView {
	return ImageAccountView{
		ImageHostAccount: account,
		HasAPIKey:        account.APIKey != "",
		HasAPISecret:     account.APISecret != "",
	}
}
