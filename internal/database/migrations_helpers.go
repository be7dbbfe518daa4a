package database

import (
	"github.com/charlesng35/omnikit/internal/models"
	"gorm.io/gorm"
)

// seedTools inserts catalog entries that are missing. Existing rows keep their
// operator-controlled activation flag.
func seedTools(db *gorm.DB, tools []models.Tool) error {
	for _, tool := range tools {
		if err := db.Where(models.Tool{Component: tool.Component}).Attrs(tool).FirstOrCreate(&models.Tool{}).Error; err != nil {
			return err
		}
	}
	return nil
}

// ensureSystemConfig creates the singleton configuration row with defaults.
func ensureSystemConfig(db *gorm.DB) error {
	defaults := DefaultSystemConfig()
	return db.Where(models.SystemConfig{ID: models.SystemConfigID}).Attrs(defaults).FirstOrCreate(&models.SystemConfig{}).Error
}

// DefaultSystemConfig returns the configuration used before an operator edits settings.
func DefaultSystemConfig() models.SystemConfig {
	return models.SystemConfig{
		ID:        models.SystemConfigID,
		SiteTitle: "OmniKit",
		Locale:    "zh-CN",
		Theme:     "system",
	}
}
