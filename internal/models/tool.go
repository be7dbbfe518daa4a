package models

import "github.com/google/uuid"

// Tool categories used by the seeded catalog.
const (
	ToolCategoryFormat    = "format"
	ToolCategoryEncode    = "encode"
	ToolCategoryCrypto    = "crypto"
	ToolCategoryGenerate  = "generate"
	ToolCategoryImage     = "image"
	ToolCategoryText      = "text"
	ToolCategoryAI        = "ai"
	ToolCategoryWorkspace = "workspace"
)

// Tool is a catalog entry for a dashboard utility. Component maps the entry to a UI widget.
type Tool struct {
	BaseModel

	Name          string `gorm:"not null" json:"name"`
	NameEn        string `json:"name_en"`
	Description   string `json:"description"`
	DescriptionEn string `json:"description_en"`
	Icon          string `json:"icon"`
	Category      string `gorm:"not null;index" json:"category"`
	Component     string `gorm:"not null;uniqueIndex" json:"component"`
	IsActive      bool   `gorm:"not null" json:"is_active"`
	Order         int    `gorm:"column:sort_order;not null;default:0" json:"order"`
}

// ToolID derives the stable identifier of a catalog tool from its component key so
// seeds stay idempotent across installations.
func ToolID(component string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("omnikit:tool:"+component)).String()
}
