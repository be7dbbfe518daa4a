package models

import "gorm.io/gorm"

// MenuItem is a node of an owner's navigation tree: either a folder or a leaf bound to a Tool.
//
// Sort order is unique per sibling group. The group key is (UserID, ParentKey) where
// ParentKey mirrors ParentID with "" standing in for root, since NULL never collides
// inside a unique index.
type MenuItem struct {
	BaseModel

	UserID    string  `gorm:"type:uuid;not null;index;uniqueIndex:idx_menu_sibling_order,priority:1" json:"user_id"`
	ParentID  *string `gorm:"type:uuid;index" json:"parent_id"`
	ParentKey string  `gorm:"not null;default:'';uniqueIndex:idx_menu_sibling_order,priority:2" json:"-"`
	Label     *string `json:"label"`
	LabelEn   *string `json:"label_en"`
	Icon      *string `json:"icon"`
	IsFolder  bool    `gorm:"not null" json:"is_folder"`
	ToolID    *string `gorm:"type:uuid;index" json:"tool_id"`
	Tool      *Tool   `gorm:"foreignKey:ToolID;constraint:OnDelete:RESTRICT" json:"tool,omitempty"`
	Order     int     `gorm:"column:sort_order;not null;uniqueIndex:idx_menu_sibling_order,priority:3" json:"order"`

	Children []MenuItem `gorm:"foreignKey:ParentID;constraint:OnDelete:RESTRICT" json:"-"`
}

// BeforeSave keeps ParentKey aligned with ParentID.
func (m *MenuItem) BeforeSave(tx *gorm.DB) error {
	m.ParentKey = ParentKey(m.ParentID)
	return nil
}

// ParentKey returns the sibling-group key for a parent reference.
func ParentKey(parentID *string) string {
	if parentID == nil {
		return ""
	}
	return *parentID
}
