package models

import "gorm.io/datatypes"

// AuditLog records administrative changes (menu edits, credential updates, settings).
type AuditLog struct {
	BaseModel

	UserID    *string        `gorm:"type:uuid;index" json:"user_id"`
	Username  string         `json:"username"`
	Action    string         `gorm:"not null;index" json:"action"`
	Resource  string         `gorm:"index" json:"resource"`
	Result    string         `gorm:"not null" json:"result"`
	IPAddress string         `json:"ip_address"`
	UserAgent string         `json:"user_agent"`
	RequestID string         `gorm:"size:64;index" json:"request_id,omitempty"`
	Metadata  datatypes.JSON `json:"metadata"`
}
