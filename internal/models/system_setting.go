package models

import "time"

// SystemSetting is an internal key/value pair, such as the vault key fingerprint.
// Operator-facing configuration lives in SystemConfig.
type SystemSetting struct {
	Key       string    `gorm:"primaryKey;size:128"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `json:"updated_at"`
}
