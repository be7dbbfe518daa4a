package models

import "gorm.io/datatypes"

// AiProvider stores credentials for an OpenAI-compatible chat completion endpoint.
type AiProvider struct {
	BaseModel

	UserID    string         `gorm:"type:uuid;not null;index" json:"user_id"`
	Name      string         `gorm:"not null" json:"name"`
	BaseURL   string         `gorm:"not null" json:"base_url"`
	APIKey    string         `json:"-"` // vault ciphertext
	Model     string         `json:"model"`
	Models    datatypes.JSON `json:"models"`
	IsDefault bool           `gorm:"not null" json:"is_default"`
	IsActive  bool           `gorm:"not null" json:"is_active"`
}
