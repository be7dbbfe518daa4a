package models

// Supported image hosting providers.
const (
	ImageHostCloudinary = "cloudinary"
	ImageHostTinyPNG    = "tinypng"
)

// ImageHostAccount stores credentials for an external image host or compressor.
type ImageHostAccount struct {
	BaseModel

	UserID    string `gorm:"type:uuid;not null;index" json:"user_id"`
	Provider  string `gorm:"not null;index" json:"provider"`
	Name      string `gorm:"not null" json:"name"`
	CloudName string `json:"cloud_name"`
	APIKey    string `json:"-"` // vault ciphertext
	APISecret string `json:"-"` // vault ciphertext
	IsDefault bool   `gorm:"not null" json:"is_default"`
}
