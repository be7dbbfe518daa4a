package models

import "time"

// SystemConfigID is the primary key of the singleton configuration row.
const SystemConfigID = 1

// SystemConfig holds installation-wide preferences edited from the settings page.
type SystemConfig struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	SiteTitle      string    `json:"site_title"`
	Locale         string    `gorm:"not null" json:"locale"`
	Theme          string    `gorm:"not null" json:"theme"`
	WeatherEnabled bool      `gorm:"not null" json:"weather_enabled"`
	WeatherCity    string    `json:"weather_city"`
	WeatherAPIKey  string    `json:"-"` // vault ciphertext
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
