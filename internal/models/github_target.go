package models

// GitHubTarget describes a repository location that files can be uploaded into.
type GitHubTarget struct {
	BaseModel

	UserID     string `gorm:"type:uuid;not null;index" json:"user_id"`
	Name       string `gorm:"not null" json:"name"`
	RepoOwner  string `gorm:"not null" json:"repo_owner"`
	Repo       string `gorm:"not null" json:"repo"`
	Branch     string `gorm:"not null" json:"branch"`
	PathPrefix string `json:"path_prefix"`
	Token      string `json:"-"` // vault ciphertext
	IsDefault  bool   `gorm:"not null" json:"is_default"`
}
