package models

// Note is a free-form text entry owned by a user.
type Note struct {
	BaseModel

	UserID  string `gorm:"type:uuid;not null;index" json:"user_id"`
	Title   string `gorm:"not null" json:"title"`
	Content string `gorm:"type:text" json:"content"`
	Pinned  bool   `gorm:"not null" json:"pinned"`
}
