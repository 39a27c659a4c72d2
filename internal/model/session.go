package model

import "time"

// Session is one user's conversation thread within a chat.
type Session struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ChatID    uint      `gorm:"not null;index:idx_chat_user" json:"chat_id"`
	UserID    uint      `gorm:"not null;index:idx_chat_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
