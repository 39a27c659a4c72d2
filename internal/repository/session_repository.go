package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chatrelay/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetOrCreate returns the user's session for the chat, creating it on first
// use.
func (r *SessionRepository) GetOrCreate(chatID, userID uint) (*model.Session, error) {
	var session model.Session
	err := r.db.Where("chat_id = ? AND user_id = ?", chatID, userID).First(&session).Error
	if err == nil {
		return &session, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("get session failed: %w", err)
	}

	session = model.Session{ChatID: chatID, UserID: userID}
	if err := r.db.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("create session failed: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) DeleteByChatID(chatID uint) error {
	if err := r.db.Where("chat_id = ?", chatID).Delete(&model.Session{}).Error; err != nil {
		return fmt.Errorf("delete sessions failed: %w", err)
	}
	return nil
}
