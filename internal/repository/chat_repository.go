package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chatrelay/internal/model"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(chat *model.Chat) error {
	if err := r.db.Create(chat).Error; err != nil {
		return fmt.Errorf("create chat failed: %w", err)
	}
	return nil
}

func (r *ChatRepository) GetByID(id uint) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.First(&chat, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chat failed: %w", err)
	}
	return &chat, nil
}

func (r *ChatRepository) List() ([]model.Chat, error) {
	var chats []model.Chat
	if err := r.db.Order("created_at ASC").Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("list chats failed: %w", err)
	}
	return chats, nil
}

func (r *ChatRepository) Delete(id uint) error {
	if err := r.db.Delete(&model.Chat{}, id).Error; err != nil {
		return fmt.Errorf("delete chat failed: %w", err)
	}
	return nil
}

// SetRAGCollectionID writes the denormalized collection id once; later calls
// for a chat that already has one are no-ops.
func (r *ChatRepository) SetRAGCollectionID(chatID uint, collectionID string) error {
	err := r.db.Model(&model.Chat{}).
		Where("id = ? AND (rag_collection_id = '' OR rag_collection_id IS NULL)", chatID).
		Update("rag_collection_id", collectionID).Error
	if err != nil {
		return fmt.Errorf("set chat collection id failed: %w", err)
	}
	return nil
}
