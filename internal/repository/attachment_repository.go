package repository

import (
	"fmt"

	"gorm.io/gorm"

	"chatrelay/internal/model"
)

type AttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) Create(att *model.Attachment) error {
	if err := r.db.Create(att).Error; err != nil {
		return fmt.Errorf("create attachment failed: %w", err)
	}
	return nil
}

func (r *AttachmentRepository) ListBackgroundByChatID(chatID uint) ([]model.Attachment, error) {
	var attachments []model.Attachment
	err := r.db.Where("chat_id = ? AND background_file = ?", chatID, true).
		Order("created_at ASC").
		Find(&attachments).Error
	if err != nil {
		return nil, fmt.Errorf("list background attachments failed: %w", err)
	}
	return attachments, nil
}

func (r *AttachmentRepository) ListByChatID(chatID uint) ([]model.Attachment, error) {
	var attachments []model.Attachment
	err := r.db.Where("chat_id = ?", chatID).Order("created_at ASC").Find(&attachments).Error
	if err != nil {
		return nil, fmt.Errorf("list chat attachments failed: %w", err)
	}
	return attachments, nil
}

func (r *AttachmentRepository) ListByMessageID(messageID uint) ([]model.Attachment, error) {
	var attachments []model.Attachment
	err := r.db.Where("message_id = ?", messageID).Order("created_at ASC").Find(&attachments).Error
	if err != nil {
		return nil, fmt.Errorf("list message attachments failed: %w", err)
	}
	return attachments, nil
}

func (r *AttachmentRepository) BindToMessage(attachmentIDs []uint, messageID uint) error {
	if len(attachmentIDs) == 0 {
		return nil
	}
	err := r.db.Model(&model.Attachment{}).
		Where("id IN ? AND message_id = 0 AND background_file = ?", attachmentIDs, false).
		Update("message_id", messageID).Error
	if err != nil {
		return fmt.Errorf("bind attachments failed: %w", err)
	}
	return nil
}

// UpdateRAGLink persists the three linkage fields as one update so they are
// never half-written.
func (r *AttachmentRepository) UpdateRAGLink(att *model.Attachment) error {
	err := r.db.Model(&model.Attachment{}).
		Where("id = ?", att.ID).
		Updates(map[string]any{
			"collection_id":  att.CollectionID,
			"remote_file_id": att.RemoteFileID,
			"uploaded_at":    att.UploadedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("update attachment retrieval linkage failed: %w", err)
	}
	return nil
}

func (r *AttachmentRepository) CollectionIDs(chatID uint) ([]string, error) {
	var ids []string
	err := r.db.Model(&model.Attachment{}).
		Where("chat_id = ? AND collection_id <> ''", chatID).
		Distinct("collection_id").
		Pluck("collection_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list collection ids failed: %w", err)
	}
	return ids, nil
}

func (r *AttachmentRepository) DeleteByChatID(chatID uint) error {
	if err := r.db.Where("chat_id = ?", chatID).Delete(&model.Attachment{}).Error; err != nil {
		return fmt.Errorf("delete attachments failed: %w", err)
	}
	return nil
}
