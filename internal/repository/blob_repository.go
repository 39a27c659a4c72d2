package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chatrelay/internal/model"
)

type BlobRepository struct {
	db *gorm.DB
}

func NewBlobRepository(db *gorm.DB) *BlobRepository {
	return &BlobRepository{db: db}
}

func (r *BlobRepository) Create(blob *model.Blob) error {
	if err := r.db.Create(blob).Error; err != nil {
		return fmt.Errorf("create blob failed: %w", err)
	}
	return nil
}

// Resolve returns nil without error when the blob does not exist.
func (r *BlobRepository) Resolve(id string) (*model.Blob, error) {
	var blob model.Blob
	err := r.db.First(&blob, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve blob failed: %w", err)
	}
	return &blob, nil
}

func (r *BlobRepository) Delete(id string) error {
	if err := r.db.Delete(&model.Blob{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete blob failed: %w", err)
	}
	return nil
}
