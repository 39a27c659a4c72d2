package model

import "time"

// Chat is the configuration record for one assistant chat: which backend it
// talks to, how much history it recalls, and whether retrieval-augmented mode
// is allowed for it.
type Chat struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Title        string `gorm:"size:128;not null" json:"title"`
	Backend      string `gorm:"size:32;not null;index" json:"backend"`
	SystemPrompt string `gorm:"type:text" json:"system_prompt"`
	MemoryWindow int    `gorm:"not null;default:10" json:"memory_window"`
	CharLimit    int    `json:"char_limit"`
	RAGEnabled   bool   `gorm:"not null;default:false" json:"rag_enabled"`
	PageContext  bool   `gorm:"not null;default:false" json:"page_context"`

	// RAGCollectionID is denormalized from the first successful upload so the
	// retrieval collection survives deletion of individual attachments.
	RAGCollectionID string `gorm:"size:64" json:"rag_collection_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
