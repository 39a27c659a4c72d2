package model

import "time"

// Blob holds the raw bytes of an uploaded file. Attachments reference blobs
// by their UUID handle; the rest of the core never touches bytes directly.
type Blob struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	Title    string `gorm:"size:255;not null" json:"title"`
	MimeType string `gorm:"size:128" json:"mime_type"`
	Suffix   string `gorm:"size:16" json:"suffix"`
	Size     int64  `json:"size"`
	Data     []byte `gorm:"type:longblob" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}
