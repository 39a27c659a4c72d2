package model

import "time"

// Attachment references a stored blob, either as a chat-level background file
// (MessageID zero) or bound to exactly one message. Title, suffix and mime
// type are denormalized from the blob so eligibility checks do not need to
// load file bytes.
type Attachment struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	ChatID         uint   `gorm:"not null;index" json:"chat_id"`
	MessageID      uint   `gorm:"index" json:"message_id"`
	BackgroundFile bool   `gorm:"not null;default:false" json:"background_file"`
	BlobID         string `gorm:"size:36;not null" json:"blob_id"`
	Title          string `gorm:"size:255;not null" json:"title"`
	Suffix         string `gorm:"size:16;not null" json:"suffix"`
	MimeType       string `gorm:"size:128" json:"mime_type"`

	// Remote retrieval linkage. The three fields are set together on a
	// successful upload and cleared together, never individually.
	CollectionID string     `gorm:"size:64" json:"collection_id"`
	RemoteFileID string     `gorm:"size:64" json:"remote_file_id"`
	UploadedAt   *time.Time `json:"uploaded_at"`

	CreatedAt time.Time `json:"created_at"`
}

// InRAG reports whether the attachment is mirrored in a remote retrieval
// collection.
func (a *Attachment) InRAG() bool {
	return a.CollectionID != "" && a.RemoteFileID != ""
}

// SetRAGLink populates the retrieval linkage as one unit.
func (a *Attachment) SetRAGLink(collectionID, remoteFileID string, at time.Time) {
	a.CollectionID = collectionID
	a.RemoteFileID = remoteFileID
	a.UploadedAt = &at
}

// ClearRAGLink removes the retrieval linkage as one unit.
func (a *Attachment) ClearRAGLink() {
	a.CollectionID = ""
	a.RemoteFileID = ""
	a.UploadedAt = nil
}
