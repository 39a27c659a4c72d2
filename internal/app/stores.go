package app

import (
	"context"
	"errors"

	"chatrelay/internal/model"
)

var (
	ErrChatNotFound    = errors.New("chat not found")
	ErrBackendDisabled = errors.New("backend not available")
	ErrMessageEmpty    = errors.New("message content is empty")
	ErrInvalidInput    = errors.New("invalid input")
	ErrSendMessage     = errors.New("send message failed")
)

// Consumer-side interfaces over the external stores. The gorm repositories
// satisfy them in production; tests use in-memory fakes.

type ChatStore interface {
	Create(chat *model.Chat) error
	// GetByID returns nil without error when the chat does not exist.
	GetByID(id uint) (*model.Chat, error)
	List() ([]model.Chat, error)
	Delete(id uint) error
	// SetRAGCollectionID denormalizes the collection id onto the chat; only
	// the first write for a chat takes effect.
	SetRAGCollectionID(chatID uint, collectionID string) error
}

type SessionStore interface {
	GetOrCreate(chatID, userID uint) (*model.Session, error)
	DeleteByChatID(chatID uint) error
}

type MessageStore interface {
	Create(msg *model.Message) error
	// ListRecent returns the last limit messages of a session in ascending
	// time order.
	ListRecent(sessionID uint, limit int) ([]model.Message, error)
	DeleteByChatID(chatID uint) error
}

type AttachmentStore interface {
	Create(att *model.Attachment) error
	ListBackgroundByChatID(chatID uint) ([]model.Attachment, error)
	ListByChatID(chatID uint) ([]model.Attachment, error)
	ListByMessageID(messageID uint) ([]model.Attachment, error)
	BindToMessage(attachmentIDs []uint, messageID uint) error
	// UpdateRAGLink persists the attachment's retrieval linkage fields as one
	// unit.
	UpdateRAGLink(att *model.Attachment) error
	// CollectionIDs returns the distinct retrieval collection ids currently
	// associated with the chat's attachments.
	CollectionIDs(chatID uint) ([]string, error)
	DeleteByChatID(chatID uint) error
}

type BlobStore interface {
	Create(blob *model.Blob) error
	// Resolve returns nil without error when the blob does not exist.
	Resolve(id string) (*model.Blob, error)
	Delete(id string) error
}

// MessagePublisher hands messages to the asynchronous persistence pipeline.
type MessagePublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

// HistoryCache is the read-through conversation history cache.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, sessionID uint, messages []model.Message) error
	DeleteHistory(ctx context.Context, sessionID uint) error
	MarkDirty(ctx context.Context, sessionID uint) error
	IsDirty(ctx context.Context, sessionID uint) (bool, error)
}
