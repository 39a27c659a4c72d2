package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"chatrelay/internal/ai"
	"chatrelay/internal/model"
)

// Manager covers the administrative flows around chats: configuration CRUD,
// attachment intake into the blob store, background-file synchronization and
// cleanup of remote retrieval state on deletion.
type Manager struct {
	registry *ai.Registry
	chats    ChatStore
	sessions SessionStore
	messages MessageStore
	atts     AttachmentStore
	blobs    BlobStore
	sync     *Synchronizer
}

func NewManager(
	registry *ai.Registry,
	chats ChatStore,
	sessions SessionStore,
	messages MessageStore,
	atts AttachmentStore,
	blobs BlobStore,
) *Manager {
	return &Manager{
		registry: registry,
		chats:    chats,
		sessions: sessions,
		messages: messages,
		atts:     atts,
		blobs:    blobs,
		sync:     NewSynchronizer(chats, atts, blobs, messages),
	}
}

type CreateChatInput struct {
	Title        string
	Backend      string
	SystemPrompt string
	MemoryWindow int
	CharLimit    int
	RAGEnabled   bool
	PageContext  bool
}

func (m *Manager) CreateChat(in CreateChatInput) (*model.Chat, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "New Chat"
	}
	backend := strings.TrimSpace(in.Backend)
	enabled := false
	for _, id := range m.registry.Enabled() {
		if id == backend {
			enabled = true
			break
		}
	}
	if !enabled {
		return nil, fmt.Errorf("%w: %s", ErrBackendDisabled, backend)
	}

	chat := &model.Chat{
		Title:        title,
		Backend:      backend,
		SystemPrompt: in.SystemPrompt,
		MemoryWindow: in.MemoryWindow,
		CharLimit:    in.CharLimit,
		RAGEnabled:   in.RAGEnabled,
		PageContext:  in.PageContext,
	}
	if err := m.chats.Create(chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (m *Manager) ListChats() ([]model.Chat, error) {
	return m.chats.List()
}

func (m *Manager) GetChat(chatID uint) (*model.Chat, error) {
	chat, err := m.chats.GetByID(chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	return chat, nil
}

type UploadAttachmentInput struct {
	ChatID         uint
	Filename       string
	MimeType       string
	Data           []byte
	BackgroundFile bool
}

// UploadAttachment stores the bytes as a blob and creates the attachment
// row. Message-bound attachments stay unbound until a send binds them.
func (m *Manager) UploadAttachment(in UploadAttachmentInput) (*model.Attachment, error) {
	if in.ChatID == 0 || len(in.Data) == 0 {
		return nil, ErrInvalidInput
	}
	chat, err := m.chats.GetByID(in.ChatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}

	filename := strings.TrimSpace(in.Filename)
	if filename == "" {
		return nil, ErrInvalidInput
	}
	suffix := fileSuffix(filename)

	blob := &model.Blob{
		ID:        uuid.NewString(),
		Title:     filename,
		MimeType:  in.MimeType,
		Suffix:    suffix,
		Size:      int64(len(in.Data)),
		Data:      in.Data,
		CreatedAt: time.Now(),
	}
	if err := m.blobs.Create(blob); err != nil {
		return nil, err
	}

	att := &model.Attachment{
		ChatID:         in.ChatID,
		BackgroundFile: in.BackgroundFile,
		BlobID:         blob.ID,
		Title:          filename,
		Suffix:         suffix,
		MimeType:       in.MimeType,
		CreatedAt:      time.Now(),
	}
	if err := m.atts.Create(att); err != nil {
		return nil, err
	}
	return att, nil
}

// SyncBackgroundFiles mirrors the chat's background files into the retrieval
// collection when the backend supports it.
func (m *Manager) SyncBackgroundFiles(ctx context.Context, chatID uint) (ai.SyncStats, error) {
	chat, err := m.GetChat(chatID)
	if err != nil {
		return ai.SyncStats{}, err
	}
	adapter, ok := m.registry.Create(chat.Backend, chat.SystemPrompt)
	if !ok {
		return ai.SyncStats{}, fmt.Errorf("%w: %s", ErrBackendDisabled, chat.Backend)
	}
	if !adapter.SupportsRAG() {
		return ai.SyncStats{}, &ai.UnsupportedOperationError{Backend: chat.Backend, Operation: "retrieval upload"}
	}
	return m.sync.SyncBackgroundFiles(ctx, adapter, chat), nil
}

// DeleteChat removes the chat and everything hanging off it. Remote
// retrieval files are deleted best-effort first; a failed remote delete is
// logged and local cleanup proceeds regardless.
func (m *Manager) DeleteChat(ctx context.Context, chatID uint) error {
	chat, err := m.GetChat(chatID)
	if err != nil {
		return err
	}

	attachments, err := m.atts.ListByChatID(chatID)
	if err != nil {
		return err
	}

	adapter, hasAdapter := m.registry.Create(chat.Backend, chat.SystemPrompt)
	for i := range attachments {
		att := &attachments[i]
		if att.InRAG() && hasAdapter && adapter.SupportsRAG() {
			if !adapter.DeleteFromRAG(ctx, att.RemoteFileID, ChatEntityID(chatID)) {
				log.Printf("manager: remote delete failed for attachment %q (chat %d), continuing", att.Title, chatID)
			}
		}
		if err := m.blobs.Delete(att.BlobID); err != nil {
			log.Printf("manager: delete blob %s failed (chat %d): %v", att.BlobID, chatID, err)
		}
	}

	if err := m.atts.DeleteByChatID(chatID); err != nil {
		return err
	}
	if err := m.messages.DeleteByChatID(chatID); err != nil {
		return err
	}
	if err := m.sessions.DeleteByChatID(chatID); err != nil {
		return err
	}
	return m.chats.Delete(chatID)
}

func fileSuffix(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[idx+1:])
}
