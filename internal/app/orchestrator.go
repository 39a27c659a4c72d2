package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"chatrelay/internal/ai"
	"chatrelay/internal/model"
)

const maxHistoryWindow = 20

// Orchestrator is the single entry point for a conversation turn. It
// sequences mode selection, context assembly, retrieval synchronization,
// history formatting and backend dispatch, then appends the result to the
// session history.
type Orchestrator struct {
	registry *ai.Registry
	chats    ChatStore
	sessions SessionStore
	messages MessageStore
	atts     AttachmentStore

	assembler *Assembler
	formatter *Formatter
	sync      *Synchronizer

	publisher MessagePublisher
	cache     HistoryCache
}

func NewOrchestrator(
	registry *ai.Registry,
	chats ChatStore,
	sessions SessionStore,
	messages MessageStore,
	atts AttachmentStore,
	blobs BlobStore,
	publisher MessagePublisher,
	cache HistoryCache,
) *Orchestrator {
	return &Orchestrator{
		registry:  registry,
		chats:     chats,
		sessions:  sessions,
		messages:  messages,
		atts:      atts,
		assembler: NewAssembler(atts, blobs),
		formatter: NewFormatter(atts, blobs),
		sync:      NewSynchronizer(chats, atts, blobs, messages),
		publisher: publisher,
		cache:     cache,
	}
}

type SendMessageInput struct {
	ChatID        uint
	UserID        uint
	Text          string
	AttachmentIDs []uint

	// PageText is the extracted source-document text supplied by the
	// page-text collaborator; used only when the chat enables page context.
	PageText string
}

// HandleSendMessage runs one conversation turn and returns the assistant
// response. A non-nil sink receives streaming deltas on backends that
// support it. Component failures are logged with chat and user context and
// surfaced as a single orchestration-level error.
func (o *Orchestrator) HandleSendMessage(ctx context.Context, in SendMessageInput, sink ai.Sink) (string, error) {
	response, err := o.sendMessage(ctx, in, sink)
	if err != nil {
		if errors.Is(err, ErrChatNotFound) || errors.Is(err, ErrMessageEmpty) ||
			errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrBackendDisabled) {
			return "", err
		}
		log.Printf("orchestrator: send message failed (chat %d, user %d): %v", in.ChatID, in.UserID, err)
		return "", fmt.Errorf("%w: %s", ErrSendMessage, err.Error())
	}
	return response, nil
}

func (o *Orchestrator) sendMessage(ctx context.Context, in SendMessageInput, sink ai.Sink) (string, error) {
	if in.ChatID == 0 || in.UserID == 0 {
		return "", ErrInvalidInput
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return "", ErrMessageEmpty
	}

	chat, err := o.chats.GetByID(in.ChatID)
	if err != nil {
		return "", err
	}
	if chat == nil {
		return "", ErrChatNotFound
	}
	text = truncateRunes(text, chat.CharLimit)

	adapter, ok := o.registry.Create(chat.Backend, chat.SystemPrompt)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrBackendDisabled, chat.Backend)
	}

	session, err := o.sessions.GetOrCreate(chat.ID, in.UserID)
	if err != nil {
		return "", err
	}

	userMessage := &model.Message{
		SessionID: session.ID,
		ChatID:    chat.ID,
		UserID:    in.UserID,
		Role:      model.RoleUser,
		Content:   text,
		CreatedAt: time.Now(),
	}
	if err := o.messages.Create(userMessage); err != nil {
		return "", err
	}
	if len(in.AttachmentIDs) > 0 {
		if err := o.atts.BindToMessage(in.AttachmentIDs, userMessage.ID); err != nil {
			return "", err
		}
	}
	o.invalidateHistory(ctx, session.ID)

	adminRAG := o.registry.RAGEnabled(chat.Backend)
	if chat.RAGEnabled && adminRAG && adapter.SupportsRAG() {
		// Mirror background files before reading collection ids so a chat's
		// first upload can activate retrieval mode within the same turn.
		o.sync.SyncBackgroundFiles(ctx, adapter, chat)
	}

	collectionIDs, err := o.collectionIDs(chat)
	if err != nil {
		return "", err
	}
	ragActive := RAGActive(adapter, adminRAG, chat.RAGEnabled, len(collectionIDs) > 0)

	resources := o.assembler.ProcessBackgroundFiles(chat, ragActive)
	if chat.PageContext {
		if resource, ok := PageContextResource(in.PageText); ok {
			resources = append(resources, resource)
		}
	}

	window := historyWindow(chat.MemoryWindow)
	recent, err := o.messages.ListRecent(session.ID, window)
	if err != nil {
		return "", err
	}

	if ragActive {
		// Sync before re-reading collection ids so files uploaded this turn
		// are visible to this turn's request.
		stats := o.sync.SyncChatAttachments(ctx, adapter, chat, session.ID, window)
		if stats.Uploaded > 0 {
			if collectionIDs, err = o.collectionIDs(chat); err != nil {
				return "", err
			}
		}
	}

	outbound := o.formatter.FormatHistory(recent, ragActive)

	response, err := o.dispatch(ctx, adapter, chat, outbound, collectionIDs, resources, ragActive, sink)
	if err != nil {
		return "", err
	}
	response = strings.TrimSpace(response)
	if response == "" {
		response = "The model returned an empty response."
	}

	assistantMessage := model.Message{
		SessionID: session.ID,
		ChatID:    chat.ID,
		UserID:    in.UserID,
		Role:      model.RoleAssistant,
		Content:   response,
		CreatedAt: time.Now(),
	}
	if err := o.publisher.Publish(ctx, assistantMessage); err != nil {
		return "", err
	}
	o.invalidateHistory(ctx, session.ID)

	return response, nil
}

// dispatch sends the retrieval-augmented completion when the mode is active,
// falling back to a standard completion with a warning if the adapter
// reports the operation unsupported.
func (o *Orchestrator) dispatch(
	ctx context.Context,
	adapter ai.Adapter,
	chat *model.Chat,
	outbound []ai.OutboundMessage,
	collectionIDs []string,
	resources []ai.ContextResource,
	ragActive bool,
	sink ai.Sink,
) (string, error) {
	if !ragActive {
		return adapter.SendCompletion(ctx, outbound, resources, sink)
	}
	response, err := adapter.SendRAGCompletion(ctx, outbound, collectionIDs, resources, sink)
	var unsupported *ai.UnsupportedOperationError
	if errors.As(err, &unsupported) {
		log.Printf("orchestrator: backend %s does not support retrieval, falling back to standard completion (chat %d)", chat.Backend, chat.ID)
		return adapter.SendCompletion(ctx, outbound, resources, sink)
	}
	return response, err
}

// collectionIDs gathers the distinct retrieval collection ids associated
// with the chat, including the denormalized one on the chat record.
func (o *Orchestrator) collectionIDs(chat *model.Chat) ([]string, error) {
	ids, err := o.atts.CollectionIDs(chat.ID)
	if err != nil {
		return nil, err
	}
	if chat.RAGCollectionID != "" {
		found := false
		for _, id := range ids {
			if id == chat.RAGCollectionID {
				found = true
				break
			}
		}
		if !found {
			ids = append(ids, chat.RAGCollectionID)
		}
	}
	return ids, nil
}

// History returns the most recent messages of the user's session, served
// through the dirty-marker cache when clean.
func (o *Orchestrator) History(ctx context.Context, chatID, userID uint, limit int) ([]model.Message, error) {
	if chatID == 0 || userID == 0 {
		return nil, ErrInvalidInput
	}
	chat, err := o.chats.GetByID(chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	session, err := o.sessions.GetOrCreate(chatID, userID)
	if err != nil {
		return nil, err
	}

	if o.cache != nil {
		dirty, err := o.cache.IsDirty(ctx, session.ID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := o.cache.GetHistory(ctx, session.ID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := o.messages.ListRecent(session.ID, limit)
	if err != nil {
		return nil, err
	}
	if o.cache != nil {
		if dirty, dirtyErr := o.cache.IsDirty(ctx, session.ID); dirtyErr == nil && !dirty {
			_ = o.cache.SetHistory(ctx, session.ID, messages)
		}
	}
	return messages, nil
}

func (o *Orchestrator) invalidateHistory(ctx context.Context, sessionID uint) {
	if o.cache == nil {
		return
	}
	_ = o.cache.MarkDirty(ctx, sessionID)
	_ = o.cache.DeleteHistory(ctx, sessionID)
}

// historyWindow clamps the chat's memory window to the hard maximum. An
// unset (zero or negative) window means "recall as much as allowed", not
// "recall nothing".
func historyWindow(memoryWindow int) int {
	if memoryWindow <= 0 || memoryWindow > maxHistoryWindow {
		return maxHistoryWindow
	}
	return memoryWindow
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
