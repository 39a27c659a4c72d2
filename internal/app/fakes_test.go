package app

import (
	"context"
	"errors"
	"os"
	"sort"

	"chatrelay/internal/ai"
	"chatrelay/internal/model"
)

// In-memory fakes for the store interfaces. Maps keyed by id; slices returned
// in insertion order.

type fakeChatStore struct {
	chats  map[uint]*model.Chat
	nextID uint
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{chats: map[uint]*model.Chat{}, nextID: 1}
}

func (s *fakeChatStore) Create(chat *model.Chat) error {
	chat.ID = s.nextID
	s.nextID++
	copied := *chat
	s.chats[chat.ID] = &copied
	return nil
}

func (s *fakeChatStore) GetByID(id uint) (*model.Chat, error) {
	chat, ok := s.chats[id]
	if !ok {
		return nil, nil
	}
	copied := *chat
	return &copied, nil
}

func (s *fakeChatStore) List() ([]model.Chat, error) {
	ids := make([]int, 0, len(s.chats))
	for id := range s.chats {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	out := make([]model.Chat, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.chats[uint(id)])
	}
	return out, nil
}

func (s *fakeChatStore) Delete(id uint) error {
	delete(s.chats, id)
	return nil
}

func (s *fakeChatStore) SetRAGCollectionID(chatID uint, collectionID string) error {
	chat, ok := s.chats[chatID]
	if !ok {
		return errors.New("chat not found")
	}
	if chat.RAGCollectionID == "" {
		chat.RAGCollectionID = collectionID
	}
	return nil
}

type fakeSessionStore struct {
	sessions map[[2]uint]*model.Session
	nextID   uint
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[[2]uint]*model.Session{}, nextID: 1}
}

func (s *fakeSessionStore) GetOrCreate(chatID, userID uint) (*model.Session, error) {
	key := [2]uint{chatID, userID}
	if session, ok := s.sessions[key]; ok {
		return session, nil
	}
	session := &model.Session{ID: s.nextID, ChatID: chatID, UserID: userID}
	s.nextID++
	s.sessions[key] = session
	return session, nil
}

func (s *fakeSessionStore) DeleteByChatID(chatID uint) error {
	for key := range s.sessions {
		if key[0] == chatID {
			delete(s.sessions, key)
		}
	}
	return nil
}

type fakeMessageStore struct {
	messages []model.Message
	nextID   uint
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{nextID: 1}
}

func (s *fakeMessageStore) Create(msg *model.Message) error {
	msg.ID = s.nextID
	s.nextID++
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *fakeMessageStore) ListRecent(sessionID uint, limit int) ([]model.Message, error) {
	var matched []model.Message
	for _, msg := range s.messages {
		if msg.SessionID == sessionID {
			matched = append(matched, msg)
		}
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}

func (s *fakeMessageStore) DeleteByChatID(chatID uint) error {
	var kept []model.Message
	for _, msg := range s.messages {
		if msg.ChatID != chatID {
			kept = append(kept, msg)
		}
	}
	s.messages = kept
	return nil
}

type fakeAttachmentStore struct {
	attachments []model.Attachment
	nextID      uint

	listBackgroundErr error
}

func newFakeAttachmentStore() *fakeAttachmentStore {
	return &fakeAttachmentStore{nextID: 1}
}

func (s *fakeAttachmentStore) Create(att *model.Attachment) error {
	att.ID = s.nextID
	s.nextID++
	s.attachments = append(s.attachments, *att)
	return nil
}

func (s *fakeAttachmentStore) ListBackgroundByChatID(chatID uint) ([]model.Attachment, error) {
	if s.listBackgroundErr != nil {
		return nil, s.listBackgroundErr
	}
	var out []model.Attachment
	for _, att := range s.attachments {
		if att.ChatID == chatID && att.BackgroundFile {
			out = append(out, att)
		}
	}
	return out, nil
}

func (s *fakeAttachmentStore) ListByChatID(chatID uint) ([]model.Attachment, error) {
	var out []model.Attachment
	for _, att := range s.attachments {
		if att.ChatID == chatID {
			out = append(out, att)
		}
	}
	return out, nil
}

func (s *fakeAttachmentStore) ListByMessageID(messageID uint) ([]model.Attachment, error) {
	var out []model.Attachment
	for _, att := range s.attachments {
		if att.MessageID == messageID {
			out = append(out, att)
		}
	}
	return out, nil
}

func (s *fakeAttachmentStore) BindToMessage(attachmentIDs []uint, messageID uint) error {
	for _, id := range attachmentIDs {
		for i := range s.attachments {
			att := &s.attachments[i]
			if att.ID == id && att.MessageID == 0 && !att.BackgroundFile {
				att.MessageID = messageID
			}
		}
	}
	return nil
}

func (s *fakeAttachmentStore) UpdateRAGLink(updated *model.Attachment) error {
	for i := range s.attachments {
		if s.attachments[i].ID == updated.ID {
			s.attachments[i].CollectionID = updated.CollectionID
			s.attachments[i].RemoteFileID = updated.RemoteFileID
			s.attachments[i].UploadedAt = updated.UploadedAt
			return nil
		}
	}
	return errors.New("attachment not found")
}

func (s *fakeAttachmentStore) CollectionIDs(chatID uint) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, att := range s.attachments {
		if att.ChatID == chatID && att.CollectionID != "" && !seen[att.CollectionID] {
			seen[att.CollectionID] = true
			out = append(out, att.CollectionID)
		}
	}
	return out, nil
}

func (s *fakeAttachmentStore) DeleteByChatID(chatID uint) error {
	var kept []model.Attachment
	for _, att := range s.attachments {
		if att.ChatID != chatID {
			kept = append(kept, att)
		}
	}
	s.attachments = kept
	return nil
}

func (s *fakeAttachmentStore) byID(id uint) *model.Attachment {
	for i := range s.attachments {
		if s.attachments[i].ID == id {
			return &s.attachments[i]
		}
	}
	return nil
}

type fakeBlobStore struct {
	blobs map[string]*model.Blob
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string]*model.Blob{}}
}

func (s *fakeBlobStore) Create(blob *model.Blob) error {
	copied := *blob
	s.blobs[blob.ID] = &copied
	return nil
}

func (s *fakeBlobStore) Resolve(id string) (*model.Blob, error) {
	blob, ok := s.blobs[id]
	if !ok {
		return nil, nil
	}
	copied := *blob
	return &copied, nil
}

func (s *fakeBlobStore) Delete(id string) error {
	delete(s.blobs, id)
	return nil
}

type fakePublisher struct {
	published []model.Message
}

func (p *fakePublisher) Publish(_ context.Context, msg model.Message) error {
	p.published = append(p.published, msg)
	return nil
}

// fakeAdapter scripts backend behavior without any transport.
type fakeAdapter struct {
	id            string
	supportsRAG   bool
	completion    string
	completionErr error
	ragErr        error

	uploadLink ai.RAGLink
	uploadErr  error
	uploads    []string

	completionCalls    int
	ragCompletionCalls int
	lastCollections    []string
	lastResources      []ai.ContextResource
	lastMessages       []ai.OutboundMessage
}

func (a *fakeAdapter) ID() string               { return a.id }
func (a *fakeAdapter) SupportsRAG() bool        { return a.supportsRAG }
func (a *fakeAdapter) SupportsMultimodal() bool { return true }
func (a *fakeAdapter) SupportsStreaming() bool  { return true }

func (a *fakeAdapter) SendCompletion(_ context.Context, msgs []ai.OutboundMessage, resources []ai.ContextResource, sink ai.Sink) (string, error) {
	a.completionCalls++
	a.lastMessages = msgs
	a.lastResources = resources
	if a.completionErr != nil {
		return "", a.completionErr
	}
	if sink != nil {
		if err := sink(a.completion); err != nil {
			return "", err
		}
	}
	return a.completion, nil
}

func (a *fakeAdapter) SendRAGCompletion(_ context.Context, msgs []ai.OutboundMessage, collectionIDs []string, resources []ai.ContextResource, sink ai.Sink) (string, error) {
	a.ragCompletionCalls++
	a.lastMessages = msgs
	a.lastCollections = collectionIDs
	a.lastResources = resources
	if a.ragErr != nil {
		return "", a.ragErr
	}
	if sink != nil {
		if err := sink(a.completion); err != nil {
			return "", err
		}
	}
	return a.completion, nil
}

func (a *fakeAdapter) UploadToRAG(_ context.Context, localPath string, _ string) (ai.RAGLink, error) {
	if a.uploadErr != nil {
		return ai.RAGLink{}, a.uploadErr
	}
	// Record the submitted filename; the temp directory varies per call.
	a.uploads = append(a.uploads, baseName(localPath))
	return a.uploadLink, nil
}

func (a *fakeAdapter) DeleteFromRAG(_ context.Context, _ string, _ string) bool { return true }

func (a *fakeAdapter) ListModels(_ context.Context) ([]ai.ModelInfo, error) { return nil, nil }

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if os.IsPathSeparator(path[i]) {
			return path[i+1:]
		}
	}
	return path
}
