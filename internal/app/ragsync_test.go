package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/ai"
	"chatrelay/internal/model"
)

func TestSyncBackgroundFilesUploadsAndLinks(t *testing.T) {
	chats := newFakeChatStore()
	atts := newFakeAttachmentStore()
	blobs := newFakeBlobStore()
	msgs := newFakeMessageStore()

	chat := &model.Chat{Backend: "ramses", RAGEnabled: true}
	require.NoError(t, chats.Create(chat))

	id := seedAttachment(t, atts, blobs, model.Attachment{
		ChatID: chat.ID, BackgroundFile: true, BlobID: "b1",
		Title: "handbook.txt", Suffix: "txt", MimeType: "text/plain",
	}, []byte("contents"))

	adapter := &fakeAdapter{id: "ramses", supportsRAG: true, uploadLink: ai.RAGLink{CollectionID: "col-1", FileID: "file-1"}}
	sync := NewSynchronizer(chats, atts, blobs, msgs)

	stats := sync.SyncBackgroundFiles(context.Background(), adapter, chat)
	assert.Equal(t, ai.SyncStats{Uploaded: 1}, stats)

	// The upload goes out under the original filename.
	assert.Equal(t, []string{"handbook.txt"}, adapter.uploads)

	stored := atts.byID(id)
	require.NotNil(t, stored)
	assert.True(t, stored.InRAG())
	assert.Equal(t, "col-1", stored.CollectionID)
	assert.Equal(t, "file-1", stored.RemoteFileID)
	require.NotNil(t, stored.UploadedAt)

	// First successful upload denormalizes the collection onto the chat.
	assert.Equal(t, "col-1", chat.RAGCollectionID)
	persisted, err := chats.GetByID(chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "col-1", persisted.RAGCollectionID)
}

func TestSyncSkipsLinkedAndIncompatible(t *testing.T) {
	chats := newFakeChatStore()
	atts := newFakeAttachmentStore()
	blobs := newFakeBlobStore()
	msgs := newFakeMessageStore()

	chat := &model.Chat{Backend: "ramses"}
	require.NoError(t, chats.Create(chat))

	linked := model.Attachment{
		ChatID: chat.ID, BackgroundFile: true, BlobID: "b1",
		Title: "done.txt", Suffix: "txt",
	}
	linked.SetRAGLink("col-1", "file-1", time.Now())
	seedAttachment(t, atts, blobs, linked, []byte("already linked"))

	seedAttachment(t, atts, blobs, model.Attachment{
		ChatID: chat.ID, BackgroundFile: true, BlobID: "b2",
		Title: "photo.png", Suffix: "png",
	}, []byte{0x89})

	adapter := &fakeAdapter{id: "ramses", supportsRAG: true, uploadLink: ai.RAGLink{CollectionID: "col-1", FileID: "file-2"}}
	sync := NewSynchronizer(chats, atts, blobs, msgs)

	stats := sync.SyncBackgroundFiles(context.Background(), adapter, chat)
	assert.Equal(t, ai.SyncStats{Skipped: 2}, stats)
	assert.Empty(t, adapter.uploads)
}

func TestSyncIsIdempotent(t *testing.T) {
	chats := newFakeChatStore()
	atts := newFakeAttachmentStore()
	blobs := newFakeBlobStore()
	msgs := newFakeMessageStore()

	chat := &model.Chat{Backend: "ramses"}
	require.NoError(t, chats.Create(chat))

	seedAttachment(t, atts, blobs, model.Attachment{
		ChatID: chat.ID, BackgroundFile: true, BlobID: "b1",
		Title: "handbook.md", Suffix: "md", MimeType: "text/markdown",
	}, []byte("contents"))

	adapter := &fakeAdapter{id: "ramses", supportsRAG: true, uploadLink: ai.RAGLink{CollectionID: "col-1", FileID: "file-1"}}
	sync := NewSynchronizer(chats, atts, blobs, msgs)

	first := sync.SyncBackgroundFiles(context.Background(), adapter, chat)
	assert.Equal(t, ai.SyncStats{Uploaded: 1}, first)

	second := sync.SyncBackgroundFiles(context.Background(), adapter, chat)
	assert.Equal(t, ai.SyncStats{Skipped: 1}, second)
	assert.Len(t, adapter.uploads, 1)
}

func TestSyncCountsFailuresWithoutAborting(t *testing.T) {
	chats := newFakeChatStore()
	atts := newFakeAttachmentStore()
	blobs := newFakeBlobStore()
	msgs := newFakeMessageStore()

	chat := &model.Chat{Backend: "ramses"}
	require.NoError(t, chats.Create(chat))

	seedAttachment(t, atts, blobs, model.Attachment{
		ChatID: chat.ID, BackgroundFile: true, BlobID: "b1",
		Title: "a.txt", Suffix: "txt",
	}, []byte("a"))
	seedAttachment(t, atts, blobs, model.Attachment{
		ChatID: chat.ID, BackgroundFile: true, BlobID: "b2",
		Title: "b.txt", Suffix: "txt",
	}, []byte("b"))

	adapter := &fakeAdapter{id: "ramses", supportsRAG: true, uploadErr: errors.New("remote unavailable")}
	sync := NewSynchronizer(chats, atts, blobs, msgs)

	stats := sync.SyncBackgroundFiles(context.Background(), adapter, chat)
	assert.Equal(t, ai.SyncStats{Errors: 2}, stats)

	for _, att := range atts.attachments {
		assert.False(t, att.InRAG(), "failed upload must not write linkage")
	}
}

func TestSyncChatAttachmentsScopesToWindow(t *testing.T) {
	chats := newFakeChatStore()
	atts := newFakeAttachmentStore()
	blobs := newFakeBlobStore()
	msgs := newFakeMessageStore()

	chat := &model.Chat{Backend: "ramses"}
	require.NoError(t, chats.Create(chat))

	// Three messages; window of 2 excludes the first.
	for i := 0; i < 3; i++ {
		require.NoError(t, msgs.Create(&model.Message{SessionID: 7, ChatID: chat.ID, Role: model.RoleUser, Content: "m"}))
	}

	seedAttachment(t, atts, blobs, model.Attachment{
		ChatID: chat.ID, MessageID: 1, BlobID: "b1",
		Title: "old.txt", Suffix: "txt",
	}, []byte("outside window"))
	seedAttachment(t, atts, blobs, model.Attachment{
		ChatID: chat.ID, MessageID: 3, BlobID: "b2",
		Title: "recent.txt", Suffix: "txt",
	}, []byte("inside window"))
	// Background files are handled by the other entry point.
	seedAttachment(t, atts, blobs, model.Attachment{
		ChatID: chat.ID, MessageID: 3, BackgroundFile: true, BlobID: "b3",
		Title: "bg.txt", Suffix: "txt",
	}, []byte("background"))

	adapter := &fakeAdapter{id: "ramses", supportsRAG: true, uploadLink: ai.RAGLink{CollectionID: "col-1", FileID: "file-1"}}
	sync := NewSynchronizer(chats, atts, blobs, msgs)

	stats := sync.SyncChatAttachments(context.Background(), adapter, chat, 7, 2)
	assert.Equal(t, ai.SyncStats{Uploaded: 1}, stats)
	assert.Equal(t, []string{"recent.txt"}, adapter.uploads)
}

func TestChatEntityID(t *testing.T) {
	assert.Equal(t, "chat:42", ChatEntityID(42))
}
