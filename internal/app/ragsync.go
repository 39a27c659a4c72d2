package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chatrelay/internal/ai"
	"chatrelay/internal/model"
)

var ragCompatibleSuffixes = map[string]bool{
	"txt": true, "md": true, "csv": true, "pdf": true,
}

// Synchronizer mirrors local attachments into the backend's retrieval
// collection. Both entry points are idempotent and best-effort: an
// attachment whose linkage fields are already set is never re-uploaded, and
// per-item failures are counted without aborting the batch.
//
// Eligibility is decided by re-reading "no remote linkage yet" at call time.
// Two concurrent turns for the same chat can both observe an unsynchronized
// attachment and upload it twice; this layer applies no locking discipline
// around the remote collection.
type Synchronizer struct {
	chats SessionlessChatStore
	atts  AttachmentStore
	blobs BlobStore
	msgs  MessageStore
}

// SessionlessChatStore is the slice of ChatStore the synchronizer needs.
type SessionlessChatStore interface {
	SetRAGCollectionID(chatID uint, collectionID string) error
}

func NewSynchronizer(chats SessionlessChatStore, atts AttachmentStore, blobs BlobStore, msgs MessageStore) *Synchronizer {
	return &Synchronizer{chats: chats, atts: atts, blobs: blobs, msgs: msgs}
}

// SyncBackgroundFiles uploads the chat's background attachments that are
// retrieval-compatible and not yet linked.
func (s *Synchronizer) SyncBackgroundFiles(ctx context.Context, adapter ai.Adapter, chat *model.Chat) ai.SyncStats {
	var stats ai.SyncStats
	files, err := s.atts.ListBackgroundByChatID(chat.ID)
	if err != nil {
		log.Printf("ragsync: list background files failed for chat %d: %v", chat.ID, err)
		stats.Errors++
		return stats
	}
	return s.syncBatch(ctx, adapter, chat, files)
}

// SyncChatAttachments applies the same upload logic to attachments bound to
// the last windowSize messages of the session, excluding background files.
func (s *Synchronizer) SyncChatAttachments(ctx context.Context, adapter ai.Adapter, chat *model.Chat, sessionID uint, windowSize int) ai.SyncStats {
	var stats ai.SyncStats
	messages, err := s.msgs.ListRecent(sessionID, windowSize)
	if err != nil {
		log.Printf("ragsync: list recent messages failed for session %d: %v", sessionID, err)
		stats.Errors++
		return stats
	}

	var candidates []model.Attachment
	for _, msg := range messages {
		attachments, err := s.atts.ListByMessageID(msg.ID)
		if err != nil {
			log.Printf("ragsync: list attachments failed for message %d: %v", msg.ID, err)
			stats.Errors++
			continue
		}
		for _, att := range attachments {
			if !att.BackgroundFile {
				candidates = append(candidates, att)
			}
		}
	}

	batch := s.syncBatch(ctx, adapter, chat, candidates)
	stats.Add(batch)
	return stats
}

func (s *Synchronizer) syncBatch(ctx context.Context, adapter ai.Adapter, chat *model.Chat, attachments []model.Attachment) ai.SyncStats {
	var stats ai.SyncStats
	for i := range attachments {
		att := &attachments[i]
		if att.InRAG() || !ragCompatibleSuffixes[strings.ToLower(att.Suffix)] {
			stats.Skipped++
			continue
		}
		if err := s.uploadOne(ctx, adapter, chat, att); err != nil {
			log.Printf("ragsync: upload %q failed (chat %d): %v", att.Title, chat.ID, err)
			stats.Errors++
			continue
		}
		stats.Uploaded++
	}
	return stats
}

func (s *Synchronizer) uploadOne(ctx context.Context, adapter ai.Adapter, chat *model.Chat, att *model.Attachment) error {
	blob, err := s.blobs.Resolve(att.BlobID)
	if err != nil {
		return err
	}
	if blob == nil {
		return fmt.Errorf("blob %s not found", att.BlobID)
	}

	// The remote system validates the file signature against the filename,
	// so the upload must go through a temp file carrying the original name.
	dir, err := os.MkdirTemp("", "ragsync-")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	name := filepath.Base(att.Title)
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = fmt.Sprintf("attachment-%d.%s", att.ID, att.Suffix)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, blob.Data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	link, err := adapter.UploadToRAG(ctx, path, ChatEntityID(chat.ID))
	if err != nil {
		return err
	}

	att.SetRAGLink(link.CollectionID, link.FileID, time.Now())
	if err := s.atts.UpdateRAGLink(att); err != nil {
		return fmt.Errorf("persist retrieval linkage: %w", err)
	}

	if chat.RAGCollectionID == "" {
		if err := s.chats.SetRAGCollectionID(chat.ID, link.CollectionID); err != nil {
			log.Printf("ragsync: denormalize collection id failed for chat %d: %v", chat.ID, err)
		} else {
			chat.RAGCollectionID = link.CollectionID
		}
	}
	return nil
}

// ChatEntityID is the logical entity identifier a chat presents to the
// retrieval store.
func ChatEntityID(chatID uint) string {
	return fmt.Sprintf("chat:%d", chatID)
}
