package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

const (
	BackendRamses = "ramses"

	ramsesChatPath      = "/chat"
	ramsesRAGChatPath   = "/rag-chat"
	ramsesRAGUploadPath = "/rag-upload"
	ramsesRAGDeletePath = "/rag-delete"

	ragUploadPurpose = "assistants"
)

// numericIDModulus bounds the CRC32-derived identifiers the retrieval store
// requires as integers. Distinct strings can collide within this range; the
// mapping is kept for wire compatibility with the remote system.
const numericIDModulus = 1_000_000

// RamsesAdapter is the primary backend: retrieval-augmented completion,
// streaming, and multimodal content.
type RamsesAdapter struct {
	*client
}

func NewRamsesAdapter(cfg Config, systemPrompt string) *RamsesAdapter {
	return &RamsesAdapter{client: newClient(BackendRamses, cfg, systemPrompt)}
}

func (a *RamsesAdapter) ID() string               { return BackendRamses }
func (a *RamsesAdapter) SupportsRAG() bool        { return true }
func (a *RamsesAdapter) SupportsMultimodal() bool { return true }
func (a *RamsesAdapter) SupportsStreaming() bool  { return true }

func (a *RamsesAdapter) SendCompletion(ctx context.Context, msgs []OutboundMessage, resources []ContextResource, sink Sink) (string, error) {
	if err := a.checkConfig(); err != nil {
		return "", err
	}
	payload := a.chatPayload(a.buildMessages(msgs, resources, false), sink != nil)
	return a.executeRequest(ctx, a.endpoint(ramsesChatPath), payload, sink)
}

func (a *RamsesAdapter) SendRAGCompletion(ctx context.Context, msgs []OutboundMessage, collectionIDs []string, resources []ContextResource, sink Sink) (string, error) {
	if err := a.checkConfig(); err != nil {
		return "", err
	}
	textResources := make([]ContextResource, 0, len(resources))
	for _, r := range resources {
		if r.TextKind() {
			textResources = append(textResources, r)
		}
	}
	payload := a.chatPayload(a.buildMessages(msgs, textResources, true), sink != nil)
	payload["collection_ids"] = collectionIDs
	return a.executeRequest(ctx, a.endpoint(ramsesRAGChatPath), payload, sink)
}

func (a *RamsesAdapter) UploadToRAG(ctx context.Context, localPath string, entityID string) (RAGLink, error) {
	if err := a.checkConfig(); err != nil {
		return RAGLink{}, err
	}
	file, err := os.Open(localPath)
	if err != nil {
		return RAGLink{}, &UploadError{Message: "open local file failed: " + err.Error()}
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	// The remote side validates the file signature against the submitted
	// filename, so the original name must be preserved.
	part, err := writer.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return RAGLink{}, fmt.Errorf("build multipart body failed: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return RAGLink{}, &UploadError{Message: "read local file failed: " + err.Error()}
	}
	fields := map[string]string{
		"applicationid": strconv.FormatInt(numericID(a.cfg.ApplicationID), 10),
		"instanceid":    strconv.FormatInt(numericID(a.cfg.InstanceID), 10),
		"entityid":      strconv.FormatInt(numericID(entityID), 10),
		"purpose":       ragUploadPurpose,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return RAGLink{}, fmt.Errorf("write multipart field failed: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return RAGLink{}, fmt.Errorf("close multipart body failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(ramsesRAGUploadPath), &body)
	if err != nil {
		return RAGLink{}, fmt.Errorf("build upload request failed: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.uploadHTTP.Do(req)
	if err != nil {
		return RAGLink{}, &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RAGLink{}, classifyStatus(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return RAGLink{}, &ConnectionError{Err: err}
	}
	var parsed struct {
		CollectionID string `json:"collection_id"`
		ID           string `json:"id"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return RAGLink{}, &ParseError{Message: "malformed upload response: " + err.Error()}
	}
	if parsed.CollectionID == "" || parsed.ID == "" {
		return RAGLink{}, &ParseError{Message: "upload response missing collection_id or id"}
	}
	return RAGLink{CollectionID: parsed.CollectionID, FileID: parsed.ID}, nil
}

// DeleteFromRAG removes the remote file. HTTP 400 counts as success for
// compatibility with retrieval stores that report already-deleted files that
// way; any other failure returns false and is left to the caller to log.
func (a *RamsesAdapter) DeleteFromRAG(ctx context.Context, remoteFileID string, entityID string) bool {
	if err := a.checkConfig(); err != nil {
		return false
	}
	payload := map[string]any{
		"application_id": numericID(a.cfg.ApplicationID),
		"instance_id":    numericID(a.cfg.InstanceID),
		"entity_id":      numericID(entityID),
		"id":             remoteFileID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(ramsesRAGDeletePath), bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.uploadHTTP.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusBadRequest:
		return true
	default:
		return false
	}
}

func (a *RamsesAdapter) ListModels(ctx context.Context) ([]ModelInfo, error) {
	return a.fetchModels(ctx)
}

// numericID maps a logical identifier onto the integer range the retrieval
// store accepts. Deterministic but lossy: see DESIGN.md on collision risk.
func numericID(s string) int64 {
	return int64(crc32.ChecksumIEEE([]byte(s)) % numericIDModulus)
}
