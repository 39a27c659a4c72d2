package app

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"log"
	"strings"

	"chatrelay/internal/ai"
	"chatrelay/internal/model"
	"chatrelay/internal/pkg/pdfextract"
)

var textSuffixes = map[string]bool{"txt": true, "md": true, "csv": true}

var imageSuffixes = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true,
}

const pdfSuffix = "pdf"

// Assembler turns a chat's background files into ephemeral context
// resources. Collection is best-effort: a file that cannot be resolved is
// logged and skipped, never aborting the whole assembly.
type Assembler struct {
	atts  AttachmentStore
	blobs BlobStore
}

func NewAssembler(atts AttachmentStore, blobs BlobStore) *Assembler {
	return &Assembler{atts: atts, blobs: blobs}
}

// ProcessBackgroundFiles resolves every background file reference of the
// chat. PDFs are skipped entirely when retrieval mode is active since their
// content is already indexed in the collection.
func (a *Assembler) ProcessBackgroundFiles(chat *model.Chat, ragActive bool) []ai.ContextResource {
	files, err := a.atts.ListBackgroundByChatID(chat.ID)
	if err != nil {
		log.Printf("context: list background files failed for chat %d: %v", chat.ID, err)
		return nil
	}

	var resources []ai.ContextResource
	for i := range files {
		fileResources, err := a.fileResources(&files[i], ragActive)
		if err != nil {
			log.Printf("context: skip background file %q (chat %d): %v", files[i].Title, chat.ID, err)
			continue
		}
		resources = append(resources, fileResources...)
	}
	return resources
}

func (a *Assembler) fileResources(att *model.Attachment, ragActive bool) ([]ai.ContextResource, error) {
	suffix := strings.ToLower(att.Suffix)
	switch {
	case textSuffixes[suffix]:
		blob, err := a.resolve(att.BlobID)
		if err != nil {
			return nil, err
		}
		return []ai.ContextResource{{
			Kind:     ai.ResourceTextFile,
			ID:       att.BlobID,
			Title:    att.Title,
			MimeType: blob.MimeType,
			Content:  string(blob.Data),
		}}, nil

	case imageSuffixes[suffix]:
		blob, err := a.resolve(att.BlobID)
		if err != nil {
			return nil, err
		}
		return []ai.ContextResource{{
			Kind:     ai.ResourceImageFile,
			ID:       att.BlobID,
			Title:    att.Title,
			MimeType: blob.MimeType,
			URL:      dataURL(blob.MimeType, blob.Data),
		}}, nil

	case suffix == pdfSuffix:
		if ragActive {
			// Already covered by the retrieval collection.
			return nil, nil
		}
		blob, err := a.resolve(att.BlobID)
		if err != nil {
			return nil, err
		}
		return pdfPageResources(att, blob)

	default:
		return nil, nil
	}
}

func (a *Assembler) resolve(blobID string) (*model.Blob, error) {
	blob, err := a.blobs.Resolve(blobID)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, fmt.Errorf("blob %s not found", blobID)
	}
	return blob, nil
}

func pdfPageResources(att *model.Attachment, blob *model.Blob) ([]ai.ContextResource, error) {
	pages, err := pdfextract.ExtractPages(bytes.NewReader(blob.Data))
	if err != nil {
		return nil, fmt.Errorf("extract pdf pages: %w", err)
	}
	return pageResources(att, blob.MimeType, pages), nil
}

// pageResources emits one resource per page, numbered from 1.
func pageResources(att *model.Attachment, mimeType string, pages []string) []ai.ContextResource {
	resources := make([]ai.ContextResource, 0, len(pages))
	for i, pageText := range pages {
		resources = append(resources, ai.ContextResource{
			Kind:       ai.ResourcePDFPage,
			ID:         fmt.Sprintf("%s-page-%d", att.BlobID, i+1),
			Title:      fmt.Sprintf("%s (Page %d)", att.Title, i+1),
			MimeType:   mimeType,
			Content:    strings.TrimSpace(pageText),
			PageNumber: i + 1,
		})
	}
	return resources
}

// PageContextResource wraps extracted source-document text supplied by the
// page-text collaborator. Returns false when the text is empty.
func PageContextResource(pageText string) (ai.ContextResource, bool) {
	text := strings.TrimSpace(pageText)
	if text == "" {
		return ai.ContextResource{}, false
	}
	return ai.ContextResource{
		Kind:    ai.ResourcePageContext,
		ID:      "page-context",
		Title:   "Page content",
		Content: text,
	}, true
}

func dataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
