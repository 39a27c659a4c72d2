package app

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"chatrelay/internal/ai"
	"chatrelay/internal/model"
	"chatrelay/internal/pkg/pdfextract"
)

// Formatter turns stored conversation history into the backend wire format.
type Formatter struct {
	atts  AttachmentStore
	blobs BlobStore
}

func NewFormatter(atts AttachmentStore, blobs BlobStore) *Formatter {
	return &Formatter{atts: atts, blobs: blobs}
}

// FormatHistory converts messages in order. In retrieval mode every turn is
// plain text: attachments are assumed covered by the collection. Otherwise
// attachments already mirrored to the retrieval store are excluded and the
// rest are embedded inline, preserving attachment order with PDF pages
// ascending within each attachment.
func (f *Formatter) FormatHistory(messages []model.Message, ragActive bool) []ai.OutboundMessage {
	out := make([]ai.OutboundMessage, 0, len(messages))
	for i := range messages {
		out = append(out, f.formatMessage(&messages[i], ragActive))
	}
	return out
}

func (f *Formatter) formatMessage(msg *model.Message, ragActive bool) ai.OutboundMessage {
	if ragActive {
		return ai.TextMessage(msg.Role, msg.Content)
	}

	attachments, err := f.atts.ListByMessageID(msg.ID)
	if err != nil {
		log.Printf("format: list attachments failed for message %d: %v", msg.ID, err)
		return ai.TextMessage(msg.Role, msg.Content)
	}

	inline := inlineSet(attachments)
	if len(inline) == 0 {
		return ai.TextMessage(msg.Role, msg.Content)
	}

	parts := make([]ai.ContentPart, 0, len(inline)+1)
	if text := strings.TrimSpace(msg.Content); text != "" {
		parts = append(parts, ai.TextPart(text))
	}
	for i := range inline {
		attachmentParts, err := f.attachmentParts(&inline[i])
		if err != nil {
			log.Printf("format: skip attachment %q (message %d): %v", inline[i].Title, msg.ID, err)
			continue
		}
		parts = append(parts, attachmentParts...)
	}
	if len(parts) == 0 {
		return ai.TextMessage(msg.Role, msg.Content)
	}
	return ai.PartsMessage(msg.Role, parts)
}

// inlineSet selects the attachments that need inline embedding: image and
// PDF files not yet mirrored to a retrieval collection, in original order.
func inlineSet(attachments []model.Attachment) []model.Attachment {
	var inline []model.Attachment
	for _, att := range attachments {
		if att.InRAG() {
			continue
		}
		suffix := strings.ToLower(att.Suffix)
		if imageSuffixes[suffix] || suffix == pdfSuffix {
			inline = append(inline, att)
		}
	}
	return inline
}

func (f *Formatter) attachmentParts(att *model.Attachment) ([]ai.ContentPart, error) {
	blob, err := f.blobs.Resolve(att.BlobID)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, fmt.Errorf("blob %s not found", att.BlobID)
	}

	if strings.ToLower(att.Suffix) == pdfSuffix {
		pages, err := pdfextract.ExtractPages(bytes.NewReader(blob.Data))
		if err != nil {
			return nil, err
		}
		parts := make([]ai.ContentPart, 0, len(pages))
		for i, pageText := range pages {
			parts = append(parts, pdfPagePart(att.Title, i+1, pageText))
		}
		return parts, nil
	}

	return []ai.ContentPart{ai.ImagePart(dataURL(blob.MimeType, blob.Data))}, nil
}

func pdfPagePart(title string, pageNumber int, pageText string) ai.ContentPart {
	header := fmt.Sprintf("%s (Page %d)", title, pageNumber)
	text := strings.TrimSpace(pageText)
	if text == "" {
		return ai.TextPart(header)
	}
	return ai.TextPart(header + ":\n" + text)
}
