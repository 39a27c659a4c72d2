package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/ai"
	"chatrelay/internal/model"
)

func TestFormatHistoryRetrievalModeIsTextOnly(t *testing.T) {
	atts := newFakeAttachmentStore()
	blobs := newFakeBlobStore()

	seedAttachment(t, atts, blobs, model.Attachment{
		ChatID: 1, MessageID: 1, BlobID: "b1",
		Title: "photo.png", Suffix: "png", MimeType: "image/png",
	}, []byte{0x89})

	messages := []model.Message{
		{ID: 1, Role: model.RoleUser, Content: "look at this"},
		{ID: 2, Role: model.RoleAssistant, Content: "nice photo"},
	}

	f := NewFormatter(atts, blobs)
	out := f.FormatHistory(messages, true)
	require.Len(t, out, 2)
	for i, msg := range out {
		assert.Equal(t, messages[i].Content, msg.Content, "retrieval mode must not inline attachments")
	}
}

func TestFormatHistoryInlinesImages(t *testing.T) {
	atts := newFakeAttachmentStore()
	blobs := newFakeBlobStore()

	seedAttachment(t, atts, blobs, model.Attachment{
		ChatID: 1, MessageID: 1, BlobID: "b1",
		Title: "first.png", Suffix: "png", MimeType: "image/png",
	}, []byte{0x01})
	seedAttachment(t, atts, blobs, model.Attachment{
		ChatID: 1, MessageID: 1, BlobID: "b2",
		Title: "second.jpg", Suffix: "jpg", MimeType: "image/jpeg",
	}, []byte{0x02})

	messages := []model.Message{{ID: 1, Role: model.RoleUser, Content: "two images"}}

	f := NewFormatter(atts, blobs)
	out := f.FormatHistory(messages, false)
	require.Len(t, out, 1)

	parts, ok := out[0].Content.([]ai.ContentPart)
	require.True(t, ok)
	require.Len(t, parts, 3)
	assert.Equal(t, ai.PartTypeText, parts[0].Type)
	assert.Equal(t, "two images", parts[0].Text)
	assert.Equal(t, ai.PartTypeImageURL, parts[1].Type)
	assert.Equal(t, ai.PartTypeImageURL, parts[2].Type)
	assert.Contains(t, parts[1].ImageURL.URL, "data:image/png;base64,")
	assert.Contains(t, parts[2].ImageURL.URL, "data:image/jpeg;base64,")
}

func TestFormatHistoryExcludesMirroredAttachments(t *testing.T) {
	atts := newFakeAttachmentStore()
	blobs := newFakeBlobStore()

	now := time.Now()
	mirrored := model.Attachment{
		ChatID: 1, MessageID: 1, BlobID: "b1",
		Title: "synced.png", Suffix: "png", MimeType: "image/png",
	}
	mirrored.SetRAGLink("col-1", "file-1", now)
	seedAttachment(t, atts, blobs, mirrored, []byte{0x01})

	messages := []model.Message{{ID: 1, Role: model.RoleUser, Content: "already synced"}}

	f := NewFormatter(atts, blobs)
	out := f.FormatHistory(messages, false)
	require.Len(t, out, 1)
	assert.Equal(t, "already synced", out[0].Content, "mirrored attachment must not be inlined")
}

func TestFormatHistorySkipsTextOnlyAttachments(t *testing.T) {
	atts := newFakeAttachmentStore()
	blobs := newFakeBlobStore()

	seedAttachment(t, atts, blobs, model.Attachment{
		ChatID: 1, MessageID: 1, BlobID: "b1",
		Title: "notes.txt", Suffix: "txt", MimeType: "text/plain",
	}, []byte("not inlined"))

	messages := []model.Message{{ID: 1, Role: model.RoleUser, Content: "with a text file"}}

	f := NewFormatter(atts, blobs)
	out := f.FormatHistory(messages, false)
	require.Len(t, out, 1)
	assert.Equal(t, "with a text file", out[0].Content)
}

func TestFormatHistoryFallsBackWhenBlobsMissing(t *testing.T) {
	atts := newFakeAttachmentStore()
	blobs := newFakeBlobStore()

	require.NoError(t, atts.Create(&model.Attachment{
		ChatID: 1, MessageID: 1, BlobID: "missing",
		Title: "gone.png", Suffix: "png",
	}))

	messages := []model.Message{{ID: 1, Role: model.RoleUser, Content: "orphaned attachment"}}

	f := NewFormatter(atts, blobs)
	out := f.FormatHistory(messages, false)
	require.Len(t, out, 1)
	assert.Equal(t, "orphaned attachment", out[0].Content)
}

func TestPDFPagePart(t *testing.T) {
	part := pdfPagePart("doc.pdf", 3, "  body text  ")
	assert.Equal(t, "doc.pdf (Page 3):\nbody text", part.Text)

	empty := pdfPagePart("doc.pdf", 4, "   ")
	assert.Equal(t, "doc.pdf (Page 4)", empty.Text)
}
