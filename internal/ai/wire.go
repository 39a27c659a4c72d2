package ai

// Wire-level message model shared by all backends. Content is either a plain
// string or an ordered list of typed parts; the JSON shape follows the
// OpenAI-compatible chat schema both backends speak.

const (
	PartTypeText     = "text"
	PartTypeImageURL = "image_url"
)

type OutboundMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// TextMessage builds a plain-text outbound message.
func TextMessage(role, text string) OutboundMessage {
	return OutboundMessage{Role: role, Content: text}
}

// PartsMessage builds a multimodal outbound message from ordered parts.
func PartsMessage(role string, parts []ContentPart) OutboundMessage {
	return OutboundMessage{Role: role, Content: parts}
}

func TextPart(text string) ContentPart {
	return ContentPart{Type: PartTypeText, Text: text}
}

func ImagePart(url string) ContentPart {
	return ContentPart{Type: PartTypeImageURL, ImageURL: &ImageURL{URL: url}}
}

// ResourceKind tags the variants of a context resource.
type ResourceKind string

const (
	ResourceTextFile    ResourceKind = "textFile"
	ResourceImageFile   ResourceKind = "imageFile"
	ResourcePDFPage     ResourceKind = "pdfPage"
	ResourcePageContext ResourceKind = "pageContext"
)

// ContextResource is an ephemeral, typed unit of background information
// assembled fresh per conversation turn. It is never persisted.
type ContextResource struct {
	Kind       ResourceKind `json:"kind"`
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	MimeType   string       `json:"mime_type"`
	Content    string       `json:"content,omitempty"`
	URL        string       `json:"url,omitempty"`
	PageNumber int          `json:"page_number,omitempty"`
}

// TextKind reports whether the resource is a plain-text kind. PDF pages and
// images are not text kinds even when their content degrades to text; a RAG
// request carries only text kinds because file content is already indexed
// remotely.
func (r ContextResource) TextKind() bool {
	return r.Kind == ResourceTextFile || r.Kind == ResourcePageContext
}

// RAGLink is the remote linkage returned by a successful retrieval upload.
type RAGLink struct {
	CollectionID string
	FileID       string
}

// ModelInfo is one entry of a backend's model listing.
type ModelInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

// SyncStats aggregates the outcome of one synchronization batch.
type SyncStats struct {
	Uploaded int `json:"uploaded"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

func (s *SyncStats) Add(other SyncStats) {
	s.Uploaded += other.Uploaded
	s.Skipped += other.Skipped
	s.Errors += other.Errors
}
