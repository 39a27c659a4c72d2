package ai

import "context"

// Config holds the static, admin-level settings of one backend.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string

	// Temperature is included in completion payloads when positive, except
	// for model families that reject the parameter.
	Temperature float64

	// Logical identifiers the retrieval store expects as numeric fields.
	ApplicationID string
	InstanceID    string
}

// Adapter is a protocol client for one AI backend. Implementations declare
// their capabilities explicitly; callers must consult the predicates instead
// of assuming every operation is available.
type Adapter interface {
	ID() string

	SupportsRAG() bool
	SupportsMultimodal() bool
	SupportsStreaming() bool

	// SendCompletion issues a standard chat completion: optional configured
	// system message, context resources as one leading user turn, then the
	// formatted history. A non-nil sink selects streaming on backends that
	// support it and receives deltas as they arrive.
	SendCompletion(ctx context.Context, msgs []OutboundMessage, resources []ContextResource, sink Sink) (string, error)

	// SendRAGCompletion is SendCompletion restricted to text-kind context
	// resources, with the retrieval collection ids added to the payload.
	SendRAGCompletion(ctx context.Context, msgs []OutboundMessage, collectionIDs []string, resources []ContextResource, sink Sink) (string, error)

	// UploadToRAG submits a local file to the retrieval store. The file must
	// keep its original name; the remote side validates the file signature
	// against it.
	UploadToRAG(ctx context.Context, localPath string, entityID string) (RAGLink, error)

	// DeleteFromRAG removes a remote file, returning false on any failure.
	// Failures are non-fatal to the caller.
	DeleteFromRAG(ctx context.Context, remoteFileID string, entityID string) bool

	ListModels(ctx context.Context) ([]ModelInfo, error)
}
