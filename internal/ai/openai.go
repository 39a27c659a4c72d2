package ai

import "context"

const (
	BackendOpenAI = "openai"

	openaiChatPath = "/chat"
)

// OpenAIAdapter is the secondary backend: multimodal completion only, no
// retrieval support and no streaming.
type OpenAIAdapter struct {
	*client
}

func NewOpenAIAdapter(cfg Config, systemPrompt string) *OpenAIAdapter {
	return &OpenAIAdapter{client: newClient(BackendOpenAI, cfg, systemPrompt)}
}

func (a *OpenAIAdapter) ID() string               { return BackendOpenAI }
func (a *OpenAIAdapter) SupportsRAG() bool        { return false }
func (a *OpenAIAdapter) SupportsMultimodal() bool { return true }
func (a *OpenAIAdapter) SupportsStreaming() bool  { return false }

func (a *OpenAIAdapter) SendCompletion(ctx context.Context, msgs []OutboundMessage, resources []ContextResource, sink Sink) (string, error) {
	if err := a.checkConfig(); err != nil {
		return "", err
	}
	// Streaming is not supported; the sink is satisfied by the caller once
	// the full text is available.
	payload := a.chatPayload(a.buildMessages(msgs, resources, false), false)
	return a.executeRequest(ctx, a.endpoint(openaiChatPath), payload, nil)
}

func (a *OpenAIAdapter) SendRAGCompletion(ctx context.Context, msgs []OutboundMessage, collectionIDs []string, resources []ContextResource, sink Sink) (string, error) {
	return "", &UnsupportedOperationError{Backend: BackendOpenAI, Operation: "retrieval-augmented completion"}
}

func (a *OpenAIAdapter) UploadToRAG(ctx context.Context, localPath string, entityID string) (RAGLink, error) {
	return RAGLink{}, &UnsupportedOperationError{Backend: BackendOpenAI, Operation: "retrieval upload"}
}

func (a *OpenAIAdapter) DeleteFromRAG(ctx context.Context, remoteFileID string, entityID string) bool {
	return false
}

func (a *OpenAIAdapter) ListModels(ctx context.Context) ([]ModelInfo, error) {
	return a.fetchModels(ctx)
}
