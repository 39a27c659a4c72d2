package ai

import "sort"

// Factory builds an adapter from admin-level settings and the chat's
// configured system prompt.
type Factory func(cfg Config, systemPrompt string) Adapter

// factories is the explicit list of known backends. No discovery mechanism;
// adding a backend means adding a line here.
var factories = map[string]Factory{
	BackendRamses: func(cfg Config, systemPrompt string) Adapter { return NewRamsesAdapter(cfg, systemPrompt) },
	BackendOpenAI: func(cfg Config, systemPrompt string) Adapter { return NewOpenAIAdapter(cfg, systemPrompt) },
}

// BackendSettings are the admin-level knobs for one configured backend.
type BackendSettings struct {
	Config     Config
	Enabled    bool
	RAGEnabled bool
}

// Registry maps backend ids to adapter constructors, gated by admin
// configuration. Pure lookup; reading configuration is its only input.
type Registry struct {
	backends map[string]BackendSettings
}

func NewRegistry(backends map[string]BackendSettings) *Registry {
	if backends == nil {
		backends = map[string]BackendSettings{}
	}
	return &Registry{backends: backends}
}

// Available lists every backend id an adapter exists for, configured or not.
func (r *Registry) Available() []string {
	ids := make([]string, 0, len(factories))
	for id := range factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Enabled lists the subset of available backends switched on by admin
// configuration.
func (r *Registry) Enabled() []string {
	var ids []string
	for id := range factories {
		if r.backends[id].Enabled {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Create instantiates the adapter for id, or nil with false when the backend
// is unknown or disabled.
func (r *Registry) Create(id, systemPrompt string) (Adapter, bool) {
	factory, ok := factories[id]
	if !ok {
		return nil, false
	}
	settings, ok := r.backends[id]
	if !ok || !settings.Enabled {
		return nil, false
	}
	return factory(settings.Config, systemPrompt), true
}

// RAGEnabled reports the admin-level retrieval toggle for a backend.
func (r *Registry) RAGEnabled(id string) bool {
	return r.backends[id].RAGEnabled
}
