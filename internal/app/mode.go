package app

import "chatrelay/internal/ai"

// RAGActive decides whether the turn runs in retrieval-augmented mode. It is
// the conjunction of four gates: the adapter's declared capability, the
// admin-level per-backend toggle, the chat's own flag, and the presence of at
// least one retrieval collection id on the chat's attachments.
//
// The decision is recomputed on every turn; any of the inputs may change
// between turns, so it must never be cached.
func RAGActive(adapter ai.Adapter, adminEnabled, chatEnabled, hasCollections bool) bool {
	return adapter != nil &&
		adapter.SupportsRAG() &&
		adminEnabled &&
		chatEnabled &&
		hasCollections
}
