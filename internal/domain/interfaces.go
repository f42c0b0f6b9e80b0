package domain

import "context"

// Provider is a chat completion backend. Implementations must be safe for
// concurrent use.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	Stream(ctx context.Context, req *ChatRequest) (<-chan ChatEvent, error)
}

// Retriever executes a search against an external index and returns raw
// results for agents to consume.
type Retriever interface {
	Search(ctx context.Context, query string) (*SearchResult, error)
}

// SearchResult mirrors the retrieval service's response shape.
type SearchResult struct {
	TotalCount      int              `json:"total_count"`
	Results         []map[string]any `json:"results"`
	SearchID        string           `json:"search_id,omitempty"`
	SemanticAnswers []map[string]any `json:"semantic_answers,omitempty"`
}
