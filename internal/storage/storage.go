// Package storage defines the persistence interfaces for debate history.
package storage

import (
	"context"
	"time"
)

// Conversation is one question-and-answer exchange for a user, including the
// inter-agent turns produced while the answer was being worked out.
type Conversation struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Question  string            `json:"question"`
	Answer    string            `json:"answer"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Turns     []Turn            `json:"turns,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Turn is a single message within a conversation. Kind distinguishes the
// debate transcript ("debate") from status narration ("status").
type Turn struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Agent     string    `json:"agent,omitempty"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// ListOptions controls history pagination.
type ListOptions struct {
	UserID string
	Limit  int
	Offset int
}

// HistoryStore persists conversations and their turns.
type HistoryStore interface {
	CreateConversation(ctx context.Context, conv *Conversation) error
	AddTurn(ctx context.Context, convID string, turn *Turn) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context, opts ListOptions) ([]*Conversation, error)
	SetAnswer(ctx context.Context, convID, answer string) error
	DeleteConversation(ctx context.Context, id string) error
	Close() error
}
