// Package history records completed debates into the conversation store.
package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openagora/agora/internal/domain"
	"github.com/openagora/agora/internal/storage"
)

// Record stores a completed debate in the history store. It best-effort logs
// on failure without failing the request path.
func Record(ctx context.Context, store storage.HistoryStore, req *domain.DebateRequest, answer *domain.FinalAnswer, statuses []domain.StatusUpdate) string {
	if store == nil || req == nil {
		return ""
	}

	logger := slog.Default()
	// Decouple persistence from the request lifecycle to avoid dropping
	// history when clients disconnect; still enforce a short timeout.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	convID := "conv_" + uuid.New().String()

	conv := &storage.Conversation{
		ID:       convID,
		UserID:   req.UserID,
		Question: req.Question,
	}
	if answer != nil {
		conv.Answer = answer.Content
	}

	if err := store.CreateConversation(persistCtx, conv); err != nil {
		logger.Error("failed to create conversation",
			slog.String("conversation_id", convID),
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
		return convID
	}

	addTurn := func(role, agent, content, kind string) {
		if content == "" {
			return
		}
		if err := store.AddTurn(persistCtx, convID, &storage.Turn{
			ID:      "turn_" + uuid.New().String(),
			Role:    role,
			Agent:   agent,
			Content: content,
			Kind:    kind,
		}); err != nil {
			logger.Error("failed to store turn",
				slog.String("conversation_id", convID),
				slog.String("role", role),
				slog.String("error", err.Error()),
			)
		}
	}

	for _, status := range statuses {
		addTurn("status", status.Agent, status.Message, "status")
	}

	if answer != nil {
		for _, msg := range answer.DebateTranscript {
			addTurn(msg.Role, msg.Name, msg.Content, "debate")
		}
		addTurn(answer.Role, answer.Name, answer.Content, "answer")
	}

	return convID
}
