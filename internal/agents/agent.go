// Package agents loads debate participants from YAML definitions and gives
// each one a model service and optional plugins.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"github.com/openagora/agora/internal/domain"
)

// Definition is the YAML shape of one agent.
type Definition struct {
	Name            string   `koanf:"name"`
	Description     string   `koanf:"description"`
	Instructions    string   `koanf:"instructions"`
	Service         string   `koanf:"service"`
	Temperature     float32  `koanf:"temperature"`
	IsCritic        bool     `koanf:"is_critic"`
	IncludedPlugins []string `koanf:"included_plugins"`
}

// Service binds a provider to a concrete model.
type Service struct {
	Provider domain.Provider
	Model    string
}

// Agent is one debate participant.
type Agent struct {
	def       Definition
	service   Service
	retriever domain.Retriever
	logger    *slog.Logger
}

// Name returns the agent's name.
func (a *Agent) Name() string { return a.def.Name }

// Description returns the agent's description.
func (a *Agent) Description() string { return a.def.Description }

// IsCritic reports whether the agent evaluates rather than produces answers.
func (a *Agent) IsCritic() bool { return a.def.IsCritic }

// Model returns the model the agent's service is bound to.
func (a *Agent) Model() string { return a.service.Model }

// Respond produces the agent's next message given the conversation so far.
// When the agent has the search plugin enabled, retrieval results for the
// latest user question are injected as context; retrieval failures are logged
// and skipped, never fatal.
func (a *Agent) Respond(ctx context.Context, history []domain.Message) (domain.Message, error) {
	msgs := make([]domain.Message, 0, len(history)+2)
	msgs = append(msgs, domain.Message{Role: "system", Content: a.def.Instructions})

	if a.retriever != nil && slices.Contains(a.def.IncludedPlugins, "search") {
		if query := lastUserContent(history); query != "" {
			if res, err := a.retriever.Search(ctx, query); err != nil {
				a.logger.Warn("retrieval failed, continuing without context",
					slog.String("agent", a.def.Name),
					slog.String("error", err.Error()),
				)
			} else if res != nil && len(res.Results) > 0 {
				docs, _ := json.Marshal(res.Results)
				msgs = append(msgs, domain.Message{
					Role:    "system",
					Content: "Relevant documents from the internal index:\n" + string(docs),
				})
			}
		}
	}

	msgs = append(msgs, history...)

	resp, err := a.service.Provider.Complete(ctx, &domain.ChatRequest{
		Model:       a.service.Model,
		Messages:    msgs,
		Temperature: a.def.Temperature,
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("agent %s failed to respond: %w", a.def.Name, err)
	}

	return domain.Message{
		Role:    "assistant",
		Name:    a.def.Name,
		Content: resp.Text(),
	}, nil
}

func lastUserContent(history []domain.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" {
			return history[i].Content
		}
	}
	return ""
}
