// Package debate runs a structured exchange between writer and critic agents
// to iteratively refine an answer. A debate between equally capable models
// can deliver an outcome exceeding what a single request-response gets:
// each agent focuses on a subset of the whole task.
package debate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openagora/agora/internal/agents"
	"github.com/openagora/agora/internal/domain"
	"github.com/openagora/agora/internal/tokens"
)

const (
	defaultMaxIterations = 3
	// maxIterationsCeiling caps what a request may ask for.
	maxIterationsCeiling = 10

	initialStatus  = "Evaluating your question..."
	incompleteText = "I wasn't able to generate a complete response. Please try again with a more specific question."
)

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithTokenRegistry enables per-debate token accounting.
func WithTokenRegistry(reg *tokens.Registry) Option {
	return func(o *Orchestrator) {
		o.tokens = reg
	}
}

// WithMaxIterations sets the default iteration cap used when a request
// doesn't specify one.
func WithMaxIterations(n int) Option {
	return func(o *Orchestrator) {
		o.maxIterations = n
	}
}

// WithScoreThreshold sets the critic score at which the debate is approved.
func WithScoreThreshold(score float64) Option {
	return func(o *Orchestrator) {
		o.scoreThreshold = score
	}
}

// Orchestrator drives the agent group chat: sequential speaker selection,
// critique-gated termination and status narration between turns.
type Orchestrator struct {
	manager *agents.Manager
	utility agents.Service
	tokens  *tokens.Registry
	logger  *slog.Logger
	tracer  trace.Tracer

	maxIterations  int
	scoreThreshold float64
}

// New creates an orchestrator. utility is the small model used to narrate
// progress between iterations.
func New(manager *agents.Manager, utility agents.Service, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		manager:        manager,
		utility:        utility,
		logger:         slog.Default(),
		tracer:         otel.Tracer("debate"),
		maxIterations:  defaultMaxIterations,
		scoreThreshold: 8,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes one question through the debate. emit is invoked for every
// status update in production order; the final answer is returned rather than
// emitted. Run never panics past its boundary; any agent or provider failure
// is returned as an error for the caller to shape.
func (o *Orchestrator) Run(ctx context.Context, req *domain.DebateRequest, emit func(domain.StatusUpdate)) (*domain.FinalAnswer, error) {
	maxIterations := req.MaxIterations
	if maxIterations <= 0 {
		maxIterations = o.maxIterations
	}
	if maxIterations > maxIterationsCeiling {
		maxIterations = maxIterationsCeiling
	}

	roster := o.manager.All()
	if len(roster) == 0 {
		return nil, fmt.Errorf("no agents loaded")
	}

	sessionID := fmt.Sprintf("%s-%s", req.UserID, time.Now().Format("2006-01-02_15:04:05"))
	ctx, span := o.tracer.Start(ctx, sessionID, trace.WithAttributes(
		attribute.String("debate.user_id", req.UserID),
		attribute.Int("debate.max_iterations", maxIterations),
	))
	defer span.End()

	emit(domain.StatusUpdate{Message: initialStatus})

	selection := NewSequential()
	termination := &CriticApproval{
		MaxIterations:  maxIterations,
		ScoreThreshold: o.scoreThreshold,
	}

	history := []domain.Message{
		{Role: "user", Name: "user", Content: req.Question},
	}
	var transcript []domain.Message
	var finalMsg *domain.Message
	totalTokens := 0

	for iteration := 1; ; iteration++ {
		agent, err := selection.Next(roster, history)
		if err != nil {
			return nil, err
		}

		msg, err := agent.Respond(ctx, history)
		if err != nil {
			return nil, fmt.Errorf("debate iteration %d: %w", iteration, err)
		}

		history = append(history, msg)
		transcript = append(transcript, msg)

		if !agent.IsCritic() {
			m := msg
			finalMsg = &m
		}

		if o.tokens != nil {
			if n, err := o.tokens.Count(agent.Model(), msg.Content); err == nil {
				totalTokens += n
			}
		}

		next := o.describeNextAction(ctx, history)
		o.logger.Info("debate turn",
			slog.String("agent", msg.Name),
			slog.Int("iteration", iteration),
			slog.String("next_action", next),
		)
		emit(domain.StatusUpdate{Agent: msg.Name, Message: next})

		if strings.Contains(next, "APPROVED:") ||
			strings.Contains(next, "FINAL:") ||
			strings.Contains(next, "Solution complete") ||
			termination.ShouldTerminate(history, iteration) {
			o.logger.Info("debate terminating",
				slog.Int("iteration", iteration),
				slog.String("reason", next),
			)
			break
		}

		// Safety net against runaway narration that never signals completion
		if iteration >= maxIterations*2 {
			o.logger.Warn("force terminating debate", slog.Int("iteration", iteration))
			break
		}
	}

	span.SetAttributes(attribute.Int("debate.total_tokens", totalTokens))
	o.logger.Info("debate finished",
		slog.Int("messages", len(transcript)),
		slog.Int("total_tokens", totalTokens),
	)

	answer := o.resolveAnswer(finalMsg, history)
	if req.IncludeDebateDetails {
		answer.DebateTranscript = transcript
	}
	return answer, nil
}

func (o *Orchestrator) resolveAnswer(finalMsg *domain.Message, history []domain.Message) *domain.FinalAnswer {
	if finalMsg != nil {
		return &domain.FinalAnswer{
			Role:    finalMsg.Role,
			Name:    finalMsg.Name,
			Content: finalMsg.Content,
		}
	}

	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "assistant" {
			return &domain.FinalAnswer{
				Role:    history[i].Role,
				Name:    history[i].Name,
				Content: history[i].Content,
			}
		}
	}

	return &domain.FinalAnswer{
		Role:    "assistant",
		Content: incompleteText,
	}
}

// describeNextAction asks the utility model for a short narration of what's
// happening next. Failures degrade to a plain "<agent> responded" line; the
// narration is cosmetic and must never break the debate.
func (o *Orchestrator) describeNextAction(ctx context.Context, history []domain.Message) string {
	lastAgent := "Unknown"
	if len(history) > 0 {
		if name := history[len(history)-1].Name; name != "" {
			lastAgent = name
		}
	}

	recent := history
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	var b strings.Builder
	for _, msg := range recent {
		fmt.Fprintf(&b, "%s (%s): %s\n", msg.Name, msg.Role, msg.Content)
	}

	var rosterDesc strings.Builder
	for _, a := range o.manager.All() {
		fmt.Fprintf(&rosterDesc, "- %s: %s\n", a.Name(), a.Description())
	}

	prompt := fmt.Sprintf(`Given the following conversation between specialist agents, describe the next action.

Provide a brief summary (3-5 words) of what's happening next in the format: "AGENT: Action description"

AGENTS:
%s
If the last message is from a critic with a score of %.0f or higher, respond with "APPROVED: Solution complete"
If a complete solution has been reached, respond with "FINAL: Complete solution provided"

Last agent to speak: %s

CONVERSATION HISTORY:
%s`, rosterDesc.String(), o.scoreThreshold, lastAgent, b.String())

	resp, err := o.utility.Provider.Complete(ctx, &domain.ChatRequest{
		Model: o.utility.Model,
		Messages: []domain.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		o.logger.Warn("next action narration failed", slog.String("error", err.Error()))
		return fmt.Sprintf("%s: responded", lastAgent)
	}
	return strings.TrimSpace(resp.Text())
}
