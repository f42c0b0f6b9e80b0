// Package openai implements domain.Provider against OpenAI-compatible chat
// completion endpoints.
package openai

import (
	"context"
	"net/http"

	"github.com/openagora/agora/internal/domain"
)

// ProviderOption configures the provider.
type ProviderOption func(*Provider)

// WithProviderBaseURL sets a custom base URL for the API.
func WithProviderBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithProviderHTTPClient sets a custom HTTP client.
func WithProviderHTTPClient(httpClient *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = httpClient
	}
}

// Provider implements the domain.Provider interface.
type Provider struct {
	client     *Client
	baseURL    string
	httpClient *http.Client
}

// New creates a new OpenAI provider.
func New(apiKey string, opts ...ProviderOption) *Provider {
	p := &Provider{}
	for _, opt := range opts {
		opt(p)
	}

	var clientOpts []ClientOption
	if p.baseURL != "" {
		clientOpts = append(clientOpts, WithBaseURL(p.baseURL))
	}
	if p.httpClient != nil {
		clientOpts = append(clientOpts, WithHTTPClient(p.httpClient))
	}

	p.client = NewClient(apiKey, clientOpts...)
	return p
}

func (p *Provider) Name() string {
	return "openai"
}

func (p *Provider) Complete(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, toAPIRequest(req))
	if err != nil {
		return nil, err
	}
	return toChatResponse(resp), nil
}

func (p *Provider) Stream(ctx context.Context, req *domain.ChatRequest) (<-chan domain.ChatEvent, error) {
	stream, err := p.client.StreamChatCompletion(ctx, toAPIRequest(req))
	if err != nil {
		return nil, err
	}

	out := make(chan domain.ChatEvent)
	go func() {
		defer close(out)
		for result := range stream {
			if result.Err != nil {
				out <- domain.ChatEvent{Error: result.Err}
				return
			}

			chunk := result.Chunk
			if len(chunk.Choices) > 0 {
				choice := chunk.Choices[0]
				out <- domain.ChatEvent{
					Role:         choice.Delta.Role,
					ContentDelta: choice.Delta.Content,
				}
			}

			// Usage arrives in the final chunk
			if chunk.Usage != nil {
				out <- domain.ChatEvent{
					Usage: &domain.Usage{
						PromptTokens:     chunk.Usage.PromptTokens,
						CompletionTokens: chunk.Usage.CompletionTokens,
						TotalTokens:      chunk.Usage.TotalTokens,
					},
				}
			}
		}
	}()

	return out, nil
}

func toAPIRequest(req *domain.ChatRequest) *ChatCompletionRequest {
	messages := make([]ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
			Name:    m.Name,
		}
	}

	apiReq := &ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   req.Stream,
	}

	if req.MaxTokens > 0 {
		// Newer models prefer max_completion_tokens
		apiReq.MaxCompletionTokens = req.MaxTokens
	}

	if req.Temperature > 0 {
		apiReq.Temperature = &req.Temperature
	}

	return apiReq
}

func toChatResponse(resp *ChatCompletionResponse) *domain.ChatResponse {
	choices := make([]domain.Choice, len(resp.Choices))
	for i, c := range resp.Choices {
		choices[i] = domain.Choice{
			Index: c.Index,
			Message: domain.Message{
				Role:    c.Message.Role,
				Content: c.Message.Content,
				Name:    c.Message.Name,
			},
			FinishReason: c.FinishReason,
		}
	}

	return &domain.ChatResponse{
		ID:      resp.ID,
		Object:  resp.Object,
		Created: resp.Created,
		Model:   resp.Model,
		Choices: choices,
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}
