// Package search implements retrieval against an Azure AI Search index using
// combined semantic and vector queries.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openagora/agora/internal/domain"
)

const apiVersion = "2024-05-01-Preview"

// ErrEmptyQuery is returned when Search is called with a blank query.
var ErrEmptyQuery = errors.New("search query is required")

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSemanticConfiguration sets the semantic ranking configuration name.
func WithSemanticConfiguration(name string) ClientOption {
	return func(c *Client) {
		c.semanticConfiguration = name
	}
}

// WithVectorField sets the vector field queried alongside the text query.
func WithVectorField(field string) ClientOption {
	return func(c *Client) {
		c.vectorField = field
	}
}

// WithTop sets how many documents are requested.
func WithTop(top int) ClientOption {
	return func(c *Client) {
		c.top = top
	}
}

// Client queries one search index. It implements domain.Retriever.
type Client struct {
	endpoint   string
	apiKey     string
	index      string
	httpClient *http.Client
	logger     *slog.Logger

	semanticConfiguration string
	vectorField           string
	top                   int
}

var _ domain.Retriever = (*Client)(nil)

// NewClient creates a search client for the given endpoint and index.
func NewClient(endpoint, apiKey, index string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:    strings.TrimSuffix(endpoint, "/"),
		apiKey:      apiKey,
		index:       index,
		httpClient:  http.DefaultClient,
		logger:      slog.Default(),
		vectorField: "text_vector",
		top:         10,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchPayload struct {
	Search                string        `json:"search"`
	Select                string        `json:"select"`
	VectorQueries         []vectorQuery `json:"vectorQueries"`
	QueryType             string        `json:"queryType"`
	SemanticConfiguration string        `json:"semanticConfiguration,omitempty"`
	QueryLanguage         string        `json:"queryLanguage"`
	Top                   int           `json:"top"`
}

type vectorQuery struct {
	Kind   string `json:"kind"`
	Text   string `json:"text"`
	Fields string `json:"fields"`
	K      int    `json:"k"`
}

type searchResponse struct {
	ODataCount      int              `json:"@odata.count"`
	SearchID        string           `json:"@search.searchId"`
	SemanticAnswers []map[string]any `json:"@search.answers"`
	Value           []map[string]any `json:"value"`
}

// Search runs a semantic + vector query and returns the raw documents.
func (c *Client) Search(ctx context.Context, query string) (*domain.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	payload := searchPayload{
		Search: query,
		Select: "chunk_id,parent_id,chunk,title",
		VectorQueries: []vectorQuery{{
			Kind:   "text",
			Text:   query,
			Fields: c.vectorField,
			K:      c.top,
		}},
		QueryType:             "semantic",
		SemanticConfiguration: c.semanticConfiguration,
		QueryLanguage:         "en-GB",
		Top:                   c.top,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search payload: %w", err)
	}

	url := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s", c.endpoint, c.index, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("search failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	total := sr.ODataCount
	if total == 0 {
		total = len(sr.Value)
	}

	c.logger.Info("search completed",
		slog.String("index", c.index),
		slog.Int("results", len(sr.Value)),
	)

	return &domain.SearchResult{
		TotalCount:      total,
		Results:         sr.Value,
		SearchID:        sr.SearchID,
		SemanticAnswers: sr.SemanticAnswers,
	}, nil
}
