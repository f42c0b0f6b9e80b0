// Package tokens provides token counting for debate budget accounting.
package tokens

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/openagora/agora/internal/domain"
)

// Counter counts tokens for a given model.
type Counter interface {
	Count(model, text string) (int, error)
	SupportsModel(model string) bool
}

// Registry picks the right counter for a model, falling back to a
// character-based estimator for models without a known encoding.
type Registry struct {
	counters []Counter
	fallback Counter
}

// NewRegistry creates a registry with the tiktoken counter registered and the
// estimator as fallback.
func NewRegistry() *Registry {
	return &Registry{
		counters: []Counter{NewTiktokenCounter()},
		fallback: NewEstimator(),
	}
}

// Count counts tokens in text using the best counter for model.
func (r *Registry) Count(model, text string) (int, error) {
	for _, c := range r.counters {
		if c.SupportsModel(model) {
			n, err := c.Count(model, text)
			if err == nil {
				return n, nil
			}
			// Broken encoding lookup falls through to the estimator
			break
		}
	}
	if r.fallback != nil {
		return r.fallback.Count(model, text)
	}
	return 0, fmt.Errorf("no token counter available for model: %s", model)
}

// CountMessages counts the tokens of a message list including the per-message
// chat overhead.
func (r *Registry) CountMessages(model string, msgs []domain.Message) (int, error) {
	total := 0
	for _, m := range msgs {
		// 3 tokens of structure plus 1 for the role, per OpenAI's guidance
		total += 4
		n, err := r.Count(model, m.Content)
		if err != nil {
			return 0, err
		}
		total += n
	}
	total += 3 // assistant priming
	return total, nil
}

// TiktokenCounter counts tokens with tiktoken encodings.
type TiktokenCounter struct {
	mu    sync.Mutex
	cache map[tokenizer.Encoding]tokenizer.Codec
}

// NewTiktokenCounter creates a tiktoken-backed counter.
func NewTiktokenCounter() *TiktokenCounter {
	return &TiktokenCounter{cache: make(map[tokenizer.Encoding]tokenizer.Codec)}
}

// SupportsModel returns true for OpenAI-family models.
func (c *TiktokenCounter) SupportsModel(model string) bool {
	model = strings.ToLower(model)
	for _, prefix := range []string{"gpt-", "o1", "o3", "o4", "text-embedding", "text-davinci"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// Count counts the tokens of text under the model's encoding.
func (c *TiktokenCounter) Count(model, text string) (int, error) {
	codec, err := c.getCodec(model)
	if err != nil {
		return 0, err
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (c *TiktokenCounter) getCodec(model string) (tokenizer.Codec, error) {
	if codec, err := tokenizer.ForModel(tokenizer.Model(model)); err == nil {
		return codec, nil
	}

	encoding := modelToEncoding(model)

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.cache[encoding]; ok {
		return cached, nil
	}

	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer encoding: %w", err)
	}
	c.cache[encoding] = codec
	return codec, nil
}

// modelToEncoding maps model names to encodings for the fallback path.
// Newer models use o200k_base; GPT-4 and GPT-3.5 use cl100k_base.
func modelToEncoding(model string) tokenizer.Encoding {
	model = strings.ToLower(model)

	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "gpt-4.1"),
		strings.HasPrefix(model, "gpt-5"),
		strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"), strings.HasPrefix(model, "o4"):
		return tokenizer.O200kBase
	case strings.HasPrefix(model, "gpt-4"), strings.HasPrefix(model, "gpt-3.5"),
		strings.HasPrefix(model, "text-embedding"):
		return tokenizer.Cl100kBase
	default:
		return tokenizer.O200kBase
	}
}

// Estimator approximates token counts from character length. It is the
// fallback for models without a known encoding.
type Estimator struct {
	// CharsPerToken is the average characters per token (default: 4)
	CharsPerToken float64
}

// NewEstimator creates a new token estimator.
func NewEstimator() *Estimator {
	return &Estimator{CharsPerToken: 4.0}
}

// Count estimates the token count of text.
func (e *Estimator) Count(model, text string) (int, error) {
	return int(float64(len(text)) / e.CharsPerToken), nil
}

// SupportsModel returns true - the estimator supports all models.
func (e *Estimator) SupportsModel(model string) bool {
	return true
}
