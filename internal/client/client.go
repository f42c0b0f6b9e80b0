// Package client implements the consumer side of the debate streaming
// protocol: issuing the request, incrementally splitting the chunked body
// into lines, classifying envelopes and settling the conversation turn list
// when the stream completes or fails.
package client

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
	"sync"

	"github.com/openagora/agora/internal/domain"
)

// ErrRequestInFlight is returned by Ask while a previous request is still
// streaming. There is no cancel path; callers resubmit once it settles.
var ErrRequestInFlight = errors.New("a request is already in flight")

const debatePath = "/api/v1/debate"

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger used for diagnostics. Raw transport errors are
// logged here and never surfaced to the conversation.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client talks to the debate endpoint. It holds no per-request state beyond
// the in-flight guard; the Session owns everything else.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu   sync.Mutex
	busy bool
}

// New creates a client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: http.DefaultClient,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ask submits a question and consumes the streamed reply into sess. onUpdate,
// when non-nil, is invoked after every visible change to the turn list. The
// terminal transition (Finalize or Fail) happens exactly once per call. The
// returned error carries transport detail for the caller's logs; the
// user-facing message is already recorded in the session.
func (c *Client) Ask(ctx context.Context, req *domain.DebateRequest, sess *Session, onUpdate func()) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrRequestInFlight
	}
	c.busy = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	notify := func() {
		if onUpdate != nil {
			onUpdate()
		}
	}

	sess.Begin(req.Question)
	notify()

	fail := func(err error) error {
		c.logger.Error("debate request failed", slog.String("error", err.Error()))
		sess.Fail()
		notify()
		return err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fail(fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+debatePath, bytes.NewReader(body))
	if err != nil {
		return fail(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fail(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fail(fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody)))
	}

	var parser LineParser
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, line := range parser.Feed(buf[:n]) {
				sess.HandleLine(line)
			}
			notify()
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fail(fmt.Errorf("stream read error: %w", readErr))
		}
	}

	if tail, ok := parser.Tail(); ok {
		sess.HandleLine(tail)
	}

	sess.Finalize()
	notify()
	return nil
}
