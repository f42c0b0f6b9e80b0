package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/openagora/agora/internal/domain"
)

func TestClientAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/debate" {
			t.Errorf("request path = %q, want /api/v1/debate", r.URL.Path)
		}
		var req domain.DebateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Question != "q" {
			t.Errorf("question = %q, want q", req.Question)
		}

		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)
		w.Write([]byte(`{"type":"status","agent":"Writer","message":"drafting"}` + "\n"))
		flusher.Flush()
		// Final line intentionally lacks a trailing newline
		w.Write([]byte(`{"type":"response","final_answer":{"content":"Paris"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	sess := NewSession(false)

	updates := 0
	err := c.Ask(context.Background(), &domain.DebateRequest{Question: "q"}, sess, func() { updates++ })
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if updates == 0 {
		t.Error("onUpdate was never invoked")
	}

	turns := sess.Turns()
	if got := turns[len(turns)-1].Content; got != "Paris" {
		t.Errorf("final content = %q, want %q", got, "Paris")
	}
	if sess.State() != StateFinalized {
		t.Errorf("State() = %v, want StateFinalized", sess.State())
	}
}

func TestClientAskServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	sess := NewSession(false)

	err := c.Ask(context.Background(), &domain.DebateRequest{Question: "q"}, sess, nil)
	if err == nil {
		t.Fatal("Ask() error = nil, want transport error")
	}

	turns := sess.Turns()
	if len(turns) != 2 {
		t.Fatalf("Turns() = %d turns, want 2", len(turns))
	}
	if turns[1].Content != errorText {
		t.Errorf("error turn content = %q, want %q", turns[1].Content, errorText)
	}
	if sess.State() != StateErrored {
		t.Errorf("State() = %v, want StateErrored", sess.State())
	}
}

func TestClientAskInFlightGuard(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"status","message":"working"}` + "\n"))
		w.(http.Flusher).Flush()
		<-release
		w.Write([]byte(`{"type":"response","final_answer":"done"}` + "\n"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	first := NewSession(false)

	var wg sync.WaitGroup
	wg.Add(1)
	started := make(chan struct{})
	go func() {
		defer wg.Done()
		err := c.Ask(context.Background(), &domain.DebateRequest{Question: "slow"}, first, func() {
			select {
			case <-started:
			default:
				close(started)
			}
		})
		if err != nil {
			t.Errorf("first Ask() error = %v", err)
		}
	}()

	<-started
	second := NewSession(false)
	if err := c.Ask(context.Background(), &domain.DebateRequest{Question: "blocked"}, second, nil); err != ErrRequestInFlight {
		t.Errorf("second Ask() error = %v, want ErrRequestInFlight", err)
	}

	close(release)
	wg.Wait()

	// The guard clears once the stream settles
	if err := c.Ask(context.Background(), &domain.DebateRequest{Question: "again"}, second, nil); err != nil {
		t.Errorf("third Ask() error = %v", err)
	}
}
