package history

import (
	"context"
	"testing"

	"github.com/openagora/agora/internal/domain"
	"github.com/openagora/agora/internal/storage/sqlite"
)

func TestRecord(t *testing.T) {
	store, err := sqlite.New("file:historymem1?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("sqlite.New() error = %v", err)
	}
	defer store.Close()

	req := &domain.DebateRequest{Question: "capital of France?", UserID: "alice"}
	answer := &domain.FinalAnswer{
		Role:    "assistant",
		Name:    "Writer",
		Content: "Paris",
		DebateTranscript: []domain.Message{
			{Role: "assistant", Name: "Writer", Content: "draft"},
			{Role: "assistant", Name: "Critic", Content: "Score: 9"},
		},
	}
	statuses := []domain.StatusUpdate{
		{Message: "Evaluating your question..."},
		{Agent: "Writer", Message: "drafting"},
	}

	convID := Record(context.Background(), store, req, answer, statuses)
	if convID == "" {
		t.Fatal("Record() returned empty conversation id")
	}

	conv, err := store.GetConversation(context.Background(), convID)
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}

	if conv.UserID != "alice" || conv.Question != "capital of France?" {
		t.Errorf("conversation = %+v", conv)
	}
	if conv.Answer != "Paris" {
		t.Errorf("Answer = %q, want Paris", conv.Answer)
	}

	kinds := map[string]int{}
	for _, turn := range conv.Turns {
		kinds[turn.Kind]++
	}
	if kinds["status"] != 2 {
		t.Errorf("status turns = %d, want 2", kinds["status"])
	}
	if kinds["debate"] != 2 {
		t.Errorf("debate turns = %d, want 2", kinds["debate"])
	}
	if kinds["answer"] != 1 {
		t.Errorf("answer turns = %d, want 1", kinds["answer"])
	}
}

func TestRecordNilStore(t *testing.T) {
	if got := Record(context.Background(), nil, &domain.DebateRequest{Question: "q"}, nil, nil); got != "" {
		t.Errorf("Record() = %q, want empty id with nil store", got)
	}
}

// canceled request contexts must not abort persistence
func TestRecordSurvivesCanceledContext(t *testing.T) {
	store, err := sqlite.New("file:historymem2?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("sqlite.New() error = %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := &domain.DebateRequest{Question: "q", UserID: "bob"}
	convID := Record(ctx, store, req, &domain.FinalAnswer{Role: "assistant", Content: "a"}, nil)

	if _, err := store.GetConversation(context.Background(), convID); err != nil {
		t.Errorf("conversation not persisted after cancel: %v", err)
	}
}
