package client

import (
	"strings"
	"testing"
)

func findTemp(turns []Turn) (Turn, bool) {
	for _, turn := range turns {
		if turn.IsTemp {
			return turn, true
		}
	}
	return Turn{}, false
}

func TestSessionBegin(t *testing.T) {
	sess := NewSession(false)
	sess.Begin("what is the capital of France?")

	turns := sess.Turns()
	if len(turns) != 2 {
		t.Fatalf("Turns() = %d turns, want 2", len(turns))
	}
	if turns[0].Sender != SenderUser || turns[0].Content != "what is the capital of France?" {
		t.Errorf("first turn = %+v, want the user question", turns[0])
	}
	if !turns[1].IsTemp || turns[1].Content != progressMarker {
		t.Errorf("second turn = %+v, want the placeholder", turns[1])
	}
	if sess.State() != StateStreaming {
		t.Errorf("State() = %v, want StateStreaming", sess.State())
	}
}

func TestSessionStatusAggregation(t *testing.T) {
	sess := NewSession(false)
	sess.Begin("q")

	sess.HandleLine(`{"type":"status","agent":"Writer","message":"drafting"}`)
	sess.HandleLine(`{"type":"status","message":"thinking"}`)
	sess.HandleLine("plain text line")

	temp, ok := findTemp(sess.Turns())
	if !ok {
		t.Fatal("no placeholder turn while streaming")
	}

	want := "**Writer**: drafting\nthinking\nplain text line\n\n" + progressMarker
	if temp.Content != want {
		t.Errorf("placeholder content = %q, want %q", temp.Content, want)
	}

	// Exactly one temp turn regardless of update count
	count := 0
	for _, turn := range sess.Turns() {
		if turn.IsTemp {
			count++
		}
	}
	if count != 1 {
		t.Errorf("temp turns = %d, want 1", count)
	}
}

func TestSessionFinalize(t *testing.T) {
	t.Run("captured response envelope wins", func(t *testing.T) {
		sess := NewSession(false)
		sess.Begin("q")
		sess.HandleLine(`{"type":"status","agent":"Writer","message":"drafting"}`)
		sess.HandleLine(`{"type":"response","final_answer":{"content":"Paris"}}`)
		sess.HandleLine(`{"type":"status","agent":"Critic","message":"late status"}`)
		sess.Finalize()

		turns := sess.Turns()
		last := turns[len(turns)-1]
		if last.Content != "Paris" {
			t.Errorf("final content = %q, want %q", last.Content, "Paris")
		}
		if _, ok := findTemp(turns); ok {
			t.Error("placeholder survived finalization")
		}
		if sess.State() != StateFinalized {
			t.Errorf("State() = %v, want StateFinalized", sess.State())
		}
	})

	t.Run("last line reparsed when no envelope", func(t *testing.T) {
		sess := NewSession(false)
		sess.Begin("q")
		sess.HandleLine(`{"role":"assistant","content":"bare final payload"}`)
		sess.Finalize()

		turns := sess.Turns()
		if got := turns[len(turns)-1].Content; got != "bare final payload" {
			t.Errorf("final content = %q, want %q", got, "bare final payload")
		}
	})

	t.Run("transcript fallback", func(t *testing.T) {
		sess := NewSession(false)
		sess.Begin("q")
		sess.HandleLine(`{"type":"status","message":"m1"}`)
		sess.HandleLine(`{"type":"status","message":"m2"}`)
		sess.Finalize()

		turns := sess.Turns()
		if got := turns[len(turns)-1].Content; got != "m1\nm2" {
			t.Errorf("final content = %q, want %q", got, "m1\nm2")
		}
	})

	t.Run("empty stream falls back to literal", func(t *testing.T) {
		sess := NewSession(false)
		sess.Begin("q")
		sess.Finalize()

		turns := sess.Turns()
		if got := turns[len(turns)-1].Content; got != noResponseText {
			t.Errorf("final content = %q, want %q", got, noResponseText)
		}
	})

	t.Run("envelope with unusable answer", func(t *testing.T) {
		sess := NewSession(false)
		sess.Begin("q")
		sess.HandleLine(`{"type":"status","message":"m1"}`)
		sess.HandleLine(`{"type":"response","final_answer":{"unexpected":true}}`)
		sess.Finalize()

		turns := sess.Turns()
		if got := turns[len(turns)-1].Content; got != noResponseText {
			t.Errorf("final content = %q, want %q", got, noResponseText)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		sess := NewSession(false)
		sess.Begin("q")
		sess.HandleLine(`{"type":"response","final_answer":"done"}`)
		sess.Finalize()
		before := len(sess.Turns())
		sess.Finalize()
		sess.Fail()
		if got := len(sess.Turns()); got != before {
			t.Errorf("turn count after repeat settle = %d, want %d", got, before)
		}
	})
}

func TestSessionRetainDetails(t *testing.T) {
	sess := NewSession(true)
	sess.Begin("q")
	sess.HandleLine(`{"type":"status","agent":"Writer","message":"drafting"}`)
	sess.HandleLine(`{"type":"response","final_answer":{"content":"Paris"}}`)
	sess.Finalize()

	turns := sess.Turns()
	if len(turns) != 3 {
		t.Fatalf("Turns() = %d turns, want 3 (user, transcript, answer)", len(turns))
	}

	transcript := turns[1]
	if transcript.IsTemp {
		t.Error("transcript turn still marked temporary")
	}
	if !strings.Contains(transcript.Content, "**Writer**: drafting") {
		t.Errorf("transcript content = %q, want the status line", transcript.Content)
	}
	if len(transcript.StatusUpdates) != 1 {
		t.Errorf("transcript StatusUpdates = %d, want 1", len(transcript.StatusUpdates))
	}
	if turns[2].Content != "Paris" {
		t.Errorf("final content = %q, want %q", turns[2].Content, "Paris")
	}
}

func TestSessionFail(t *testing.T) {
	sess := NewSession(false)
	sess.Begin("q")
	sess.HandleLine(`{"type":"status","message":"m1"}`)
	sess.Fail()

	turns := sess.Turns()
	if len(turns) != 2 {
		t.Fatalf("Turns() = %d turns, want 2", len(turns))
	}
	if turns[1].Content != errorText {
		t.Errorf("error turn content = %q, want %q", turns[1].Content, errorText)
	}
	if _, ok := findTemp(turns); ok {
		t.Error("placeholder survived Fail")
	}
	if sess.State() != StateErrored {
		t.Errorf("State() = %v, want StateErrored", sess.State())
	}
}

// Resubmitting after an error must leave no residue from the failed attempt.
func TestSessionResubmitAfterError(t *testing.T) {
	sess := NewSession(false)
	sess.Begin("first")
	sess.HandleLine(`{"type":"status","message":"stale"}`)
	sess.Fail()

	sess.Begin("second")
	sess.HandleLine(`{"type":"response","final_answer":{"content":"fresh"}}`)
	sess.Finalize()

	turns := sess.Turns()
	last := turns[len(turns)-1]
	if last.Content != "fresh" {
		t.Errorf("final content = %q, want %q", last.Content, "fresh")
	}
	for _, turn := range turns {
		if strings.Contains(turn.Content, "stale") {
			t.Errorf("stale status leaked into turn %+v", turn)
		}
	}
}
