package client

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantKind    Kind
		wantAgent   string
		wantMessage string
	}{
		{
			name:        "status envelope",
			line:        `{"type":"status","agent":"Writer","message":"drafting"}`,
			wantKind:    KindStatus,
			wantAgent:   "Writer",
			wantMessage: "drafting",
		},
		{
			name:        "status without agent",
			line:        `{"type":"status","message":"Evaluating your question..."}`,
			wantKind:    KindStatus,
			wantMessage: "Evaluating your question...",
		},
		{
			name:     "response envelope",
			line:     `{"type":"response","final_answer":{"content":"42"}}`,
			wantKind: KindResponse,
		},
		{
			name:        "json without type",
			line:        `{"role":"assistant","content":"bare final payload"}`,
			wantKind:    KindOpaque,
			wantMessage: `{"role":"assistant","content":"bare final payload"}`,
		},
		{
			name:        "unknown type",
			line:        `{"type":"heartbeat"}`,
			wantKind:    KindOpaque,
			wantMessage: `{"type":"heartbeat"}`,
		},
		{
			name:        "plain text",
			line:        "Working on it",
			wantKind:    KindUnknown,
			wantMessage: "Working on it",
		},
		{
			name:        "truncated json",
			line:        `{"type":"status","agent":`,
			wantKind:    KindUnknown,
			wantMessage: `{"type":"status","agent":`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Classify(tt.line)
			if ev.Kind != tt.wantKind {
				t.Errorf("Classify() kind = %v, want %v", ev.Kind, tt.wantKind)
			}
			if ev.Agent != tt.wantAgent {
				t.Errorf("Classify() agent = %q, want %q", ev.Agent, tt.wantAgent)
			}
			if ev.Message != tt.wantMessage {
				t.Errorf("Classify() message = %q, want %q", ev.Message, tt.wantMessage)
			}
			if ev.Raw != tt.line {
				t.Errorf("Classify() raw = %q, want %q", ev.Raw, tt.line)
			}
		})
	}

	t.Run("response carries envelope", func(t *testing.T) {
		ev := Classify(`{"type":"response","final_answer":{"content":"42"}}`)
		if ev.Envelope == nil {
			t.Fatal("Classify() envelope = nil, want parsed envelope")
		}
		if string(ev.Envelope.FinalAnswer) != `{"content":"42"}` {
			t.Errorf("Classify() final_answer = %s", ev.Envelope.FinalAnswer)
		}
	})
}
