package client

import (
	"reflect"
	"testing"
)

func TestExtractNewLines(t *testing.T) {
	tests := []struct {
		name       string
		buf        string
		cursor     int
		wantLines  []string
		wantCursor int
	}{
		{
			name:       "empty buffer",
			buf:        "",
			cursor:     0,
			wantLines:  nil,
			wantCursor: 0,
		},
		{
			name:       "single complete line",
			buf:        "hello\n",
			cursor:     0,
			wantLines:  []string{"hello"},
			wantCursor: 6,
		},
		{
			name:       "unterminated tail is left",
			buf:        "hello\nworld",
			cursor:     0,
			wantLines:  []string{"hello"},
			wantCursor: 6,
		},
		{
			name:       "blank lines are dropped",
			buf:        "a\n\n  \nb\n",
			cursor:     0,
			wantLines:  []string{"a", "b"},
			wantCursor: 8,
		},
		{
			name:       "whitespace trimmed",
			buf:        "  padded \r\n",
			cursor:     0,
			wantLines:  []string{"padded"},
			wantCursor: 11,
		},
		{
			name:       "resumes from cursor",
			buf:        "a\nb\nc\n",
			cursor:     2,
			wantLines:  []string{"b", "c"},
			wantCursor: 6,
		},
		{
			name:       "negative cursor treated as zero",
			buf:        "a\n",
			cursor:     -5,
			wantLines:  []string{"a"},
			wantCursor: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, cursor := ExtractNewLines(tt.buf, tt.cursor)
			if !reflect.DeepEqual(lines, tt.wantLines) {
				t.Errorf("ExtractNewLines() lines = %v, want %v", lines, tt.wantLines)
			}
			if cursor != tt.wantCursor {
				t.Errorf("ExtractNewLines() cursor = %v, want %v", cursor, tt.wantCursor)
			}
		})
	}
}

// The chunking of the incoming stream must not change what lines come out.
func TestLineParserSplitInvariance(t *testing.T) {
	payload := `{"type":"status","agent":"Writer","message":"drafting"}` + "\n" +
		`{"type":"status","agent":"Critic","message":"reviewing"}` + "\n" +
		`{"type":"response","final_answer":{"content":"done"}}` + "\n"

	var want []string
	{
		var p LineParser
		want = p.Feed([]byte(payload))
	}
	if len(want) != 3 {
		t.Fatalf("expected 3 lines from whole payload, got %d", len(want))
	}

	for chunkSize := 1; chunkSize <= len(payload); chunkSize++ {
		var p LineParser
		var got []string
		for i := 0; i < len(payload); i += chunkSize {
			end := i + chunkSize
			if end > len(payload) {
				end = len(payload)
			}
			got = append(got, p.Feed([]byte(payload[i:end]))...)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("chunk size %d: lines = %v, want %v", chunkSize, got, want)
		}
		if tail, ok := p.Tail(); ok {
			t.Fatalf("chunk size %d: unexpected tail %q", chunkSize, tail)
		}
	}
}

func TestLineParserTail(t *testing.T) {
	var p LineParser

	lines := p.Feed([]byte("complete\npartial"))
	if len(lines) != 1 || lines[0] != "complete" {
		t.Fatalf("Feed() lines = %v, want [complete]", lines)
	}

	tail, ok := p.Tail()
	if !ok || tail != "partial" {
		t.Errorf("Tail() = %q, %v, want \"partial\", true", tail, ok)
	}

	// Tail is consumed once
	if tail, ok := p.Tail(); ok {
		t.Errorf("second Tail() = %q, want none", tail)
	}
}
