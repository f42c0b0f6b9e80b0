package client

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/openagora/agora/internal/domain"
	"github.com/openagora/agora/internal/stream"
)

const (
	// progressMarker trails the in-flight transcript until the request settles.
	progressMarker = "⏳ Working on it..."
	// noResponseText is shown when a stream completes without any usable result.
	noResponseText = "Sorry, I couldn't generate a response."
	// errorText replaces the placeholder when the transport fails.
	errorText = "Sorry, something went wrong while answering your question. Please try again."
)

// State tracks the lifecycle of one request within a session.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateFinalized
	StateErrored
)

// Turn senders.
const (
	SenderUser   = "user"
	SenderSystem = "system"
)

// Turn is one entry in the conversation history. While a request is in flight
// exactly one turn has IsTemp set; it aggregates status updates and is
// replaced in place on every update.
type Turn struct {
	ID            string
	Sender        string
	Content       string
	StatusUpdates []domain.StatusUpdate
	IsTemp        bool
}

// Session owns the conversation turn list and the transient state of the
// current request: the append-only status transcript, the last received line
// and the captured response envelope. It is safe for concurrent use.
type Session struct {
	mu            sync.Mutex
	retainDetails bool

	state         State
	turns         []Turn
	updates       []domain.StatusUpdate
	lastLine      string
	final         *stream.Envelope
	placeholderID string
}

// NewSession creates a session. When retainDetails is set, the status
// transcript of each request is kept as a read-only history turn after
// finalization instead of being discarded.
func NewSession(retainDetails bool) *Session {
	return &Session{retainDetails: retainDetails}
}

// State returns the lifecycle state of the current request.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// InFlight reports whether a request is currently streaming. Submission is
// blocked while it returns true.
func (s *Session) InFlight() bool {
	return s.State() == StateStreaming
}

// Turns returns a copy of the conversation history.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Begin starts a new request: transient state left over from a previous
// attempt is cleared, the question is appended as a user turn and a fresh
// placeholder turn is created.
func (s *Session) Begin(question string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removePlaceholder()
	s.updates = nil
	s.lastLine = ""
	s.final = nil

	s.turns = append(s.turns, Turn{ID: newID(), Sender: SenderUser, Content: question})
	s.placeholderID = newID()
	s.state = StateStreaming
	s.renderPlaceholder()
}

// HandleLine consumes one complete line from the stream. Status-like events
// extend the in-flight transcript; a response envelope is captured for
// finalization and never shown as a status line.
func (s *Session) HandleLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStreaming {
		return
	}
	s.lastLine = line

	ev := Classify(line)
	switch ev.Kind {
	case KindResponse:
		s.final = ev.Envelope
	default:
		s.updates = append(s.updates, domain.StatusUpdate{Agent: ev.Agent, Message: ev.Message})
		s.renderPlaceholder()
	}
}

// Finalize settles the current request on stream completion. The result is
// resolved in order: captured response envelope, then the last line re-parsed
// as JSON, then the joined status transcript, then a literal fallback.
func (s *Session) Finalize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStreaming {
		return
	}

	content := s.resolveContent()

	if s.retainDetails && len(s.updates) > 0 {
		for i := range s.turns {
			if s.turns[i].ID == s.placeholderID {
				s.turns[i].IsTemp = false
				s.turns[i].Content = s.transcript()
				s.turns[i].StatusUpdates = append([]domain.StatusUpdate(nil), s.updates...)
				break
			}
		}
	} else {
		s.removePlaceholder()
	}

	s.turns = append(s.turns, Turn{ID: newID(), Sender: SenderSystem, Content: content})
	s.placeholderID = ""
	s.state = StateFinalized
}

// Fail settles the current request on a transport or setup error: the
// placeholder is discarded and exactly one error turn is appended.
func (s *Session) Fail() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStreaming {
		return
	}

	s.removePlaceholder()
	s.turns = append(s.turns, Turn{ID: newID(), Sender: SenderSystem, Content: errorText})
	s.placeholderID = ""
	s.state = StateErrored
}

func (s *Session) resolveContent() string {
	if s.final != nil {
		if c, ok := contentFromRaw(s.final.FinalAnswer); ok {
			return c
		}
		return noResponseText
	}
	if s.lastLine != "" {
		var raw json.RawMessage
		if err := json.Unmarshal([]byte(s.lastLine), &raw); err == nil {
			if c, ok := contentFromRaw(raw); ok {
				return c
			}
		}
	}
	if len(s.updates) > 0 {
		return s.transcript()
	}
	return noResponseText
}

// contentFromRaw extracts a displayable result from an arbitrary JSON payload:
// the "content" field of an object, or a bare JSON string.
func contentFromRaw(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var obj struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Content != "" {
		return obj.Content, true
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil && str != "" {
		return str, true
	}
	return "", false
}

func (s *Session) transcript() string {
	lines := make([]string, 0, len(s.updates))
	for _, u := range s.updates {
		lines = append(lines, formatStatus(u))
	}
	return strings.Join(lines, "\n")
}

func formatStatus(u domain.StatusUpdate) string {
	if u.Agent != "" {
		return "**" + u.Agent + "**: " + u.Message
	}
	return u.Message
}

// renderPlaceholder re-renders the single in-flight turn. Callers hold s.mu.
func (s *Session) renderPlaceholder() {
	content := progressMarker
	if len(s.updates) > 0 {
		content = s.transcript() + "\n\n" + progressMarker
	}
	for i := range s.turns {
		if s.turns[i].ID == s.placeholderID {
			s.turns[i].Content = content
			return
		}
	}
	s.turns = append(s.turns, Turn{ID: s.placeholderID, Sender: SenderSystem, Content: content, IsTemp: true})
}

// removePlaceholder drops the in-flight turn, if any. Callers hold s.mu.
func (s *Session) removePlaceholder() {
	if s.placeholderID == "" {
		return
	}
	for i := range s.turns {
		if s.turns[i].ID == s.placeholderID {
			s.turns = append(s.turns[:i], s.turns[i+1:]...)
			break
		}
	}
	s.placeholderID = ""
}

func newID() string {
	return uuid.New().String()
}
