package client

import (
	"encoding/json"

	"github.com/openagora/agora/internal/stream"
)

// Kind describes how a received line was classified.
type Kind int

const (
	// KindStatus is a well-formed status envelope.
	KindStatus Kind = iota
	// KindResponse is the terminal envelope carrying the final answer.
	KindResponse
	// KindOpaque is valid JSON with an unrecognized type; it is carried
	// through as a status-like event so newer servers stay compatible.
	KindOpaque
	// KindUnknown is a line that is not valid JSON; the raw text is treated
	// as a plain status message rather than an error.
	KindUnknown
)

// Event is the result of classifying one complete line.
type Event struct {
	Kind     Kind
	Agent    string
	Message  string
	Envelope *stream.Envelope // set for KindResponse and KindOpaque
	Raw      string
}

// Classify parses one complete line. It never fails: malformed input is
// demoted to a plain-text status event.
func Classify(line string) Event {
	var env stream.Envelope
	if err := json.Unmarshal([]byte(line), &env); err != nil {
		return Event{Kind: KindUnknown, Message: line, Raw: line}
	}

	switch env.Type {
	case stream.TypeStatus:
		return Event{Kind: KindStatus, Agent: env.Agent, Message: env.Message, Raw: line}
	case stream.TypeResponse:
		return Event{Kind: KindResponse, Envelope: &env, Raw: line}
	default:
		return Event{Kind: KindOpaque, Message: line, Envelope: &env, Raw: line}
	}
}
