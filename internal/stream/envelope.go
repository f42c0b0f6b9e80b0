// Package stream defines the line-delimited JSON protocol spoken between the
// debate endpoint and its clients. Each line of the response body is one
// envelope: any number of "status" envelopes followed by at most one
// "response" envelope carrying the final answer.
package stream

import "encoding/json"

const (
	// TypeStatus marks a progress update produced while the debate runs.
	TypeStatus = "status"
	// TypeResponse marks the terminal envelope carrying the final answer.
	TypeResponse = "response"
)

// Envelope is one parsed line of the streaming response.
type Envelope struct {
	Type          string          `json:"type"`
	Agent         string          `json:"agent,omitempty"`
	Message       string          `json:"message,omitempty"`
	FinalAnswer   json.RawMessage `json:"final_answer,omitempty"`
	DebateDetails json.RawMessage `json:"debate_details,omitempty"`
}

// StatusEnvelope builds a status envelope. Agent may be empty for updates that
// don't originate from a named participant.
func StatusEnvelope(agent, message string) Envelope {
	return Envelope{Type: TypeStatus, Agent: agent, Message: message}
}

// ResponseEnvelope builds the terminal envelope. answer is marshaled as-is
// into final_answer; details, when non-nil, becomes debate_details.
func ResponseEnvelope(answer any, details any) (Envelope, error) {
	raw, err := json.Marshal(answer)
	if err != nil {
		return Envelope{}, err
	}
	env := Envelope{Type: TypeResponse, FinalAnswer: raw}
	if details != nil {
		d, err := json.Marshal(details)
		if err != nil {
			return Envelope{}, err
		}
		env.DebateDetails = d
	}
	return env, nil
}
