package domain

// DebateRequest is a user question submitted to the debate endpoint.
type DebateRequest struct {
	Question             string `json:"question"`
	UserID               string `json:"user_id"`
	IncludeDebateDetails bool   `json:"include_debate_details"`
	MaxIterations        int    `json:"max_iterations,omitempty"`
}

// StatusUpdate is one progress line produced while the debate runs. Agent may
// be empty for updates not attributable to a named participant.
type StatusUpdate struct {
	Agent   string `json:"agent,omitempty"`
	Message string `json:"message"`
}

// FinalAnswer is the terminal result of a debate. DebateTranscript carries the
// full inter-agent exchange when the request asked for it.
type FinalAnswer struct {
	Role             string    `json:"role"`
	Name             string    `json:"name,omitempty"`
	Content          string    `json:"content"`
	DebateTranscript []Message `json:"-"`
	Error            string    `json:"error,omitempty"`
}
