package debate

import (
	"errors"

	"github.com/openagora/agora/internal/agents"
	"github.com/openagora/agora/internal/domain"
)

// SelectionStrategy decides which agent speaks next.
type SelectionStrategy interface {
	Next(roster []*agents.Agent, history []domain.Message) (*agents.Agent, error)
}

// ErrEmptyRoster is returned when selection runs with no agents.
var ErrEmptyRoster = errors.New("no agents available for selection")

// Sequential cycles through the roster in order, one agent per turn.
type Sequential struct {
	next int
}

// NewSequential creates a sequential selection strategy. It carries per-run
// state; create one per debate.
func NewSequential() *Sequential {
	return &Sequential{}
}

// Next returns the next agent in round-robin order.
func (s *Sequential) Next(roster []*agents.Agent, history []domain.Message) (*agents.Agent, error) {
	if len(roster) == 0 {
		return nil, ErrEmptyRoster
	}
	agent := roster[s.next%len(roster)]
	s.next++
	return agent, nil
}
