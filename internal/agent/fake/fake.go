package fake

import (
	"context"
	"fmt"

	"github.com/agentrelay/relay/internal/agent"
)

// Runner is a scripted agent runner for local development and dry runs. It
// replays a fixed sequence of results, one per turn, and fails once the
// script is exhausted.
type Runner struct {
	results []agent.TurnResult
	next    int
}

// NewRunner creates a fake runner that replays the given results in order.
func NewRunner(results ...agent.TurnResult) *Runner {
	if len(results) == 0 {
		results = []agent.TurnResult{{Text: "Nothing to do."}}
	}
	return &Runner{results: results}
}

var _ agent.Runner = (*Runner)(nil)

// RunTurn satisfies agent.Runner interface.
func (r *Runner) RunTurn(_ context.Context, _ agent.TurnRequest) (*agent.TurnResult, error) {
	if r.next >= len(r.results) {
		return nil, fmt.Errorf("no scripted result for turn %d", r.next+1)
	}
	result := r.results[r.next]
	r.next++
	return &result, nil
}
