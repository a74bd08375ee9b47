// Package agent defines the opaque agent-turn collaborator. The executor
// hands it a rendered prompt and a tool surface and gets back the turn's text
// plus the tool invocations the model made.
package agent

import "context"

// ToolDef describes one tool exposed to the agent for a turn.
type ToolDef struct {
	Name        string
	Description string
	// Parameters is the JSON schema of the tool input.
	Parameters map[string]any
}

// ToolInvocation is one tool call the agent made during a turn.
type ToolInvocation struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// TurnRequest is the input of a single agent turn.
type TurnRequest struct {
	System string
	Prompt string
	Tools  []ToolDef
}

// TurnResult is the outcome of a single agent turn.
type TurnResult struct {
	Text            string
	ToolInvocations []ToolInvocation
}

// Runner executes a single agent turn. Implementations wrap a concrete model
// transport, the executor treats them as opaque.
type Runner interface {
	RunTurn(ctx context.Context, req TurnRequest) (*TurnResult, error)
}
