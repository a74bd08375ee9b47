package taskrun

import "github.com/agentrelay/relay/internal/agent"

// Tool names of the fixed surface exposed to every agent turn.
const (
	toolUpdateProgress   = "update_progress"
	toolUpdateNextSteps  = "update_next_steps"
	toolRecordFileChange = "record_file_change"
	toolRequestHandoff   = "request_handoff"
)

func toolSurface() []agent.ToolDef {
	stringList := map[string]any{"type": "array", "items": map[string]any{"type": "string"}}

	return []agent.ToolDef{
		{
			Name:        toolUpdateProgress,
			Description: "Record a progress checkpoint with the current phase, percent complete and step lists.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"phase":           map[string]any{"type": "string"},
					"percentComplete": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
					"description":     map[string]any{"type": "string"},
					"completedSteps":  stringList,
					"remainingSteps":  stringList,
				},
				"required": []string{"percentComplete"},
			},
		},
		{
			Name:        toolUpdateNextSteps,
			Description: "Replace the task's next steps guidance for the following session.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"immediate":      stringList,
					"considerations": stringList,
					"blockers":       stringList,
					"resources":      stringList,
				},
			},
		},
		{
			Name:        toolRecordFileChange,
			Description: "Record a file the agent created, modified or deleted.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":    map[string]any{"type": "string"},
					"action":  map[string]any{"type": "string", "enum": []string{"created", "modified", "deleted"}},
					"summary": map[string]any{"type": "string"},
				},
				"required": []string{"path", "action"},
			},
		},
		{
			Name:        toolRequestHandoff,
			Description: "Request handing the task off to another agent session.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"reason":       map[string]any{"type": "string"},
					"instructions": map[string]any{"type": "string"},
				},
				"required": []string{"reason"},
			},
		},
	}
}
