package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/agentrelay/relay/internal/model"
)

// EnvelopeSchemaVersion is the current handoff envelope schema.
const EnvelopeSchemaVersion = 1

// HandoffEnvelope is the serialized view of a task that travels alongside a
// handoff. It is deliberately partial, only the most recent checkpoint is
// carried and the full progress history stays in the canonical task document.
type HandoffEnvelope struct {
	SchemaVersion    int                      `json:"schemaVersion"`
	TaskID           string                   `json:"taskId"`
	SessionID        string                   `json:"sessionId,omitempty"`
	Messages         []model.Message          `json:"messages"`
	CompactedSummary string                   `json:"compactedSummary,omitempty"`
	LastCheckpoint   *model.Checkpoint        `json:"lastCheckpoint,omitempty"`
	NextSteps        model.NextSteps          `json:"nextSteps"`
	Files            []model.FileModification `json:"files"`
}

// NewHandoffEnvelope builds the envelope view of a task snapshot.
func NewHandoffEnvelope(task *model.TaskState) HandoffEnvelope {
	return HandoffEnvelope{
		SchemaVersion:    EnvelopeSchemaVersion,
		TaskID:           task.ID,
		SessionID:        task.Session.ID,
		Messages:         task.Messages,
		CompactedSummary: task.CompactedSummary,
		LastCheckpoint:   task.LastCheckpoint(),
		NextSteps:        task.NextSteps,
		Files:            task.Files,
	}
}

// MarshalHandoffEnvelope serializes the envelope view of a task.
func MarshalHandoffEnvelope(task *model.TaskState) ([]byte, error) {
	data, err := json.MarshalIndent(NewHandoffEnvelope(task), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not marshal handoff envelope: %w", err)
	}
	return data, nil
}

// UnmarshalHandoffEnvelope parses an envelope, rejecting unknown schema
// versions.
func UnmarshalHandoffEnvelope(data []byte) (*HandoffEnvelope, error) {
	env := &HandoffEnvelope{}
	if err := json.Unmarshal(data, env); err != nil {
		return nil, fmt.Errorf("could not unmarshal handoff envelope: %w", err)
	}
	if env.SchemaVersion != EnvelopeSchemaVersion {
		return nil, fmt.Errorf("unsupported envelope schema version %d: %w", env.SchemaVersion, model.ErrNotValid)
	}
	return env, nil
}
