package model

import (
	"fmt"
	"time"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has been created but no agent
	// session has picked it up yet.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress indicates an agent session is working on the task.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusAwaitingHandoff indicates a handoff has been requested and no
	// agent has accepted it yet.
	TaskStatusAwaitingHandoff TaskStatus = "awaiting_handoff"
	// TaskStatusHandedOff indicates the pending handoff has been accepted.
	TaskStatusHandedOff TaskStatus = "handed_off"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task finished with an error.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusCancelled indicates the task was cancelled.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the status is a final one. Tasks are never
// physically deleted, reaching a terminal status is their destruction.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusCancelled
}

func (s TaskStatus) valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusAwaitingHandoff,
		TaskStatusHandedOff, TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleTool      MessageRole = "tool"
)

// ToolCallRecord captures a tool invocation made during an agent turn.
type ToolCallRecord struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// Message is a single entry in the task conversation history.
type Message struct {
	Role      MessageRole      `json:"role"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	ToolCalls []ToolCallRecord `json:"toolCalls,omitempty"`
}

// Checkpoint is a point-in-time snapshot of completed and remaining steps.
type Checkpoint struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Description    string    `json:"description"`
	CompletedSteps []string  `json:"completedSteps"`
	RemainingSteps []string  `json:"remainingSteps"`
}

// Progress tracks the task's completion state.
type Progress struct {
	Phase           string       `json:"phase"`
	Checkpoints     []Checkpoint `json:"checkpoints"`
	PercentComplete int          `json:"percentComplete"`
}

// FileAction is the kind of change recorded for a file.
type FileAction string

const (
	FileActionCreated  FileAction = "created"
	FileActionModified FileAction = "modified"
	FileActionDeleted  FileAction = "deleted"
)

func (a FileAction) valid() bool {
	return a == FileActionCreated || a == FileActionModified || a == FileActionDeleted
}

// FileModification records a change an agent made to a file.
type FileModification struct {
	Path         string     `json:"path"`
	Action       FileAction `json:"action"`
	PreviousHash string     `json:"previousHash,omitempty"`
	CurrentHash  string     `json:"currentHash,omitempty"`
	Summary      string     `json:"summary,omitempty"`
}

// AgentIdentity identifies an agent and optionally the session it acted from.
type AgentIdentity struct {
	AgentID   string `json:"agentId"`
	SessionID string `json:"sessionId,omitempty"`
}

// Handoff is one entry in the append-only handoff chain. The last entry is
// always the handoff in flight or the most recently accepted one.
type Handoff struct {
	ID           string         `json:"id"`
	FromAgent    AgentIdentity  `json:"fromAgent"`
	ToAgent      *AgentIdentity `json:"toAgent,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	AcceptedAt   *time.Time     `json:"acceptedAt,omitempty"`
	Reason       string         `json:"reason"`
	Instructions string         `json:"instructions,omitempty"`
}

// InitialHandoffReason is the reason recorded on the handoff entry that task
// creation seeds the chain with.
const InitialHandoffReason = "Task created"

// InitialHandoffInstructions marks the genesis handoff entry. Prompt rendering
// suppresses it.
const InitialHandoffInstructions = "Initial task creation"

// NextSteps holds the forward-looking guidance for the next agent session.
type NextSteps struct {
	Immediate      []string `json:"immediate"`
	Considerations []string `json:"considerations"`
	Blockers       []string `json:"blockers"`
	Resources      []string `json:"resources"`
}

// Security holds the task's authorization settings.
type Security struct {
	// AllowedAgents is the allow-list of agent identifiers. The wildcard "*"
	// allows any agent.
	AllowedAgents    []string `json:"allowedAgents"`
	RequiresApproval bool     `json:"requiresApproval"`
}

// GitHubRef links the task to the external repositories it works against.
// All fields are opaque identifiers owned by external collaborators.
type GitHubRef struct {
	TargetRepo   string `json:"targetRepo"`
	TargetBranch string `json:"targetBranch"`
	StateRepo    string `json:"stateRepo"`
	IssueNumber  int    `json:"issueNumber,omitempty"`
	PRNumber     int    `json:"prNumber,omitempty"`
	CommitSHA    string `json:"commitSha,omitempty"`
}

// Session identifies the current agent session working on the task.
type Session struct {
	ID             string `json:"id,omitempty"`
	TranscriptPath string `json:"transcriptPath,omitempty"`
}

// TaskState is the full persisted state of a task. It is the single source of
// truth handed between agent sessions and is mutated only through the task
// repository.
type TaskState struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	// Version increases by exactly 1 on every committed mutation.
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	GitHub  GitHubRef `json:"github"`
	Session Session   `json:"session"`

	Messages         []Message `json:"messages"`
	CompactedSummary string    `json:"compactedSummary,omitempty"`

	Progress   Progress           `json:"progress"`
	Files      []FileModification `json:"files"`
	WorkingDir string             `json:"workingDir,omitempty"`

	Handoffs  []Handoff `json:"handoffs"`
	NextSteps NextSteps `json:"nextSteps"`
	Security  Security  `json:"security"`

	// Error carries the failure message when Status is failed.
	Error string `json:"error,omitempty"`
}

// Validate checks the document invariants. It runs before every persist, an
// invalid document must never be written.
func (t *TaskState) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required: %w", ErrNotValid)
	}
	if t.Title == "" {
		return fmt.Errorf("title is required: %w", ErrNotValid)
	}
	if !t.Status.valid() {
		return fmt.Errorf("unknown status %q: %w", t.Status, ErrNotValid)
	}
	if t.Version < 1 {
		return fmt.Errorf("version must be >= 1: %w", ErrNotValid)
	}
	if t.CreatedAt.IsZero() {
		return fmt.Errorf("createdAt is required: %w", ErrNotValid)
	}

	if t.Progress.PercentComplete < 0 || t.Progress.PercentComplete > 100 {
		return fmt.Errorf("percentComplete %d out of range [0, 100]: %w", t.Progress.PercentComplete, ErrNotValid)
	}

	if len(t.Handoffs) == 0 {
		return fmt.Errorf("handoff chain must not be empty: %w", ErrNotValid)
	}
	for i, h := range t.Handoffs {
		if h.FromAgent.AgentID == "" {
			return fmt.Errorf("handoff %d is missing the from agent: %w", i, ErrNotValid)
		}
	}

	for i, f := range t.Files {
		if f.Path == "" {
			return fmt.Errorf("file modification %d is missing the path: %w", i, ErrNotValid)
		}
		if !f.Action.valid() {
			return fmt.Errorf("file modification %d has unknown action %q: %w", i, f.Action, ErrNotValid)
		}
	}

	return nil
}

// LastHandoff returns the most recent handoff entry, or nil if the chain is
// empty.
func (t *TaskState) LastHandoff() *Handoff {
	if len(t.Handoffs) == 0 {
		return nil
	}
	return &t.Handoffs[len(t.Handoffs)-1]
}

// LastCheckpoint returns the most recent progress checkpoint, or nil if there
// is none.
func (t *TaskState) LastCheckpoint() *Checkpoint {
	if len(t.Progress.Checkpoints) == 0 {
		return nil
	}
	return &t.Progress.Checkpoints[len(t.Progress.Checkpoints)-1]
}

// TaskSummary is the lightweight listing view of a task.
type TaskSummary struct {
	ID     string     `json:"id"`
	Title  string     `json:"title"`
	Status TaskStatus `json:"status"`
}
