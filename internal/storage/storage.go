package storage

import (
	"context"

	"github.com/agentrelay/relay/internal/model"
)

// CreateTaskRequest holds the fields needed to create a task.
type CreateTaskRequest struct {
	Title       string
	Description string
	GitHub      model.GitHubRef
	Creator     model.AgentIdentity
	WorkingDir  string
	// AllowedAgents is the initial allow-list. Empty defaults to the wildcard
	// so any agent can pick the task up.
	AllowedAgents    []string
	RequiresApproval bool
}

// TaskUpdate holds optional top-level field updates. Nil fields are left
// untouched, there is no shallow-merge of nested objects.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *model.TaskStatus
	Error       *string
	GitHub      *model.GitHubRef
	WorkingDir  *string
}

// ProgressUpdate appends a checkpoint and moves the progress markers.
type ProgressUpdate struct {
	Phase           string
	PercentComplete int
	Description     string
	CompletedSteps  []string
	RemainingSteps  []string
}

// HandoffRequest holds the fields of a handoff initiation. The to-agent is
// always unset until some agent accepts.
type HandoffRequest struct {
	From         model.AgentIdentity
	Reason       string
	Instructions string
}

// TaskRepository is the interface for task state persistence. Every mutation
// is a read-modify-write round trip against the versioned blob store and
// bumps the document version by exactly 1 when committed.
type TaskRepository interface {
	CreateTask(ctx context.Context, req CreateTaskRequest) (*model.TaskState, error)
	GetTask(ctx context.Context, id string) (*model.TaskState, error)
	UpdateTask(ctx context.Context, id string, update TaskUpdate) (*model.TaskState, error)
	UpdateSessionID(ctx context.Context, id, sessionID string) (*model.TaskState, error)
	AddConversationMessage(ctx context.Context, id string, msg model.Message) (*model.TaskState, error)
	AddFileModification(ctx context.Context, id string, mod model.FileModification) (*model.TaskState, error)
	UpdateProgress(ctx context.Context, id string, update ProgressUpdate) (*model.TaskState, error)
	UpdateNextSteps(ctx context.Context, id string, steps model.NextSteps) (*model.TaskState, error)
	InitiateHandoff(ctx context.Context, id string, req HandoffRequest) (*model.TaskState, error)
	AcceptHandoff(ctx context.Context, id string, accepting model.AgentIdentity) (*model.TaskState, error)
	CompleteTask(ctx context.Context, id string) (*model.TaskState, error)
	FailTask(ctx context.Context, id, reason string) (*model.TaskState, error)
	CancelTask(ctx context.Context, id string) (*model.TaskState, error)
	ListTasks(ctx context.Context) ([]model.TaskSummary, error)
}
