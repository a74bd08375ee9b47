package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/agentrelay/relay/internal/blob"
	"github.com/agentrelay/relay/internal/log"
	"github.com/agentrelay/relay/internal/model"
	"github.com/agentrelay/relay/internal/storage"
)

const (
	// maxWriteAttempts bounds the read-modify-write retry loop on conflicting
	// concurrent writers. After the last attempt the conflict is surfaced.
	maxWriteAttempts = 3

	indexPath = "index.json"
)

// RepositoryConfig is the configuration of the blob-backed task repository.
type RepositoryConfig struct {
	Store  blob.Store
	Logger log.Logger
}

func (c *RepositoryConfig) defaults() error {
	if c.Store == nil {
		return fmt.Errorf("blob store is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.BlobRepository"})
	return nil
}

// Repository implements storage.TaskRepository on top of a versioned blob
// store. Every mutation is an optimistic read-modify-write against the task
// document, retried a bounded number of times on concurrent modification.
type Repository struct {
	store  blob.Store
	logger log.Logger
}

// NewRepository creates a new blob-backed task repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Repository{store: cfg.Store, logger: cfg.Logger}, nil
}

var _ storage.TaskRepository = (*Repository)(nil)

func taskPath(id string) string {
	return path.Join("tasks", id, "state.json")
}

// taskIndex is the persisted listing of known tasks. It avoids scanning the
// store on every list.
type taskIndex struct {
	Tasks []taskIndexEntry `json:"tasks"`
}

type taskIndexEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateTask satisfies storage.TaskRepository interface.
func (r *Repository) CreateTask(ctx context.Context, req storage.CreateTaskRequest) (*model.TaskState, error) {
	if req.Title == "" {
		return nil, fmt.Errorf("title is required: %w", model.ErrNotValid)
	}
	if req.Creator.AgentID == "" {
		return nil, fmt.Errorf("creator agent is required: %w", model.ErrNotValid)
	}

	allowed := req.AllowedAgents
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}

	now := time.Now().UTC()
	task := &model.TaskState{
		ID:          ulid.Make().String(),
		Title:       req.Title,
		Description: req.Description,
		Status:      model.TaskStatusPending,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
		GitHub:      req.GitHub,
		WorkingDir:  req.WorkingDir,
		Messages:    []model.Message{},
		Progress: model.Progress{
			Phase:       "created",
			Checkpoints: []model.Checkpoint{},
		},
		Files: []model.FileModification{},
		Handoffs: []model.Handoff{{
			ID:           uuid.NewString(),
			FromAgent:    req.Creator,
			Timestamp:    now,
			Reason:       model.InitialHandoffReason,
			Instructions: model.InitialHandoffInstructions,
		}},
		Security: model.Security{
			AllowedAgents:    allowed,
			RequiresApproval: req.RequiresApproval,
		},
	}

	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("could not create task: %w", err)
	}

	data, err := marshalTask(task)
	if err != nil {
		return nil, err
	}

	if _, err := r.store.Write(ctx, taskPath(task.ID), data, ""); err != nil {
		return nil, fmt.Errorf("could not store task: %w", err)
	}

	if err := r.addToIndex(ctx, taskIndexEntry{ID: task.ID, Title: task.Title, CreatedAt: now}); err != nil {
		return nil, fmt.Errorf("could not index task: %w", err)
	}

	r.logger.WithCtxValues(ctx).Infof("Task %s created", task.ID)

	return task, nil
}

// GetTask satisfies storage.TaskRepository interface.
func (r *Repository) GetTask(ctx context.Context, id string) (*model.TaskState, error) {
	task, _, err := r.readTask(ctx, id)
	return task, err
}

// UpdateTask satisfies storage.TaskRepository interface.
func (r *Repository) UpdateTask(ctx context.Context, id string, update storage.TaskUpdate) (*model.TaskState, error) {
	return r.mutate(ctx, id, func(t *model.TaskState) error {
		if update.Title != nil {
			t.Title = *update.Title
		}
		if update.Description != nil {
			t.Description = *update.Description
		}
		if update.Status != nil {
			t.Status = *update.Status
		}
		if update.Error != nil {
			t.Error = *update.Error
		}
		if update.GitHub != nil {
			t.GitHub = *update.GitHub
		}
		if update.WorkingDir != nil {
			t.WorkingDir = *update.WorkingDir
		}
		return nil
	})
}

// UpdateSessionID satisfies storage.TaskRepository interface.
func (r *Repository) UpdateSessionID(ctx context.Context, id, sessionID string) (*model.TaskState, error) {
	return r.mutate(ctx, id, func(t *model.TaskState) error {
		t.Session.ID = sessionID
		return nil
	})
}

// AddConversationMessage satisfies storage.TaskRepository interface. Appending
// a message is the only operation that triggers history compaction.
func (r *Repository) AddConversationMessage(ctx context.Context, id string, msg model.Message) (*model.TaskState, error) {
	return r.mutate(ctx, id, func(t *model.TaskState) error {
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now().UTC()
		}
		t.Messages = append(t.Messages, msg)
		compactHistory(t)
		return nil
	})
}

// AddFileModification satisfies storage.TaskRepository interface.
func (r *Repository) AddFileModification(ctx context.Context, id string, mod model.FileModification) (*model.TaskState, error) {
	return r.mutate(ctx, id, func(t *model.TaskState) error {
		t.Files = append(t.Files, mod)
		return nil
	})
}

// UpdateProgress satisfies storage.TaskRepository interface.
func (r *Repository) UpdateProgress(ctx context.Context, id string, update storage.ProgressUpdate) (*model.TaskState, error) {
	return r.mutate(ctx, id, func(t *model.TaskState) error {
		if update.Phase != "" {
			t.Progress.Phase = update.Phase
		}
		t.Progress.PercentComplete = update.PercentComplete
		t.Progress.Checkpoints = append(t.Progress.Checkpoints, model.Checkpoint{
			ID:             uuid.NewString(),
			Timestamp:      time.Now().UTC(),
			Description:    update.Description,
			CompletedSteps: update.CompletedSteps,
			RemainingSteps: update.RemainingSteps,
		})
		return nil
	})
}

// UpdateNextSteps satisfies storage.TaskRepository interface. The next steps
// block is replaced wholesale, there is no merging.
func (r *Repository) UpdateNextSteps(ctx context.Context, id string, steps model.NextSteps) (*model.TaskState, error) {
	return r.mutate(ctx, id, func(t *model.TaskState) error {
		t.NextSteps = steps
		return nil
	})
}

// InitiateHandoff satisfies storage.TaskRepository interface.
func (r *Repository) InitiateHandoff(ctx context.Context, id string, req storage.HandoffRequest) (*model.TaskState, error) {
	if req.From.AgentID == "" {
		return nil, fmt.Errorf("from agent is required: %w", model.ErrNotValid)
	}
	return r.mutate(ctx, id, func(t *model.TaskState) error {
		if t.Status.Terminal() {
			return fmt.Errorf("task %s is %s: %w", id, t.Status, model.ErrNotValid)
		}
		t.Handoffs = append(t.Handoffs, model.Handoff{
			ID:           uuid.NewString(),
			FromAgent:    req.From,
			Timestamp:    time.Now().UTC(),
			Reason:       req.Reason,
			Instructions: req.Instructions,
		})
		t.Status = model.TaskStatusAwaitingHandoff
		return nil
	})
}

// AcceptHandoff satisfies storage.TaskRepository interface. Acceptance fills
// in the to-agent on the pending handoff entry and moves the task to
// handed_off so the next session resumes it.
func (r *Repository) AcceptHandoff(ctx context.Context, id string, accepting model.AgentIdentity) (*model.TaskState, error) {
	if accepting.AgentID == "" {
		return nil, fmt.Errorf("accepting agent is required: %w", model.ErrNotValid)
	}
	return r.mutate(ctx, id, func(t *model.TaskState) error {
		if t.Status != model.TaskStatusAwaitingHandoff {
			return fmt.Errorf("task %s has no pending handoff: %w", id, model.ErrNoHandoff)
		}
		last := t.LastHandoff()
		if last == nil || last.AcceptedAt != nil {
			return fmt.Errorf("task %s has no pending handoff: %w", id, model.ErrNoHandoff)
		}
		now := time.Now().UTC()
		last.ToAgent = &accepting
		last.AcceptedAt = &now
		t.Status = model.TaskStatusHandedOff
		return nil
	})
}

// CompleteTask satisfies storage.TaskRepository interface. Completion clears
// the checkpoint list, the checkpoints only exist to resume work in flight.
func (r *Repository) CompleteTask(ctx context.Context, id string) (*model.TaskState, error) {
	return r.mutate(ctx, id, func(t *model.TaskState) error {
		t.Status = model.TaskStatusCompleted
		t.Progress.Phase = "completed"
		t.Progress.PercentComplete = 100
		t.Progress.Checkpoints = []model.Checkpoint{}
		return nil
	})
}

// FailTask satisfies storage.TaskRepository interface.
func (r *Repository) FailTask(ctx context.Context, id, reason string) (*model.TaskState, error) {
	return r.mutate(ctx, id, func(t *model.TaskState) error {
		t.Status = model.TaskStatusFailed
		t.Error = reason
		return nil
	})
}

// CancelTask satisfies storage.TaskRepository interface.
func (r *Repository) CancelTask(ctx context.Context, id string) (*model.TaskState, error) {
	return r.mutate(ctx, id, func(t *model.TaskState) error {
		if t.Status.Terminal() {
			return fmt.Errorf("task %s is already %s: %w", id, t.Status, model.ErrNotValid)
		}
		t.Status = model.TaskStatusCancelled
		return nil
	})
}

// ListTasks satisfies storage.TaskRepository interface. Tasks present in the
// index but missing from the store are skipped, a partially written create
// must not break the listing.
func (r *Repository) ListTasks(ctx context.Context) ([]model.TaskSummary, error) {
	idx, _, err := r.readIndex(ctx)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return []model.TaskSummary{}, nil
		}
		return nil, err
	}

	summaries := make([]model.TaskSummary, 0, len(idx.Tasks))
	for _, entry := range idx.Tasks {
		task, _, err := r.readTask(ctx, entry.ID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				r.logger.Warningf("Task %s is indexed but missing, skipping", entry.ID)
				continue
			}
			return nil, err
		}
		summaries = append(summaries, model.TaskSummary{
			ID:     task.ID,
			Title:  task.Title,
			Status: task.Status,
		})
	}

	return summaries, nil
}

// mutate runs the optimistic read-modify-write loop for a single semantic
// update. The mutation function receives the freshly read document on every
// attempt so retried mutations never apply on stale state.
func (r *Repository) mutate(ctx context.Context, id string, fn func(*model.TaskState) error) (*model.TaskState, error) {
	var lastErr error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		task, token, err := r.readTask(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := fn(task); err != nil {
			return nil, err
		}

		task.Version++
		task.UpdatedAt = time.Now().UTC()

		if err := task.Validate(); err != nil {
			return nil, fmt.Errorf("refusing to store invalid task: %w", err)
		}

		data, err := marshalTask(task)
		if err != nil {
			return nil, err
		}

		if _, err := r.store.Write(ctx, taskPath(id), data, token); err != nil {
			if errors.Is(err, model.ErrConflict) {
				lastErr = err
				r.logger.Debugf("Concurrent write on task %s, retrying (attempt %d)", id, attempt+1)
				continue
			}
			return nil, fmt.Errorf("could not store task: %w", err)
		}

		return task, nil
	}

	return nil, fmt.Errorf("could not update task %s after %d attempts: %w", id, maxWriteAttempts, lastErr)
}

func (r *Repository) readTask(ctx context.Context, id string) (*model.TaskState, string, error) {
	data, token, err := r.store.Read(ctx, taskPath(id))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, "", fmt.Errorf("task %s: %w", id, model.ErrNotFound)
		}
		return nil, "", fmt.Errorf("could not read task: %w", err)
	}

	task := &model.TaskState{}
	if err := json.Unmarshal(data, task); err != nil {
		return nil, "", fmt.Errorf("could not unmarshal task %s: %w", id, err)
	}

	return task, token, nil
}

func (r *Repository) readIndex(ctx context.Context) (*taskIndex, string, error) {
	data, token, err := r.store.Read(ctx, indexPath)
	if err != nil {
		return nil, "", err
	}

	idx := &taskIndex{}
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, "", fmt.Errorf("could not unmarshal task index: %w", err)
	}

	return idx, token, nil
}

// addToIndex appends a new entry to the task index with the same bounded
// retry as task mutations. Concurrent creates race on the index blob.
func (r *Repository) addToIndex(ctx context.Context, entry taskIndexEntry) error {
	var lastErr error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		idx, token, err := r.readIndex(ctx)
		if err != nil {
			if !errors.Is(err, model.ErrNotFound) {
				return err
			}
			idx, token = &taskIndex{Tasks: []taskIndexEntry{}}, ""
		}

		idx.Tasks = append(idx.Tasks, entry)

		data, err := json.MarshalIndent(idx, "", "  ")
		if err != nil {
			return fmt.Errorf("could not marshal task index: %w", err)
		}

		_, err = r.store.Write(ctx, indexPath, data, token)
		if err == nil {
			return nil
		}
		if !errors.Is(err, model.ErrConflict) && !errors.Is(err, model.ErrAlreadyExists) {
			return fmt.Errorf("could not store task index: %w", err)
		}
		lastErr = err
	}

	return fmt.Errorf("could not update task index after %d attempts: %w", maxWriteAttempts, lastErr)
}

// marshalTask renders the task document. Pretty printed so the state files
// stay reviewable in the state repository.
func marshalTask(t *model.TaskState) ([]byte, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not marshal task: %w", err)
	}
	return data, nil
}
