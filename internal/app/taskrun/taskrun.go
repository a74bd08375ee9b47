// Package taskrun executes a single agent turn on a task: it loads the task,
// renders the prompts, invokes the agent runner and persists every tool
// effect back through the repository before the turn finishes.
package taskrun

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/agentrelay/relay/internal/agent"
	"github.com/agentrelay/relay/internal/auth"
	"github.com/agentrelay/relay/internal/log"
	"github.com/agentrelay/relay/internal/model"
	"github.com/agentrelay/relay/internal/notify"
	"github.com/agentrelay/relay/internal/prompt"
	"github.com/agentrelay/relay/internal/storage"
)

// ServiceConfig is the configuration for the task run service.
type ServiceConfig struct {
	Repository storage.TaskRepository
	Runner     agent.Runner
	Notifier   notify.Notifier
	// SystemPromptSuffix is appended to every rendered system prompt.
	SystemPromptSuffix string
	Logger             log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Runner == nil {
		return fmt.Errorf("agent runner is required")
	}

	if c.Notifier == nil {
		c.Notifier = notify.Noop
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.TaskRun"})

	return nil
}

// Service runs agent turns on tasks.
type Service struct {
	repo     storage.TaskRepository
	runner   agent.Runner
	notifier notify.Notifier
	suffix   string
	logger   log.Logger
}

// NewService creates a new task run service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:     cfg.Repository,
		runner:   cfg.Runner,
		notifier: cfg.Notifier,
		suffix:   cfg.SystemPromptSuffix,
		logger:   cfg.Logger,
	}, nil
}

// Request represents one turn execution request.
type Request struct {
	// TaskID is the task to run a turn on.
	TaskID string
	// Agent is the identity executing the turn.
	Agent model.AgentIdentity
	// AdditionalInstructions is appended to the resumption prompt.
	AdditionalInstructions string
}

// Result is the outcome of one turn. Agent failures are captured here instead
// of being returned as an error, the turn boundary absorbs them.
type Result struct {
	Task *model.TaskState
	Text string
	// Err is the agent failure message when the turn failed.
	Err string
}

// Failed reports whether the turn ended in a task failure.
func (r *Result) Failed() bool { return r.Err != "" }

// Run executes one agent turn. Repository and authorization errors are
// returned to the caller, agent-turn failures flip the task to failed and
// come back inside the result.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	task, err := s.repo.GetTask(ctx, req.TaskID)
	if err != nil {
		return nil, fmt.Errorf("could not get task: %w", err)
	}

	if err := auth.Authorize(task, req.Agent.AgentID); err != nil {
		return nil, err
	}

	if task.Status.Terminal() {
		return nil, fmt.Errorf("task %s is %s and cannot be resumed: %w", task.ID, task.Status, model.ErrNotValid)
	}

	resuming := task.Session.ID != ""

	sessionID := task.Session.ID
	if sessionID == "" {
		sessionID = ulid.Make().String()
	}
	if _, err := s.repo.UpdateSessionID(ctx, task.ID, sessionID); err != nil {
		return nil, fmt.Errorf("could not assign session: %w", err)
	}

	inProgress := model.TaskStatusInProgress
	task, err = s.repo.UpdateTask(ctx, task.ID, storage.TaskUpdate{Status: &inProgress})
	if err != nil {
		return nil, fmt.Errorf("could not mark task in progress: %w", err)
	}

	turnReq := agent.TurnRequest{
		System: prompt.SystemPrompt(task, s.suffix),
		Tools:  toolSurface(),
	}
	if resuming {
		turnReq.Prompt = prompt.ResumptionPrompt(task, req.AdditionalInstructions)
	} else {
		turnReq.Prompt = firstTurnPrompt(task, req.AdditionalInstructions)
	}

	s.logger.WithValues(log.Kv{"task": task.ID, "session": sessionID}).Infof("Running agent turn")

	turn, err := s.runner.RunTurn(ctx, turnReq)
	if err != nil {
		return s.failTurn(ctx, task.ID, fmt.Errorf("agent turn failed: %w", err))
	}

	for _, inv := range turn.ToolInvocations {
		if err := s.applyToolInvocation(ctx, task, req.Agent, inv); err != nil {
			return s.failTurn(ctx, task.ID, fmt.Errorf("could not apply tool %s: %w", inv.Name, err))
		}
	}

	msg := model.Message{
		Role:    model.MessageRoleAssistant,
		Content: turn.Text,
	}
	for _, inv := range turn.ToolInvocations {
		args, _ := json.Marshal(inv.Arguments)
		msg.ToolCalls = append(msg.ToolCalls, model.ToolCallRecord{
			ID:        inv.ID,
			Name:      inv.Name,
			Arguments: string(args),
		})
	}

	task, err = s.repo.AddConversationMessage(ctx, task.ID, msg)
	if err != nil {
		return nil, fmt.Errorf("could not record turn message: %w", err)
	}

	return &Result{Task: task, Text: turn.Text}, nil
}

// failTurn absorbs an agent failure into the task status and the result.
func (s *Service) failTurn(ctx context.Context, taskID string, turnErr error) (*Result, error) {
	s.logger.Warningf("Turn on task %s failed: %v", taskID, turnErr)

	task, err := s.repo.FailTask(ctx, taskID, turnErr.Error())
	if err != nil {
		return nil, fmt.Errorf("could not mark task failed after turn error %q: %w", turnErr, err)
	}

	return &Result{Task: task, Err: turnErr.Error()}, nil
}

func (s *Service) applyToolInvocation(ctx context.Context, task *model.TaskState, executing model.AgentIdentity, inv agent.ToolInvocation) error {
	switch inv.Name {
	case toolUpdateProgress:
		var args struct {
			Phase           string   `json:"phase"`
			PercentComplete int      `json:"percentComplete"`
			Description     string   `json:"description"`
			CompletedSteps  []string `json:"completedSteps"`
			RemainingSteps  []string `json:"remainingSteps"`
		}
		if err := decodeArgs(inv.Arguments, &args); err != nil {
			return err
		}
		_, err := s.repo.UpdateProgress(ctx, task.ID, storage.ProgressUpdate{
			Phase:           args.Phase,
			PercentComplete: args.PercentComplete,
			Description:     args.Description,
			CompletedSteps:  args.CompletedSteps,
			RemainingSteps:  args.RemainingSteps,
		})
		return err

	case toolUpdateNextSteps:
		var args model.NextSteps
		if err := decodeArgs(inv.Arguments, &args); err != nil {
			return err
		}
		_, err := s.repo.UpdateNextSteps(ctx, task.ID, args)
		return err

	case toolRecordFileChange:
		var args model.FileModification
		if err := decodeArgs(inv.Arguments, &args); err != nil {
			return err
		}
		_, err := s.repo.AddFileModification(ctx, task.ID, args)
		return err

	case toolRequestHandoff:
		var args struct {
			Reason       string `json:"reason"`
			Instructions string `json:"instructions"`
		}
		if err := decodeArgs(inv.Arguments, &args); err != nil {
			return err
		}
		updated, err := s.repo.InitiateHandoff(ctx, task.ID, storage.HandoffRequest{
			From:         model.AgentIdentity{AgentID: executing.AgentID, SessionID: task.Session.ID},
			Reason:       args.Reason,
			Instructions: args.Instructions,
		})
		if err != nil {
			return err
		}
		s.postHandoffNotice(ctx, updated)
		return nil

	default:
		return fmt.Errorf("unknown tool %q: %w", inv.Name, model.ErrNotValid)
	}
}

// postHandoffNotice notifies the tracking issue about a requested handoff.
// Delivery is best effort, failures only get logged.
func (s *Service) postHandoffNotice(ctx context.Context, task *model.TaskState) {
	h := task.LastHandoff()
	notice := notify.HandoffNotice{
		TaskID:  task.ID,
		Title:   task.Title,
		Reason:  h.Reason,
		Summary: prompt.HandoffSummary(task),
	}
	if env, err := prompt.MarshalHandoffEnvelope(task); err != nil {
		s.logger.Warningf("Could not build handoff envelope for task %s: %v", task.ID, err)
	} else {
		notice.Envelope = string(env)
	}
	if err := s.notifier.PostHandoffNotice(ctx, task.GitHub.TargetRepo, task.GitHub.IssueNumber, notice); err != nil {
		s.logger.Warningf("Could not post handoff notice for task %s: %v", task.ID, err)
	}
}

func firstTurnPrompt(task *model.TaskState, additionalInstructions string) string {
	p := fmt.Sprintf("Work on the following task.\n\nTitle: %s\n\n%s", task.Title, task.Description)
	if additionalInstructions != "" {
		p += "\n\n" + additionalInstructions
	}
	return p
}

func decodeArgs(args map[string]any, dst any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("could not marshal tool arguments: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("could not decode tool arguments (%v): %w", err, model.ErrNotValid)
	}
	return nil
}
