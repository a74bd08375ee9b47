package handoffinit

import (
	"context"
	"fmt"

	"github.com/agentrelay/relay/internal/auth"
	"github.com/agentrelay/relay/internal/log"
	"github.com/agentrelay/relay/internal/model"
	"github.com/agentrelay/relay/internal/notify"
	"github.com/agentrelay/relay/internal/prompt"
	"github.com/agentrelay/relay/internal/storage"
)

// ServiceConfig is the configuration for the handoff initiation service.
type ServiceConfig struct {
	Repository storage.TaskRepository
	Notifier   notify.Notifier
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Notifier == nil {
		c.Notifier = notify.Noop
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.HandoffInit"})

	return nil
}

// Service initiates task handoffs without running an agent turn.
type Service struct {
	repo     storage.TaskRepository
	notifier notify.Notifier
	logger   log.Logger
}

// NewService creates a new handoff initiation service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:     cfg.Repository,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the handoff initiation parameters.
type Request struct {
	TaskID       string
	Agent        model.AgentIdentity
	Reason       string
	Instructions string
}

// Run initiates the handoff and posts a best-effort notice on the tracking
// issue.
func (s *Service) Run(ctx context.Context, req Request) (*model.TaskState, error) {
	task, err := s.repo.GetTask(ctx, req.TaskID)
	if err != nil {
		return nil, fmt.Errorf("could not get task: %w", err)
	}

	if err := auth.Authorize(task, req.Agent.AgentID); err != nil {
		return nil, err
	}

	task, err = s.repo.InitiateHandoff(ctx, req.TaskID, storage.HandoffRequest{
		From:         req.Agent,
		Reason:       req.Reason,
		Instructions: req.Instructions,
	})
	if err != nil {
		return nil, fmt.Errorf("could not initiate handoff: %w", err)
	}

	notice := notify.HandoffNotice{
		TaskID:  task.ID,
		Title:   task.Title,
		Reason:  req.Reason,
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

	s.logger.Infof("Handoff initiated on task %s", task.ID)

	return task, nil
}
