package handoffaccept

import (
	"context"
	"fmt"

	"github.com/agentrelay/relay/internal/auth"
	"github.com/agentrelay/relay/internal/log"
	"github.com/agentrelay/relay/internal/model"
	"github.com/agentrelay/relay/internal/storage"
)

// ServiceConfig is the configuration for the handoff acceptance service.
type ServiceConfig struct {
	Repository storage.TaskRepository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.HandoffAccept"})

	return nil
}

// Service accepts pending task handoffs.
type Service struct {
	repo   storage.TaskRepository
	logger log.Logger
}

// NewService creates a new handoff acceptance service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{repo: cfg.Repository, logger: cfg.Logger}, nil
}

// Request represents the handoff acceptance parameters.
type Request struct {
	TaskID string
	Agent  model.AgentIdentity
}

// Run accepts the pending handoff for the requesting agent.
func (s *Service) Run(ctx context.Context, req Request) (*model.TaskState, error) {
	task, err := s.repo.GetTask(ctx, req.TaskID)
	if err != nil {
		return nil, fmt.Errorf("could not get task: %w", err)
	}

	if err := auth.Authorize(task, req.Agent.AgentID); err != nil {
		return nil, err
	}

	task, err = s.repo.AcceptHandoff(ctx, req.TaskID, req.Agent)
	if err != nil {
		return nil, fmt.Errorf("could not accept handoff: %w", err)
	}

	s.logger.Infof("Handoff on task %s accepted by %s", task.ID, req.Agent.AgentID)

	return task, nil
}
