package taskstatus

import (
	"context"
	"fmt"

	"github.com/agentrelay/relay/internal/log"
	"github.com/agentrelay/relay/internal/model"
	"github.com/agentrelay/relay/internal/storage"
)

// ServiceConfig is the configuration for the task status service.
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

	return nil
}

// Service reads task status views.
type Service struct {
	repo   storage.TaskRepository
	logger log.Logger
}

// NewService creates a new task status service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{repo: cfg.Repository, logger: cfg.Logger}, nil
}

// Get returns the full state of one task.
func (s *Service) Get(ctx context.Context, taskID string) (*model.TaskState, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("could not get task: %w", err)
	}
	return task, nil
}

// List returns the summary view of every known task.
func (s *Service) List(ctx context.Context) ([]model.TaskSummary, error) {
	summaries, err := s.repo.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list tasks: %w", err)
	}
	return summaries, nil
}
