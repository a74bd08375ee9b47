package taskcreate

import (
	"context"
	"fmt"

	"github.com/agentrelay/relay/internal/log"
	"github.com/agentrelay/relay/internal/model"
	"github.com/agentrelay/relay/internal/storage"
)

// ServiceConfig is the configuration for the task create service.
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.TaskCreate"})

	return nil
}

// Service creates tasks.
type Service struct {
	repo   storage.TaskRepository
	logger log.Logger
}

// NewService creates a new task create service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{repo: cfg.Repository, logger: cfg.Logger}, nil
}

// Request represents the task creation parameters.
type Request struct {
	Title            string
	Description      string
	GitHub           model.GitHubRef
	Creator          model.AgentIdentity
	WorkingDir       string
	AllowedAgents    []string
	RequiresApproval bool
}

// Run creates the task.
func (s *Service) Run(ctx context.Context, req Request) (*model.TaskState, error) {
	task, err := s.repo.CreateTask(ctx, storage.CreateTaskRequest{
		Title:            req.Title,
		Description:      req.Description,
		GitHub:           req.GitHub,
		Creator:          req.Creator,
		WorkingDir:       req.WorkingDir,
		AllowedAgents:    req.AllowedAgents,
		RequiresApproval: req.RequiresApproval,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create task: %w", err)
	}

	s.logger.Infof("Created task %s (%q)", task.ID, task.Title)

	return task, nil
}
