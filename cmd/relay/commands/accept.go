package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/agentrelay/relay/internal/app/handoffaccept"
)

// AcceptCommand accepts the pending handoff on a task.
type AcceptCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID string
}

// NewAcceptCommand sets up the accept command with its flags.
func NewAcceptCommand(rootCmd *RootCommand, app *kingpin.Application) *AcceptCommand {
	cmd := app.Command("accept", "Accept a pending task handoff.")
	c := &AcceptCommand{
		Cmd:     cmd,
		rootCmd: rootCmd,
	}

	cmd.Arg("task-id", "Task ID.").Required().StringVar(&c.taskID)

	return c
}

// Name returns the command name.
func (c *AcceptCommand) Name() string { return c.Cmd.FullCommand() }

// Run executes the command.
func (c *AcceptCommand) Run(ctx context.Context) error {
	repo, err := c.rootCmd.NewRepository(ctx)
	if err != nil {
		return err
	}

	svc, err := handoffaccept.NewService(handoffaccept.ServiceConfig{
		Repository: repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create handoff accept service: %w", err)
	}

	task, err := svc.Run(ctx, handoffaccept.Request{
		TaskID: c.taskID,
		Agent:  c.rootCmd.Identity(),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Handoff accepted, task %s is now owned by %s\n", task.ID, c.rootCmd.AgentID)

	return nil
}
