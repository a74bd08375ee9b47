package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/agentrelay/relay/internal/app/handoffinit"
)

// HandoffCommand initiates a handoff on a task.
type HandoffCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID       string
	reason       string
	instructions string
}

// NewHandoffCommand sets up the handoff command with its flags.
func NewHandoffCommand(rootCmd *RootCommand, app *kingpin.Application) *HandoffCommand {
	cmd := app.Command("handoff", "Hand a task off to another agent.")
	c := &HandoffCommand{
		Cmd:     cmd,
		rootCmd: rootCmd,
	}

	cmd.Arg("task-id", "Task ID.").Required().StringVar(&c.taskID)
	cmd.Flag("reason", "Why the task is being handed off.").Required().StringVar(&c.reason)
	cmd.Flag("instructions", "Instructions for the next agent.").StringVar(&c.instructions)

	return c
}

// Name returns the command name.
func (c *HandoffCommand) Name() string { return c.Cmd.FullCommand() }

// Run executes the command.
func (c *HandoffCommand) Run(ctx context.Context) error {
	repo, err := c.rootCmd.NewRepository(ctx)
	if err != nil {
		return err
	}

	svc, err := handoffinit.NewService(handoffinit.ServiceConfig{
		Repository: repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create handoff service: %w", err)
	}

	task, err := svc.Run(ctx, handoffinit.Request{
		TaskID:       c.taskID,
		Agent:        c.rootCmd.Identity(),
		Reason:       c.reason,
		Instructions: c.instructions,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Task %s is awaiting handoff\n", task.ID)

	return nil
}
