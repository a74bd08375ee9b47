package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/agentrelay/relay/internal/app/taskstatus"
)

// StatusCommand shows the full state of one task.
type StatusCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID string
	format string
}

// NewStatusCommand sets up the status command with its flags.
func NewStatusCommand(rootCmd *RootCommand, app *kingpin.Application) *StatusCommand {
	cmd := app.Command("status", "Show the state of a task.")
	c := &StatusCommand{
		Cmd:     cmd,
		rootCmd: rootCmd,
	}

	cmd.Arg("task-id", "Task ID.").Required().StringVar(&c.taskID)
	cmd.Flag("output", "Output format.").Short('o').Default("table").EnumVar(&c.format, "table", "json")

	return c
}

// Name returns the command name.
func (c *StatusCommand) Name() string { return c.Cmd.FullCommand() }

// Run executes the command.
func (c *StatusCommand) Run(ctx context.Context) error {
	repo, err := c.rootCmd.NewRepository(ctx)
	if err != nil {
		return err
	}

	svc, err := taskstatus.NewService(taskstatus.ServiceConfig{
		Repository: repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create status service: %w", err)
	}

	task, err := svc.Get(ctx, c.taskID)
	if err != nil {
		return err
	}

	p, err := c.rootCmd.NewPrinter(c.format)
	if err != nil {
		return err
	}

	return p.PrintStatus(*task)
}
