package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/agentrelay/relay/internal/app/handoffaccept"
	"github.com/agentrelay/relay/internal/app/taskrun"
)

// ContinueCommand runs an agent turn on an existing task, optionally
// accepting a pending handoff first.
type ContinueCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID       string
	accept       bool
	instructions string
}

// NewContinueCommand sets up the continue command with its flags.
func NewContinueCommand(rootCmd *RootCommand, app *kingpin.Application) *ContinueCommand {
	cmd := app.Command("continue", "Run an agent turn on a task.")
	c := &ContinueCommand{
		Cmd:     cmd,
		rootCmd: rootCmd,
	}

	cmd.Arg("task-id", "Task ID.").Required().StringVar(&c.taskID)
	cmd.Flag("accept", "Accept the pending handoff before running the turn.").BoolVar(&c.accept)
	cmd.Flag("instructions", "Additional instructions for the agent.").StringVar(&c.instructions)

	return c
}

// Name returns the command name.
func (c *ContinueCommand) Name() string { return c.Cmd.FullCommand() }

// Run executes the command.
func (c *ContinueCommand) Run(ctx context.Context) error {
	repo, err := c.rootCmd.NewRepository(ctx)
	if err != nil {
		return err
	}

	if c.accept {
		acceptSvc, err := handoffaccept.NewService(handoffaccept.ServiceConfig{
			Repository: repo,
			Logger:     c.rootCmd.Logger,
		})
		if err != nil {
			return fmt.Errorf("could not create handoff accept service: %w", err)
		}

		if _, err := acceptSvc.Run(ctx, handoffaccept.Request{
			TaskID: c.taskID,
			Agent:  c.rootCmd.Identity(),
		}); err != nil {
			return err
		}

		fmt.Fprintf(c.rootCmd.Stdout, "Handoff accepted for task %s\n", c.taskID)
	}

	runner, err := c.rootCmd.NewRunner()
	if err != nil {
		return err
	}

	runSvc, err := taskrun.NewService(taskrun.ServiceConfig{
		Repository: repo,
		Runner:     runner,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create turn service: %w", err)
	}

	result, err := runSvc.Run(ctx, taskrun.Request{
		TaskID:                 c.taskID,
		Agent:                  c.rootCmd.Identity(),
		AdditionalInstructions: c.instructions,
	})
	if err != nil {
		return err
	}
	if result.Failed() {
		return fmt.Errorf("turn failed: %s", result.Err)
	}

	fmt.Fprintln(c.rootCmd.Stdout, result.Text)

	return nil
}
