package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/agentrelay/relay/internal/app/taskstatus"
)

// ListCommand lists the known tasks.
type ListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewListCommand sets up the list command with its flags.
func NewListCommand(rootCmd *RootCommand, app *kingpin.Application) *ListCommand {
	cmd := app.Command("list", "List tasks.").Alias("ls")
	c := &ListCommand{
		Cmd:     cmd,
		rootCmd: rootCmd,
	}

	cmd.Flag("output", "Output format.").Short('o').Default("table").EnumVar(&c.format, "table", "json")

	return c
}

// Name returns the command name.
func (c *ListCommand) Name() string { return c.Cmd.FullCommand() }

// Run executes the command.
func (c *ListCommand) Run(ctx context.Context) error {
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

	tasks, err := svc.List(ctx)
	if err != nil {
		return err
	}

	p, err := c.rootCmd.NewPrinter(c.format)
	if err != nil {
		return err
	}

	return p.PrintList(tasks)
}
