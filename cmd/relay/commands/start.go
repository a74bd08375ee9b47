package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/agentrelay/relay/internal/app/taskcreate"
	"github.com/agentrelay/relay/internal/app/taskrun"
	"github.com/agentrelay/relay/internal/model"
	"github.com/agentrelay/relay/internal/storage"
)

// StartCommand creates a new task and optionally runs its first agent turn.
type StartCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	title            string
	description      string
	targetRepo       string
	targetBranch     string
	issueNumber      int
	workingDir       string
	allowedAgents    []string
	requiresApproval bool
	openIssue        bool
	runTurn          bool
}

// NewStartCommand sets up the start command with its flags.
func NewStartCommand(rootCmd *RootCommand, app *kingpin.Application) *StartCommand {
	cmd := app.Command("start", "Create a new task.")
	c := &StartCommand{
		Cmd:     cmd,
		rootCmd: rootCmd,
	}

	cmd.Arg("title", "Task title.").Required().StringVar(&c.title)
	cmd.Flag("description", "Task description.").StringVar(&c.description)
	cmd.Flag("repo", "Target repository (owner/name).").StringVar(&c.targetRepo)
	cmd.Flag("branch", "Target branch.").StringVar(&c.targetBranch)
	cmd.Flag("issue", "Existing tracking issue number.").IntVar(&c.issueNumber)
	cmd.Flag("open-issue", "Open a tracking issue on the target repository.").BoolVar(&c.openIssue)
	cmd.Flag("working-dir", "Working directory for the task.").StringVar(&c.workingDir)
	cmd.Flag("allowed", "Agent IDs allowed to work on the task (repeatable, defaults to any).").StringsVar(&c.allowedAgents)
	cmd.Flag("requires-approval", "Require approval before handoffs complete.").BoolVar(&c.requiresApproval)
	cmd.Flag("run", "Run the first agent turn right after creating the task.").BoolVar(&c.runTurn)

	return c
}

// Name returns the command name.
func (c *StartCommand) Name() string { return c.Cmd.FullCommand() }

// Run executes the command.
func (c *StartCommand) Run(ctx context.Context) error {
	repo, err := c.rootCmd.NewRepository(ctx)
	if err != nil {
		return err
	}

	createSvc, err := taskcreate.NewService(taskcreate.ServiceConfig{
		Repository: repo,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create task service: %w", err)
	}

	task, err := createSvc.Run(ctx, taskcreate.Request{
		Title:       c.title,
		Description: c.description,
		GitHub: model.GitHubRef{
			TargetRepo:   c.targetRepo,
			TargetBranch: c.targetBranch,
			IssueNumber:  c.issueNumber,
		},
		Creator:          c.rootCmd.Identity(),
		WorkingDir:       c.workingDir,
		AllowedAgents:    c.allowedAgents,
		RequiresApproval: c.requiresApproval,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.rootCmd.Stdout, "Task %s created\n", task.ID)

	if c.openIssue {
		notifier, err := c.rootCmd.NewNotifier()
		if err != nil {
			return err
		}

		number, err := notifier.OpenIssue(ctx, c.targetRepo, task.Title, task.Description)
		if err != nil {
			return fmt.Errorf("could not open tracking issue: %w", err)
		}

		gh := task.GitHub
		gh.IssueNumber = number
		task, err = repo.UpdateTask(ctx, task.ID, storage.TaskUpdate{GitHub: &gh})
		if err != nil {
			return fmt.Errorf("could not record tracking issue: %w", err)
		}

		fmt.Fprintf(c.rootCmd.Stdout, "Opened tracking issue %s#%d\n", c.targetRepo, number)
	}

	if !c.runTurn {
		return nil
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
		TaskID: task.ID,
		Agent:  c.rootCmd.Identity(),
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
