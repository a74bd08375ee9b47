package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/agentrelay/relay/internal/agent"
	"github.com/agentrelay/relay/internal/agent/anthropic"
	"github.com/agentrelay/relay/internal/blob/sqlite"
	"github.com/agentrelay/relay/internal/log"
	"github.com/agentrelay/relay/internal/model"
	"github.com/agentrelay/relay/internal/notify"
	notifygithub "github.com/agentrelay/relay/internal/notify/github"
	"github.com/agentrelay/relay/internal/printer"
	"github.com/agentrelay/relay/internal/storage"
	"github.com/agentrelay/relay/internal/storage/blobstore"
)

// Command represents an application command, all commands that want to
// be executed should implement and set up on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

const (
	// LoggerTypeDefault is the logrus logger type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logrus JSON logger type.
	LoggerTypeJSON = "json"
)

// RootCommand represents the root command configuration, all commands
// will have this as a parent.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	DBPath     string
	AgentID    string
	APIKey     string
	Model      string
	GHToken    string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	defaultDBPath := filepath.Join(homedir.HomeDir(), ".relay", "relay.db")

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)
	app.Flag("db-path", "Path to the task state database file.").Default(defaultDBPath).StringVar(&c.DBPath)
	app.Flag("agent-id", "Identity used for task operations.").Default("local").StringVar(&c.AgentID)
	app.Flag("api-key", "Anthropic API key used to run agent turns.").Envar("ANTHROPIC_API_KEY").StringVar(&c.APIKey)
	app.Flag("model", "Model used to run agent turns.").StringVar(&c.Model)
	app.Flag("github-token", "GitHub token used for tracking issues.").Envar("GITHUB_TOKEN").StringVar(&c.GHToken)

	return c
}

// Identity returns the agent identity the CLI operates as.
func (c *RootCommand) Identity() model.AgentIdentity {
	return model.AgentIdentity{AgentID: c.AgentID}
}

// NewRepository opens the local task repository backed by SQLite.
func (c *RootCommand) NewRepository(ctx context.Context) (storage.TaskRepository, error) {
	store, err := sqlite.NewStore(ctx, sqlite.StoreConfig{
		DBPath: c.DBPath,
		Logger: c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not open task store: %w", err)
	}

	repo, err := blobstore.NewRepository(blobstore.RepositoryConfig{
		Store:  store,
		Logger: c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create task repository: %w", err)
	}

	return repo, nil
}

// NewRunner creates the agent runner used by turn-running commands.
func (c *RootCommand) NewRunner() (agent.Runner, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("an Anthropic API key is required (set ANTHROPIC_API_KEY or --api-key)")
	}

	runner, err := anthropic.NewRunner(anthropic.RunnerConfig{
		APIKey: c.APIKey,
		Model:  c.Model,
		Logger: c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create agent runner: %w", err)
	}

	return runner, nil
}

// NewNotifier creates the issue-tracker notifier for commands that talk to
// the tracker.
func (c *RootCommand) NewNotifier() (notify.Notifier, error) {
	notifier, err := notifygithub.NewNotifier(notifygithub.NotifierConfig{
		Token:  c.GHToken,
		Logger: c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create notifier: %w", err)
	}

	return notifier, nil
}

// NewPrinter returns the printer for the selected output format.
func (c *RootCommand) NewPrinter(format string) (printer.Printer, error) {
	switch format {
	case "table":
		return printer.NewTablePrinter(c.Stdout), nil
	case "json":
		return printer.NewJSONPrinter(c.Stdout), nil
	}

	return nil, fmt.Errorf("unknown output format %q", format)
}
