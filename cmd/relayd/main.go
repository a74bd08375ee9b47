package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/agentrelay/relay/internal/agent"
	"github.com/agentrelay/relay/internal/agent/anthropic"
	"github.com/agentrelay/relay/internal/agent/fake"
	"github.com/agentrelay/relay/internal/api"
	"github.com/agentrelay/relay/internal/app/handoffaccept"
	"github.com/agentrelay/relay/internal/app/handoffinit"
	"github.com/agentrelay/relay/internal/app/taskcreate"
	"github.com/agentrelay/relay/internal/app/taskrun"
	"github.com/agentrelay/relay/internal/app/taskstatus"
	"github.com/agentrelay/relay/internal/auth"
	"github.com/agentrelay/relay/internal/blob"
	blobgithub "github.com/agentrelay/relay/internal/blob/github"
	"github.com/agentrelay/relay/internal/blob/memory"
	"github.com/agentrelay/relay/internal/blob/sqlite"
	"github.com/agentrelay/relay/internal/config"
	"github.com/agentrelay/relay/internal/log"
	loglogrus "github.com/agentrelay/relay/internal/log/logrus"
	"github.com/agentrelay/relay/internal/notify"
	notifygithub "github.com/agentrelay/relay/internal/notify/github"
	"github.com/agentrelay/relay/internal/storage/blobstore"
)

const (
	// Version is the application version (set via ldflags).
	Version = "dev"

	gracefulShutdownTimeout = 10 * time.Second
)

func main() {
	app := kingpin.New("relayd", "AI task handoff coordination daemon.")
	app.DefaultEnvars()
	configPath := app.Flag("config", "Path to the YAML configuration file.").Default("relay.yaml").String()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx := context.Background()
	if err := runApp(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func runApp(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := getLogger(cfg)

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	repo, err := blobstore.NewRepository(blobstore.RepositoryConfig{
		Store:  store,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create task repository: %w", err)
	}

	runner, err := newRunner(cfg, logger)
	if err != nil {
		return err
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}

	createSvc, err := taskcreate.NewService(taskcreate.ServiceConfig{Repository: repo, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create task service: %w", err)
	}
	runSvc, err := taskrun.NewService(taskrun.ServiceConfig{
		Repository:         repo,
		Runner:             runner,
		Notifier:           notifier,
		SystemPromptSuffix: cfg.Agent.SystemPromptSuffix,
		Logger:             logger,
	})
	if err != nil {
		return fmt.Errorf("could not create turn service: %w", err)
	}
	statusSvc, err := taskstatus.NewService(taskstatus.ServiceConfig{Repository: repo, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create status service: %w", err)
	}
	hinitSvc, err := handoffinit.NewService(handoffinit.ServiceConfig{
		Repository: repo,
		Notifier:   notifier,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create handoff service: %w", err)
	}
	hacceptSvc, err := handoffaccept.NewService(handoffaccept.ServiceConfig{Repository: repo, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create handoff accept service: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("a JWT secret is required (set auth.jwt_secret or RELAY_JWT_SECRET)")
	}
	validator, err := auth.NewTokenValidator(auth.TokenValidatorConfig{Secret: cfg.Auth.JWTSecret})
	if err != nil {
		return fmt.Errorf("could not create token validator: %w", err)
	}

	router, err := api.NewRouter(api.RouterConfig{
		TaskCreate:     createSvc,
		TaskRun:        runSvc,
		TaskStatus:     statusSvc,
		HandoffInit:    hinitSvc,
		HandoffAccept:  hacceptSvc,
		TokenValidator: validator,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("could not create API router: %w", err)
	}

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router.Handler(),
	}

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				logger.Infof("Termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// HTTP server.
	{
		g.Add(
			func() error {
				logger.Infof("Listening on %s", cfg.Server.Addr)
				err := server.ListenAndServe()
				if err != nil && err != http.ErrServerClosed {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			},
			func(_ error) {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Errorf("Server shutdown failed: %s", err)
				}
			},
		)
	}

	return g.Run()
}

func newStore(ctx context.Context, cfg *config.Config, logger log.Logger) (blob.Store, error) {
	switch cfg.Store.Kind {
	case "memory":
		return memory.NewStore(memory.StoreConfig{Logger: logger})
	case "sqlite":
		return sqlite.NewStore(ctx, sqlite.StoreConfig{
			DBPath: cfg.Store.DBPath,
			Logger: logger,
		})
	case "github":
		return blobgithub.NewStore(blobgithub.StoreConfig{
			Repo:   cfg.Store.Repo,
			Branch: cfg.Store.Branch,
			Token:  cfg.Store.Token,
			Logger: logger,
		})
	}

	return nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
}

func newRunner(cfg *config.Config, logger log.Logger) (agent.Runner, error) {
	switch cfg.Agent.Provider {
	case "anthropic":
		return anthropic.NewRunner(anthropic.RunnerConfig{
			APIKey: cfg.Agent.APIKey,
			Model:  cfg.Agent.Model,
			Logger: logger,
		})
	case "fake":
		return fake.NewRunner(), nil
	}

	return nil, fmt.Errorf("unknown agent provider %q", cfg.Agent.Provider)
}

func newNotifier(cfg *config.Config, logger log.Logger) (notify.Notifier, error) {
	if cfg.Notify.Token == "" {
		return notify.Noop, nil
	}

	return notifygithub.NewNotifier(notifygithub.NotifierConfig{
		Token:  cfg.Notify.Token,
		Logger: logger,
	})
}

func getLogger(cfg *config.Config) log.Logger {
	logrusLog := logrus.New()
	logrusLogEntry := logrus.NewEntry(logrusLog)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrusLogEntry.Logger.SetLevel(level)
	logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})

	return loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"version": Version,
	})
}
