package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/hochfrequenz/doccheck/internal/collector"
	"github.com/hochfrequenz/doccheck/internal/config"
	"github.com/hochfrequenz/doccheck/internal/domain"
	"github.com/hochfrequenz/doccheck/internal/executor"
	"github.com/hochfrequenz/doccheck/internal/logging"
	"github.com/hochfrequenz/doccheck/internal/notify"
	"github.com/hochfrequenz/doccheck/internal/oracle"
	"github.com/hochfrequenz/doccheck/internal/pipeline"
	"github.com/hochfrequenz/doccheck/internal/prompts"
	"github.com/hochfrequenz/doccheck/internal/repair"
	"github.com/hochfrequenz/doccheck/internal/reportstore"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *logging.Logger
)

func setup(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	c, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = c

	level := cfg.General.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	l, err := logging.New(logging.Options{Level: level, File: cfg.General.LogFile})
	if err != nil {
		return err
	}
	logger = l
	slog.SetDefault(l.Logger)
	return nil
}

func teardown(cmd *cobra.Command, args []string) {
	if logger != nil {
		logger.Close()
	}
}

func openStore() (*reportstore.Store, error) {
	store, err := reportstore.New(cfg.General.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return store, nil
}

func newOracle(projectRoot string) *oracle.Claude {
	return oracle.NewClaude(oracle.ClaudeOptions{
		Command:   cfg.Oracle.Command,
		Model:     cfg.Oracle.Model,
		ExtraArgs: cfg.Oracle.ExtraArgs,
		Prompts:   prompts.DefaultLoader(projectRoot, cfg.General.PromptsDir),
		Logger:    logger.Logger,
	})
}

func collectorOptions() collector.Options {
	return collector.Options{
		ReadTimeout: cfg.Executor.ReadTimeout.Duration,
		Pace:        cfg.Executor.Pace.Duration,
		MaxReads:    cfg.Executor.MaxReads,
	}
}

func newLocalExecutor(o *oracle.Claude, dir string) *executor.Local {
	return executor.NewLocal(o, oracle.NewGateway(o, logger.Logger), executor.LocalOptions{
		Shell:         cfg.Executor.Shell,
		Dir:           dir,
		BannerTimeout: cfg.Executor.BannerTimeout.Duration,
		Collector:     collectorOptions(),
		Logger:        logger.Logger,
	})
}

func newRemoteExecutor(o *oracle.Claude, url string) *executor.Remote {
	return executor.NewRemote(o, oracle.NewGateway(o, logger.Logger), executor.RemoteOptions{
		URL:              url,
		DialTimeout:      cfg.Remote.DialTimeout.Duration,
		ResponseTimeout:  cfg.Remote.ResponseTimeout.Duration,
		MaxDrainDepth:    cfg.Remote.MaxDrainDepth,
		MaxDrainDuration: cfg.Remote.MaxDrainDuration.Duration,
		Logger:           logger.Logger,
	})
}

// validatorOptions selects how documents are validated
type validatorOptions struct {
	remote    bool
	remoteURL string
	repair    bool
	store     pipeline.RunStore
}

// newValidator builds the full stack for documents under projectRoot. Local
// commands and repairs run with projectRoot as working directory.
func newValidator(projectRoot string, opts validatorOptions) *pipeline.Validator {
	o := newOracle(projectRoot)
	local := newLocalExecutor(o, projectRoot)

	var exec executor.Executor = local
	mode := domain.ModeLocal
	if opts.remote {
		url := opts.remoteURL
		if url == "" {
			url = cfg.Remote.URL
		}
		exec = newRemoteExecutor(o, url)
		mode = domain.ModeRemote
	}

	vopts := pipeline.ValidatorOptions{
		Mode:   mode,
		Store:  opts.store,
		Logger: logger.Logger,
		OnTransition: func(runID string, t pipeline.Transition) {
			logger.Debug("stage", "run", runID, "from", t.From, "to", t.To)
		},
	}
	if opts.repair {
		vopts.Repair = repair.New(o, local, logger.Logger)
	}
	return pipeline.NewValidator(o, exec, vopts)
}

// documentRoot is the directory commands from doc run in
func documentRoot(doc string) string {
	abs, err := filepath.Abs(doc)
	if err != nil {
		return filepath.Dir(doc)
	}
	return filepath.Dir(abs)
}

func newNotifier() notify.Notifier {
	var notifiers []notify.Notifier
	if cfg.Notifications.Desktop {
		notifiers = append(notifiers, notify.NewDesktopNotifier(true))
	}
	if cfg.Notifications.SlackWebhook != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.Notifications.SlackWebhook))
	}
	if len(notifiers) == 0 {
		return notify.NoopNotifier{}
	}
	return notify.NewMultiNotifier(notifiers...)
}

func notifyRun(n notify.Notifier, run *domain.Run) {
	if err := n.Send(notify.ForRun(run)); err != nil {
		logger.Warn("notification failed", "run", run.ID, "error", err)
	}
}
