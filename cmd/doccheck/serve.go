package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hochfrequenz/doccheck/internal/domain"
	"github.com/hochfrequenz/doccheck/internal/peer"
	"github.com/hochfrequenz/doccheck/internal/pipeline"
	"github.com/hochfrequenz/doccheck/internal/report"
	"github.com/hochfrequenz/doccheck/internal/schedule"
	"github.com/hochfrequenz/doccheck/internal/watch"
	"github.com/spf13/cobra"
)

var (
	peerListen    string
	peerDir       string
	watchRemote   bool
	watchNoRepair bool
	scheduleList  bool
)

func init() {
	// peer command
	peerCmd := &cobra.Command{
		Use:   "peer",
		Short: "Serve shell sessions to remote executors",
		RunE:  runPeer,
	}
	peerCmd.Flags().StringVar(&peerListen, "listen", "", "address to listen on (default from config)")
	peerCmd.Flags().StringVar(&peerDir, "dir", "", "working directory for sessions")
	rootCmd.AddCommand(peerCmd)

	// watch command
	watchCmd := &cobra.Command{
		Use:   "watch DOC...",
		Short: "Validate documents again whenever they change",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runWatch,
	}
	watchCmd.Flags().BoolVar(&watchRemote, "remote", false, "run commands on the remote execution peer")
	watchCmd.Flags().BoolVar(&watchNoRepair, "no-repair", false, "do not edit documents to fix failing commands")
	rootCmd.AddCommand(watchCmd)

	// schedule command
	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the validations configured under [[schedule]]",
		RunE:  runSchedule,
	}
	scheduleCmd.Flags().BoolVar(&scheduleList, "list", false, "list entries and their next run, then exit")
	rootCmd.AddCommand(scheduleCmd)
}

func runPeer(cmd *cobra.Command, args []string) error {
	listen := peerListen
	if listen == "" {
		listen = cfg.Peer.Listen
	}
	srv := peer.New(peer.Options{
		Listen:        listen,
		Shell:         cfg.Peer.Shell,
		Dir:           peerDir,
		BannerTimeout: cfg.Executor.BannerTimeout.Duration,
		Collector:     collectorOptions(),
		Logger:        logger.Logger,
	})
	return srv.ListenAndServe(cmd.Context())
}

func runWatch(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	notifier := newNotifier()
	remote := watchRemote || cfg.Executor.Mode == string(domain.ModeRemote)
	validators := make(map[string]*pipeline.Validator)
	for _, doc := range args {
		abs, err := filepath.Abs(doc)
		if err != nil {
			return err
		}
		validators[abs] = newValidator(filepath.Dir(abs), validatorOptions{
			remote: remote,
			repair: !watchNoRepair,
			store:  store,
		})
	}

	w, err := watch.New(args, func(ctx context.Context, path string) {
		v, ok := validators[path]
		if !ok {
			return
		}
		run, _ := v.Validate(ctx, path)
		fmt.Print(report.Run(run, report.Options{}))
		fmt.Println()
		notifyRun(notifier, run)
	}, logger.Logger)
	if err != nil {
		return err
	}

	fmt.Printf("Watching %d document(s), Ctrl-C to stop\n", len(args))
	return w.Run(cmd.Context())
}

func scheduleEntries() []schedule.Entry {
	entries := make([]schedule.Entry, 0, len(cfg.Schedule))
	for _, s := range cfg.Schedule {
		mode := s.Mode
		if mode == "" {
			mode = cfg.Executor.Mode
		}
		entries = append(entries, schedule.Entry{
			Name:        s.Name,
			Cron:        s.Cron,
			Documents:   s.Documents,
			Remote:      mode == string(domain.ModeRemote),
			Repair:      !s.NoRepair,
			MaxDuration: s.MaxDuration.Duration,
		})
	}
	return entries
}

func runSchedule(cmd *cobra.Command, args []string) error {
	sched, err := schedule.NewScheduler(scheduleEntries(), logger.Logger)
	if err != nil {
		return err
	}
	names := sched.List()
	if len(names) == 0 {
		return fmt.Errorf("no [[schedule]] entries configured")
	}

	if scheduleList {
		for _, name := range names {
			e, _ := sched.GetEntry(name)
			fmt.Printf("%-20s %-15s next %s  (%d document(s))\n",
				name, e.Cron, sched.NextRun(name).Format("2006-01-02 15:04"), len(e.Documents))
		}
		return nil
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	notifier := newNotifier()

	fmt.Printf("Scheduling %d entries, Ctrl-C to stop\n", len(names))
	sched.Start(cmd.Context(), func(ctx context.Context, e schedule.Entry) error {
		var errs []error
		for _, doc := range e.Documents {
			v := newValidator(documentRoot(doc), validatorOptions{
				remote: e.Remote,
				repair: e.Repair,
				store:  store,
			})
			run, err := v.Validate(ctx, doc)
			notifyRun(notifier, run)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", doc, err))
			}
		}
		return errors.Join(errs...)
	})
	return nil
}
