package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hochfrequenz/doccheck/internal/document"
	"github.com/hochfrequenz/doccheck/internal/domain"
	"github.com/hochfrequenz/doccheck/internal/executor"
	"github.com/hochfrequenz/doccheck/internal/report"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	runRemote      bool
	runRemoteURL   string
	runNoRepair    bool
	runParallel    int
	runOutputLines int
	execRemote     bool
	execRemoteURL  string
	execDir        string
)

// errValidationFailed makes the process exit non-zero when commands failed
var errValidationFailed = errors.New("validation found failing commands")

func init() {
	// run command
	runCmd := &cobra.Command{
		Use:   "run DOC...",
		Short: "Validate documents",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runRun,
	}
	runCmd.Flags().BoolVar(&runRemote, "remote", false, "run commands on the remote execution peer")
	runCmd.Flags().StringVar(&runRemoteURL, "remote-url", "", "peer URL (implies --remote, default from config)")
	runCmd.Flags().BoolVar(&runNoRepair, "no-repair", false, "do not edit documents to fix failing commands")
	runCmd.Flags().IntVar(&runParallel, "parallel", 1, "documents validated at the same time")
	runCmd.Flags().IntVar(&runOutputLines, "output-lines", 0, "trailing output lines shown per command")
	rootCmd.AddCommand(runCmd)

	// exec command
	execCmd := &cobra.Command{
		Use:   "exec -- CMD...",
		Short: "Run commands as one batch and judge each one",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runExec,
	}
	execCmd.Flags().BoolVar(&execRemote, "remote", false, "run commands on the remote execution peer")
	execCmd.Flags().StringVar(&execRemoteURL, "remote-url", "", "peer URL (implies --remote, default from config)")
	execCmd.Flags().StringVar(&execDir, "dir", ".", "working directory for local commands")
	rootCmd.AddCommand(execCmd)

	// inspect command
	inspectCmd := &cobra.Command{
		Use:   "inspect DOC",
		Short: "Show the headings and shell code blocks of a document",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	rootCmd.AddCommand(inspectCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	remote := runRemote || runRemoteURL != "" || cfg.Executor.Mode == string(domain.ModeRemote)
	notifier := newNotifier()

	parallel := runParallel
	if parallel < 1 {
		parallel = 1
	}
	// One document failing must not cancel the others.
	var g errgroup.Group
	g.SetLimit(parallel)

	runs := make([]*domain.Run, len(args))
	errs := make([]error, len(args))
	for i, doc := range args {
		g.Go(func() error {
			v := newValidator(documentRoot(doc), validatorOptions{
				remote:    remote,
				remoteURL: runRemoteURL,
				repair:    !runNoRepair,
				store:     store,
			})
			run, err := v.Validate(ctx, doc)
			runs[i] = run
			notifyRun(notifier, run)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", doc, err)
			}
			return nil
		})
	}
	g.Wait()
	err = errors.Join(errs...)

	failing := false
	for _, run := range runs {
		if run == nil {
			continue
		}
		fmt.Print(report.Run(run, report.Options{OutputLines: runOutputLines}))
		fmt.Println()
		for _, gr := range run.Report.GoalReports {
			if len(gr.Failed()) > 0 {
				failing = true
			}
		}
	}
	if err != nil {
		return err
	}
	if failing {
		return errValidationFailed
	}
	return nil
}

func runExec(cmd *cobra.Command, args []string) error {
	commands := domain.Commands(args...)
	if len(commands) == 0 {
		return fmt.Errorf("no commands given")
	}

	o := newOracle(execDir)
	var exec executor.Executor = newLocalExecutor(o, execDir)
	if execRemote || execRemoteURL != "" {
		url := execRemoteURL
		if url == "" {
			url = cfg.Remote.URL
		}
		exec = newRemoteExecutor(o, url)
	}

	reports, err := exec.ExecuteCommands(cmd.Context(), commands)
	rep := domain.DocumentReport{
		Document: "ad-hoc batch",
		GoalReports: []domain.GoalReport{
			{Name: "commands", CommandReports: reports},
		},
	}
	fmt.Print(report.Document(rep, report.Options{OutputLines: 5}))
	if err != nil {
		return err
	}
	if len(rep.GoalReports[0].Failed()) > 0 {
		return errValidationFailed
	}
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	doc, err := document.Load(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Title: %s\n", doc.Title)
	fmt.Println("\nHeadings:")
	for _, h := range doc.Headings {
		fmt.Printf("  %*s%s\n", (h.Level-1)*2, "", h.Text)
	}

	shell := doc.ShellBlocks()
	fmt.Printf("\nShell code blocks (%d of %d):\n", len(shell), len(doc.CodeBlocks))
	for i, b := range shell {
		lang := b.Lang
		if lang == "" {
			lang = "-"
		}
		fmt.Printf("  [%d] %s\n", i+1, lang)
		fmt.Printf("%s\n", indent(b.Code, "      "))
	}
	return nil
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
