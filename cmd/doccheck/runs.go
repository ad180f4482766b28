package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/hochfrequenz/doccheck/internal/prompts"
	"github.com/hochfrequenz/doccheck/internal/report"
	"github.com/hochfrequenz/doccheck/internal/reportstore"
	"github.com/spf13/cobra"
)

var (
	runsDocument    string
	runsLimit       int
	showOutputLines int
)

func init() {
	// runs command
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded validation runs",
		RunE:  runRuns,
	}
	runsCmd.Flags().StringVar(&runsDocument, "document", "", "filter by document path")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs")
	rootCmd.AddCommand(runsCmd)

	// show command
	showCmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
	showCmd.Flags().IntVar(&showOutputLines, "output-lines", 5, "trailing output lines shown per command")
	rootCmd.AddCommand(showCmd)

	// prompts command
	promptsCmd := &cobra.Command{
		Use:   "prompts",
		Short: "List the oracle prompt templates in effect",
		RunE:  runPrompts,
	}
	rootCmd.AddCommand(promptsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(reportstore.ListOptions{Document: runsDocument, Limit: runsLimit})
	if err != nil {
		return err
	}
	fmt.Print(report.Runs(runs, report.Options{}))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(args[0])
	if err != nil {
		return fmt.Errorf("run %s: %w", args[0], err)
	}
	fmt.Print(report.Run(run, report.Options{OutputLines: showOutputLines}))
	return nil
}

func runPrompts(cmd *cobra.Command, args []string) error {
	wd, _ := os.Getwd()
	metas, err := prompts.DefaultLoader(wd, cfg.General.PromptsDir).List()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
	for _, m := range metas {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, m.Name, m.Description)
	}
	w.Flush()
	return nil
}
