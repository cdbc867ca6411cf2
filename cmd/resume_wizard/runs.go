package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List recorded runs, or the stages of one run",
	Long:  `Reads the run history store. Requires --db-url or DATABASE_URL.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRuns,
}

var runsLimit int

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to list")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmdContext(cmd), cmd, bootOptions{connectHistory: true})
	if err != nil {
		return err
	}
	defer a.close()

	if a.history == nil {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}
	ctx := cmdContext(cmd)

	if len(args) == 0 {
		runs, err := a.history.ListRuns(ctx, runsLimit)
		if err != nil {
			return err
		}
		a.printer.PrintRuns(runs)
		return nil
	}

	runID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id: %w", err)
	}
	stages, err := a.history.ListRunSteps(ctx, runID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, s := range stages {
		line := fmt.Sprintf("%-22s %-12s %-9s", s.Step, s.Category, s.Status)
		if s.DurationMs != nil {
			line += fmt.Sprintf(" %6dms", *s.DurationMs)
		}
		if s.ErrorMessage != nil {
			line += "  " + *s.ErrorMessage
		}
		_, _ = fmt.Fprintln(out, line)
	}
	return nil
}
