package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-wizard/internal/pipeline/steps"
)

var stageCmd = &cobra.Command{
	Use:   "stage <name>",
	Short: "Run a single pipeline stage against the current workspace",
	Long: fmt.Sprintf(`Runs one stage script with the workspace left by earlier runs. The
workspace is never cleared. Each invocation is its own session, so stage
dependencies are not checked unless --check-deps is given.

Stages: %s`, strings.Join(steps.Names(), ", ")),
	Args: cobra.ExactArgs(1),
	RunE: runStageCmd,
}

var (
	stageVacancy   string
	stageCheckDeps bool
)

func init() {
	stageCmd.Flags().StringVar(&stageVacancy, "vacancy", "", "Vacancy text saved before ingest_vacancy runs")
	stageCmd.Flags().BoolVar(&stageCheckDeps, "check-deps", false, "Refuse to run when dependencies have not completed in this session")
	rootCmd.AddCommand(stageCmd)
}

func runStageCmd(cmd *cobra.Command, args []string) error {
	name := args[0]
	if _, err := steps.Lookup(name); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, cmd, bootOptions{connectHistory: true})
	if err != nil {
		return err
	}
	defer a.close()

	if stageVacancy != "" {
		a.controller.SetVacancy(stageVacancy)
	}

	stopLogs := a.streamLogs()
	result, err := a.controller.RunStage(ctx, name, !stageCheckDeps)
	stopLogs()

	a.printer.PrintStageResult(result)
	return err
}
