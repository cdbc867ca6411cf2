package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-wizard/internal/markdown"
	"github.com/jonathan/resume-wizard/internal/report"
	"github.com/jonathan/resume-wizard/internal/wizard"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the wizard end-to-end without a presentation layer",
	Long: `Walks the four wizard steps headless: uploads the candidate files, sets the
vacancy text, runs Ingest Candidate -> Ingest Vacancy -> Generate Documents and,
with --analyze, the match analysis. Script output is streamed as it arrives.`,
	RunE: runWizardCmd,
}

var (
	runCandidates  []string
	runVacancy     string
	runVacancyFile string
	runAnalyze     bool
)

func init() {
	runCommand.Flags().StringSliceVarP(&runCandidates, "candidate", "c", nil, "Candidate document (repeatable)")
	runCommand.Flags().StringVar(&runVacancy, "vacancy", "", "Vacancy text (mutually exclusive with --vacancy-file)")
	runCommand.Flags().StringVar(&runVacancyFile, "vacancy-file", "", "Path to a file holding the vacancy text")
	runCommand.Flags().BoolVar(&runAnalyze, "analyze", false, "Run the match analysis after generating")
	rootCmd.AddCommand(runCommand)
}

// vacancyText returns the vacancy from --vacancy or --vacancy-file
func vacancyText(text, path string) (string, error) {
	if text != "" && path != "" {
		return "", fmt.Errorf("--vacancy and --vacancy-file are mutually exclusive; provide only one")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read vacancy file: %w", err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("either --vacancy or --vacancy-file must be provided")
	}
	return text, nil
}

func runWizardCmd(cmd *cobra.Command, _ []string) error {
	if len(runCandidates) == 0 {
		return fmt.Errorf("at least one --candidate file must be provided")
	}
	text, err := vacancyText(runVacancy, runVacancyFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, cmd, bootOptions{clearWorkspace: true, connectHistory: true})
	if err != nil {
		return err
	}
	defer a.close()

	stopLogs := a.streamLogs()
	err = driveWizard(ctx, a, text)
	stopLogs()

	a.printer.PrintTasks(a.controller.State().Tasks)
	if err != nil {
		return err
	}

	state := a.controller.State()
	if state.AnalysisReport != nil {
		outline, err := report.Outline(markdown.Render(*state.AnalysisReport))
		if err != nil {
			return err
		}
		a.printer.PrintOutline(outline)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Outputs written to %s\n", a.workspace.Root())
	return nil
}

// driveWizard walks the steps in the order a user would
func driveWizard(ctx context.Context, a *app, text string) error {
	if _, err := a.controller.AddFiles(runCandidates); err != nil {
		return err
	}
	if _, err := a.controller.Navigate(wizard.StepVacancy); err != nil {
		return err
	}
	if _, err := a.controller.Generate(ctx, text); err != nil {
		return err
	}
	if runAnalyze {
		if _, err := a.controller.Analyze(ctx); err != nil {
			return err
		}
	}
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
