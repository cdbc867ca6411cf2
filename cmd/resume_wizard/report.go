package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-wizard/internal/markdown"
	"github.com/jonathan/resume-wizard/internal/report"
	"github.com/jonathan/resume-wizard/internal/workspace"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show or export the analysis report",
	Long: `Prints the outline of data/processed/analysis_report.md. With --html or --pdf
the report is written as a standalone page or a PDF (PDF export requires
Chrome/Chromium).`,
	RunE: runReport,
}

var (
	reportHTMLPath string
	reportPDFPath  string
	reportTitle    string
)

func init() {
	reportCmd.Flags().StringVar(&reportHTMLPath, "html", "", "Write the report as an HTML page to this path")
	reportCmd.Flags().StringVar(&reportPDFPath, "pdf", "", "Write the report as a PDF to this path")
	reportCmd.Flags().StringVar(&reportTitle, "title", "Match Analysis", "Page title for exported reports")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap(cmdContext(cmd), cmd, bootOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	data, err := a.workspace.ReadOutput(workspace.AnalysisReportPath)
	if err != nil {
		return fmt.Errorf("no analysis report found, run the analysis first: %w", err)
	}
	page := report.Document(reportTitle, string(data))
	out := cmd.OutOrStdout()

	if reportHTMLPath != "" {
		if err := os.WriteFile(reportHTMLPath, []byte(page), 0644); err != nil {
			return fmt.Errorf("failed to write HTML report: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Wrote %s\n", reportHTMLPath)
	}

	if reportPDFPath != "" {
		pdf, err := report.ExportPDF(cmdContext(cmd), page, report.DefaultExportTimeout)
		if err != nil {
			return err
		}
		if err := os.WriteFile(reportPDFPath, pdf, 0644); err != nil {
			return fmt.Errorf("failed to write PDF report: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Wrote %s (%d bytes)\n", reportPDFPath, len(pdf))
	}

	if reportHTMLPath == "" && reportPDFPath == "" {
		outline, err := report.Outline(markdown.Render(string(data)))
		if err != nil {
			return err
		}
		a.printer.PrintOutline(outline)
	}
	return nil
}
