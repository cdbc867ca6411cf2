package main

import (
	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all uploaded, processed and generated files",
	Long:  `Empties sources/, data/processed/ and output/ while keeping the sentinel files. Deletion is best-effort; failures are listed.`,
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap(cmdContext(cmd), cmd, bootOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	report, err := a.controller.ClearAll()
	a.printer.PrintClearReport(report)
	return err
}
