// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/resume-wizard/internal/db"
	"github.com/jonathan/resume-wizard/internal/events"
	"github.com/jonathan/resume-wizard/internal/pipeline"
	"github.com/jonathan/resume-wizard/internal/report"
	"github.com/jonathan/resume-wizard/internal/runner"
	"github.com/jonathan/resume-wizard/internal/workspace"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// secretMarkers flag settings whose values are masked on output
var secretMarkers = []string{"KEY", "TOKEN", "SECRET", "PASSWORD"}

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintLogEvent writes one streamed log line
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintLogEvent(e events.LogEvent) {
	level := "INFO "
	if e.IsError {
		level = "ERROR"
	}
	fmt.Fprintf(p.out, "%s [%s] %s: %s\n", e.Time.Format("15:04:05"), level, e.Source, e.Message)
}

// PrintTasks outputs the generation task board in display order
func (p *Printer) PrintTasks(board pipeline.TaskBoard) {
	if len(board) == 0 {
		return
	}

	var sb strings.Builder
	for _, task := range pipeline.Tasks() {
		status, ok := board[task]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s %-12s %s\n", taskMarker(status), task, status))
	}

	p.printBox("GENERATION TASKS", strings.TrimSuffix(sb.String(), "\n"))
}

func taskMarker(status pipeline.TaskStatus) string {
	switch status {
	case pipeline.TaskCompleted:
		return "✓"
	case pipeline.TaskActive:
		return "▶"
	case pipeline.TaskFailed:
		return "✗"
	default:
		return "·"
	}
}

// PrintClearReport summarizes a workspace clear
func (p *Printer) PrintClearReport(r workspace.ClearReport) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Removed: %d file(s)\n", r.Removed()))

	failed := r.Failed()
	if len(failed) > 0 {
		sb.WriteString(fmt.Sprintf("Failed:  %d file(s)\n", len(failed)))
		count := min(len(failed), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  ✗ %s\n", failed[i].Path))
		}
		if len(failed) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(failed)-maxItemsToShow))
		}
	}

	p.printBox("WORKSPACE CLEARED", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStageResult outputs the outcome of one script run with its last lines
func (p *Printer) PrintStageResult(r *runner.Result) {
	if r == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Status:   %s\n", r.Status))
	sb.WriteString(fmt.Sprintf("Exit:     %d\n", r.ExitCode))
	sb.WriteString(fmt.Sprintf("Duration: %dms\n", r.DurationMs))
	if r.Error != "" {
		sb.WriteString(fmt.Sprintf("Error:    %s\n", r.Error))
	}

	if len(r.Output) > 0 {
		sb.WriteString("\nOutput:\n")
		start := max(len(r.Output)-maxItemsToShow, 0)
		if start > 0 {
			sb.WriteString(fmt.Sprintf("  ... %d earlier line(s)\n", start))
		}
		for _, line := range r.Output[start:] {
			sb.WriteString(fmt.Sprintf("  %s\n", line))
		}
	}

	p.printBox(fmt.Sprintf("STAGE %s", strings.ToUpper(r.Script)), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintOutline outputs the analysis report structure
func (p *Printer) PrintOutline(outline []report.Heading) {
	if len(outline) == 0 {
		return
	}

	var sb strings.Builder
	for _, h := range outline {
		indent := strings.Repeat("  ", max(h.Level-1, 0))
		sb.WriteString(fmt.Sprintf("%s%s\n", indent, h.Text))
		count := min(len(h.Bullets), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("%s  • %s\n", indent, h.Bullets[i]))
		}
		if len(h.Bullets) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("%s  ... and %d more\n", indent, len(h.Bullets)-maxItemsToShow))
		}
	}

	p.printBox("ANALYSIS REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSettings outputs settings sorted by key with secrets masked
func (p *Printer) PrintSettings(settings map[string]string) {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	if len(keys) == 0 {
		sb.WriteString("(no settings)\n")
	}
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("%s=%s\n", k, MaskValue(k, settings[k])))
	}

	p.printBox("SETTINGS", strings.TrimSuffix(sb.String(), "\n"))
}

// MaskValue hides all but the last four characters of secret-looking keys
func MaskValue(key, value string) string {
	upper := strings.ToUpper(key)
	for _, marker := range secretMarkers {
		if strings.Contains(upper, marker) {
			if len(value) <= 4 {
				return strings.Repeat("*", len(value))
			}
			return strings.Repeat("*", 8) + value[len(value)-4:]
		}
	}
	return value
}

// PrintRuns outputs recent runs from the history store
func (p *Printer) PrintRuns(runs []db.Run) {
	var sb strings.Builder
	if len(runs) == 0 {
		sb.WriteString("(no runs recorded)\n")
	}
	for _, r := range runs {
		sb.WriteString(fmt.Sprintf("%s  %-8s %-9s %s\n",
			r.ID.String()[:8], r.Kind, r.Status, r.CreatedAt.Format("2006-01-02 15:04")))
	}

	p.printBox("RUN HISTORY", strings.TrimSuffix(sb.String(), "\n"))
}
