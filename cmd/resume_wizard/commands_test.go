package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-wizard/internal/workspace"
)

func TestRunCommand_GeneratesAndAnalyzes(t *testing.T) {
	p := newTestProject(t)
	cv := filepath.Join(t.TempDir(), "cv.pdf")
	require.NoError(t, os.WriteFile(cv, []byte("%PDF-1.4"), 0644))

	out, err := executeCommand(t, p.args("run", "--candidate", cv, "--vacancy", "Senior Go Engineer", "--analyze")...)
	require.NoError(t, err, out)

	assert.Contains(t, out, "GENERATION TASKS")
	assert.Contains(t, out, "✓ resume")
	assert.Contains(t, out, "vacancy: Senior Go Engineer")
	assert.Contains(t, out, "ANALYSIS REPORT")
	assert.Contains(t, out, "• Postgres")

	assert.FileExists(t, p.path(workspace.ResumePath))
	assert.FileExists(t, p.path(workspace.CoverLetterPath))
	assert.FileExists(t, p.path("sources/candidate/cv.pdf"))
}

func TestRunCommand_StopsOnFailedStage(t *testing.T) {
	p := newTestProject(t)
	p.script(t, "ingest_vacancy.py", `echo "vacancy parser crashed" >&2; exit 3`)
	cv := filepath.Join(t.TempDir(), "cv.pdf")
	require.NoError(t, os.WriteFile(cv, []byte("%PDF-1.4"), 0644))

	out, err := executeCommand(t, p.args("run", "-c", cv, "--vacancy", "Go")...)
	require.Error(t, err)
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "vacancy parser crashed")
	assert.NoFileExists(t, p.path(workspace.ResumePath))
}

func TestRunCommand_RequiresCandidate(t *testing.T) {
	p := newTestProject(t)

	_, err := executeCommand(t, p.args("run", "--vacancy", "Go")...)
	assert.ErrorContains(t, err, "--candidate")
}

func TestStageCommand(t *testing.T) {
	p := newTestProject(t)

	out, err := executeCommand(t, p.args("stage", "ingest_vacancy", "--vacancy", "Data Engineer")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "STAGE INGEST_VACANCY")
	assert.Contains(t, out, "vacancy: Data Engineer")
	assert.FileExists(t, p.path("sources/vacancy/job_description.txt"))
}

func TestStageCommand_CheckDeps(t *testing.T) {
	p := newTestProject(t)

	_, err := executeCommand(t, p.args("stage", "generate_application", "--check-deps")...)
	assert.Error(t, err)
	assert.NoFileExists(t, p.path(workspace.ResumePath))
}

func TestStageCommand_UnknownStage(t *testing.T) {
	p := newTestProject(t)

	_, err := executeCommand(t, p.args("stage", "translate")...)
	assert.Error(t, err)
}

func TestClearCommand(t *testing.T) {
	p := newTestProject(t)
	require.NoError(t, os.MkdirAll(p.path("output"), 0755))
	require.NoError(t, os.WriteFile(p.path(workspace.ResumePath), []byte("x"), 0644))

	out, err := executeCommand(t, p.args("clear")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "WORKSPACE CLEARED")
	assert.Contains(t, out, "Removed: 1 file(s)")
	assert.NoFileExists(t, p.path(workspace.ResumePath))
}

func TestConfigCommands(t *testing.T) {
	p := newTestProject(t)

	out, err := executeCommand(t, p.args("config", "set", "OPENAI_API_KEY=sk-abcdef123456", "DEFAULT_MODEL=gpt-4o")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Saved 2 setting(s)")

	out, err = executeCommand(t, p.args("config", "get")...)
	require.NoError(t, err)
	assert.Contains(t, out, "DEFAULT_MODEL=gpt-4o")
	assert.Contains(t, out, "OPENAI_API_KEY=********3456")
	assert.NotContains(t, out, "sk-abcdef123456")

	out, err = executeCommand(t, p.args("config", "get", "OPENAI_API_KEY", "--show-secrets")...)
	require.NoError(t, err)
	assert.Equal(t, "sk-abcdef123456\n", out)

	out, err = executeCommand(t, p.args("config", "get", "OPENAI_API_KEY")...)
	require.NoError(t, err)
	assert.Equal(t, "********3456\n", out)

	_, err = executeCommand(t, p.args("config", "get", "MISSING")...)
	assert.ErrorContains(t, err, "not set")

	_, err = executeCommand(t, p.args("config", "set", "NOEQUALS")...)
	assert.ErrorContains(t, err, "expected KEY=VALUE")
}

func TestReportCommand(t *testing.T) {
	p := newTestProject(t)

	_, err := executeCommand(t, p.args("report")...)
	assert.ErrorContains(t, err, "run the analysis first")

	require.NoError(t, os.MkdirAll(p.path("data/processed"), 0755))
	require.NoError(t, os.WriteFile(p.path(workspace.AnalysisReportPath), []byte("# Fit\n\n## Gaps\n- Kubernetes\n"), 0644))

	out, err := executeCommand(t, p.args("report")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "ANALYSIS REPORT")
	assert.Contains(t, out, "• Kubernetes")

	htmlPath := filepath.Join(t.TempDir(), "report.html")
	out, err = executeCommand(t, p.args("report", "--html", htmlPath, "--title", "Fit Report")...)
	require.NoError(t, err, out)
	data, err := os.ReadFile(htmlPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<title>Fit Report</title>")
	assert.Contains(t, string(data), "<li>Kubernetes</li>")
}

func TestRunsCommand_RequiresDatabase(t *testing.T) {
	p := newTestProject(t)

	_, err := executeCommand(t, p.args("runs")...)
	assert.ErrorContains(t, err, "DATABASE_URL")
}
