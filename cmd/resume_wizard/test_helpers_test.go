package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// testProject is a throwaway project directory with shell stand-ins for the
// pipeline scripts
type testProject struct {
	dir     string
	scripts string
}

func newTestProject(t *testing.T) *testProject {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stage scripts are shell scripts")
	}
	t.Setenv("DATABASE_URL", "")
	dir := t.TempDir()
	p := &testProject{dir: dir, scripts: filepath.Join(dir, "execution")}
	require.NoError(t, os.MkdirAll(p.scripts, 0755))

	p.script(t, "ingest_candidate.py", `echo "parsed $(ls sources/candidate | wc -l | tr -d ' ') candidate file(s)"`)
	p.script(t, "ingest_vacancy.py", `echo "vacancy: $(cat sources/vacancy/job_description.txt)"`)
	p.script(t, "generate_application.py", `mkdir -p output && echo resume > output/Tailored_Resume.docx && echo letter > output/Cover_Letter.docx && echo generated`)
	p.script(t, "analyze_match.py", `mkdir -p data/processed && printf '# Match Analysis\n\n## Strengths\n- Go\n- Postgres\n' > data/processed/analysis_report.md && echo analyzed`)
	return p
}

func (p *testProject) script(t *testing.T, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(p.scripts, name), []byte(body+"\n"), 0644))
}

// args prefixes the flags pointing the CLI at this project
func (p *testProject) args(args ...string) []string {
	return append([]string{"--project-dir", p.dir, "--interpreter", "/bin/sh"}, args...)
}

func (p *testProject) path(rel string) string {
	return filepath.Join(p.dir, filepath.FromSlash(rel))
}

// executeCommand runs the root command in process and returns its stdout
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag of cmd and its children to its default so
// that package-level flag variables do not leak between executions
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace([]string{})
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}
