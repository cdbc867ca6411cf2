package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssignments(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    map[string]string
		wantErr bool
	}{
		{name: "single", args: []string{"DEFAULT_MODEL=gpt-4o"}, want: map[string]string{"DEFAULT_MODEL": "gpt-4o"}},
		{name: "value keeps equals", args: []string{"TOKEN=a=b"}, want: map[string]string{"TOKEN": "a=b"}},
		{name: "empty value", args: []string{"OPENAI_API_KEY="}, want: map[string]string{"OPENAI_API_KEY": ""}},
		{name: "key is trimmed", args: []string{" KEY =v"}, want: map[string]string{"KEY": "v"}},
		{name: "missing equals", args: []string{"KEY"}, wantErr: true},
		{name: "empty key", args: []string{"=value"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAssignments(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVacancyText(t *testing.T) {
	file := filepath.Join(t.TempDir(), "job.txt")
	require.NoError(t, os.WriteFile(file, []byte("Platform Engineer"), 0644))

	text, err := vacancyText("Go Developer", "")
	require.NoError(t, err)
	assert.Equal(t, "Go Developer", text)

	text, err = vacancyText("", file)
	require.NoError(t, err)
	assert.Equal(t, "Platform Engineer", text)

	_, err = vacancyText("Go Developer", file)
	assert.ErrorContains(t, err, "mutually exclusive")

	_, err = vacancyText("   ", "")
	assert.ErrorContains(t, err, "must be provided")

	_, err = vacancyText("", filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorContains(t, err, "failed to read vacancy file")
}

func TestResolveConfig_FlagsOverrideFile(t *testing.T) {
	p := newTestProject(t)
	other := t.TempDir()
	configPath := filepath.Join(p.dir, "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"workspace_root": "`+other+`", "stage_timeout_seconds": 30, "port": 9000}`), 0644))

	resetFlags(rootCmd)
	require.NoError(t, clearCmd.ParseFlags(p.args("--config", configPath, "--stage-timeout", "5")))
	t.Cleanup(func() { resetFlags(rootCmd) })

	cfg, err := resolveConfig(clearCmd)
	require.NoError(t, err)

	assert.Equal(t, other, cfg.WorkspaceRoot, "file value kept when the flag is not set")
	assert.Equal(t, 5, cfg.StageTimeoutSeconds, "explicit flag wins over the file")
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "/bin/sh", cfg.Interpreter)
	assert.Equal(t, p.scripts, cfg.ScriptsDir, "default derived from the project dir")
}

func TestResolveConfig_MissingScriptsDir(t *testing.T) {
	resetFlags(rootCmd)
	require.NoError(t, clearCmd.ParseFlags([]string{"--project-dir", t.TempDir()}))
	t.Cleanup(func() { resetFlags(rootCmd) })

	_, err := resolveConfig(clearCmd)
	assert.ErrorContains(t, err, "scripts directory not found")
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "resume_wizard "+Version)
}
