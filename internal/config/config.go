// Package config provides configuration loading and validation for the CLI
// and the key=value settings file shared with the external scripts.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the application configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Paths
	WorkspaceRoot   string `json:"workspace_root,omitempty"`   // Root of sources/, data/ and output/
	ScriptsDir      string `json:"scripts_dir,omitempty"`      // Directory holding the pipeline scripts
	VenvDir         string `json:"venv_dir,omitempty"`         // Project-local isolated interpreter
	Interpreter     string `json:"interpreter,omitempty"`      // Explicit interpreter, skips resolution
	DefaultSettings string `json:"default_settings,omitempty"` // Bundled default settings file

	// Runtime
	Packaged            bool   `json:"packaged,omitempty"`              // Installed mode (per-user storage)
	Port                int    `json:"port,omitempty"`                  // Local API port
	DatabaseURL         string `json:"database_url,omitempty"`          // Optional run history store
	StageTimeoutSeconds int    `json:"stage_timeout_seconds,omitempty"` // 0 means no timeout
	KeepWorkspace       bool   `json:"keep_workspace,omitempty"`        // Skip the clear on launch
	Verbose             bool   `json:"verbose,omitempty"`               // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required paths are checked after defaults are merged, not here.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.StageTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'stage_timeout_seconds' must be non-negative")
	}

	if c.ScriptsDir != "" {
		info, err := os.Stat(c.ScriptsDir)
		if os.IsNotExist(err) {
			return fmt.Errorf("config error: scripts directory not found: %s", c.ScriptsDir)
		}
		if err == nil && !info.IsDir() {
			return fmt.Errorf("config error: scripts_dir is not a directory: %s", c.ScriptsDir)
		}
	}

	// a missing default settings file is fine, the store starts empty
	if c.DefaultSettings != "" {
		if info, err := os.Stat(c.DefaultSettings); err == nil && info.IsDir() {
			return fmt.Errorf("config error: default_settings is a directory: %s", c.DefaultSettings)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.WorkspaceRoot == "" {
		result.WorkspaceRoot = defaults.WorkspaceRoot
	}
	if result.ScriptsDir == "" {
		result.ScriptsDir = defaults.ScriptsDir
	}
	if result.VenvDir == "" {
		result.VenvDir = defaults.VenvDir
	}
	if result.Interpreter == "" {
		result.Interpreter = defaults.Interpreter
	}
	if result.DefaultSettings == "" {
		result.DefaultSettings = defaults.DefaultSettings
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.StageTimeoutSeconds == 0 {
		result.StageTimeoutSeconds = defaults.StageTimeoutSeconds
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Defaults returns the layout used when nothing is configured. In development
// mode everything hangs off projectDir; installed mode keeps the workspace in
// the per-user directory and the scripts next to the bundled resources.
func Defaults(projectDir string, packaged bool) Config {
	cfg := Config{
		ScriptsDir:      filepath.Join(projectDir, "execution"),
		VenvDir:         filepath.Join(projectDir, "venv"),
		DefaultSettings: filepath.Join(projectDir, ".env"),
		Port:            8765,
	}
	if !packaged {
		cfg.WorkspaceRoot = projectDir
	}
	return cfg
}
