package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-wizard/internal/config"
	"github.com/jonathan/resume-wizard/internal/db"
	"github.com/jonathan/resume-wizard/internal/events"
	"github.com/jonathan/resume-wizard/internal/observability"
	"github.com/jonathan/resume-wizard/internal/runner"
	"github.com/jonathan/resume-wizard/internal/wizard"
	"github.com/jonathan/resume-wizard/internal/workspace"
)

// app wires the wizard collaborators for one command invocation
type app struct {
	cfg        config.Config
	workspace  *workspace.Manager
	settings   *config.SettingsStore
	bus        *events.Bus
	runner     *runner.Runner
	history    *db.DB
	controller *wizard.Controller
	printer    *observability.Printer
}

// bootOptions selects what a command needs at startup
type bootOptions struct {
	clearWorkspace bool // clear leftovers of a previous session
	connectHistory bool // open the run history store when configured
}

// resolveConfig merges the config file, explicitly set flags and defaults
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	// Step 1: Load config file if provided
	var cfg config.Config
	if rootConfigPath != "" {
		loaded, err := config.LoadConfig(rootConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	flags := cmd.Flags()
	if flags.Changed("workspace") {
		cfg.WorkspaceRoot = rootWorkspace
	}
	if flags.Changed("scripts-dir") {
		cfg.ScriptsDir = rootScriptsDir
	}
	if flags.Changed("interpreter") {
		cfg.Interpreter = rootInterpreter
	}
	if flags.Changed("db-url") {
		cfg.DatabaseURL = rootDatabaseURL
	}
	if flags.Changed("packaged") {
		cfg.Packaged = rootPackaged
	}
	if flags.Changed("stage-timeout") {
		cfg.StageTimeoutSeconds = rootStageTimeout
	}
	if flags.Changed("keep-workspace") {
		cfg.KeepWorkspace = rootKeepWorkspace
	}
	if flags.Changed("verbose") {
		cfg.Verbose = rootVerbose
	}

	// Step 3: Apply defaults for unset values
	projectDir := rootProjectDir
	if projectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return cfg, fmt.Errorf("failed to get current directory: %w", err)
		}
		projectDir = wd
	}
	cfg = cfg.MergeWithDefaults(config.Defaults(projectDir, cfg.Packaged))

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	root, err := workspace.ResolveRoot(cfg.Packaged, cfg.WorkspaceRoot)
	if err != nil {
		return cfg, err
	}
	cfg.WorkspaceRoot = root

	// Step 4: Validate
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// bootstrap builds the app for a command
func bootstrap(ctx context.Context, cmd *cobra.Command, opts bootOptions) (*app, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
	}

	a := &app{
		cfg:       cfg,
		workspace: workspace.NewManager(cfg.WorkspaceRoot),
		settings:  config.NewSettingsStore(filepath.Join(cfg.WorkspaceRoot, config.SettingsFileName), cfg.DefaultSettings),
		bus:       events.NewBus(),
		printer:   observability.NewPrinter(cmd.OutOrStdout()),
	}

	if err := a.workspace.EnsureDirectories(); err != nil {
		return nil, err
	}
	if opts.clearWorkspace && !cfg.KeepWorkspace {
		report := a.workspace.Clear()
		if err := a.workspace.EnsureDirectories(); err != nil {
			return nil, err
		}
		if failed := report.Failed(); len(failed) > 0 {
			log.Printf("[WORKSPACE] Startup clear left %d file(s) behind", len(failed))
		}
	}

	a.runner = runner.New(runner.Options{
		Interpreter: runner.ResolveInterpreter(cfg.Interpreter, cfg.VenvDir),
		ScriptDir:   cfg.ScriptsDir,
		WorkDir:     cfg.WorkspaceRoot,
		Timeout:     time.Duration(cfg.StageTimeoutSeconds) * time.Second,
		Publisher:   a.bus,
	})

	wizardOpts := wizard.Options{Publisher: a.bus}
	if opts.connectHistory && cfg.DatabaseURL != "" {
		history, err := connectHistory(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.history = history
		wizardOpts.Recorder = history
	}

	a.controller = wizard.NewController(a.runner, a.workspace, a.settings, wizardOpts)
	if _, err := a.controller.LoadSettings(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func connectHistory(ctx context.Context, databaseURL string) (*db.DB, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	history, err := db.Connect(connectCtx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := history.EnsureSchema(ctx); err != nil {
		history.Close()
		return nil, err
	}
	return history, nil
}

// streamLogs prints bus events until the returned stop func is called
func (a *app) streamLogs() (stop func()) {
	sub := a.bus.Subscribe(events.DefaultBuffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range sub.Events() {
			a.printer.PrintLogEvent(e)
		}
	}()
	return func() {
		sub.Close()
		<-done
	}
}

func (a *app) close() {
	a.bus.Close()
	if a.history != nil {
		a.history.Close()
	}
}
