// Package main provides the entry point for the resume wizard CLI and local API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "resume_wizard",
	Short: "Resume Wizard orchestration core",
	Long: `Resume Wizard tailors a resume and cover letter to a job vacancy by driving
external pipeline scripts through a four-step wizard: upload, vacancy, generate, analyze.

Run it headless with "run", one stage at a time with "stage", or behind the
local HTTP API with "serve".`,
	SilenceUsage: true,
}

var (
	rootConfigPath    string
	rootProjectDir    string
	rootWorkspace     string
	rootScriptsDir    string
	rootInterpreter   string
	rootDatabaseURL   string
	rootPackaged      bool
	rootStageTimeout  int
	rootKeepWorkspace bool
	rootVerbose       bool
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	flags.StringVar(&rootProjectDir, "project-dir", "", "Project directory holding execution/ and venv/ (defaults to the current directory)")
	flags.StringVar(&rootWorkspace, "workspace", "", "Workspace root (defaults to the project directory, or the user config directory when --packaged)")
	flags.StringVar(&rootScriptsDir, "scripts-dir", "", "Directory holding the pipeline scripts")
	flags.StringVar(&rootInterpreter, "interpreter", "", "Interpreter used for every script (skips venv lookup)")
	flags.StringVar(&rootDatabaseURL, "db-url", "", "PostgreSQL connection URL for run history (optional, defaults to DATABASE_URL env var)")
	flags.BoolVar(&rootPackaged, "packaged", false, "Installed mode: keep the workspace in the per-user config directory")
	flags.IntVar(&rootStageTimeout, "stage-timeout", 0, "Seconds before a stage is killed (0 = no timeout)")
	flags.BoolVar(&rootKeepWorkspace, "keep-workspace", false, "Do not clear the workspace on launch")
	flags.BoolVarP(&rootVerbose, "verbose", "v", false, "Print detailed debug information")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
