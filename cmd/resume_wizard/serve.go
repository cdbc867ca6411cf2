package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-wizard/internal/config"
	"github.com/jonathan/resume-wizard/internal/server"
	"github.com/jonathan/resume-wizard/internal/shell"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local HTTP API",
	Long: `Start an HTTP server on 127.0.0.1 that exposes the wizard to a presentation layer.

Every route except /health needs the bearer token printed on startup. Set
API_TOKEN_SECRET to keep tokens valid across restarts.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to the configured port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap(cmdContext(cmd), cmd, bootOptions{clearWorkspace: true, connectHistory: true})
	if err != nil {
		return err
	}
	defer a.close()

	tokenCfg, err := config.NewTokenConfig()
	if err != nil {
		return fmt.Errorf("failed to create token config: %w", err)
	}
	tokens := server.NewJWTService(tokenCfg)
	token, err := tokens.GenerateToken(uuid.New())
	if err != nil {
		return err
	}

	port := a.cfg.Port
	if cmd.Flags().Changed("port") {
		port = servePort
	}

	cfg := server.Config{
		Port:    port,
		Version: Version,
		Wizard:  a.controller,
		Files:   a.workspace,
		Opener:  shell.NewOpener(a.workspace),
		Logs:    a.bus,
		Tokens:  tokens,
	}
	if a.history != nil {
		cfg.History = a.history
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Workspace: %s\n", a.workspace.Root())
	_, _ = fmt.Fprintf(out, "Listening: http://%s\n", srv.Addr())
	_, _ = fmt.Fprintf(out, "API token: %s\n", token)
	if tokenCfg.Generated {
		_, _ = fmt.Fprintln(out, "(token secret generated for this process; set API_TOKEN_SECRET to persist it)")
	}

	return srv.Start()
}
