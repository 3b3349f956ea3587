package main

import (
	"fmt"

	"github.com/artpar/pipekit/bootstrap"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the pipekit HTTP API.

The server will:
  - Load configuration from pipekit.yaml (or --config)
  - Or load configuration from PIPEKIT_* environment variables
  - Load every definition file under definitions.dir
  - Record evaluations to the configured history store
  - Reload definitions on file changes (definitions.watch) or SIGHUP

Environment variables (for Docker deployments):
  PIPEKIT_DEFINITIONS_DIR   - Definition files (default: definitions)
  PIPEKIT_HISTORY_DRIVER    - sqlite, memory or none (default: sqlite)
  PIPEKIT_SERVER_PORT       - Server port (default: 8080)
  PIPEKIT_LOG_LEVEL         - Log level: debug, info, warn, error

Examples:
  pipekit serve
  pipekit serve --config /etc/pipekit/config.yaml
  PIPEKIT_HISTORY_DRIVER=memory pipekit serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := bootstrap.New(bootstrap.Options{ConfigPath: cfgFile, Version: version})
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run(cmd.Context())
}
