package main

import (
	"fmt"
	"os"

	"github.com/qworpa/qworpa/internal/server"
	"github.com/spf13/cobra"
)

var (
	servePort int
	serveMode string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and/or mail worker",
	Long: `Start qworpa with the API server and/or mail worker components.

Examples:
  qworpa serve                    # Run both API server and worker
  qworpa serve --mode server      # Run API server only
  qworpa serve --mode worker      # Run mail worker only
  qworpa serve --port 8080        # Override port

Environment variables:
  QW_SECRET_KEY            Secret key (required)
  QW_DEBUG                 Debug mode: console mail, no HTTPS redirect
  QW_ALLOWED_HOSTS         Comma-separated hosts the server answers for
  QW_PORT                  Server port (default: 8000)
  QW_DB_DRIVER             Database driver: postgres, sqlite
  BF_PSQL_*                PostgreSQL connection settings
  QW_QUEUE_TYPE            Mail queue type: memory, valkey
  EMAIL_HOST, EMAIL_PORT   SMTP relay
  ADMIN_USERNAME           Bootstrap admin username
  ADMIN_PASSWORD           Bootstrap admin password`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
	serveCmd.Flags().StringVarP(&serveMode, "mode", "m", "both", "Run mode: server, worker, or both")
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := server.Config{
		Port:    servePort,
		Mode:    serveMode,
		Version: Version,
	}

	if err := server.RunWithSignalHandling(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
