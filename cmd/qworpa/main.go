package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set via ldflags at build time
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "qworpa",
	Short: "qworpa - blog backend",
	Long:  `qworpa serves the blog JSON API and delivers its outgoing mail.`,
	Example: `  # Run the API server and mail worker
  qworpa serve

  # Create an administrator
  qworpa createadmin --username admin --email admin@qworpa.com

  # List the URL table
  qworpa routes`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
