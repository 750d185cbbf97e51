// Copyright (c) 2025 Rowbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the Rowbridge CLI.
// It implements subcommands for catalog management, credential storage,
// table scans, and warehouse syncs using the Cobra CLI framework.
package cmd

import (
	"fmt"
	"os"

	"rowbridge/cli/internal/logging"

	"github.com/spf13/cobra"
)

var (
	showVersion bool
	catalogPath string
	logLevel    string
	logJSON     bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rowbridge",
	Short: "Query remote APIs as relational tables",
	Long: `Rowbridge projects remote REST APIs onto relational tables. Servers and
their foreign tables are declared in a catalog file; rows are pulled
lazily page by page and can be inspected at the terminal or synced into
a PostgreSQL warehouse over the COPY protocol.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Setup(logLevel, logJSON)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("rowbridge %s\n", Version)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application.
// It executes the root command and handles any errors that occur during execution.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "Catalog file (default $ROWBRIDGE_CATALOG or ~/.config/rowbridge/catalog.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON instead of console lines")
}
