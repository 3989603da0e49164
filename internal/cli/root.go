// Package cli implements the embertrace command line: a read-only
// client for the activation trace API of a running ember instance.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ember/internal/buildinfo"
	"ember/internal/logging"
)

var (
	flagServer    string
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking the
// EMBER_TRACE env var first.
func defaultServer() string {
	if s := os.Getenv("EMBER_TRACE"); s != "" {
		return s
	}
	return "http://localhost:9181"
}

// NewRootCmd creates the root cobra command for the embertrace CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "embertrace",
		Short:   "Inspect a running ember scheduler",
		Long:    "embertrace queries the activation trace API: the live task table, recent activations, and per-task summaries.",
		Version: buildinfo.Long(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)
			client = NewClient(flagServer, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "trace API URL (or EMBER_TRACE env)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newTasksCmd(),
		newActivationsCmd(),
		newSummaryCmd(),
		newHealthCmd(),
	)

	return root
}
