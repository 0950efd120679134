// Package cli provides the command-line interface for logsift.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/logsift/logsift/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "logsift",
		Short: "Normalize messy multi-format log files",
		Long: `Logsift ingests text or JSON log files of unknown origin, auto-detects
which format each file uses, and turns every line or JSON element into a
normalized structured record with a severity level - even when the source
never states one.

Supported formats:
  - IIS / W3C extended (self-describing #Fields: column order)
  - RabbitMQ JSON (flat records and nested fault envelopes, including
    paired message/headers file layouts)
  - Log4Net (multi-line entries with comma-millisecond timestamps)
  - Standard (bracket/timestamp-prefixed, common access log, CSV, and a
    catch-all cascade)

Malformed input degrades gracefully: a bad line becomes an UNKNOWN or
PARSE_ERROR record, never an aborted file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a logsift config file")
	rootCmd.PersistentFlags().String("log-level", "warn", "Diagnostic log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().Bool("dev-log", false, "Human-readable diagnostic logs")

	rootCmd.AddCommand(
		commands.NewDetectCommand(),
		commands.NewParseCommand(),
		commands.NewValidateCommand(),
		commands.NewCountCommand(),
		commands.NewVersionCommand(),
	)

	return rootCmd
}
