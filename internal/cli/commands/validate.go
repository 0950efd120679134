package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logsift/logsift/pkg/detector"
	"github.com/logsift/logsift/pkg/parser"
)

// ValidateOptions holds command-line options for the validate command.
type ValidateOptions struct {
	Format string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <log-file> [log-file...]",
		Short: "Cheaply check files against a format before a full parse",
		Long: `Run the cheap pre-check for a format without parsing the whole file:
the header-marker scan for iis, the field-vocabulary sniff for rabbitmq,
the timestamp sampling for log4net, and a plain readability check for
standard. Without --format, the detected format is validated.

Exit codes:
  0 - All files validate
  1 - One or more files do not match the format`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Format to validate against (iis|rabbitmq|log4net|standard)")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string, opts *ValidateOptions) error {
	log, err := buildLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck // stderr sync failures are expected on some platforms

	if opts.Format != "" {
		switch detector.Format(opts.Format) {
		case detector.FormatIIS, detector.FormatRabbitMQ, detector.FormatLog4Net, detector.FormatStandard:
		default:
			return fmt.Errorf("unknown format %q (must be iis, rabbitmq, log4net, or standard)", opts.Format)
		}
	}

	paths, err := parser.ExpandGlobs(args)
	if err != nil {
		return err
	}

	d := detector.New(detector.WithLogger(log))

	for _, path := range paths {
		format := detector.Format(opts.Format)
		if format == "" {
			format = d.Detect(path)
		}

		if d.Validate(path, format) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid %s\n", path, format)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: NOT %s\n", path, format)
			ExitCode = 1
		}
	}

	return nil
}
