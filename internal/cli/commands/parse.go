package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/logsift/logsift/pkg/config"
	"github.com/logsift/logsift/pkg/detector"
	"github.com/logsift/logsift/pkg/output"
	"github.com/logsift/logsift/pkg/parser"
	"github.com/logsift/logsift/pkg/scanner"
)

// ParseOptions holds command-line options for the parse command.
type ParseOptions struct {
	Output    string
	Verbose   bool
	Quiet     bool
	Workers   int
	BatchSize int
}

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse <log-file> [log-file...]",
		Short: "Parse log files into normalized records",
		Long: `Detect each file's format, stream-parse it, and print the normalized
records with their resolved severity levels.

Files are parsed concurrently with bounded parallelism. A malformed line
never aborts its file: it degrades to an UNKNOWN or PARSE_ERROR record.
A paired RabbitMQ layout (messages plus a *_headers.json companion) is
joined automatically.

Exit codes:
  0 - All files parsed
  1 - One or more files failed to parse
  2 - Configuration or runtime error`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Print every record")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary line only")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "Concurrent file parses (0 = one per CPU)")
	cmd.Flags().IntVarP(&opts.BatchSize, "batch-size", "b", 0, "Record batch size, clamped to [10, 10000]")

	return cmd
}

func runParse(cmd *cobra.Command, args []string, opts *ParseOptions) error {
	ctx := commandContext(cmd)

	log, err := buildLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck // stderr sync failures are expected on some platforms

	cfg, err := loadConfig(ctx, cmd)
	if err != nil {
		return err
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}
	if opts.BatchSize > 0 {
		cfg.Parsing.BatchSize = config.ClampBatchSize(opts.BatchSize)
	}

	paths, err := parser.ExpandGlobs(args)
	if err != nil {
		return err
	}

	d := detector.New(
		detector.WithLogger(log),
		detector.WithSampleLines(cfg.Detection.SampleLines),
		detector.WithMatchRatio(cfg.Detection.MinMatchRatio),
	)

	s := scanner.New(
		scanner.WithLogger(log),
		scanner.WithDetector(d),
		scanner.WithLevelChain(levelChain(cfg)),
		scanner.WithWorkers(cfg.Workers),
		scanner.WithBatchSize(cfg.Parsing.BatchSize),
		scanner.WithMaxLineBytes(cfg.Parsing.MaxLineBytes),
	)

	start := time.Now()
	result, err := s.ScanAll(ctx, paths)
	if err != nil {
		return fmt.Errorf("scan interrupted: %w", err)
	}

	report := output.NewReport(result, time.Since(start))

	formatter, err := newFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if err != nil {
		return err
	}

	if err := formatter.Format(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if report.HasFailures() {
		ExitCode = 1
	}
	return nil
}

func newFormatter(name string, opts output.FormatOptions) (output.Formatter, error) {
	switch name {
	case "text":
		return output.NewTextFormatter(opts), nil
	case "json":
		return output.NewJSONFormatter(opts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (must be text or json)", name)
	}
}
