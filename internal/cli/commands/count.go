package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logsift/logsift/pkg/detector"
	"github.com/logsift/logsift/pkg/parser"
)

// NewCountCommand creates the count command.
func NewCountCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "count <log-file> [log-file...]",
		Short: "Estimate record counts for progress reporting",
		Long: `Print a best-effort record count per file: the element count for JSON
documents, otherwise file size divided by the sampled average line
length. Estimates are cheap and not guaranteed exact.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCount,
	}
}

func runCount(cmd *cobra.Command, args []string) error {
	log, err := buildLogger(cmd)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck // stderr sync failures are expected on some platforms

	paths, err := parser.ExpandGlobs(args)
	if err != nil {
		return err
	}

	d := detector.New(detector.WithLogger(log))

	total := 0
	for _, path := range paths {
		n := d.EstimateRecordCount(path)
		total += n
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ~%d records\n", path, n)
	}
	if len(paths) > 1 {
		fmt.Fprintf(cmd.OutOrStdout(), "total: ~%d records\n", total)
	}
	return nil
}
