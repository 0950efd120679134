package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/logsift/logsift/pkg/detector"
	"github.com/logsift/logsift/pkg/parser"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <log-file> [log-file...]",
		Short: "Detect the format of log files",
		Long: `Classify each file as iis, rabbitmq, log4net, or standard from its
content alone.

Priority order: IIS header markers win over everything, then the .json
extension plus a RabbitMQ field-vocabulary sniff, then the Log4Net
comma-millisecond timestamp sampling, and standard as the default.
Detection never fails; unreadable files classify as standard.

Example:
  logsift detect /var/log/myapp.log
  logsift detect -o json 'logs/*.log'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
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

	type detection struct {
		Path   string `json:"path"`
		Format string `json:"format"`
	}

	var results []detection
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("log file not found: %s", path)
		}
		results = append(results, detection{Path: path, Format: string(d.Detect(path))})
	}

	if opts.Output == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	}

	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", r.Path, r.Format)
	}
	return nil
}
