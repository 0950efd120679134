package output

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/logsift/logsift/pkg/level"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	_, err := fmt.Fprintf(w, "logsift: %d files scanned, %d failed, %d records\n",
		report.Summary.FilesScanned,
		report.Summary.FilesFailed,
		report.Summary.RecordsParsed)
	return err
}

// levelOrder fixes the summary line ordering.
var levelOrder = []level.Level{
	level.Error, level.Warning, level.Info, level.Debug,
	level.Trace, level.Unknown, level.ParseError,
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	fmt.Fprintln(w, "=== Log Scan Report ===")
	fmt.Fprintln(w)

	for _, file := range report.Files {
		if file.Err != nil {
			fmt.Fprintf(w, "%s [%s] FAILED: %v\n", file.Path, file.Format, file.Err)
			continue
		}
		fmt.Fprintf(w, "%s [%s] %d records\n", file.Path, file.Format, len(file.Records))

		if !f.opts.Verbose {
			continue
		}
		for _, rec := range file.Records {
			fmt.Fprintf(w, "  %s %-11s %s\n",
				rec.Timestamp.Format("2006-01-02 15:04:05"),
				rec.Level,
				firstLine(rec.Message))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d files scanned, %d failed, %d records\n",
		report.Summary.FilesScanned,
		report.Summary.FilesFailed,
		report.Summary.RecordsParsed)

	var parts []string
	for _, lvl := range levelOrder {
		if n := report.Summary.LevelCounts[lvl]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", lvl, n))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(w, "Levels: %s\n", strings.Join(parts, " "))
	}

	return nil
}

// firstLine truncates multi-line messages for the listing view.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
