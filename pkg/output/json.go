package output

import (
	"context"
	"encoding/json"
	"io"

	"github.com/logsift/logsift/pkg/parser"
)

// JSONFormatter formats reports as JSON.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// jsonFile mirrors FileResult with a marshalable error field.
type jsonFile struct {
	Path    string           `json:"path"`
	Format  string           `json:"format"`
	Records []*parser.Record `json:"records,omitempty"`
	Error   string           `json:"error,omitempty"`
}

type jsonReport struct {
	Summary Summary    `json:"summary"`
	Files   []jsonFile `json:"files,omitempty"`
}

// Format renders the report as JSON.
func (f *JSONFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if f.opts.Quiet {
		return encoder.Encode(report.Summary)
	}

	out := jsonReport{Summary: report.Summary}
	for _, file := range report.Files {
		jf := jsonFile{Path: file.Path, Format: string(file.Format)}
		if file.Err != nil {
			jf.Error = file.Err.Error()
		}
		if f.opts.Verbose {
			jf.Records = file.Records
		}
		out.Files = append(out.Files, jf)
	}

	return encoder.Encode(out)
}
