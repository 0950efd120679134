package output

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/logsift/logsift/pkg/detector"
	"github.com/logsift/logsift/pkg/level"
	"github.com/logsift/logsift/pkg/parser"
	"github.com/logsift/logsift/pkg/scanner"
)

func sampleResult() *scanner.ScanResult {
	return &scanner.ScanResult{
		Files: []scanner.FileResult{
			{
				Path:   "/var/log/app.log",
				Format: detector.FormatStandard,
				Records: []*parser.Record{
					{
						Timestamp: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
						Level:     level.Error,
						Message:   "connection refused\nstack line one",
					},
					{
						Timestamp: time.Date(2024, 1, 15, 10, 0, 1, 0, time.UTC),
						Level:     level.Info,
						Message:   "retrying",
					},
				},
			},
			{
				Path:   "/var/log/broken.log",
				Format: detector.FormatStandard,
				Err:    errors.New("opening log file: permission denied"),
			},
		},
	}
}

func TestNewReport(t *testing.T) {
	report := NewReport(sampleResult(), 42*time.Millisecond)

	if report.Summary.FilesScanned != 2 {
		t.Errorf("FilesScanned = %d, want 2", report.Summary.FilesScanned)
	}
	if report.Summary.FilesFailed != 1 {
		t.Errorf("FilesFailed = %d, want 1", report.Summary.FilesFailed)
	}
	if report.Summary.RecordsParsed != 2 {
		t.Errorf("RecordsParsed = %d, want 2", report.Summary.RecordsParsed)
	}
	if report.Summary.LevelCounts[level.Error] != 1 || report.Summary.LevelCounts[level.Info] != 1 {
		t.Errorf("LevelCounts = %v", report.Summary.LevelCounts)
	}
	if !report.HasFailures() {
		t.Error("HasFailures() = false, want true")
	}
	if report.Metadata.Duration != 42*time.Millisecond {
		t.Errorf("Duration = %v", report.Metadata.Duration)
	}
	if len(report.Records()) != 2 {
		t.Errorf("Records() = %d, want 2", len(report.Records()))
	}
}

func TestTextFormatter_Full(t *testing.T) {
	report := NewReport(sampleResult(), time.Millisecond)

	var buf bytes.Buffer
	f := NewTextFormatter(FormatOptions{})
	if err := f.Format(context.Background(), report, &buf); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{
		"/var/log/app.log [standard] 2 records",
		"/var/log/broken.log [standard] FAILED",
		"Summary: 2 files scanned, 1 failed, 2 records",
		"Levels: ERROR=1 INFO=1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "retrying") {
		t.Error("non-verbose output must not list records")
	}
}

func TestTextFormatter_Verbose(t *testing.T) {
	report := NewReport(sampleResult(), time.Millisecond)

	var buf bytes.Buffer
	f := NewTextFormatter(FormatOptions{Verbose: true})
	if err := f.Format(context.Background(), report, &buf); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.Contains(out, "retrying") {
		t.Errorf("verbose output missing record listing:\n%s", out)
	}
	// Multi-line messages are truncated to their first line.
	if !strings.Contains(out, "connection refused ...") {
		t.Errorf("multi-line message not truncated:\n%s", out)
	}
	if strings.Contains(out, "stack line one") {
		t.Error("continuation lines must not appear in the listing")
	}
}

func TestTextFormatter_Quiet(t *testing.T) {
	report := NewReport(sampleResult(), time.Millisecond)

	var buf bytes.Buffer
	f := NewTextFormatter(FormatOptions{Quiet: true})
	if err := f.Format(context.Background(), report, &buf); err != nil {
		t.Fatal(err)
	}

	out := strings.TrimSpace(buf.String())
	if strings.Count(out, "\n") != 0 {
		t.Errorf("quiet output must be one line:\n%s", out)
	}
	if !strings.Contains(out, "2 files scanned, 1 failed, 2 records") {
		t.Errorf("quiet output = %q", out)
	}
}

func TestFormatterNames(t *testing.T) {
	if got := NewTextFormatter(FormatOptions{}).Name(); got != "text" {
		t.Errorf("text Name() = %q", got)
	}
	if got := NewJSONFormatter(FormatOptions{}).Name(); got != "json" {
		t.Errorf("json Name() = %q", got)
	}
}
