// Package output renders parsed records and scan summaries for the CLI.
package output

import (
	"time"

	"github.com/logsift/logsift/pkg/level"
	"github.com/logsift/logsift/pkg/parser"
	"github.com/logsift/logsift/pkg/scanner"
)

// Report is the complete output of a scan.
type Report struct {
	// Summary provides aggregate statistics.
	Summary Summary

	// Files holds the per-file outcome, including records.
	Files []scanner.FileResult

	// Metadata provides context about the scan run.
	Metadata Metadata
}

// Summary provides aggregate statistics.
type Summary struct {
	// FilesScanned is the number of files routed to a parser.
	FilesScanned int

	// FilesFailed is the number of files that could not be parsed at all.
	FilesFailed int

	// RecordsParsed is the total record count across all files.
	RecordsParsed int

	// LevelCounts maps each severity to its record count.
	LevelCounts map[level.Level]int
}

// Metadata provides context about the scan run.
type Metadata struct {
	// Sources lists the scanned file paths.
	Sources []string

	// ScannedAt is when the scan completed.
	ScannedAt time.Time

	// Duration is how long the scan took.
	Duration time.Duration
}

// NewReport builds a Report from a scan result.
func NewReport(result *scanner.ScanResult, duration time.Duration) *Report {
	report := &Report{
		Files: result.Files,
		Summary: Summary{
			LevelCounts: make(map[level.Level]int),
		},
		Metadata: Metadata{
			ScannedAt: time.Now(),
			Duration:  duration,
		},
	}

	for _, f := range result.Files {
		report.Summary.FilesScanned++
		report.Metadata.Sources = append(report.Metadata.Sources, f.Path)
		if f.Err != nil {
			report.Summary.FilesFailed++
			continue
		}
		report.Summary.RecordsParsed += len(f.Records)
		for _, rec := range f.Records {
			report.Summary.LevelCounts[rec.Level]++
		}
	}

	return report
}

// Records flattens all records across files.
func (r *Report) Records() []*parser.Record {
	var records []*parser.Record
	for _, f := range r.Files {
		records = append(records, f.Records...)
	}
	return records
}

// HasFailures returns true if any file failed to parse.
func (r *Report) HasFailures() bool {
	return r.Summary.FilesFailed > 0
}
