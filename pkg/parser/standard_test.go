package parser

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/logsift/logsift/pkg/level"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func collectAll(t *testing.T, src Source) []*Record {
	t.Helper()
	records, err := Collect(context.Background(), src)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	return records
}

func TestStandardSource_TimestampedLines(t *testing.T) {
	content := `2024-01-15 10:00:00 ERROR database connection refused
[2024-01-15 10:00:01] cache warmed
[10:00:02] worker started
`
	path := writeFixture(t, "app.log", content)

	src, err := NewStandardSource(path)
	if err != nil {
		t.Fatalf("NewStandardSource() error = %v", err)
	}
	defer src.Close()

	records := collectAll(t, src)
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	if records[0].Level != level.Error {
		t.Errorf("records[0].Level = %v, want ERROR", records[0].Level)
	}
	wantTime := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	if !records[0].Timestamp.Equal(wantTime) {
		t.Errorf("records[0].Timestamp = %v, want %v", records[0].Timestamp, wantTime)
	}
	if records[0].Message != "database connection refused" {
		t.Errorf("records[0].Message = %q", records[0].Message)
	}
	if records[0].LineNumber != 1 {
		t.Errorf("records[0].LineNumber = %d, want 1", records[0].LineNumber)
	}
	if records[0].FilePath != path {
		t.Errorf("records[0].FilePath = %q, want %q", records[0].FilePath, path)
	}

	if records[1].Level != level.Info {
		t.Errorf("records[1].Level = %v, want INFO", records[1].Level)
	}
	if records[2].LineNumber != 3 {
		t.Errorf("records[2].LineNumber = %d, want 3", records[2].LineNumber)
	}
}

func TestStandardSource_CommonLogLine(t *testing.T) {
	content := `192.168.1.5 - - [10/Oct/2023:13:55:36] "GET /x HTTP/1.1" 200 1024
`
	path := writeFixture(t, "access.log", content)

	src, err := NewStandardSource(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	records := collectAll(t, src)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if rec.Source != "192.168.1.5" {
		t.Errorf("Source = %q, want 192.168.1.5", rec.Source)
	}
	if want := "Status: 200, Size: 1024"; !strings.Contains(rec.Message, want) {
		t.Errorf("Message = %q, want it to contain %q", rec.Message, want)
	}
	if rec.Level != level.Info {
		t.Errorf("Level = %v, want INFO", rec.Level)
	}
}

func TestStandardSource_CommonLogStatusClasses(t *testing.T) {
	content := `10.0.0.1 - - [10/Oct/2023:13:55:36] "GET /a HTTP/1.1" 500 12
10.0.0.1 - - [10/Oct/2023:13:55:37] "GET /b HTTP/1.1" 404 0
`
	path := writeFixture(t, "access.log", content)

	src, err := NewStandardSource(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	records := collectAll(t, src)
	if records[0].Level != level.Error {
		t.Errorf("5xx Level = %v, want ERROR", records[0].Level)
	}
	if records[1].Level != level.Warning {
		t.Errorf("4xx Level = %v, want WARNING", records[1].Level)
	}
}

func TestStandardSource_CSVLine(t *testing.T) {
	content := `2024-01-15 10:00:00,WARN,billing,invoice retry scheduled, attempt 2
`
	path := writeFixture(t, "events.csv", content)

	src, err := NewStandardSource(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	records := collectAll(t, src)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if rec.Level != level.Warning {
		t.Errorf("Level = %v, want WARNING", rec.Level)
	}
	if rec.Source != "billing" {
		t.Errorf("Source = %q, want billing", rec.Source)
	}
	if rec.Message != "invoice retry scheduled, attempt 2" {
		t.Errorf("Message = %q", rec.Message)
	}
}

func TestStandardSource_UnrecognizedLineBecomesUnknown(t *testing.T) {
	// No strategy recognizes a line with no alphanumeric content.
	content := "!!! ??? ***\n"
	path := writeFixture(t, "junk.log", content)

	src, err := NewStandardSource(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	records := collectAll(t, src)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Level != level.Unknown {
		t.Errorf("Level = %v, want UNKNOWN", records[0].Level)
	}
	if records[0].RawData != "!!! ??? ***" {
		t.Errorf("RawData = %q, want raw text preserved", records[0].RawData)
	}
}

type faultyStrategy struct{}

func (faultyStrategy) Name() string              { return "faulty" }
func (faultyStrategy) IsLogLine(line string) bool { return true }
func (faultyStrategy) Parse(line string, lineNumber int, filePath string) (*Record, error) {
	return nil, errors.New("boom")
}

func TestStandardSource_FailingParseBecomesParseError(t *testing.T) {
	path := writeFixture(t, "app.log", "anything\n")

	src, err := NewStandardSource(path, WithStrategies([]LineStrategy{faultyStrategy{}}))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	records := collectAll(t, src)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Level != level.ParseError {
		t.Errorf("Level = %v, want PARSE_ERROR", records[0].Level)
	}
	if records[0].RawData != "anything" {
		t.Errorf("RawData = %q, want raw text preserved", records[0].RawData)
	}
}

type panickyStrategy struct{}

func (panickyStrategy) Name() string              { return "panicky" }
func (panickyStrategy) IsLogLine(line string) bool { return true }
func (panickyStrategy) Parse(string, int, string) (*Record, error) {
	panic("unexpected token")
}

func TestStandardSource_PanickingStrategyDoesNotAbortFile(t *testing.T) {
	path := writeFixture(t, "app.log", "one\ntwo\n")

	src, err := NewStandardSource(path, WithStrategies([]LineStrategy{panickyStrategy{}}))
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	records := collectAll(t, src)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	for i, rec := range records {
		if rec.Level != level.ParseError {
			t.Errorf("records[%d].Level = %v, want PARSE_ERROR", i, rec.Level)
		}
	}
}

func TestStandardSource_ResultTokenOverride(t *testing.T) {
	content := `2024-01-15 10:00:00 INFO deploy step done, result: 'failed'
`
	path := writeFixture(t, "app.log", content)

	src, err := NewStandardSource(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	records := collectAll(t, src)
	if records[0].Level != level.Error {
		t.Errorf("Level = %v, want ERROR (result token override)", records[0].Level)
	}
}

func TestStandardSource_ZeroCountsStayInfo(t *testing.T) {
	content := `2024-01-15 10:00:00 Build succeeded. 0 Errors, 0 Warnings
`
	path := writeFixture(t, "build.log", content)

	src, err := NewStandardSource(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	records := collectAll(t, src)
	if records[0].Level != level.Info {
		t.Errorf("Level = %v, want INFO (zero-count exclusion)", records[0].Level)
	}
}

func TestStandardSource_RawDataRoundTrip(t *testing.T) {
	lines := []string{
		`2024-01-15 10:00:00 ERROR db down`,
		`192.168.1.5 - - [10/Oct/2023:13:55:36] "GET / HTTP/1.1" 200 5`,
		`free-form text with no structure at all`,
	}
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	path := writeFixture(t, "mixed.log", content)

	src, err := NewStandardSource(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	records := collectAll(t, src)
	if len(records) != len(lines) {
		t.Fatalf("got %d records, want %d", len(records), len(lines))
	}
	for i, rec := range records {
		if rec.RawData != lines[i] {
			t.Errorf("records[%d].RawData = %q, want %q", i, rec.RawData, lines[i])
		}
	}
}

func TestStandardSource_Idempotent(t *testing.T) {
	content := `2024-01-15 10:00:00 ERROR one
2024-01-15 10:00:01 INFO two
2024-01-15 10:00:02,ERROR,db,three
`
	path := writeFixture(t, "app.log", content)

	parse := func() []*Record {
		src, err := NewStandardSource(path)
		if err != nil {
			t.Fatal(err)
		}
		defer src.Close()
		return collectAll(t, src)
	}

	first, second := parse(), parse()
	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Level != second[i].Level ||
			first[i].Message != second[i].Message ||
			first[i].RawData != second[i].RawData ||
			!first[i].Timestamp.Equal(second[i].Timestamp) {
			t.Errorf("record %d differs between parses", i)
		}
	}
}

func TestStandardSource_Cancellation(t *testing.T) {
	path := writeFixture(t, "app.log", "2024-01-15 10:00:00 line\n")

	src, err := NewStandardSource(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := src.Next(ctx); err != context.Canceled {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}

func TestStandardSource_FileNotFound(t *testing.T) {
	if _, err := NewStandardSource("/nonexistent/file.log"); err == nil {
		t.Error("NewStandardSource() expected error for missing file")
	}
}

func TestStandardSource_EmptyFile(t *testing.T) {
	path := writeFixture(t, "empty.log", "")

	src, err := NewStandardSource(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	if _, err := src.Next(context.Background()); err != io.EOF {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}
}
