package parser

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/logsift/logsift/pkg/level"
)

func TestLog4NetSource_SingleEntry(t *testing.T) {
	content := `2024-01-15 10:00:00,123 [worker-1] INFO MyApp.Services.OrderService - order 42 accepted
`
	path := writeFixture(t, "app.log", content)

	src, err := NewLog4NetSource(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	records := collectAll(t, src)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	rec := records[0]
	if rec.Log4Net == nil {
		t.Fatal("Log4Net detail missing")
	}
	want := time.Date(2024, 1, 15, 10, 0, 0, 123e6, time.UTC)
	if !rec.Log4Net.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", rec.Log4Net.Date, want)
	}
	if rec.Log4Net.Thread != "worker-1" {
		t.Errorf("Thread = %q", rec.Log4Net.Thread)
	}
	if rec.Log4Net.Level != "INFO" {
		t.Errorf("Log4Net.Level = %q", rec.Log4Net.Level)
	}
	if rec.Log4Net.Logger != "MyApp.Services.OrderService" {
		t.Errorf("Logger = %q", rec.Log4Net.Logger)
	}
	if rec.Message != "order 42 accepted" {
		t.Errorf("Message = %q", rec.Message)
	}
	if rec.Source != "MyApp.Services.OrderService" {
		t.Errorf("Source = %q", rec.Source)
	}
	if rec.Level != level.Info {
		t.Errorf("Level = %v, want INFO", rec.Level)
	}
}

func TestLog4NetSource_MultiLineEntry(t *testing.T) {
	content := `2024-01-15 10:00:00,001 [main] ERROR MyApp.Handler - unhandled exception
System.NullReferenceException: Object reference not set
   at MyApp.Handler.Process()
   at MyApp.Main()
2024-01-15 10:00:01,002 [main] INFO MyApp.Handler - recovered
`
	path := writeFixture(t, "app.log", content)

	src, err := NewLog4NetSource(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	records := collectAll(t, src)
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	rec := records[0]
	if rec.Level != level.Error {
		t.Errorf("Level = %v, want ERROR", rec.Level)
	}
	wantLines := []string{
		"unhandled exception",
		"System.NullReferenceException: Object reference not set",
		"   at MyApp.Handler.Process()",
		"   at MyApp.Main()",
	}
	if rec.Message != strings.Join(wantLines, "\n") {
		t.Errorf("Message = %q, continuation lines not accumulated", rec.Message)
	}
	if rec.StackTrace == "" || !strings.Contains(rec.StackTrace, "at MyApp.Handler.Process()") {
		t.Errorf("StackTrace = %q, want continuation lines", rec.StackTrace)
	}
	if rec.LineNumber != 1 {
		t.Errorf("LineNumber = %d, want header line", rec.LineNumber)
	}

	// The final entry flushes at EOF with no trailing header needed.
	if records[1].Message != "recovered" {
		t.Errorf("records[1].Message = %q", records[1].Message)
	}
	if records[1].LineNumber != 5 {
		t.Errorf("records[1].LineNumber = %d, want 5", records[1].LineNumber)
	}
}

func TestLog4NetSource_LastEntryFlushedAtEOF(t *testing.T) {
	content := `2024-01-15 10:00:00,001 [main] WARN MyApp - disk filling up
trailing context line`
	path := writeFixture(t, "app.log", content)

	src, err := NewLog4NetSource(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	records := collectAll(t, src)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Level != level.Warning {
		t.Errorf("Level = %v, want WARNING from WARN token", records[0].Level)
	}
	if !strings.HasSuffix(records[0].Message, "trailing context line") {
		t.Errorf("Message = %q, want trailing continuation kept", records[0].Message)
	}
}

func TestLog4NetSource_UnstructuredHeaderKeepsLine(t *testing.T) {
	// Timestamp prefix present but the rest does not match the layout.
	content := `2024-01-15 10:00:00,001 something entirely freeform here
`
	path := writeFixture(t, "app.log", content)

	src, err := NewLog4NetSource(path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	records := collectAll(t, src)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Message != "2024-01-15 10:00:00,001 something entirely freeform here" {
		t.Errorf("Message = %q, want whole raw line", records[0].Message)
	}
}

func TestValidateLog4Net(t *testing.T) {
	good := `2024-01-15 10:00:00,001 [main] INFO A - one
continuation
continuation
2024-01-15 10:00:01,002 [main] INFO A - two
`
	path := writeFixture(t, "good.log", good)
	ok, err := ValidateLog4Net(path)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("want validation to pass at 50 percent match")
	}

	var bad strings.Builder
	for i := 0; i < 50; i++ {
		bad.WriteString("plain line with no timestamp\n")
	}
	path = writeFixture(t, "bad.log", bad.String())
	ok, err = ValidateLog4Net(path)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("want validation to fail with zero matches")
	}

	path = writeFixture(t, "empty.log", "")
	ok, err = ValidateLog4Net(path)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("want validation to fail on empty file")
	}
}

func TestNewLog4NetSource_RejectsNonLog4Net(t *testing.T) {
	path := writeFixture(t, "other.log", "nothing like log4net here\n")

	_, err := NewLog4NetSource(path)
	if !errors.Is(err, ErrNotLog4Net) {
		t.Fatalf("error = %v, want ErrNotLog4Net", err)
	}
}
