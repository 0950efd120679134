package parser

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/logsift/logsift/pkg/level"
)

// LineStrategy is one member of the standard-format cascade. IsLogLine is
// a cheap recognition check; Parse does the actual work and may still fail
// on lines that looked recognizable.
type LineStrategy interface {
	// Name identifies the strategy in diagnostics.
	Name() string

	// IsLogLine reports whether this strategy recognizes the line.
	IsLogLine(line string) bool

	// Parse builds a record from the line. A nil record with nil error
	// means the strategy declined after a closer look.
	Parse(line string, lineNumber int, filePath string) (*Record, error)
}

// StandardSource streams a file through the strategy cascade, one record
// per line. No single bad line aborts the file: unrecognized lines become
// UNKNOWN records and failing parses become PARSE_ERROR records.
type StandardSource struct {
	reader       *lineReader
	strategies   []LineStrategy
	levels       *level.Chain
	log          *zap.Logger
	path         string
	lineNum      int
	maxLineBytes int
}

// StandardOption configures a StandardSource.
type StandardOption func(*StandardSource)

// WithLevelChain replaces the default level-detection chain.
func WithLevelChain(c *level.Chain) StandardOption {
	return func(s *StandardSource) { s.levels = c }
}

// WithLogger sets the diagnostic logger.
func WithLogger(log *zap.Logger) StandardOption {
	return func(s *StandardSource) { s.log = log }
}

// WithStrategies replaces the default cascade.
func WithStrategies(strategies []LineStrategy) StandardOption {
	return func(s *StandardSource) { s.strategies = strategies }
}

// WithMaxLineBytes caps the scanner buffer.
func WithMaxLineBytes(n int) StandardOption {
	return func(s *StandardSource) { s.maxLineBytes = n }
}

// DefaultStrategies returns the standard cascade in fixed trial order:
// timestamp-prefixed, common access log, CSV, simple catch-all.
func DefaultStrategies() []LineStrategy {
	return []LineStrategy{
		&TimestampLineStrategy{},
		&CommonLogStrategy{},
		&CSVLineStrategy{},
		&SimpleLineStrategy{},
	}
}

// NewStandardSource opens path for streaming through the cascade.
func NewStandardSource(path string, opts ...StandardOption) (*StandardSource, error) {
	s := &StandardSource{
		strategies: DefaultStrategies(),
		levels:     level.NewChain(),
		log:        zap.NewNop(),
		path:       path,
	}
	for _, opt := range opts {
		opt(s)
	}

	reader, err := openLineReader(path, s.maxLineBytes)
	if err != nil {
		return nil, err
	}
	s.reader = reader
	return s, nil
}

// Next returns the next record, one per input line.
func (s *StandardSource) Next(ctx context.Context) (*Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if !s.reader.Scan() {
		if err := s.reader.Err(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.path, err)
		}
		return nil, io.EOF
	}

	s.lineNum++
	line := s.reader.Text()

	rec := s.parseLine(line)
	rec.Level = level.Override(rec.Level, rec.Message, rec.RawData)
	return rec, nil
}

// parseLine runs the cascade: the first strategy that both recognizes and
// successfully parses the line wins.
func (s *StandardSource) parseLine(line string) *Record {
	recognized := false
	for _, strat := range s.strategies {
		if !strat.IsLogLine(line) {
			continue
		}
		recognized = true

		rec, err := s.tryParse(strat, line)
		if err != nil {
			s.log.Warn("line parse failed",
				zap.String("strategy", strat.Name()),
				zap.String("file", s.path),
				zap.Int("line", s.lineNum),
				zap.Error(err))
			return s.placeholder(line, level.ParseError)
		}
		if rec == nil {
			continue
		}

		if rec.Level == "" || rec.Level == level.Unknown {
			rec.Level = s.levels.Detect(rec.Message, rec.RawData)
		}
		return rec
	}

	if recognized {
		return s.placeholder(line, level.ParseError)
	}
	return s.placeholder(line, level.Unknown)
}

// tryParse isolates a strategy call so a panicking strategy degrades to a
// PARSE_ERROR record instead of killing the file.
func (s *StandardSource) tryParse(strat LineStrategy, line string) (rec *Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("strategy %s panicked: %v", strat.Name(), r)
		}
	}()
	return strat.Parse(line, s.lineNum, s.path)
}

func (s *StandardSource) placeholder(line string, lvl level.Level) *Record {
	return &Record{
		Timestamp:  time.Now().UTC(),
		Level:      lvl,
		Message:    line,
		RawData:    line,
		FilePath:   s.path,
		LineNumber: s.lineNum,
	}
}

// Close releases the file handle.
func (s *StandardSource) Close() error { return s.reader.Close() }

// timestampLayouts are tried in order when normalizing a timestamp token.
var timestampLayouts = []string{
	"2006-01-02 15:04:05,000",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"02/Jan/2006:15:04:05 -0700",
	"02/Jan/2006:15:04:05",
	"01/02/2006 15:04:05",
}

// parseTimestamp normalizes a timestamp token, falling back to "now" when
// no layout fits so records never carry a zero time.
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

// TimestampLineStrategy handles bracket- or timestamp-prefixed lines:
// [HH:MM:SS] message, [2024-01-15 10:30:00] message, or
// 2024-01-15 10:30:00 LEVEL message.
type TimestampLineStrategy struct{}

var (
	bracketTimePattern = regexp.MustCompile(`^\[(\d{2}:\d{2}:\d{2})\]\s*(.*)$`)
	bracketDatePattern = regexp.MustCompile(`^\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\]\s*(.*)$`)
	leadingDatePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(?:[,.]\d{3})?)\s+(.*)$`)
)

func (*TimestampLineStrategy) Name() string { return "timestamp" }

func (*TimestampLineStrategy) IsLogLine(line string) bool {
	return bracketTimePattern.MatchString(line) ||
		bracketDatePattern.MatchString(line) ||
		leadingDatePattern.MatchString(line)
}

func (t *TimestampLineStrategy) Parse(line string, lineNumber int, filePath string) (*Record, error) {
	rec := &Record{
		RawData:    line,
		FilePath:   filePath,
		LineNumber: lineNumber,
	}

	switch {
	case bracketDatePattern.MatchString(line):
		m := bracketDatePattern.FindStringSubmatch(line)
		rec.Timestamp = parseTimestamp(m[1])
		rec.Message = m[2]
	case bracketTimePattern.MatchString(line):
		m := bracketTimePattern.FindStringSubmatch(line)
		now := time.Now().UTC()
		if clock, err := time.Parse("15:04:05", m[1]); err == nil {
			rec.Timestamp = time.Date(now.Year(), now.Month(), now.Day(),
				clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC)
		} else {
			rec.Timestamp = now
		}
		rec.Message = m[2]
	default:
		m := leadingDatePattern.FindStringSubmatch(line)
		rec.Timestamp = parseTimestamp(m[1])
		rec.Message = m[2]
	}

	// Optional "LEVEL source - message" remainder shape.
	if lvl, rest, ok := splitLeadingLevel(rec.Message); ok {
		rec.Level = lvl
		rec.Message = rest
	}

	return rec, nil
}

var leadingLevelPattern = regexp.MustCompile(`^(INFO|ERROR|WARNING|WARN|DEBUG|TRACE)\b[:\s]*(.*)$`)

// splitLeadingLevel peels an explicit level token off the front of the
// message remainder.
func splitLeadingLevel(msg string) (level.Level, string, bool) {
	m := leadingLevelPattern.FindStringSubmatch(msg)
	if m == nil {
		return level.Unknown, msg, false
	}
	lvl, ok := level.FromToken(m[1])
	if !ok {
		return level.Unknown, msg, false
	}
	return lvl, strings.TrimSpace(m[2]), true
}

// CommonLogStrategy handles W3C common access-log lines:
// host ident user [timestamp] "request" status size.
type CommonLogStrategy struct{}

var commonLogPattern = regexp.MustCompile(
	`^(\S+)\s+(\S+)\s+(\S+)\s+\[([^\]]+)\]\s+"([^"]*)"\s+(\d{3})\s+(\d+|-)\s*$`)

func (*CommonLogStrategy) Name() string { return "common" }

func (*CommonLogStrategy) IsLogLine(line string) bool {
	return commonLogPattern.MatchString(line)
}

func (c *CommonLogStrategy) Parse(line string, lineNumber int, filePath string) (*Record, error) {
	m := commonLogPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, nil
	}

	host, tsStr, request, status, size := m[1], m[4], m[5], m[6], m[7]

	rec := &Record{
		Timestamp:  parseTimestamp(tsStr),
		Source:     host,
		Message:    fmt.Sprintf("%s - Status: %s, Size: %s", request, status, size),
		RawData:    line,
		FilePath:   filePath,
		LineNumber: lineNumber,
	}

	// Access logs carry no level token; classify from the status class.
	switch status[0] {
	case '5':
		rec.Level = level.Error
	case '4':
		rec.Level = level.Warning
	default:
		rec.Level = level.Info
	}

	return rec, nil
}

// CSVLineStrategy handles comma-delimited lines with at least four fields
// whose first field parses as a date: timestamp,level,source,message...
type CSVLineStrategy struct{}

func (*CSVLineStrategy) Name() string { return "csv" }

func (*CSVLineStrategy) IsLogLine(line string) bool {
	fields := strings.Split(line, ",")
	if len(fields) < 4 {
		return false
	}
	return isParseableDate(strings.TrimSpace(fields[0]))
}

var csvDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"2006/01/02 15:04:05",
}

func isParseableDate(s string) bool {
	for _, layout := range csvDateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func (c *CSVLineStrategy) Parse(line string, lineNumber int, filePath string) (*Record, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 4 {
		return nil, nil
	}

	rec := &Record{
		Timestamp:  parseTimestamp(fields[0]),
		Source:     strings.TrimSpace(fields[2]),
		Message:    strings.TrimSpace(strings.Join(fields[3:], ",")),
		RawData:    line,
		FilePath:   filePath,
		LineNumber: lineNumber,
	}

	if lvl, ok := level.FromToken(strings.ToUpper(strings.TrimSpace(fields[1]))); ok {
		rec.Level = lvl
	}

	return rec, nil
}

// SimpleLineStrategy is the last-resort strategy: it accepts any line with
// visible content and extracts what it can.
type SimpleLineStrategy struct{}

func (*SimpleLineStrategy) Name() string { return "simple" }

var visibleContentPattern = regexp.MustCompile(`[0-9A-Za-z]`)

func (*SimpleLineStrategy) IsLogLine(line string) bool {
	return visibleContentPattern.MatchString(line)
}

func (s *SimpleLineStrategy) Parse(line string, lineNumber int, filePath string) (*Record, error) {
	return &Record{
		Timestamp:  time.Now().UTC(),
		Message:    strings.TrimSpace(line),
		RawData:    line,
		FilePath:   filePath,
		LineNumber: lineNumber,
	}, nil
}
