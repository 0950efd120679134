package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/logsift/logsift/pkg/level"
)

// log4netTimestampPattern is the comma-millisecond prefix that starts a
// Log4Net entry. Lines without it are continuations of the current entry.
var log4netTimestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2},\d{3}`)

// log4netHeaderPattern captures date, thread, level, logger, and the first
// message line.
var log4netHeaderPattern = regexp.MustCompile(
	`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2},\d{3})\s+\[([^\]]*)\]\s+(\w+)\s+(\S+)\s+-\s?(.*)$`)

const log4netLayout = "2006-01-02 15:04:05,000"

// validation sampling: at least matchRatio of the first sampleLines
// non-blank lines must carry the timestamp prefix.
const (
	log4netSampleLines = 50
	log4netMatchRatio  = 0.10
)

// ErrNotLog4Net reports that a file failed Log4Net validation.
var ErrNotLog4Net = errors.New("file does not look like a Log4Net log")

// ValidateLog4Net samples up to 50 lines and reports whether at least 10
// percent carry the comma-millisecond timestamp prefix.
func ValidateLog4Net(path string) (bool, error) {
	return ValidateLog4NetRatio(path, log4netMatchRatio)
}

// ValidateLog4NetRatio is ValidateLog4Net with a caller-chosen match ratio.
func ValidateLog4NetRatio(path string, ratio float64) (bool, error) {
	reader, err := openLineReader(path, 0)
	if err != nil {
		return false, err
	}
	defer reader.Close()

	sampled, matched := 0, 0
	for reader.Scan() && sampled < log4netSampleLines {
		line := strings.TrimSpace(reader.Text())
		if line == "" {
			continue
		}
		sampled++
		if log4netTimestampPattern.MatchString(line) {
			matched++
		}
	}
	if err := reader.Err(); err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if sampled == 0 {
		return false, nil
	}
	return float64(matched)/float64(sampled) >= ratio, nil
}

// Log4NetSource streams a Log4Net file, accumulating continuation lines
// (stack traces, wrapped messages) into their owning entry. An entry is
// flushed when the next timestamp-prefixed line begins, and the last one
// unconditionally at end of file.
type Log4NetSource struct {
	reader  *lineReader
	log     *zap.Logger
	levels  *level.Chain
	path    string
	lineNum int

	pending *log4netEntry
	eof     bool
}

type log4netEntry struct {
	headerLine string
	date       time.Time
	thread     string
	levelToken string
	logger     string
	message    string
	extras     []string
	startLine  int
}

// Log4NetOption configures a Log4NetSource.
type Log4NetOption func(*Log4NetSource)

// WithLog4NetLogger sets the diagnostic logger.
func WithLog4NetLogger(log *zap.Logger) Log4NetOption {
	return func(s *Log4NetSource) { s.log = log }
}

// WithLog4NetLevelChain replaces the default level-detection chain.
func WithLog4NetLevelChain(c *level.Chain) Log4NetOption {
	return func(s *Log4NetSource) { s.levels = c }
}

// NewLog4NetSource validates the file and opens it for streaming. A file
// that fails the sampling gate returns ErrNotLog4Net.
func NewLog4NetSource(path string, opts ...Log4NetOption) (*Log4NetSource, error) {
	ok, err := ValidateLog4Net(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotLog4Net)
	}

	s := &Log4NetSource{
		log:    zap.NewNop(),
		levels: level.NewChain(),
		path:   path,
	}
	for _, opt := range opts {
		opt(s)
	}

	reader, err := openLineReader(path, 0)
	if err != nil {
		return nil, err
	}
	s.reader = reader
	return s, nil
}

// Next returns the next fully accumulated entry.
func (s *Log4NetSource) Next(ctx context.Context) (*Record, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if s.eof {
			return nil, io.EOF
		}

		if !s.reader.Scan() {
			if err := s.reader.Err(); err != nil {
				return nil, fmt.Errorf("reading %s: %w", s.path, err)
			}
			s.eof = true
			if s.pending != nil {
				rec := s.flush()
				return rec, nil
			}
			return nil, io.EOF
		}

		s.lineNum++
		line := s.reader.Text()

		if !log4netTimestampPattern.MatchString(line) {
			// Continuation line; drop it if no entry is open yet.
			if s.pending != nil {
				s.pending.extras = append(s.pending.extras, line)
			} else if strings.TrimSpace(line) != "" {
				s.log.Debug("continuation line before any entry, dropped",
					zap.String("file", s.path), zap.Int("line", s.lineNum))
			}
			continue
		}

		entry := s.openEntry(line)
		if s.pending != nil {
			rec := s.flush()
			s.pending = entry
			return rec, nil
		}
		s.pending = entry
	}
}

// Close releases the file handle.
func (s *Log4NetSource) Close() error { return s.reader.Close() }

// openEntry parses a timestamp-prefixed header line. A header that fails
// the structured pattern still opens an entry with the raw line as its
// message, so no data is lost.
func (s *Log4NetSource) openEntry(line string) *log4netEntry {
	entry := &log4netEntry{headerLine: line, startLine: s.lineNum}

	m := log4netHeaderPattern.FindStringSubmatch(line)
	if m == nil {
		s.log.Debug("header line did not match structured pattern",
			zap.String("file", s.path), zap.Int("line", s.lineNum))
		entry.date = time.Now().UTC()
		entry.message = line
		return entry
	}

	date, err := time.Parse(log4netLayout, m[1])
	if err != nil {
		date = time.Now().UTC()
	}
	entry.date = date
	entry.thread = m[2]
	entry.levelToken = m[3]
	entry.logger = m[4]
	entry.message = m[5]
	return entry
}

// flush converts the pending entry into a record.
func (s *Log4NetSource) flush() *Record {
	entry := s.pending
	s.pending = nil

	message := entry.message
	if len(entry.extras) > 0 {
		message = strings.Join(append([]string{entry.message}, entry.extras...), "\n")
	}

	l4n := &Log4NetRecord{
		Date:    entry.date,
		Thread:  entry.thread,
		Level:   strings.ToUpper(entry.levelToken),
		Logger:  entry.logger,
		Message: message,
	}

	rec := &Record{
		Timestamp:  entry.date,
		Source:     entry.logger,
		Message:    message,
		RawData:    strings.Join(append([]string{entry.headerLine}, entry.extras...), "\n"),
		FilePath:   s.path,
		LineNumber: entry.startLine,
		Log4Net:    l4n,
	}

	if lvl, ok := level.FromToken(l4n.Level); ok {
		rec.Level = lvl
	} else {
		rec.Level = s.levels.Detect(rec.Message, rec.RawData)
	}

	// Continuation lines on an error entry are almost always a stack trace.
	if rec.Level == level.Error && len(entry.extras) > 0 {
		rec.StackTrace = strings.Join(entry.extras, "\n")
	}

	rec.Level = level.Override(rec.Level, rec.Message, rec.RawData)
	return rec
}
