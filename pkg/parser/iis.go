package parser

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/logsift/logsift/pkg/level"
)

// standardIISFields is the W3C field order assumed when a file never
// declares one with a #Fields: directive.
var standardIISFields = []string{
	"date", "time", "s-ip", "cs-method", "cs-uri-stem", "cs-uri-query",
	"s-port", "cs-username", "c-ip", "cs(User-Agent)", "cs(Referer)",
	"sc-status", "sc-substatus", "sc-win32-status", "time-taken",
}

// absentToken marks an absent value in W3C logs.
const absentToken = "-"

// IISSource streams a W3C extended (IIS) log file. Directive lines declare
// the field order; data lines are walked field-by-field against it.
type IISSource struct {
	reader  *lineReader
	log     *zap.Logger
	path    string
	lineNum int
	fields  []string
}

// IISOption configures an IISSource.
type IISOption func(*IISSource)

// WithIISLogger sets the diagnostic logger.
func WithIISLogger(log *zap.Logger) IISOption {
	return func(s *IISSource) { s.log = log }
}

// NewIISSource opens path for streaming.
func NewIISSource(path string, opts ...IISOption) (*IISSource, error) {
	s := &IISSource{log: zap.NewNop(), path: path}
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

// Next returns the next data-line record, consuming directive lines along
// the way.
func (s *IISSource) Next(ctx context.Context) (*Record, error) {
	for {
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
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "#") {
			if rest, ok := strings.CutPrefix(trimmed, "#Fields:"); ok {
				s.fields = strings.Fields(rest)
				s.log.Debug("field order declared",
					zap.String("file", s.path),
					zap.Strings("fields", s.fields))
			}
			continue
		}

		tokens := tokenizeIISLine(trimmed)

		// No directive seen yet: infer the standard order once a line
		// looks wide enough to be W3C data.
		if s.fields == nil {
			if len(tokens) < 10 {
				s.log.Debug("skipping narrow line before field declaration",
					zap.String("file", s.path), zap.Int("line", s.lineNum))
				continue
			}
			s.fields = standardIISFields
			s.log.Debug("no #Fields: directive, assuming standard order",
				zap.String("file", s.path))
		}

		return s.buildRecord(line, tokens), nil
	}
}

// Close releases the file handle.
func (s *IISSource) Close() error { return s.reader.Close() }

// buildRecord walks the declared field order over the tokens. A short
// token list is padded with "-" and a long one truncated: salvage over
// rejection.
func (s *IISSource) buildRecord(line string, tokens []string) *Record {
	for len(tokens) < len(s.fields) {
		tokens = append(tokens, absentToken)
	}
	tokens = tokens[:len(s.fields)]

	iis := &IISRecord{RawLine: line}
	for i, name := range s.fields {
		s.setField(iis, name, tokens[i])
	}
	iis.resolveDateTime()

	rec := &Record{
		Timestamp:  time.Now().UTC(),
		Source:     iis.ClientIPAddress,
		Message:    iisMessage(iis),
		RawData:    line,
		FilePath:   s.path,
		LineNumber: s.lineNum,
		IIS:        iis,
	}
	if iis.DateTime != nil {
		rec.Timestamp = *iis.DateTime
	}
	rec.Level = iisLevel(iis)
	rec.Level = level.Override(rec.Level, rec.Message, rec.RawData)
	return rec
}

// setField assigns one token to its declared field. Unrecognized field
// names are ignored for forward compatibility with unknown W3C extensions;
// numeric tokens that fail to parse are logged and left unset.
func (s *IISSource) setField(iis *IISRecord, name, token string) {
	if token == absentToken {
		return
	}

	switch name {
	case "date":
		iis.datePart = token
	case "time":
		iis.timePart = token
	case "c-ip":
		iis.ClientIPAddress = token
	case "cs-method":
		iis.Method = token
	case "cs-uri-stem":
		iis.UriStem = token
	case "cs-uri-query":
		iis.UriQuery = token
	case "sc-status":
		iis.HttpStatus = s.parseInt(name, token)
	case "sc-win32-status":
		iis.Win32Status = s.parseInt(name, token)
	case "sc-bytes":
		iis.BytesSent = s.parseInt64(name, token)
	case "cs-bytes":
		iis.BytesReceived = s.parseInt64(name, token)
	case "time-taken":
		iis.TimeTaken = s.parseInt64(name, token)
	case "cs(User-Agent)":
		iis.UserAgent = token
	case "s-ip":
		iis.ServerIPAddress = token
	case "s-port":
		iis.ServerPort = s.parseInt(name, token)
	}
}

func (s *IISSource) parseInt(field, token string) *int {
	n, err := strconv.Atoi(token)
	if err != nil {
		s.log.Warn("numeric field did not parse",
			zap.String("file", s.path),
			zap.Int("line", s.lineNum),
			zap.String("field", field),
			zap.String("token", token))
		return nil
	}
	return &n
}

func (s *IISSource) parseInt64(field, token string) *int64 {
	n, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		s.log.Warn("numeric field did not parse",
			zap.String("file", s.path),
			zap.Int("line", s.lineNum),
			zap.String("field", field),
			zap.String("token", token))
		return nil
	}
	return &n
}

// resolveDateTime combines the date and time halves into one UTC instant
// once both are known.
func (r *IISRecord) resolveDateTime() {
	if r.datePart == "" || r.timePart == "" {
		return
	}
	t, err := time.ParseInLocation("2006-01-02 15:04:05", r.datePart+" "+r.timePart, time.UTC)
	if err != nil {
		return
	}
	r.DateTime = &t
}

func iisMessage(iis *IISRecord) string {
	var b strings.Builder
	if iis.Method != "" {
		b.WriteString(iis.Method)
		b.WriteByte(' ')
	}
	b.WriteString(iis.UriStem)
	if iis.UriQuery != "" {
		b.WriteByte('?')
		b.WriteString(iis.UriQuery)
	}
	if iis.HttpStatus != nil {
		fmt.Fprintf(&b, " - Status: %d", *iis.HttpStatus)
	}
	if iis.TimeTaken != nil {
		fmt.Fprintf(&b, ", Time: %dms", *iis.TimeTaken)
	}
	return strings.TrimSpace(b.String())
}

func iisLevel(iis *IISRecord) level.Level {
	if iis.HttpStatus == nil {
		return level.Info
	}
	switch {
	case *iis.HttpStatus >= 500:
		return level.Error
	case *iis.HttpStatus >= 400:
		return level.Warning
	default:
		return level.Info
	}
}

// tokenizeIISLine splits on spaces but keeps quoted substrings atomic,
// since user-agent tokens contain embedded spaces. Quotes are stripped
// from the emitted token.
func tokenizeIISLine(line string) []string {
	var tokens []string
	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case c == ' ' && !inQuotes:
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		default:
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}
