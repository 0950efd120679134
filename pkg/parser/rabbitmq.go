package parser

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/logsift/logsift/pkg/level"
)

// RabbitMQSource parses a RabbitMQ JSON log document. The document is
// decoded up front, but array elements are walked lazily so very large
// arrays never materialize as records all at once. Each element is tried
// against the flat shape first, then against the fault-envelope shape.
type RabbitMQSource struct {
	log    *zap.Logger
	levels *level.Chain
	path   string

	parser   fastjson.Parser
	elements []*fastjson.Value
	index    int
	done     bool
}

// RabbitMQOption configures a RabbitMQSource.
type RabbitMQOption func(*RabbitMQSource)

// WithRabbitMQLogger sets the diagnostic logger.
func WithRabbitMQLogger(log *zap.Logger) RabbitMQOption {
	return func(s *RabbitMQSource) { s.log = log }
}

// WithRabbitMQLevelChain replaces the default level-detection chain.
func WithRabbitMQLevelChain(c *level.Chain) RabbitMQOption {
	return func(s *RabbitMQSource) { s.levels = c }
}

// NewRabbitMQSource reads and decodes the document at path. A document
// that fails to decode yields zero records and a warning, not an error;
// only the file read itself can fail.
func NewRabbitMQSource(path string, opts ...RabbitMQOption) (*RabbitMQSource, error) {
	s := &RabbitMQSource{
		log:    zap.NewNop(),
		levels: level.NewChain(),
		path:   path,
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	root, err := s.parser.ParseBytes(data)
	if err != nil {
		s.log.Warn("JSON document did not decode, yielding zero records",
			zap.String("file", path), zap.Error(err))
		s.done = true
		return s, nil
	}

	switch root.Type() {
	case fastjson.TypeArray:
		arr, _ := root.Array()
		s.elements = arr
	case fastjson.TypeObject:
		s.elements = []*fastjson.Value{root}
	default:
		s.log.Warn("JSON root is neither array nor object, yielding zero records",
			zap.String("file", path), zap.Stringer("type", root.Type()))
		s.done = true
	}

	return s, nil
}

// Next returns the next record, skipping elements that match neither
// shape. Cancellation is checked once per element.
func (s *RabbitMQSource) Next(ctx context.Context) (*Record, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if s.done || s.index >= len(s.elements) {
			return nil, io.EOF
		}

		elem := s.elements[s.index]
		s.index++

		rec := s.parseElement(elem, s.index)
		if rec == nil {
			s.log.Debug("element matched neither record shape, skipped",
				zap.String("file", s.path), zap.Int("element", s.index))
			continue
		}
		return rec, nil
	}
}

// Close releases nothing; the document was read eagerly.
func (s *RabbitMQSource) Close() error { return nil }

// parseElement tries the flat shape, then the fault envelope. ordinal is
// the 1-based element position, reported as the line number.
func (s *RabbitMQSource) parseElement(elem *fastjson.Value, ordinal int) *Record {
	if elem.Type() != fastjson.TypeObject {
		return nil
	}
	raw := elem.String()

	if flat := parseFlatShape(elem); flat != nil {
		rec := &Record{
			Timestamp:  flat.Timestamp,
			Source:     flat.Node,
			Message:    flat.Message,
			RawData:    raw,
			FilePath:   s.path,
			LineNumber: ordinal,
			RabbitMQ: &RabbitMQRecord{
				Shape:   RabbitMQFlatShape,
				Flat:    flat,
				RawJSON: raw,
			},
		}
		if lvl, ok := level.FromToken(strings.ToUpper(flat.Level)); ok {
			rec.Level = lvl
		} else {
			rec.Level = s.levels.Detect(rec.Message, rec.RawData)
		}
		rec.Level = level.Override(rec.Level, rec.Message, rec.RawData)
		return rec
	}

	if fault := parseFaultShape(elem); fault != nil {
		return buildFaultRecord(s.path, elem, elem.Get("headers"), fault, ordinal, raw)
	}

	return nil
}

// buildFaultRecord wraps a fault payload in the unified record envelope.
func buildFaultRecord(path string, elem, headers *fastjson.Value, fault *RabbitMQFault, ordinal int, raw string) *Record {
	rec := &Record{
		Timestamp:  fault.Timestamp,
		Level:      fault.Level,
		Source:     fault.Node,
		Message:    fault.Message,
		RawData:    raw,
		FilePath:   path,
		LineNumber: ordinal,
		RabbitMQ: &RabbitMQRecord{
			Shape:   RabbitMQFaultEnvelope,
			Fault:   fault,
			RawJSON: raw,
		},
	}
	rec.CorrelationID = jsonString(elem, "message_id")
	if rec.CorrelationID == "" {
		rec.CorrelationID = jsonString(elem, "correlation_id")
	}
	rec.ErrorType = jsonString(headers, "MT-Fault-ExceptionType")
	rec.StackTrace = jsonString(headers, "MT-Fault-StackTrace")
	rec.Level = level.Override(rec.Level, rec.Message, rec.RawData)
	return rec
}

// parseFlatShape builds the plain payload. The flat shape requires a
// timestamp property.
func parseFlatShape(elem *fastjson.Value) *RabbitMQFlat {
	if !elem.Exists("timestamp") {
		return nil
	}

	msg := jsonString(elem, "msg")
	if msg == "" {
		msg = jsonString(elem, "message")
	}

	return &RabbitMQFlat{
		Timestamp: parseJSONTimestamp(elem.Get("timestamp")),
		Level:     jsonString(elem, "level"),
		Node:      jsonString(elem, "node"),
		Message:   msg,
	}
}

// parseFaultShape builds the fault-envelope payload from the nested
// headers object. Level is ERROR exactly when MT-Reason is "fault".
// Queue, format, process, server, and consumer diagnostics are appended
// to the message body for visibility.
func parseFaultShape(elem *fastjson.Value) *RabbitMQFault {
	return parseFaultFromHeaders(elem, elem.Get("headers"))
}

// parseFaultFromHeaders builds the fault payload from an element and its
// headers object, which may live in the element itself or in a paired
// headers file.
func parseFaultFromHeaders(elem, headers *fastjson.Value) *RabbitMQFault {
	if headers == nil || headers.Type() != fastjson.TypeObject {
		return nil
	}

	ts := headers.Get("MT-Fault-Timestamp")
	if ts == nil {
		ts = headers.Get("timestamp")
	}
	if ts == nil {
		ts = elem.Get("timestamp")
	}

	lvl := level.Info
	if jsonString(headers, "MT-Reason") == "fault" {
		lvl = level.Error
	}

	body := jsonString(headers, "MT-Fault-Message")
	if body == "" {
		if body = jsonString(elem, "message"); body == "" {
			body = jsonString(elem, "msg")
		}
	}
	var msg strings.Builder
	msg.WriteString(body)

	appendDiag := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&msg, "\n%s: %s", label, value)
		}
	}
	appendDiag("Queue", jsonString(elem, "queue"))
	appendDiag("Format", jsonString(elem, "format"))
	appendDiag("Process", jsonString(headers, "MT-Host-ProcessName"))
	appendDiag("Server", jsonString(headers, "MT-Host-MachineName"))
	appendDiag("Consumer", jsonString(headers, "MT-Fault-ConsumerType"))

	userName := jsonString(headers, "MT-Fault-UserName")
	if userName == "" {
		userName = jsonString(elem, "user")
	}

	node := jsonString(headers, "MT-Host-MachineName")
	if node == "" {
		node = jsonString(elem, "node")
	}

	processUID := jsonString(headers, "MT-Host-ProcessId")
	if processUID == "" {
		processUID = jsonString(elem, "pid")
	}

	return &RabbitMQFault{
		Timestamp:  parseJSONTimestamp(ts),
		Level:      lvl,
		Message:    msg.String(),
		UserName:   userName,
		Node:       node,
		ProcessUID: processUID,
	}
}

// jsonString reads a string property, tolerating a nil container.
func jsonString(v *fastjson.Value, key string) string {
	if v == nil {
		return ""
	}
	return string(v.GetStringBytes(key))
}

// parseJSONTimestamp accepts RFC 3339 strings and Unix second or
// millisecond numbers, falling back to "now" so records never carry a
// zero time.
func parseJSONTimestamp(v *fastjson.Value) time.Time {
	if v == nil {
		return time.Now().UTC()
	}

	switch v.Type() {
	case fastjson.TypeString:
		s := string(v.GetStringBytes())
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	case fastjson.TypeNumber:
		n, err := v.Int64()
		if err == nil && n > 0 {
			if n > 1e12 { // millisecond precision
				return time.UnixMilli(n).UTC()
			}
			return time.Unix(n, 0).UTC()
		}
	}

	return time.Now().UTC()
}
