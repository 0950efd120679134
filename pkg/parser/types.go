// Package parser turns raw log files into normalized structured records.
// Each supported format has its own streaming Source; all of them emit the
// same Record envelope with format-specific detail attached.
package parser

import (
	"time"

	"github.com/logsift/logsift/pkg/level"
)

// Record is the unified log record every parser emits.
type Record struct {
	// Timestamp is the parsed event time. When the source timestamp
	// cannot be parsed this falls back to the time of parsing, never to
	// a zero value; callers must not assume ordering for those.
	Timestamp time.Time

	// Level is always a member of the closed severity set.
	Level level.Level

	// Source identifies the emitting component (logger name, client IP,
	// node) when the format carries one.
	Source string

	// Message is the normalized message text.
	Message string

	// RawData preserves the original line byte-for-byte for diagnostics.
	RawData string

	// FilePath is the file this record came from. Always set.
	FilePath string

	// LineNumber is the 1-based line number in the source file.
	LineNumber int

	// Optional fields, populated when the format provides them.
	CorrelationID  string
	ErrorType      string
	StackTrace     string
	Recommendation string

	// Format-specific detail. At most one of these is non-nil.
	IIS      *IISRecord
	RabbitMQ *RabbitMQRecord
	Log4Net  *Log4NetRecord
}

// IISRecord is a W3C extended log entry built field-by-field from a
// declared or inferred column order. Numeric fields stay nil when the
// source token was absent or unparsable.
type IISRecord struct {
	DateTime        *time.Time
	ClientIPAddress string
	Method          string
	UriStem         string
	UriQuery        string
	HttpStatus      *int
	Win32Status     *int
	BytesSent       *int64
	BytesReceived   *int64
	TimeTaken       *int64
	UserAgent       string
	ServerIPAddress string
	ServerPort      *int
	RawLine         string

	// date/time halves held until both resolve
	datePart string
	timePart string
}

// RabbitMQShape discriminates the two physical shapes a RabbitMQ JSON
// element can take.
type RabbitMQShape int

const (
	// RabbitMQFlatShape is the plain record shape with top-level fields.
	RabbitMQFlatShape RabbitMQShape = iota
	// RabbitMQFaultEnvelope is the nested fault-reporting shape carrying
	// its metadata under a headers object.
	RabbitMQFaultEnvelope
)

// RabbitMQRecord is a tagged union over the two shapes with one logical
// view exposed through the Effective accessors.
type RabbitMQRecord struct {
	Shape   RabbitMQShape
	Flat    *RabbitMQFlat
	Fault   *RabbitMQFault
	RawJSON string
}

// RabbitMQFlat is the plain shape payload.
type RabbitMQFlat struct {
	Timestamp time.Time
	Level     string
	Node      string
	Message   string
}

// RabbitMQFault is the fault-envelope payload extracted from the nested
// headers object.
type RabbitMQFault struct {
	Timestamp  time.Time
	Level      level.Level
	Message    string
	UserName   string
	Node       string
	ProcessUID string
}

// EffectiveTimestamp resolves the timestamp regardless of shape.
func (r *RabbitMQRecord) EffectiveTimestamp() time.Time {
	switch r.Shape {
	case RabbitMQFaultEnvelope:
		return r.Fault.Timestamp
	default:
		return r.Flat.Timestamp
	}
}

// EffectiveLevel resolves the level string regardless of shape. Flat
// records report the source's level token verbatim.
func (r *RabbitMQRecord) EffectiveLevel() string {
	switch r.Shape {
	case RabbitMQFaultEnvelope:
		return string(r.Fault.Level)
	default:
		return r.Flat.Level
	}
}

// EffectiveMessage resolves the message regardless of shape.
func (r *RabbitMQRecord) EffectiveMessage() string {
	switch r.Shape {
	case RabbitMQFaultEnvelope:
		return r.Fault.Message
	default:
		return r.Flat.Message
	}
}

// EffectiveUserName resolves the user name; empty for flat records.
func (r *RabbitMQRecord) EffectiveUserName() string {
	if r.Shape == RabbitMQFaultEnvelope {
		return r.Fault.UserName
	}
	return ""
}

// EffectiveNode resolves the node name regardless of shape.
func (r *RabbitMQRecord) EffectiveNode() string {
	switch r.Shape {
	case RabbitMQFaultEnvelope:
		return r.Fault.Node
	default:
		return r.Flat.Node
	}
}

// EffectiveProcessUID resolves the process UID; empty for flat records.
func (r *RabbitMQRecord) EffectiveProcessUID() string {
	if r.Shape == RabbitMQFaultEnvelope {
		return r.Fault.ProcessUID
	}
	return ""
}

// Log4NetRecord is a Log4Net entry. Message spans physical lines when the
// source entry carried continuation lines (stack traces).
type Log4NetRecord struct {
	Date    time.Time
	Thread  string
	Level   string
	Logger  string
	Message string
	Host    string
	Site    string
	User    string
}
