// Package level classifies log text into severity levels using an ordered
// chain of detection strategies.
package level

// Level is the closed set of severities a record can carry.
type Level string

const (
	Error      Level = "ERROR"
	Warning    Level = "WARNING"
	Info       Level = "INFO"
	Debug      Level = "DEBUG"
	Trace      Level = "TRACE"
	Unknown    Level = "UNKNOWN"
	ParseError Level = "PARSE_ERROR"
)

// rank orders levels by severity for escalation decisions.
// Higher means more severe.
func rank(l Level) int {
	switch l {
	case Error, ParseError:
		return 4
	case Warning:
		return 3
	case Info:
		return 2
	case Debug:
		return 1
	case Trace:
		return 0
	default: // Unknown
		return -1
	}
}

// FromToken normalizes an explicit level token found in log text to a
// member of the closed set. CRITICAL folds into ERROR and VERBOSE into
// TRACE since the record model has no separate slot for them.
func FromToken(token string) (Level, bool) {
	switch token {
	case "ERROR":
		return Error, true
	case "CRITICAL", "FATAL":
		return Error, true
	case "WARNING", "WARN":
		return Warning, true
	case "INFO":
		return Info, true
	case "DEBUG":
		return Debug, true
	case "TRACE":
		return Trace, true
	case "VERBOSE":
		return Trace, true
	}
	return Unknown, false
}
