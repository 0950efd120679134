package level

import (
	"regexp"
	"strings"
)

// Override escalation keywords, checked against the record text after a
// format-specific parser has built the record. The result token form
// (result: 'failed') wins over bare keywords when both appear.
var (
	resultTokenPattern = regexp.MustCompile(`(?i)result:\s*'(failed|successful|skipped)'`)

	overrideFailedPattern     = regexp.MustCompile(`(?i)\b(failed|error)\b`)
	overrideWarningPattern    = regexp.MustCompile(`(?i)\bwarning\b`)
	overrideSuccessfulPattern = regexp.MustCompile(`(?i)\b(successful|skipped)\b`)
)

// Override re-scans a freshly built record's message (falling back to the
// raw line) and escalates or sets the level from outcome keywords. An
// ERROR record is never downgraded to WARNING or INFO.
func Override(current Level, message, raw string) Level {
	text := message
	if text == "" {
		text = raw
	}
	if text == "" {
		return current
	}

	suggested, ok := overrideSuggestion(text)
	if !ok {
		return current
	}
	if rank(current) >= rank(Error) && rank(suggested) < rank(Error) {
		return current
	}
	if rank(suggested) > rank(current) || current == Unknown {
		return suggested
	}
	return current
}

func overrideSuggestion(text string) (Level, bool) {
	if m := resultTokenPattern.FindStringSubmatch(text); m != nil {
		if strings.EqualFold(m[1], "failed") {
			return Error, true
		}
		return Info, true
	}

	// Zero-count summaries stay INFO; the bare keyword scan must not
	// re-escalate what the exclusion rule suppressed.
	if zeroCountPattern.MatchString(text) {
		return Unknown, false
	}

	switch {
	case overrideFailedPattern.MatchString(text):
		return Error, true
	case overrideWarningPattern.MatchString(text):
		return Warning, true
	case overrideSuccessfulPattern.MatchString(text):
		return Info, true
	}
	return Unknown, false
}
