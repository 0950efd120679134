package level

import (
	"regexp"
	"sort"
	"strings"
)

// Strategy is one rule in the detection chain. Detect returns the level
// and true when the rule is definitive, or false to pass the text on to
// the next rule.
type Strategy interface {
	// Priority orders strategies in the chain; lower runs first.
	Priority() int

	// Detect inspects the message (and the raw line as fallback context)
	// and returns a definitive level, or false to continue the chain.
	Detect(message, raw string) (Level, bool)
}

// Chain evaluates strategies in priority order until one is definitive.
type Chain struct {
	strategies []Strategy
}

// ChainOption configures the detection chain.
type ChainOption func(*chainConfig)

type chainConfig struct {
	extraErrorTerms   []string
	extraWarningTerms []string
	extraStrategies   []Strategy
}

// WithErrorKeywords adds custom error-indicating terms to the keyword rule.
func WithErrorKeywords(terms []string) ChainOption {
	return func(c *chainConfig) {
		c.extraErrorTerms = append(c.extraErrorTerms, terms...)
	}
}

// WithWarningKeywords adds custom warning-indicating terms to the keyword rule.
func WithWarningKeywords(terms []string) ChainOption {
	return func(c *chainConfig) {
		c.extraWarningTerms = append(c.extraWarningTerms, terms...)
	}
}

// WithStrategy inserts an additional strategy; its Priority decides where
// it runs relative to the built-in rules.
func WithStrategy(s Strategy) ChainOption {
	return func(c *chainConfig) {
		c.extraStrategies = append(c.extraStrategies, s)
	}
}

// NewChain builds the default chain: false-positive exclusion, explicit
// level token, keyword inference. Strategies are sorted once here.
func NewChain(opts ...ChainOption) *Chain {
	cfg := &chainConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	strategies := []Strategy{
		&falsePositiveRule{},
		&explicitTokenRule{},
		newKeywordRule(cfg.extraErrorTerms, cfg.extraWarningTerms),
	}
	strategies = append(strategies, cfg.extraStrategies...)

	sort.SliceStable(strategies, func(i, j int) bool {
		return strategies[i].Priority() < strategies[j].Priority()
	})

	return &Chain{strategies: strategies}
}

// Detect runs the chain over the message, falling back to the raw line
// when the message is empty. Defaults to INFO when no rule fires.
func (c *Chain) Detect(message, raw string) Level {
	if message == "" {
		message = raw
	}
	for _, s := range c.strategies {
		if lvl, ok := s.Detect(message, raw); ok {
			return lvl
		}
	}
	return Info
}

// falsePositiveRule forces INFO for build/test summaries like
// "0 Errors, 0 Warnings" before any keyword rule can see them.
type falsePositiveRule struct{}

var zeroCountPattern = regexp.MustCompile(`(?i)\b0\s+(errors?|warnings?)\b`)

func (*falsePositiveRule) Priority() int { return 1 }

func (*falsePositiveRule) Detect(message, raw string) (Level, bool) {
	if zeroCountPattern.MatchString(message) || zeroCountPattern.MatchString(raw) {
		return Info, true
	}
	return Unknown, false
}

// explicitTokenRule honors a level the source stated itself.
type explicitTokenRule struct{}

var explicitTokenPattern = regexp.MustCompile(`(?i)\b(INFO|ERROR|WARNING|DEBUG|TRACE|CRITICAL|VERBOSE)\b`)

func (*explicitTokenRule) Priority() int { return 5 }

func (*explicitTokenRule) Detect(message, _ string) (Level, bool) {
	m := explicitTokenPattern.FindStringSubmatch(message)
	if m == nil {
		return Unknown, false
	}
	return FromToken(strings.ToUpper(m[1]))
}

// keywordRule infers a level from error/warning vocabulary. Terms are
// matched in singular form only: "errors" and "warnings" usually report
// counts, not an active condition.
type keywordRule struct {
	errorPattern   *regexp.Regexp
	warningPattern *regexp.Regexp
	debugPattern   *regexp.Regexp
	tracePattern   *regexp.Regexp
}

var defaultErrorTerms = []string{
	"error", "exception", "failed", "failure", "critical", "fatal",
	"not found", "access denied", "stack trace", "invalid name",
	"unhandled", "timeout", "refused",
}

var defaultWarningTerms = []string{"warning", "warn"}

func newKeywordRule(extraError, extraWarning []string) *keywordRule {
	return &keywordRule{
		errorPattern:   termPattern(append(append([]string{}, defaultErrorTerms...), extraError...)),
		warningPattern: termPattern(append(append([]string{}, defaultWarningTerms...), extraWarning...)),
		debugPattern:   termPattern([]string{"debug"}),
		tracePattern:   termPattern([]string{"trace"}),
	}
}

// termPattern compiles a case-insensitive word-boundary alternation.
// Multi-word terms keep their internal spaces.
func termPattern(terms []string) *regexp.Regexp {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
}

func (r *keywordRule) Priority() int { return 10 }

func (r *keywordRule) Detect(message, _ string) (Level, bool) {
	switch {
	case r.errorPattern.MatchString(message):
		return Error, true
	case r.warningPattern.MatchString(message):
		return Warning, true
	case r.debugPattern.MatchString(message):
		return Debug, true
	case r.tracePattern.MatchString(message):
		return Trace, true
	}
	return Info, true
}
