// Package config provides configuration loading and validation for logsift.
package config

// Config is the top-level configuration.
type Config struct {
	// Detection tunes the format detector.
	Detection DetectionConfig `yaml:"detection"`

	// Parsing tunes the per-file parsers.
	Parsing ParsingConfig `yaml:"parsing"`

	// Levels customizes the level-detection keyword vocabulary.
	Levels LevelsConfig `yaml:"levels"`

	// Workers bounds concurrent file parses. 0 means one per CPU.
	Workers int `yaml:"workers"`
}

// DetectionConfig tunes format detection sampling.
type DetectionConfig struct {
	// SampleLines is how many lines the detector reads when sniffing
	// header markers and timestamp shapes.
	SampleLines int `yaml:"sample_lines"`

	// MinMatchRatio is the fraction of sampled lines that must carry the
	// comma-millisecond timestamp prefix for a Log4Net classification.
	MinMatchRatio float64 `yaml:"min_match_ratio"`
}

// ParsingConfig tunes the streaming parsers.
type ParsingConfig struct {
	// BatchSize groups records into bounded chunks for batch consumers.
	// Clamped to [10, 10000].
	BatchSize int `yaml:"batch_size"`

	// MaxLineBytes caps the scanner buffer for a single line.
	MaxLineBytes int `yaml:"max_line_bytes"`
}

// LevelsConfig extends the built-in level keyword vocabulary.
type LevelsConfig struct {
	// ErrorKeywords are additional terms that classify a line as ERROR.
	ErrorKeywords []string `yaml:"error_keywords"`

	// WarningKeywords are additional terms that classify a line as WARNING.
	WarningKeywords []string `yaml:"warning_keywords"`
}
