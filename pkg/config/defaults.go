package config

// Default values for configuration.
const (
	DefaultSampleLines   = 10
	DefaultMinMatchRatio = 0.10
	DefaultBatchSize     = 1000
	DefaultMaxLineBytes  = 1024 * 1024

	MinBatchSize = 10
	MaxBatchSize = 10000
)

// Environment variable names.
const (
	EnvBatchSize = "LOGSIFT_BATCH_SIZE"
	EnvWorkers   = "LOGSIFT_WORKERS"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Detection: DetectionConfig{
			SampleLines:   DefaultSampleLines,
			MinMatchRatio: DefaultMinMatchRatio,
		},
		Parsing: ParsingConfig{
			BatchSize:    DefaultBatchSize,
			MaxLineBytes: DefaultMaxLineBytes,
		},
	}
}
