// Package config defines service configuration structures and loading hooks.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFile optionally tees logs to a rotated file.
	LogFile string `koanf:"log_file"`

	// Addr configures the ops HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DataFile is the path of the persisted account record.
	DataFile string `koanf:"data_file"`

	// MaxItemsPerBatch triggers a flush once this many rewards are pending.
	MaxItemsPerBatch int `koanf:"max_items_per_batch"`

	// MaxBatchIntervalMS triggers a flush after this much idle time.
	MaxBatchIntervalMS int `koanf:"max_batch_interval_ms"`

	// LatencyMinMS and LatencyMaxMS bound the simulated round-trip delay.
	LatencyMinMS int `koanf:"latency_min_ms"`
	LatencyMaxMS int `koanf:"latency_max_ms"`

	// MinScore and MaxScore are the hard accept bounds for a single reward.
	MinScore int64 `koanf:"min_score"`
	MaxScore int64 `koanf:"max_score"`

	// AbnormalScoreThreshold flags in-range scores above it for audit.
	AbnormalScoreThreshold int64 `koanf:"abnormal_score_threshold"`

	// ResetWindowMinutes is the session expiry window.
	ResetWindowMinutes int `koanf:"reset_window_minutes"`

	// BallAllowance is the ball count granted by a hard reset.
	BallAllowance int64 `koanf:"ball_allowance"`

	// DedupeMaxSize bounds the in-memory processed-id set; zero keeps it
	// unbounded.
	DedupeMaxSize int `koanf:"dedupe_max_size"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFile:                "",
		Addr:                   ":9080",
		DataFile:               "player_data.json",
		MaxItemsPerBatch:       20,
		MaxBatchIntervalMS:     2000,
		LatencyMinMS:           80,
		LatencyMaxMS:           250,
		MinScore:               1,
		MaxScore:               10000,
		AbnormalScoreThreshold: 1000,
		ResetWindowMinutes:     15,
		BallAllowance:          50,
		DedupeMaxSize:          0,
	}
}
