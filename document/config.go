package document

import "log/slog"

// Config holds configuration for the Client.
type Config struct {
	// KeyAttribute is the partition key attribute of the document tables.
	// Default: "id"
	KeyAttribute string

	// VersionAttribute names the attribute used to track a document
	// version for optimistic locking. Empty disables version tracking,
	// which makes advanced-path writes last-write-wins.
	VersionAttribute string

	// MaxRMWAttempts caps how many times an advanced-path write is
	// retried after losing a version race. Only used when
	// VersionAttribute is set.
	// Default: 3
	MaxRMWAttempts int

	// ConsistentReads makes reads strongly consistent by default.
	// Individual reads can override this via ReadOptions.
	ConsistentReads bool

	// RateLimit caps request throughput in requests per second.
	// Zero or negative means unlimited.
	RateLimit float64

	// Logger receives debug traces of path planning and write retries.
	// Default: slog.Default()
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		KeyAttribute:   "id",
		MaxRMWAttempts: 3,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.KeyAttribute == "" {
		c.KeyAttribute = "id"
	}
	if c.MaxRMWAttempts < 1 {
		c.MaxRMWAttempts = 3
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
