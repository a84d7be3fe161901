package clipbot

import (
	"errors"
	"fmt"
	"time"
)

const MiB = 1 << 20

// Config is the complete runtime configuration of the bot.
type Config struct {
	TelegramToken string

	// Content cache (bbolt file) and how long entries live.
	CachePath          string
	CacheTTL           time.Duration
	CachePurgeInterval time.Duration

	// Job statistics (sqlite file); empty disables statistics.
	StatsPath string

	// Largest video that will be delivered; anything bigger gets a "too large" notice.
	MaxVideoBytes int64
	// Largest response body a provider may download into memory.
	MaxDownloadBytes int64

	// Strategy names in the order to try them; empty means every registered strategy by priority.
	Strategies      []string
	StrategyTimeout time.Duration
	// Surface the last strategy failure to users instead of the first.
	ReportLastError bool

	DirectTimeout  time.Duration
	ExpandTimeout  time.Duration
	RequestTimeout time.Duration
	TypingInterval time.Duration
	MaxConcurrent  int
	UserAgent      string

	JobWorkers   int
	JobQueueSize int
	JobTimeout   time.Duration
	// How long an inline query may spend expanding a short link before answering.
	InlineExpandTimeout time.Duration
}

var DefaultConfig = Config{
	CachePath:           "cache.db",
	CacheTTL:            30 * 24 * time.Hour,
	CachePurgeInterval:  24 * time.Hour,
	StatsPath:           "stats.db",
	MaxVideoBytes:       49 * MiB,
	MaxDownloadBytes:    200 * MiB,
	StrategyTimeout:     30 * time.Second,
	DirectTimeout:       40 * time.Second,
	ExpandTimeout:       10 * time.Second,
	RequestTimeout:      20 * time.Second,
	TypingInterval:      4 * time.Second,
	MaxConcurrent:       8,
	JobWorkers:          4,
	JobQueueSize:        64,
	JobTimeout:          2 * time.Minute,
	InlineExpandTimeout: 3 * time.Second,
}

var ErrInvalidConfig = errors.New("invalid configuration")

func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case c.CachePath == "":
		return invalid("cache path is required")
	case c.CacheTTL <= 0:
		return invalid("cache TTL must be positive, got %v", c.CacheTTL)
	case c.MaxVideoBytes <= 0:
		return invalid("max video size must be positive")
	case c.MaxDownloadBytes < c.MaxVideoBytes:
		return invalid("max download size (%d) must be at least max video size (%d)", c.MaxDownloadBytes, c.MaxVideoBytes)
	case c.DirectTimeout <= 0 || c.JobTimeout <= 0:
		return invalid("resolution timeouts must be positive")
	case c.TypingInterval <= 0:
		return invalid("typing interval must be positive")
	case c.MaxConcurrent < 1 || c.JobWorkers < 1:
		return invalid("concurrency limits must be at least 1")
	case c.JobQueueSize < 0:
		return invalid("job queue size must not be negative")
	}
	return nil
}

// ChainOptions derives the resolution chain options.
func (c *Config) ChainOptions() ChainOptions {
	return ChainOptions{
		StrategyTimeout: c.StrategyTimeout,
		ReportLast:      c.ReportLastError,
	}
}
