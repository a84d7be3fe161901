package main

import (
	"time"

	"github.com/r3labs/diff/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/alanbriolat/clipbot"
)

func flags() []cli.Flag {
	d := clipbot.DefaultConfig
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "token",
			Usage:    "Telegram bot API `TOKEN`",
			EnvVars:  []string{"TELEGRAM_TOKEN", "TELEGRAM_BOT_TOKEN"},
			Required: true,
		},
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "enable debug logging",
			EnvVars: []string{"DEBUG"},
		},
		&cli.PathFlag{
			Name:    "cache",
			Value:   d.CachePath,
			Usage:   "content cache database `FILE`",
			EnvVars: []string{"CACHE_PATH"},
		},
		&cli.IntFlag{
			Name:    "cache-ttl-days",
			Value:   int(d.CacheTTL / (24 * time.Hour)),
			Usage:   "drop cached content after `DAYS`",
			EnvVars: []string{"CACHE_TTL_DAYS"},
		},
		&cli.DurationFlag{
			Name:    "cache-purge-interval",
			Value:   d.CachePurgeInterval,
			Usage:   "how often to purge expired cache entries",
			EnvVars: []string{"CACHE_PURGE_INTERVAL"},
		},
		&cli.PathFlag{
			Name:    "stats",
			Value:   d.StatsPath,
			Usage:   "statistics database `FILE`, empty to disable",
			EnvVars: []string{"STATS_PATH"},
		},
		&cli.Int64Flag{
			Name:    "max-mb",
			Value:   d.MaxVideoBytes / clipbot.MiB,
			Usage:   "largest video to deliver, in `MB`",
			EnvVars: []string{"MAX_MB"},
		},
		&cli.Int64Flag{
			Name:    "max-download-mb",
			Value:   d.MaxDownloadBytes / clipbot.MiB,
			Usage:   "largest response a strategy may download, in `MB`",
			EnvVars: []string{"MAX_DOWNLOAD_MB"},
		},
		&cli.StringSliceFlag{
			Name:    "strategy",
			Usage:   "strategy `NAME` to use, in order; repeat for more (default: all, by priority)",
			EnvVars: []string{"STRATEGIES"},
		},
		&cli.DurationFlag{
			Name:    "strategy-timeout",
			Value:   d.StrategyTimeout,
			Usage:   "time limit for a single strategy attempt",
			EnvVars: []string{"STRATEGY_TIMEOUT"},
		},
		&cli.BoolFlag{
			Name:    "report-last-error",
			Usage:   "show users the last strategy failure instead of the first",
			EnvVars: []string{"REPORT_LAST_ERROR"},
		},
		&cli.DurationFlag{
			Name:    "direct-timeout",
			Value:   d.DirectTimeout,
			Usage:   "time limit for resolving a link sent in a message",
			EnvVars: []string{"DIRECT_TIMEOUT"},
		},
		&cli.DurationFlag{
			Name:    "job-timeout",
			Value:   d.JobTimeout,
			Usage:   "time limit for a background inline job",
			EnvVars: []string{"JOB_TIMEOUT"},
		},
		&cli.IntFlag{
			Name:    "max-concurrent",
			Value:   d.MaxConcurrent,
			Usage:   "links resolved at once for direct messages",
			EnvVars: []string{"MAX_CONCURRENT"},
		},
		&cli.IntFlag{
			Name:    "workers",
			Value:   d.JobWorkers,
			Usage:   "background inline job workers",
			EnvVars: []string{"JOB_WORKERS"},
		},
		&cli.IntFlag{
			Name:    "queue-size",
			Value:   d.JobQueueSize,
			Usage:   "pending inline jobs before new ones are refused",
			EnvVars: []string{"JOB_QUEUE_SIZE"},
		},
		&cli.StringFlag{
			Name:    "user-agent",
			Usage:   "User-Agent for outgoing requests",
			EnvVars: []string{"USER_AGENT"},
		},
	}
}

// loadConfig builds the configuration from the defaults and parsed flags, and logs what differs from the defaults.
func loadConfig(c *cli.Context) (clipbot.Config, error) {
	config := clipbot.DefaultConfig
	config.TelegramToken = c.String("token")
	config.CachePath = c.Path("cache")
	config.CacheTTL = time.Duration(c.Int("cache-ttl-days")) * 24 * time.Hour
	config.CachePurgeInterval = c.Duration("cache-purge-interval")
	config.StatsPath = c.Path("stats")
	config.MaxVideoBytes = c.Int64("max-mb") * clipbot.MiB
	config.MaxDownloadBytes = max(c.Int64("max-download-mb")*clipbot.MiB, config.MaxVideoBytes)
	if names := c.StringSlice("strategy"); len(names) > 0 {
		config.Strategies = names
	}
	config.StrategyTimeout = c.Duration("strategy-timeout")
	config.ReportLastError = c.Bool("report-last-error")
	config.DirectTimeout = c.Duration("direct-timeout")
	config.JobTimeout = c.Duration("job-timeout")
	config.MaxConcurrent = c.Int("max-concurrent")
	config.JobWorkers = c.Int("workers")
	config.JobQueueSize = c.Int("queue-size")
	if ua := c.String("user-agent"); ua != "" {
		config.UserAgent = ua
	}
	if err := config.Validate(); err != nil {
		return config, err
	}

	log := zap.S().Named("config")
	changes, err := diff.Diff(clipbot.DefaultConfig, config)
	if err != nil {
		log.Warnw("failed to compare configuration with defaults", "error", err)
		return config, nil
	}
	for _, change := range changes {
		if len(change.Path) > 0 && change.Path[0] == "TelegramToken" {
			continue
		}
		log.Debugw("configuration override", "path", change.Path, "default", change.From, "value", change.To)
	}
	return config, nil
}
