package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alanbriolat/clipbot"
	"github.com/alanbriolat/clipbot/async"
	"github.com/alanbriolat/clipbot/download"
	"github.com/alanbriolat/clipbot/internal/bot"
	"github.com/alanbriolat/clipbot/internal/cache"
	"github.com/alanbriolat/clipbot/internal/matcher"
	"github.com/alanbriolat/clipbot/internal/stats"
	"github.com/alanbriolat/clipbot/internal/telegram"
	"github.com/alanbriolat/clipbot/providers"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "clipbot",
		Usage: "Telegram bot that downloads short videos and photo posts",
		Flags: flags(),
		Before: func(c *cli.Context) error {
			return setupLogging(c.Bool("debug"))
		},
		Action: func(c *cli.Context) error {
			config, err := loadConfig(c)
			if err != nil {
				return err
			}
			return run(c.Context, config)
		},
		HideHelpCommand: true,
	}

	result := async.Run(func() error { return app.RunContext(ctx, os.Args) })

	select {
	case err := <-result:
		if err != nil {
			zap.L().Fatal(err.Error())
		}
	case <-ctx.Done():
		zap.L().Info("shutting down")
		stop()
		// Give in-flight work a chance to finish
		select {
		case err := <-result:
			if err != nil {
				zap.L().Error(err.Error())
			}
		case <-time.After(15 * time.Second):
			zap.L().Error("timed out waiting for shutdown")
		}
	}
	_ = zap.L().Sync()
}

func setupLogging(debug bool) error {
	var logger *zap.Logger
	var err error
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	zap.ReplaceGlobals(logger)
	zap.RedirectStdLog(logger)
	return tgbotapi.SetLogger(telegram.NewLogger())
}

func run(ctx context.Context, config clipbot.Config) error {
	logger := zap.S()

	contentCache, err := cache.Open(config.CachePath, cache.Options{TTL: config.CacheTTL})
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer contentCache.Close()

	var recorder bot.Recorder = bot.NilRecorder{}
	if config.StatsPath != "" {
		store, err := stats.Open(config.StatsPath)
		if err != nil {
			return fmt.Errorf("failed to open statistics: %w", err)
		}
		defer store.Close()
		recorder = store
	}

	client := download.NewClient().
		WithMaxBytes(config.MaxDownloadBytes).
		WithTimeout(config.RequestTimeout)
	if config.UserAgent != "" {
		client = client.WithUserAgent(config.UserAgent)
	}

	var registry clipbot.StrategyRegistry
	if err := providers.RegisterAll(&registry, client); err != nil {
		return err
	}
	chain, err := registry.Chain(config.Strategies, config.ChainOptions())
	if err != nil {
		return fmt.Errorf("available strategies are %v: %w", registry.List(), err)
	}
	logger.Infow("resolution chain", "strategies", chain.Names())

	api, err := tgbotapi.NewBotAPI(config.TelegramToken)
	if err != nil {
		return fmt.Errorf("failed to connect to Telegram: %w", err)
	}

	b := bot.New(config, api.Self.UserName, bot.Deps{
		Transport: telegram.NewTransport(api),
		Matcher:   matcher.New(client, config.ExpandTimeout),
		Resolver:  chain,
		Cache:     contentCache,
		Recorder:  recorder,
	})
	b.Start(ctx)
	defer b.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Nothing else is worth running once polling has stopped
		defer cancel()
		return telegram.Poll(ctx, api, b)
	})
	g.Go(func() error {
		purgeCache(ctx, contentCache, config.CachePurgeInterval)
		return nil
	})
	return g.Wait()
}

// purgeCache removes expired entries now, and then every interval until ctx is done.
func purgeCache(ctx context.Context, c *cache.Cache, interval time.Duration) {
	logger := zap.S().Named("cache")
	purge := func() {
		n, err := c.PurgeExpired(time.Now())
		if err != nil {
			logger.Warnw("failed to purge expired entries", "error", err)
			return
		}
		count, _ := c.Count()
		logger.Infow("purged expired entries", "removed", n, "remaining", count)
	}
	purge()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purge()
		}
	}
}
