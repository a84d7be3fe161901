package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alanbriolat/clipbot"
	"github.com/alanbriolat/clipbot/async"
	"github.com/alanbriolat/clipbot/download"
	"github.com/alanbriolat/clipbot/generic"
	"github.com/alanbriolat/clipbot/internal/matcher"
	"github.com/alanbriolat/clipbot/providers"
	"github.com/alanbriolat/clipbot/util"
)

func main() {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := config.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = clipbot.WithLogger(ctx, logger)

	app := &cli.App{
		Name:      "clip-fetch",
		Usage:     "resolve links with the bot's strategies and save the media",
		ArgsUsage: "URL...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "target",
				Value: ".",
				Usage: "save downloaded media to `DIR`",
			},
			&cli.StringSliceFlag{
				Name:  "strategy",
				Usage: "strategy `NAME` to use, in order; repeat for more (default: all, by priority)",
			},
			&cli.BoolFlag{
				Name:  "inline",
				Usage: "resolve as an inline query would",
			},
			&cli.BoolFlag{
				Name:  "report-last-error",
				Usage: "report the last strategy failure instead of the first",
			},
			&cli.BoolFlag{
				Name:  "list",
				Usage: "list the available strategies and exit",
			},
		},
		Action: func(c *cli.Context) error {
			var registry clipbot.StrategyRegistry
			if err := providers.RegisterAll(&registry, download.NewClient()); err != nil {
				return err
			}
			if c.Bool("list") {
				for _, name := range registry.List() {
					fmt.Printf("%6d  %s\n", generic.Unwrap(registry.GetPriority(name)), name)
				}
				return nil
			}
			mode := clipbot.ModeDirect
			if c.Bool("inline") {
				mode = clipbot.ModeInline
			}
			f := fetcher{
				strategies: c.StringSlice("strategy"),
				options: clipbot.ChainOptions{
					StrategyTimeout: clipbot.DefaultConfig.StrategyTimeout,
					ReportLast:      c.Bool("report-last-error"),
				},
				mode:   mode,
				target: c.String("target"),
			}
			for _, source := range c.Args().Slice() {
				if err := f.fetch(ctx, source); err != nil {
					return err
				}
			}
			return nil
		},
		HideHelpCommand: true,
	}

	result := async.Run(func() error { return app.Run(os.Args) })

	select {
	case err = <-result:
		if err != nil {
			logger.Fatal(err.Error())
		}
	case <-ctx.Done():
		logger.Error(ctx.Err().Error())
		stop()
	}
}

type fetcher struct {
	strategies []string
	options    clipbot.ChainOptions
	mode       clipbot.Mode
	target     string
}

func (f *fetcher) fetch(ctx context.Context, source string) error {
	logger := clipbot.Logger(ctx).Sugar()

	// A fresh client per source, so the progress bar belongs to this download
	bar := progressbar.DefaultBytes(-1, "downloading")
	defer bar.Close()
	client := download.NewClient().
		WithMaxBytes(clipbot.DefaultConfig.MaxDownloadBytes).
		WithProgress(func(downloaded int64, expected int64) {
			if expected > 0 && bar.GetMax64() != expected {
				bar.ChangeMax64(expected)
			}
			generic.Unwrap_(bar.Set64(downloaded))
		})

	var registry clipbot.StrategyRegistry
	if err := providers.RegisterAll(&registry, client); err != nil {
		return err
	}
	chain, err := registry.Chain(f.strategies, f.options)
	if err != nil {
		return err
	}

	req := matcher.New(client, 0).Request(ctx, source, f.mode)
	logger.Infof("Resolving %s into %s", req.URL, f.target)
	result, err := chain.Resolve(ctx, req)
	if err != nil {
		return fmt.Errorf("resolve failed: %w", err)
	}
	logger.Infof("Resolved %v", result)

	paths, err := save(ctx, client, f.target, req.Fingerprint[:12], result)
	for _, p := range paths {
		logger.Infof("Saved %s", p)
	}
	return err
}

// save writes result into dir, naming files after prefix, and returns the paths written.
func save(ctx context.Context, client *download.Client, dir string, prefix string, result clipbot.MediaResult) ([]string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}
	type file struct {
		name string
		data []byte
	}
	var files []file
	switch result.Kind {
	case clipbot.MediaKindVideo:
		files = append(files, file{prefix + ".mp4", result.Video})
	case clipbot.MediaKindPhoto:
		for i, p := range result.Photos {
			files = append(files, file{fmt.Sprintf("%s_%d.jpg", prefix, i+1), p})
		}
	case clipbot.MediaKindPhotoURL:
		for i, u := range result.PhotoURLs {
			data, err := client.Bytes(ctx, u)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch %s: %w", u, err)
			}
			name := util.MediaFilename(u, fmt.Sprintf("%d.jpg", i+1))
			files = append(files, file{prefix + "_" + name, data})
		}
	default:
		return nil, clipbot.ErrInvalidResult
	}

	var paths []string
	for _, f := range files {
		p := filepath.Join(dir, f.name)
		if err := os.WriteFile(p, f.data, 0640); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}
