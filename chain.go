package clipbot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/alanbriolat/clipbot/async"
)

type ChainOptions struct {
	// Timeout applied to each strategy attempt independently; zero means only the caller's deadline applies.
	StrategyTimeout time.Duration
	// Surface the last failure instead of the first one when the chain is exhausted.
	ReportLast bool
}

var DefaultChainOptions = ChainOptions{
	StrategyTimeout: 30 * time.Second,
}

// A Chain tries strategies in a fixed order until one succeeds.
type Chain struct {
	strategies []Strategy
	opts       ChainOptions
}

func NewChain(strategies []Strategy, opts ChainOptions) *Chain {
	return &Chain{
		strategies: append([]Strategy(nil), strategies...),
		opts:       opts,
	}
}

// Names returns the strategy names in the order they are tried.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.strategies))
	for _, s := range c.strategies {
		names = append(names, s.Name)
	}
	return names
}

// Resolve returns the result of the first strategy to succeed. Strategies after it are never invoked. If every
// strategy skips or fails, the error is a *ChainExhaustedError; if ctx's deadline passes first, it is ErrTimeout.
func (c *Chain) Resolve(ctx context.Context, req Request) (MediaResult, error) {
	log := Logger(ctx).Sugar().Named("chain").With("url", req.URL, "mode", req.Mode.String())

	var reported error
	var all error
	for _, s := range c.strategies {
		if ctx.Err() != nil {
			return MediaResult{}, c.interrupted(ctx, log, all)
		}
		start := time.Now()
		outcome := c.attempt(ctx, s, req)
		switch {
		case outcome.IsSuccess():
			log.Infow("resolved", "strategy", s.Name, "result", outcome.Result().String(), "elapsed", time.Since(start))
			return outcome.Result(), nil
		case outcome.IsSkip():
			log.Debugw("skipped", "strategy", s.Name)
		default:
			log.Warnw("strategy failed", "strategy", s.Name, "error", outcome.Err(), "elapsed", time.Since(start))
			if reported == nil || c.opts.ReportLast {
				reported = fmt.Errorf("%s: %w", s.Name, outcome.Err())
			}
			all = multierror.Append(all, multierror.Prefix(outcome.Err(), fmt.Sprintf("[%v]", s.Name)))
		}
	}
	if ctx.Err() != nil {
		return MediaResult{}, c.interrupted(ctx, log, all)
	}
	if reported == nil {
		reported = ErrNoStrategy
	}
	log.Warnw("chain exhausted", "errors", all)
	return MediaResult{}, &ChainExhaustedError{First: reported, All: all}
}

func (c *Chain) interrupted(ctx context.Context, log *zap.SugaredLogger, all error) error {
	log.Warnw("resolution interrupted", "cause", ctx.Err(), "errors", all)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ctx.Err()
}

// attempt runs one strategy in its own goroutine, so that an extractor ignoring its context still can't hold the
// chain past the strategy timeout. Panics and malformed results become failures.
func (c *Chain) attempt(ctx context.Context, s Strategy, req Request) Outcome {
	if c.opts.StrategyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.StrategyTimeout)
		defer cancel()
	}
	result := async.Run(func() (o Outcome) {
		defer func() {
			if r := recover(); r != nil {
				o = Fail(fmt.Errorf("panic: %v", r))
			}
		}()
		return s.Extractor.Extract(ctx, req)
	})

	var o Outcome
	select {
	case o = <-result:
	case <-ctx.Done():
		select {
		case o = <-result:
		default:
			return Fail(ctx.Err())
		}
	}
	if o.IsSuccess() {
		if err := o.Result().Validate(); err != nil {
			return Fail(err)
		}
	}
	return o
}
