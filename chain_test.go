package clipbot

import (
	"context"
	"errors"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"
)

type countingExtractor struct {
	calls   int
	outcome func() Outcome
}

func (e *countingExtractor) Extract(ctx context.Context, req Request) Outcome {
	e.calls++
	return e.outcome()
}

func fixed(o Outcome) *countingExtractor {
	return &countingExtractor{outcome: func() Outcome { return o }}
}

func testRequest() Request {
	return NewRequest("https://vm.tiktok.com/ZMabc123/", "https://www.tiktok.com/@user/video/123?is_from_webapp=1", ModeDirect)
}

func newTestChain(t *testing.T, opts ChainOptions, extractors ...Extractor) *Chain {
	var registry StrategyRegistry
	for i, e := range extractors {
		registry.MustCreatePriority(string(rune('a'+i)), e, int16(i))
	}
	chain, err := registry.Chain(nil, opts)
	require_.NoError(t, err)
	return chain
}

func TestChain_ShortCircuit(t *testing.T) {
	assert := assert_.New(t)

	s1 := fixed(Skip())
	s2 := fixed(Success(Video([]byte("X"))))
	s3 := fixed(Success(Video([]byte("Y"))))
	chain := newTestChain(t, DefaultChainOptions, s1, s2, s3)

	result, err := chain.Resolve(context.Background(), testRequest())
	assert.NoError(err)
	assert.Equal([]byte("X"), result.Video)
	assert.Equal(1, s1.calls)
	assert.Equal(1, s2.calls)
	assert.Equal(0, s3.calls, "strategies after a success must not run")
}

func TestChain_FirstErrorWins(t *testing.T) {
	assert := assert_.New(t)

	errA := errors.New("a")
	errB := errors.New("b")
	chain := newTestChain(t, DefaultChainOptions, fixed(Fail(errA)), fixed(Skip()), fixed(Fail(errB)))

	_, err := chain.Resolve(context.Background(), testRequest())
	assert.ErrorIs(err, ErrChainExhausted)
	assert.ErrorIs(err, errA)
	assert.NotErrorIs(err, errB)

	var exhausted *ChainExhaustedError
	require_.True(t, errors.As(err, &exhausted))
	assert.Contains(exhausted.All.Error(), "[a] a")
	assert.Contains(exhausted.All.Error(), "[c] b", "every failure is kept for diagnostics")
}

func TestChain_ReportLast(t *testing.T) {
	assert := assert_.New(t)

	errA := errors.New("a")
	errB := errors.New("b")
	opts := DefaultChainOptions
	opts.ReportLast = true
	chain := newTestChain(t, opts, fixed(Fail(errA)), fixed(Fail(errB)), fixed(Skip()))

	_, err := chain.Resolve(context.Background(), testRequest())
	assert.ErrorIs(err, errB)
}

func TestChain_AllSkip(t *testing.T) {
	assert := assert_.New(t)

	chain := newTestChain(t, DefaultChainOptions, fixed(Skip()), fixed(Skip()))
	_, err := chain.Resolve(context.Background(), testRequest())
	assert.ErrorIs(err, ErrChainExhausted)
	assert.ErrorIs(err, ErrNoStrategy)
}

func TestChain_SkipNotReported(t *testing.T) {
	assert := assert_.New(t)

	errB := errors.New("b")
	chain := newTestChain(t, DefaultChainOptions, fixed(Skip()), fixed(Fail(errB)))
	_, err := chain.Resolve(context.Background(), testRequest())
	assert.ErrorIs(err, errB)
	assert.Equal("b: b", err.Error())
}

func TestChain_PanicIsFailure(t *testing.T) {
	assert := assert_.New(t)

	panicky := ExtractorFunc(func(ctx context.Context, req Request) Outcome {
		panic("boom")
	})
	ok := fixed(Success(PhotoURLSet([]string{"https://example.com/1.jpg"})))
	chain := newTestChain(t, DefaultChainOptions, panicky, ok)

	result, err := chain.Resolve(context.Background(), testRequest())
	assert.NoError(err)
	assert.Equal(MediaKindPhotoURL, result.Kind)
	assert.Equal(1, ok.calls)
}

func TestChain_InvalidResultIsFailure(t *testing.T) {
	assert := assert_.New(t)

	empty := fixed(Success(PhotoSet([][]byte{})))
	chain := newTestChain(t, DefaultChainOptions, empty)

	_, err := chain.Resolve(context.Background(), testRequest())
	assert.ErrorIs(err, ErrEmptyResult)
}

func TestChain_StrategyTimeout(t *testing.T) {
	assert := assert_.New(t)

	// Ignores its context entirely
	stuck := ExtractorFunc(func(ctx context.Context, req Request) Outcome {
		time.Sleep(500 * time.Millisecond)
		return Success(Video([]byte("late")))
	})
	ok := fixed(Success(Video([]byte("ok"))))
	chain := newTestChain(t, ChainOptions{StrategyTimeout: 20 * time.Millisecond}, stuck, ok)

	start := time.Now()
	result, err := chain.Resolve(context.Background(), testRequest())
	assert.NoError(err)
	assert.Equal([]byte("ok"), result.Video)
	assert.Less(time.Since(start), 400*time.Millisecond)
}

func TestChain_OverallTimeout(t *testing.T) {
	assert := assert_.New(t)

	slow := ExtractorFunc(func(ctx context.Context, req Request) Outcome {
		<-ctx.Done()
		return Fail(ctx.Err())
	})
	never := fixed(Success(Video([]byte("never"))))
	chain := newTestChain(t, DefaultChainOptions, slow, never)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := chain.Resolve(ctx, testRequest())
	assert.ErrorIs(err, ErrTimeout)
	assert.NotErrorIs(err, ErrChainExhausted)
	assert.Equal(0, never.calls)
}

func TestChain_PassesMode(t *testing.T) {
	assert := assert_.New(t)

	var seen Mode = -1
	e := ExtractorFunc(func(ctx context.Context, req Request) Outcome {
		seen = req.Mode
		if req.Mode == ModeInline {
			return Success(PhotoURLSet([]string{"https://example.com/a.jpg"}))
		}
		return Success(PhotoSet([][]byte{[]byte("a")}))
	})
	chain := newTestChain(t, DefaultChainOptions, e)

	req := testRequest()
	req.Mode = ModeInline
	result, err := chain.Resolve(context.Background(), req)
	assert.NoError(err)
	assert.Equal(ModeInline, seen)
	assert.Equal(MediaKindPhotoURL, result.Kind)
}
