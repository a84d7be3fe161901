package clipbot

import (
	"context"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

var nopExtractor = ExtractorFunc(func(ctx context.Context, req Request) Outcome { return Skip() })

func TestStrategyRegistry(t *testing.T) {
	assert := assert_.New(t)

	var r StrategyRegistry
	assert.NoError(r.Create("b", nopExtractor))
	assert.NoError(r.CreatePriority("a", nopExtractor, PriorityHighest))
	assert.NoError(r.Add(Strategy{Name: "z", Extractor: nopExtractor}.WithPriority(PriorityLowest)))
	assert.Equal([]string{"a", "b", "z"}, r.List())

	assert.ErrorIs(r.Create("b", nopExtractor), ErrDuplicateStrategy)
	assert.ErrorIs(r.Create("", nopExtractor), ErrInvalidStrategy)
	assert.ErrorIs(r.Create("c", nil), ErrInvalidStrategy)
	assert.Panics(func() { r.MustCreate("b", nopExtractor) })

	assert.NoError(r.SetPriority("z", -100))
	assert.Equal([]string{"a", "z", "b"}, r.List())
	p, err := r.GetPriority("z")
	assert.NoError(err)
	assert.EqualValues(-100, p)
	_, err = r.GetPriority("nope")
	assert.ErrorIs(err, ErrUnknownStrategy)
	assert.ErrorIs(r.SetPriority("nope", 1), ErrUnknownStrategy)
}

func TestStrategyRegistry_Chain(t *testing.T) {
	assert := assert_.New(t)

	var r StrategyRegistry
	r.MustCreatePriority("first", nopExtractor, 1)
	r.MustCreatePriority("second", nopExtractor, 2)
	r.MustCreatePriority("third", nopExtractor, 3)

	all, err := r.Chain(nil, DefaultChainOptions)
	assert.NoError(err)
	assert.Equal([]string{"first", "second", "third"}, all.Names())

	picked, err := r.Chain([]string{"third", "first"}, DefaultChainOptions)
	assert.NoError(err)
	assert.Equal([]string{"third", "first"}, picked.Names())

	_, err = r.Chain([]string{"first", "missing"}, DefaultChainOptions)
	assert.ErrorIs(err, ErrUnknownStrategy)
	_, err = r.Chain([]string{"first", "first"}, DefaultChainOptions)
	assert.ErrorIs(err, ErrDuplicateStrategy)

	// Later priority changes don't affect chains already built
	assert.NoError(r.SetPriority("third", 0))
	assert.Equal([]string{"first", "second", "third"}, all.Names())
}
