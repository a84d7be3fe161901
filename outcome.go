package clipbot

import (
	"context"
	"errors"
)

type outcomeKind int

const (
	outcomeFail outcomeKind = iota
	outcomeSkip
	outcomeSuccess
)

// An Outcome is the result of a single Extractor attempt: Success with a MediaResult, Skip when the extractor
// doesn't handle this URL at all, or Fail when it should have worked but didn't.
type Outcome struct {
	kind   outcomeKind
	result MediaResult
	err    error
}

func Success(result MediaResult) Outcome {
	return Outcome{kind: outcomeSuccess, result: result}
}

func Skip() Outcome {
	return Outcome{kind: outcomeSkip}
}

// Fail wraps err as a failed Outcome. A nil err still produces a failure.
func Fail(err error) Outcome {
	if err == nil {
		err = errors.New("unspecified failure")
	}
	return Outcome{kind: outcomeFail, err: err}
}

func (o Outcome) IsSuccess() bool {
	return o.kind == outcomeSuccess
}

func (o Outcome) IsSkip() bool {
	return o.kind == outcomeSkip
}

func (o Outcome) IsFail() bool {
	return o.kind == outcomeFail
}

// Result returns the MediaResult of a Success (zero value otherwise).
func (o Outcome) Result() MediaResult {
	return o.result
}

// Err returns the failure reason of a Fail (nil otherwise).
func (o Outcome) Err() error {
	return o.err
}

// An Extractor knows how to resolve URLs through one external provider.
type Extractor interface {
	Extract(ctx context.Context, req Request) Outcome
}

// ExtractorFunc adapts an ordinary function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, req Request) Outcome

func (f ExtractorFunc) Extract(ctx context.Context, req Request) Outcome {
	return f(ctx, req)
}
