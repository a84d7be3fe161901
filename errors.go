package clipbot

import (
	"errors"
	"fmt"
)

var (
	ErrChainExhausted = errors.New("no strategy could resolve the URL")
	ErrNoStrategy     = errors.New("no strategy applies to this URL")
	ErrTimeout        = errors.New("resolution deadline exceeded")
	ErrOversize       = errors.New("media exceeds the delivery size limit")
)

// ChainExhaustedError is returned by Chain.Resolve when every strategy skipped or failed. First is the failure
// surfaced to the user; All aggregates every failure for logging.
type ChainExhaustedError struct {
	First error
	All   error
}

func (e *ChainExhaustedError) Error() string {
	if e.First == nil {
		return ErrChainExhausted.Error()
	}
	return e.First.Error()
}

func (e *ChainExhaustedError) Is(target error) bool {
	return target == ErrChainExhausted
}

func (e *ChainExhaustedError) Unwrap() error {
	return e.First
}

// OversizeError reports a resolved result too large to deliver; the payload has already been discarded.
type OversizeError struct {
	Size  int64
	Limit int64
}

func (e *OversizeError) Error() string {
	return fmt.Sprintf("media is %d bytes, limit is %d bytes", e.Size, e.Limit)
}

func (e *OversizeError) Is(target error) bool {
	return target == ErrOversize
}
