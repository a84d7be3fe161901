package progress

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/alanbriolat/clipbot/internal/sync_"
)

const DefaultInterval = 4 * time.Second

// EmitFunc sends one "still working" signal, e.g. a chat action.
type EmitFunc func(ctx context.Context) error

// An Indicator repeatedly emits a progress signal until cancelled.
type Indicator struct {
	cancel  context.CancelFunc
	stopped *sync_.Latch
}

// Start emits immediately and then once per interval until Cancel is called or ctx ends. Emit errors are
// logged and otherwise ignored.
func Start(ctx context.Context, interval time.Duration, emit EmitFunc) *Indicator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	i := &Indicator{
		cancel:  cancel,
		stopped: sync_.NewLatch(),
	}
	go i.run(ctx, interval, emit)
	return i
}

func (i *Indicator) run(ctx context.Context, interval time.Duration, emit EmitFunc) {
	defer i.stopped.Set()
	log := zap.S().Named("progress")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if ctx.Err() != nil {
			return
		}
		if err := emit(ctx); err != nil && ctx.Err() == nil {
			log.Debugw("progress signal failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Cancel stops the indicator and waits until it has stopped. It is safe to call more than once.
func (i *Indicator) Cancel() {
	i.cancel()
	<-i.stopped.Wait()
}

// Done is closed once the indicator has stopped emitting.
func (i *Indicator) Done() <-chan struct{} {
	return i.stopped.Wait()
}

// Run calls f while an Indicator is active, cancelling it however f exits.
func Run[T any](ctx context.Context, interval time.Duration, emit EmitFunc, f func(ctx context.Context) (T, error)) (T, error) {
	i := Start(ctx, interval, emit)
	defer i.Cancel()
	return f(ctx)
}
