package sync_

import "sync"

// A Latch is a one-way flag that goroutines can wait on. Once set it stays set.
type Latch struct {
	once sync.Once
	ch   chan struct{}
}

func NewLatch() *Latch {
	return &Latch{ch: make(chan struct{})}
}

// Set releases every waiter. It returns true only for the call that actually set the Latch.
func (l *Latch) Set() (changed bool) {
	l.once.Do(func() {
		close(l.ch)
		changed = true
	})
	return changed
}

func (l *Latch) IsSet() bool {
	select {
	case <-l.ch:
		return true
	default:
		return false
	}
}

// Wait returns a channel that is closed once the Latch is set.
func (l *Latch) Wait() <-chan struct{} {
	return l.ch
}
