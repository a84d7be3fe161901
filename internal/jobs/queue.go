package jobs

import "sync"

// queue is a bounded FIFO of jobs. Pushing never blocks, and closing it lets workers drain what is buffered.
type queue struct {
	mu     sync.RWMutex
	ch     chan Job
	closed bool
}

func newQueue(size int) *queue {
	return &queue{ch: make(chan Job, size)}
}

// Jobs is ranged over by workers; it ends once the queue is closed and drained.
func (q *queue) Jobs() <-chan Job {
	return q.ch
}

// TryPush adds job to the queue, or fails with ErrQueueFull or ErrClosed.
func (q *queue) TryPush(job Job) error {
	// Holding the read lock means Close can't close the channel mid-send
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.ch <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *queue) Len() int {
	return len(q.ch)
}

// Close idempotently stops the queue accepting jobs.
func (q *queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
