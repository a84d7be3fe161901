package sync_

import "sync"

// Mutexed guards a value with a mutex; the value is only reachable through Locking.
type Mutexed[T any] struct {
	mu    sync.Mutex
	value T
}

func NewMutexed[T any](value T) *Mutexed[T] {
	return &Mutexed[T]{value: value}
}

// Locking calls f with the lock held and returns what f returns. The value must not escape f.
func Locking[T any, R any](m *Mutexed[T], f func(T) R) R {
	m.mu.Lock()
	defer m.mu.Unlock()
	return f(m.value)
}
