package generic

import "iter"

type Set[T comparable] interface {
	// Add returns false if item was already present.
	Add(item T) bool
	Contains(items ...T) bool
	Count() int
	// Remove returns false if item was not present.
	Remove(item T) bool
	All() iter.Seq[T]
}

func NewSet[T comparable](items ...T) Set[T] {
	s := set[T]{m: make(map[T]Void, len(items))}
	for _, item := range items {
		s.Add(item)
	}
	return &s
}

type set[T comparable] struct {
	m map[T]Void
}

func (s *set[T]) Add(item T) bool {
	if _, found := s.m[item]; found {
		return false
	}
	s.m[item] = NewVoid()
	return true
}

// Contains is true only if every item is present.
func (s *set[T]) Contains(items ...T) bool {
	for _, item := range items {
		if _, found := s.m[item]; !found {
			return false
		}
	}
	return true
}

func (s *set[T]) Count() int {
	return len(s.m)
}

func (s *set[T]) Remove(item T) bool {
	if _, found := s.m[item]; !found {
		return false
	}
	delete(s.m, item)
	return true
}

// All yields the items in no particular order.
func (s *set[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for item := range s.m {
			if !yield(item) {
				return
			}
		}
	}
}
