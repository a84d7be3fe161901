package generic

// Option holds either a value or nothing.
type Option[T any] struct {
	value T
	ok    bool
}

func Some[T any](value T) Option[T] {
	return Option[T]{value: value, ok: true}
}

func None[T any]() Option[T] {
	return Option[T]{}
}

// OptionOf converts a comma-ok lookup into an Option.
func OptionOf[T any](value T, ok bool) Option[T] {
	if !ok {
		return None[T]()
	}
	return Some(value)
}

// Get returns the contained value and whether there was one, in the style of a map lookup.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.ok
}

func (o Option[T]) IsSome() bool {
	return o.ok
}

func (o Option[T]) IsNone() bool {
	return !o.ok
}

// Unwrap returns the contained value, or panics if there is no value.
func (o Option[T]) Unwrap() T {
	if !o.ok {
		panic("tried to Unwrap() a None")
	}
	return o.value
}

// UnwrapOr returns the contained value, or other if there is no value.
func (o Option[T]) UnwrapOr(other T) T {
	if !o.ok {
		return other
	}
	return o.value
}
