package generic

// Unwrap returns value, or panics with err. For calls that can only fail on programmer error.
func Unwrap[T any](value T, err error) T {
	Unwrap_(err)
	return value
}

// Unwrap_ is like Unwrap, for calls that only return an error.
func Unwrap_(err error) {
	if err != nil {
		panic(err)
	}
}
