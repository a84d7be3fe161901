package async

// Run calls f in a new goroutine and delivers its result on the returned channel. The channel is buffered, so the
// goroutine exits even if the result is never received.
func Run[T any](f func() T) <-chan T {
	c := make(chan T, 1)
	go func() {
		defer close(c)
		c <- f()
	}()
	return c
}
