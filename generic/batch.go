package generic

// Batch splits items into successive slices of at most size elements, preserving order. The returned slices share
// the backing array of items. Panics if size is less than 1.
func Batch[T any](items []T, size int) [][]T {
	if size < 1 {
		panic("generic.Batch: size must be at least 1")
	}
	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end:end])
	}
	return batches
}
