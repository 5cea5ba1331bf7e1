package dedupe

// Option applies a configuration option to the inMemoryTracker.
type Option func(*inMemoryTracker)

// WithMaxSize bounds the number of ids kept in memory; the oldest id is
// evicted first. Zero or negative keeps the set unbounded.
func WithMaxSize(size int) Option {
	return func(t *inMemoryTracker) {
		t.maxSize = size
	}
}
