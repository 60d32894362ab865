package dedupe

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithKeyFunc replaces CanonicalName as the identity function.
func WithKeyFunc(fn func(string) string) Option {
	return func(d *inMemoryDeduper) {
		if fn != nil {
			d.key = fn
		}
	}
}
