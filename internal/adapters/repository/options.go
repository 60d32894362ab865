package repository

// Option applies a configuration option to the SnapshotStore.
type Option func(*SnapshotStore)

// WithHistory sets how many plans are retained for Get.
func WithHistory(n int) Option {
	return func(s *SnapshotStore) {
		if n > 0 {
			s.history = n
		}
	}
}
