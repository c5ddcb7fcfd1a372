// Package repository defines the report store interface and errors.
package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithShardCount sets the number of shards identities are spread across.
func WithShardCount(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.shardCount = n
		}
	}
}
