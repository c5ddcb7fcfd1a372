// Package repository defines the report store interface and errors.
package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/okian/markscard/internal/domain/identity"
	"github.com/okian/markscard/internal/domain/report"
	"github.com/okian/markscard/pkg/metrics"
)

// Default store configuration constants.
const (
	defaultShardCount = 8
	msPerNs           = 1e6
)

// shard owns a disjoint subset of identities. Its lock is the single
// serialization point for those identities' histories.
type shard struct {
	mu      sync.RWMutex
	reports map[identity.Identity][]report.Record
}

// MemoryStore is an in-memory Store. Identities are hashed onto shards so
// unrelated callers do not contend on one lock; per-identity ordering is
// preserved because an identity always maps to the same shard.
type MemoryStore struct {
	shardCount int
	shards     []*shard

	identities atomic.Int64
	records    atomic.Int64
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore(_ context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{shardCount: defaultShardCount}
	for _, opt := range opts {
		opt(s)
	}

	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{reports: make(map[identity.Identity][]report.Record)}
	}
	metrics.UpdateRepositoryShardCount(s.shardCount)
	return s
}

func (s *MemoryStore) shardFor(id identity.Identity) *shard {
	return s.shards[xxhash.Sum64String(string(id))%uint64(len(s.shards))]
}

// Append implements Store.
func (s *MemoryStore) Append(ctx context.Context, id identity.Identity, rec report.Record) error {
	if id.IsZero() {
		return ErrInvalidIdentity
	}
	// Cancellation is only honored before the mutation starts.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("append aborted: %w", err)
	}

	start := time.Now()
	sh := s.shardFor(id)

	sh.mu.Lock()
	history, ok := sh.reports[id]
	sh.reports[id] = append(history, rec)
	sh.mu.Unlock()

	if !ok {
		metrics.UpdateTotalIdentities(int(s.identities.Add(1)))
	}
	metrics.UpdateRepositoryRecordsTotal(int(s.records.Add(1)))
	metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Nanoseconds()) / msPerNs)
	return nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context, id identity.Identity) ([]report.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list aborted: %w", err)
	}

	start := time.Now()
	sh := s.shardFor(id)

	sh.mu.RLock()
	history := sh.reports[id]
	out := make([]report.Record, len(history))
	copy(out, history)
	sh.mu.RUnlock()

	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Nanoseconds()) / msPerNs)
	return out, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) int {
	return int(s.identities.Load())
}

// Total implements Store.
func (s *MemoryStore) Total(_ context.Context) int {
	return int(s.records.Load())
}

// ShardCount returns the number of shards in use.
func (s *MemoryStore) ShardCount() int {
	return len(s.shards)
}
