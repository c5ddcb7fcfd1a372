// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
//
// The service owns the report store. Callers are never passed as arguments:
// both operations read the verified identity from the request context, which
// only the HTTP host's caller middleware populates.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	repository "github.com/okian/markscard/internal/adapters/repository"
	"github.com/okian/markscard/internal/domain/identity"
	"github.com/okian/markscard/internal/domain/report"
	"github.com/okian/markscard/pkg/logger"
	"github.com/okian/markscard/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultShardCount = 8
	msPerNs           = 1e6
)

// Service implements the API dependencies for the marks card system.
type Service struct {
	mu sync.RWMutex

	reports repository.Store

	// Configuration
	shardCount int

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithShardCount sets the number of store shards.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore injects a pre-built store instead of the default memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.reports = store
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		shardCount: defaultShardCount,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components. Calling Start on a running
// service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	if s.reports == nil {
		s.reports = repository.NewMemoryStore(ctx, repository.WithShardCount(s.shardCount))
	}

	s.started = true
	s.logger.Info(ctx, "report service started", logger.Int("shards", s.shardCount))
	return nil
}

// Stop marks the service as stopped. Stored reports live as long as the
// Service value; there is no durability across restarts.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.started = false
	s.logger.Info(context.Background(), "report service stopped")
}

func (s *Service) store() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.reports, nil
}

// StoreReport derives a report from the given marks and appends it to the
// verified caller's history. numSubjects is not validated; zero produces a
// non-finite average that is stored as is.
func (s *Service) StoreReport(ctx context.Context, studentName string, totalMarks, numSubjects uint32) error {
	const op = "service.store_report"

	store, err := s.store()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	caller, ok := identity.FromContext(ctx)
	if !ok {
		metrics.RecordErrorByComponent("service", "no_caller")
		return fmt.Errorf("%s: %w", op, ErrNoCaller)
	}

	start := time.Now()
	rec := report.New(studentName, totalMarks, numSubjects)
	if err := store.Append(ctx, caller, rec); err != nil {
		metrics.RecordErrorByComponent("service", "append_failed")
		metrics.RecordErrorLatency("service", "append_failed", float64(time.Since(start).Nanoseconds())/msPerNs)
		return fmt.Errorf("%s: %w", op, err)
	}

	metrics.RecordReportStored(string(rec.Grade))
	if !rec.Finite() {
		metrics.RecordNonFiniteAverage()
		s.logger.Warn(ctx, "stored report with non-finite average",
			logger.String("caller", caller.String()),
			logger.Uint32("totalMarks", totalMarks),
			logger.Uint32("numSubjects", numSubjects),
		)
	}

	s.logger.Debug(ctx, "stored report",
		logger.String("caller", caller.String()),
		logger.String("grade", string(rec.Grade)),
		logger.Float64("average", float64(rec.Average)),
	)
	return nil
}

// GetMyReports returns the verified caller's history in append order. A
// caller with no history receives an empty slice.
func (s *Service) GetMyReports(ctx context.Context) ([]report.Record, error) {
	const op = "service.get_my_reports"

	store, err := s.store()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	caller, ok := identity.FromContext(ctx)
	if !ok {
		metrics.RecordErrorByComponent("service", "no_caller")
		return nil, fmt.Errorf("%s: %w", op, ErrNoCaller)
	}

	reports, err := store.List(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.RecordReportQuery(len(reports))
	return reports, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":    s.started,
		"shardCount": s.shardCount,
	}

	if s.started {
		ctx := context.Background()
		identities := s.reports.Count(ctx)
		records := s.reports.Total(ctx)

		stats["identities"] = identities
		stats["records"] = records

		metrics.UpdateTotalIdentities(identities)
		metrics.UpdateRepositoryRecordsTotal(records)
	}

	return stats
}
