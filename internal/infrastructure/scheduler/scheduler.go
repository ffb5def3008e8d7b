// Package scheduler queues and executes sync jobs on a bounded worker pool.
// A redis-backed dedup marker keyed by (tenant, entity type) guarantees at
// most one queued-or-running sync per collection per tenant.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appsync "github.com/storebridge/backend/internal/application/sync"
	"github.com/storebridge/backend/internal/domain/shared"
	domain "github.com/storebridge/backend/internal/domain/sync"
	"github.com/storebridge/backend/internal/infrastructure/telemetry"
)

// Executor runs one sync job; each entity engine satisfies this
type Executor interface {
	Sync(ctx context.Context, tenantID uuid.UUID, incremental bool, handle domain.JobHandle) (*appsync.Result, error)
}

// Config holds scheduler settings
type Config struct {
	// PoolSize is the number of concurrent workers
	PoolSize int
	// QueueSize bounds the pending job buffer
	QueueSize int
	// JobTimeout is the maximum run time of one job; it also bounds the
	// dedup marker's TTL so a crashed worker cannot block a key forever
	JobTimeout time.Duration
}

// DefaultConfig returns the default scheduler settings
func DefaultConfig() Config {
	return Config{
		PoolSize:   4,
		QueueSize:  100,
		JobTimeout: 30 * time.Minute,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.PoolSize <= 0 {
		return ErrInvalidConfig
	}
	if c.QueueSize <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// SyncScheduler owns the job queue and the worker pool
type SyncScheduler struct {
	config  Config
	engines map[domain.EntityType]Executor
	locks   shared.LockService
	handles HandleFactory
	logger  *zap.Logger
	metrics *telemetry.SyncMetrics

	jobs      chan *SyncJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	historyMu  sync.RWMutex
	history    []*SyncJob
	maxHistory int
}

// NewSyncScheduler creates a scheduler over the given entity engines
func NewSyncScheduler(
	config Config,
	engines map[domain.EntityType]Executor,
	locks shared.LockService,
	handles HandleFactory,
	logger *zap.Logger,
) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(engines) == 0 {
		return nil, ErrInvalidConfig
	}

	return &SyncScheduler{
		config:     config,
		engines:    engines,
		locks:      locks,
		handles:    handles,
		logger:     logger,
		jobs:       make(chan *SyncJob, config.QueueSize),
		history:    make([]*SyncJob, 0, 100),
		maxHistory: 100,
	}, nil
}

// SetMetrics attaches sync metrics; pass nil to disable recording
func (s *SyncScheduler) SetMetrics(m *telemetry.SyncMetrics) {
	s.metrics = m
}

// Start starts the worker pool
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.PoolSize; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("sync scheduler started",
		zap.Int("workers", s.config.PoolSize),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop gracefully stops the scheduler, waiting for in-flight jobs
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	close(s.jobs)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("sync scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("sync scheduler stop timed out")
		return ctx.Err()
	}
}

// Enqueue queues one sync job. The dedup marker makes a second enqueue for
// the same (tenant, entity type) a no-op until the first job finishes.
func (s *SyncScheduler) Enqueue(ctx context.Context, tenantID uuid.UUID, entityType domain.EntityType, incremental bool) (*SyncJob, error) {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil, ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	if _, ok := s.engines[entityType]; !ok {
		return nil, ErrUnknownEntityType
	}

	job := NewSyncJob(tenantID, entityType, incremental)

	acquired, err := s.locks.SetIfAbsent(ctx, job.DedupKey(), job.ID.String(), s.config.JobTimeout)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrSyncAlreadyQueued
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("sync job enqueued",
			zap.String("job_id", job.ID.String()),
			zap.String("tenant_id", tenantID.String()),
			zap.String("entity_type", entityType.String()),
			zap.Bool("incremental", incremental),
		)
		return job, nil
	default:
		_ = s.locks.Delete(ctx, job.DedupKey())
		return nil, ErrJobQueueFull
	}
}

// worker processes jobs from the queue
func (s *SyncScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

// processJob executes one job and releases its dedup marker
func (s *SyncScheduler) processJob(ctx context.Context, job *SyncJob, workerID int) {
	defer func() {
		if err := s.locks.Delete(context.WithoutCancel(ctx), job.DedupKey()); err != nil {
			s.logger.Warn("dedup marker release failed",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}
		s.addToHistory(job)
		s.recordJobMetrics(context.WithoutCancel(ctx), job)
	}()

	engine := s.engines[job.EntityType]

	job.Start()
	s.logger.Info("sync job started",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("entity_type", job.EntityType.String()),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	var handle domain.JobHandle
	if s.handles != nil {
		handle = s.handles.Handle(job.ID)
	}

	result, err := engine.Sync(jobCtx, job.TenantID, job.Incremental, handle)
	if err != nil {
		if errors.Is(err, shared.ErrSyncCancelled) {
			job.Cancel()
			s.logger.Info("sync job cancelled",
				zap.String("job_id", job.ID.String()),
				zap.String("tenant_id", job.TenantID.String()),
			)
			return
		}
		job.Fail(err.Error())
		s.logger.Error("sync job failed",
			zap.Int("worker_id", workerID),
			zap.String("job_id", job.ID.String()),
			zap.String("tenant_id", job.TenantID.String()),
			zap.String("entity_type", job.EntityType.String()),
			zap.Error(err),
		)
		return
	}

	job.Complete(result.ItemsProcessed, result.ItemsSkipped, result.ItemsDeleted)
	s.logger.Info("sync job completed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("entity_type", job.EntityType.String()),
		zap.Int("processed", result.ItemsProcessed),
		zap.Int("skipped", result.ItemsSkipped),
		zap.Int("deleted", result.ItemsDeleted),
	)
}

// recordJobMetrics reports the finished job's status, duration and counters
func (s *SyncScheduler) recordJobMetrics(ctx context.Context, job *SyncJob) {
	if s.metrics == nil {
		return
	}
	var d time.Duration
	if job.StartedAt != nil && job.CompletedAt != nil {
		d = job.CompletedAt.Sub(*job.StartedAt)
	}
	s.metrics.RecordJob(ctx, job.TenantID, job.EntityType.String(), string(job.Status), d,
		job.ItemsProcessed, job.ItemsSkipped, job.ItemsDeleted)
}

// addToHistory records a finished job for monitoring
func (s *SyncScheduler) addToHistory(job *SyncJob) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*SyncJob{job}, s.history...)
	if len(s.history) > s.maxHistory {
		s.history = s.history[:s.maxHistory]
	}
}

// History returns recent finished jobs, newest first
func (s *SyncScheduler) History(limit int) []*SyncJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	result := make([]*SyncJob, limit)
	copy(result, s.history[:limit])
	return result
}
