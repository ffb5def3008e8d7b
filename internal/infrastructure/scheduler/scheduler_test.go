package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appsync "github.com/storebridge/backend/internal/application/sync"
	"github.com/storebridge/backend/internal/domain/shared"
	domain "github.com/storebridge/backend/internal/domain/sync"
	"github.com/storebridge/backend/internal/infrastructure/cache"
)

// fakeExecutor records executed jobs and returns a canned result or error
type fakeExecutor struct {
	mu       sync.Mutex
	calls    []uuid.UUID
	result   *appsync.Result
	err      error
	started  chan struct{}
	blockFor time.Duration
}

func (f *fakeExecutor) Sync(ctx context.Context, tenantID uuid.UUID, incremental bool, handle domain.JobHandle) (*appsync.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, tenantID)
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
	}
	if f.blockFor > 0 {
		select {
		case <-time.After(f.blockFor):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &appsync.Result{}, nil
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestScheduler(t *testing.T, executor Executor) (*SyncScheduler, *cache.InMemoryLockService) {
	locks := cache.NewInMemoryLockService()
	sched, err := NewSyncScheduler(
		Config{PoolSize: 2, QueueSize: 10, JobTimeout: 5 * time.Second},
		map[domain.EntityType]Executor{domain.EntityTypeOrders: executor},
		locks,
		nil,
		zap.NewNop(),
	)
	require.NoError(t, err)
	return sched, locks
}

func waitForHistory(t *testing.T, sched *SyncScheduler, want int) []*SyncJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if history := sched.History(want); len(history) >= want {
			return history
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("scheduler never finished %d jobs", want)
	return nil
}

func TestSyncScheduler_Enqueue(t *testing.T) {
	t.Run("executes a queued job", func(t *testing.T) {
		executor := &fakeExecutor{result: &appsync.Result{ItemsProcessed: 3, ItemsSkipped: 1}}
		sched, _ := newTestScheduler(t, executor)

		require.NoError(t, sched.Start(context.Background()))
		defer sched.Stop(context.Background())

		job, err := sched.Enqueue(context.Background(), uuid.New(), domain.EntityTypeOrders, true)
		require.NoError(t, err)

		history := waitForHistory(t, sched, 1)
		assert.Equal(t, job.ID, history[0].ID)
		assert.Equal(t, JobStatusSuccess, history[0].Status)
		assert.Equal(t, 3, history[0].ItemsProcessed)
		assert.Equal(t, 1, history[0].ItemsSkipped)
		assert.Equal(t, 1, executor.callCount())
	})

	t.Run("second enqueue for the same key is rejected while queued", func(t *testing.T) {
		executor := &fakeExecutor{started: make(chan struct{}), blockFor: time.Second}
		sched, _ := newTestScheduler(t, executor)

		require.NoError(t, sched.Start(context.Background()))
		defer sched.Stop(context.Background())

		tenantID := uuid.New()
		_, err := sched.Enqueue(context.Background(), tenantID, domain.EntityTypeOrders, true)
		require.NoError(t, err)

		<-executor.started
		_, err = sched.Enqueue(context.Background(), tenantID, domain.EntityTypeOrders, true)
		assert.ErrorIs(t, err, ErrSyncAlreadyQueued)
	})

	t.Run("marker is released after the job finishes", func(t *testing.T) {
		executor := &fakeExecutor{}
		sched, _ := newTestScheduler(t, executor)

		require.NoError(t, sched.Start(context.Background()))
		defer sched.Stop(context.Background())

		tenantID := uuid.New()
		_, err := sched.Enqueue(context.Background(), tenantID, domain.EntityTypeOrders, true)
		require.NoError(t, err)
		waitForHistory(t, sched, 1)

		_, err = sched.Enqueue(context.Background(), tenantID, domain.EntityTypeOrders, true)
		assert.NoError(t, err)
	})

	t.Run("rejects unknown entity types", func(t *testing.T) {
		sched, _ := newTestScheduler(t, &fakeExecutor{})

		require.NoError(t, sched.Start(context.Background()))
		defer sched.Stop(context.Background())

		_, err := sched.Enqueue(context.Background(), uuid.New(), domain.EntityTypeReviews, true)
		assert.ErrorIs(t, err, ErrUnknownEntityType)
	})

	t.Run("rejects enqueue before start", func(t *testing.T) {
		sched, _ := newTestScheduler(t, &fakeExecutor{})

		_, err := sched.Enqueue(context.Background(), uuid.New(), domain.EntityTypeOrders, true)
		assert.ErrorIs(t, err, ErrSchedulerNotRunning)
	})
}

func TestSyncScheduler_FailureHandling(t *testing.T) {
	t.Run("failed jobs release the marker and record the error", func(t *testing.T) {
		executor := &fakeExecutor{err: assert.AnError}
		sched, _ := newTestScheduler(t, executor)

		require.NoError(t, sched.Start(context.Background()))
		defer sched.Stop(context.Background())

		tenantID := uuid.New()
		_, err := sched.Enqueue(context.Background(), tenantID, domain.EntityTypeOrders, true)
		require.NoError(t, err)

		history := waitForHistory(t, sched, 1)
		assert.Equal(t, JobStatusFailed, history[0].Status)
		assert.NotEmpty(t, history[0].Error)

		_, err = sched.Enqueue(context.Background(), tenantID, domain.EntityTypeOrders, true)
		assert.NoError(t, err)
	})

	t.Run("cancellation is recorded as cancelled, not failed", func(t *testing.T) {
		executor := &fakeExecutor{err: shared.ErrSyncCancelled}
		sched, _ := newTestScheduler(t, executor)

		require.NoError(t, sched.Start(context.Background()))
		defer sched.Stop(context.Background())

		_, err := sched.Enqueue(context.Background(), uuid.New(), domain.EntityTypeOrders, true)
		require.NoError(t, err)

		history := waitForHistory(t, sched, 1)
		assert.Equal(t, JobStatusCancelled, history[0].Status)
	})
}

type staticTenants struct {
	ids []uuid.UUID
}

func (s *staticTenants) ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.ids, nil
}

func TestPeriodicTrigger_TriggerAll(t *testing.T) {
	t.Run("enqueues for every tenant and skips dedup collisions", func(t *testing.T) {
		executor := &fakeExecutor{blockFor: 500 * time.Millisecond}
		locks := cache.NewInMemoryLockService()
		sched, err := NewSyncScheduler(
			Config{PoolSize: 1, QueueSize: 10, JobTimeout: 5 * time.Second},
			map[domain.EntityType]Executor{
				domain.EntityTypeOrders:   executor,
				domain.EntityTypeProducts: executor,
				domain.EntityTypeReviews:  executor,
			},
			locks,
			nil,
			zap.NewNop(),
		)
		require.NoError(t, err)
		require.NoError(t, sched.Start(context.Background()))
		defer sched.Stop(context.Background())

		tenantID := uuid.New()
		trigger := NewPeriodicTrigger(DefaultTriggerConfig(), sched, &staticTenants{ids: []uuid.UUID{tenantID}}, zap.NewNop())

		trigger.TriggerAll(context.Background())
		// A second pass while the first jobs are queued must not error or
		// enqueue duplicates
		trigger.TriggerAll(context.Background())

		assert.LessOrEqual(t, len(sched.History(0)), 3)
	})
}
