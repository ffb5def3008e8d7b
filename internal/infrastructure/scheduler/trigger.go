package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/storebridge/backend/internal/domain/sync"
)

// TenantProvider lists the tenants eligible for scheduled syncs
type TenantProvider interface {
	ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// TriggerConfig holds periodic trigger settings
type TriggerConfig struct {
	// Interval is how often incremental syncs are enqueued
	Interval time.Duration
	// FullSyncInterval is how often a reconciling full sync replaces the
	// incremental one; zero disables periodic full syncs
	FullSyncInterval time.Duration
}

// DefaultTriggerConfig returns the default trigger cadence
func DefaultTriggerConfig() TriggerConfig {
	return TriggerConfig{
		Interval:         15 * time.Minute,
		FullSyncInterval: 24 * time.Hour,
	}
}

// PeriodicTrigger enqueues syncs for every active tenant on a cadence.
// Entity order is fixed: orders before reviews so the matcher sees fresh
// candidates, products before orders so consumption sees fresh components.
type PeriodicTrigger struct {
	config    TriggerConfig
	scheduler *SyncScheduler
	tenants   TenantProvider
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastFull  time.Time
}

// entitySyncOrder is the order entities are enqueued per tenant
var entitySyncOrder = []domain.EntityType{
	domain.EntityTypeProducts,
	domain.EntityTypeOrders,
	domain.EntityTypeReviews,
}

// NewPeriodicTrigger creates a periodic sync trigger
func NewPeriodicTrigger(
	config TriggerConfig,
	scheduler *SyncScheduler,
	tenants TenantProvider,
	logger *zap.Logger,
) *PeriodicTrigger {
	if config.Interval <= 0 {
		config.Interval = 15 * time.Minute
	}
	return &PeriodicTrigger{
		config:    config,
		scheduler: scheduler,
		tenants:   tenants,
		logger:    logger,
	}
}

// Start starts the trigger loop
func (t *PeriodicTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("sync trigger started",
		zap.Duration("interval", t.config.Interval),
		zap.Duration("full_sync_interval", t.config.FullSyncInterval),
	)
	return nil
}

// Stop stops the trigger loop
func (t *PeriodicTrigger) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.isRunning {
		return
	}
	t.isRunning = false
	t.cancel()
	t.wg.Wait()
}

func (t *PeriodicTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.TriggerAll(ctx)
		}
	}
}

// TriggerAll enqueues one sync per entity type for every active tenant.
// Dedup collisions with already-running jobs are expected and skipped.
func (t *PeriodicTrigger) TriggerAll(ctx context.Context) {
	tenantIDs, err := t.tenants.ActiveTenantIDs(ctx)
	if err != nil {
		t.logger.Error("tenant listing failed", zap.Error(err))
		return
	}

	incremental := true
	if t.config.FullSyncInterval > 0 && time.Since(t.lastFull) >= t.config.FullSyncInterval {
		incremental = false
		t.lastFull = time.Now()
	}

	for _, tenantID := range tenantIDs {
		for _, entityType := range entitySyncOrder {
			_, err := t.scheduler.Enqueue(ctx, tenantID, entityType, incremental)
			if err != nil {
				if errors.Is(err, ErrSyncAlreadyQueued) {
					continue
				}
				t.logger.Warn("scheduled enqueue failed",
					zap.String("tenant_id", tenantID.String()),
					zap.String("entity_type", entityType.String()),
					zap.Error(err),
				)
			}
		}
	}
}
