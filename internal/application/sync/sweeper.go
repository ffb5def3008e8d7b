package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storebridge/backend/internal/domain/shared"
)

// MaintenanceSweeper periodically drains the customer-count maintenance set,
// retrying tenants whose inline recompute exhausted its retries. Tenants
// that still fail stay in the set for the next pass.
type MaintenanceSweeper struct {
	aggregates *CustomerAggregateService
	locks      shared.LockService
	interval   time.Duration
	logger     *zap.Logger
}

// NewMaintenanceSweeper creates a sweeper with the given cadence
func NewMaintenanceSweeper(
	aggregates *CustomerAggregateService,
	locks shared.LockService,
	interval time.Duration,
	logger *zap.Logger,
) *MaintenanceSweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &MaintenanceSweeper{
		aggregates: aggregates,
		locks:      locks,
		interval:   interval,
		logger:     logger,
	}
}

// Start runs the sweep loop until the context is cancelled
func (s *MaintenanceSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("maintenance sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("maintenance sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep processes every tenant currently queued for maintenance
func (s *MaintenanceSweeper) Sweep(ctx context.Context) {
	members, err := s.locks.SetMembers(ctx, MaintenanceSetKey)
	if err != nil {
		s.logger.Error("maintenance set read failed", zap.Error(err))
		return
	}

	for _, member := range members {
		tenantID, err := uuid.Parse(member)
		if err != nil {
			s.logger.Warn("dropping malformed maintenance entry", zap.String("member", member))
			_ = s.locks.RemoveFromSet(ctx, MaintenanceSetKey, member)
			continue
		}

		if err := s.aggregates.RecomputeOnce(ctx, tenantID); err != nil {
			s.logger.Warn("maintenance recompute failed, keeping tenant queued",
				zap.String("tenant_id", member),
				zap.Error(err),
			)
			continue
		}
		if err := s.locks.RemoveFromSet(ctx, MaintenanceSetKey, member); err != nil {
			s.logger.Error("maintenance set removal failed",
				zap.String("tenant_id", member),
				zap.Error(err),
			)
		}
	}
}
