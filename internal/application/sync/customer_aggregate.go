package sync

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storebridge/backend/internal/domain/shared"
	domain "github.com/storebridge/backend/internal/domain/sync"
)

// MaintenanceSetKey is the durable set of tenant IDs whose customer order
// counts could not be recomputed inline and await the maintenance sweeper.
const MaintenanceSetKey = "sync:maintenance:customer-counts"

// CustomerAggregateService maintains the denormalized customer order counts.
// Recomputation runs under a per-tenant advisory lock inside the repository;
// this service owns the retry policy and the maintenance-set fallback.
type CustomerAggregateService struct {
	customers domain.CustomerRepository
	locks     shared.LockService
	retryCfg  shared.RetryConfig
	logger    *zap.Logger
}

// NewCustomerAggregateService creates the aggregate maintenance service
func NewCustomerAggregateService(
	customers domain.CustomerRepository,
	locks shared.LockService,
	logger *zap.Logger,
) *CustomerAggregateService {
	return &CustomerAggregateService{
		customers: customers,
		locks:     locks,
		retryCfg:  shared.DefaultRetryConfig(),
		logger:    logger,
	}
}

// Recompute recomputes the tenant's customer order counts, retrying
// transient failures with backoff. On exhaustion the tenant is recorded in
// the maintenance set instead of failing the caller: aggregate staleness is
// tolerable, a failed sync is not.
func (s *CustomerAggregateService) Recompute(ctx context.Context, tenantID uuid.UUID) {
	cfg := s.retryCfg
	cfg.Retryable = isTransientDBError
	cfg.OnRetry = func(attempt int, err error) {
		s.logger.Debug("customer count recompute retry",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	err := shared.Retry(ctx, cfg, func() error {
		return s.customers.RecomputeOrderCounts(ctx, tenantID)
	})
	if err == nil {
		return
	}

	s.logger.Warn("customer count recompute exhausted retries, deferring to maintenance sweep",
		zap.String("tenant_id", tenantID.String()),
		zap.Error(err),
	)
	if markErr := s.locks.AddToSet(ctx, MaintenanceSetKey, tenantID.String()); markErr != nil {
		s.logger.Error("failed to record tenant for maintenance sweep",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(markErr),
		)
	}
}

// RecomputeOnce runs a single recompute attempt without the maintenance
// fallback. Used by the sweeper, which keeps the tenant queued on failure.
func (s *CustomerAggregateService) RecomputeOnce(ctx context.Context, tenantID uuid.UUID) error {
	cfg := s.retryCfg
	cfg.Retryable = isTransientDBError
	return shared.Retry(ctx, cfg, func() error {
		return s.customers.RecomputeOrderCounts(ctx, tenantID)
	})
}

// isTransientDBError recognizes lock contention and deadlock failures worth
// retrying. Driver errors surface as strings through GORM, so this matches
// the well-known postgres messages.
func isTransientDBError(err error) bool {
	if errors.Is(err, shared.ErrConcurrencyConflict) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "lock timeout") ||
		strings.Contains(msg, "could not obtain lock") ||
		strings.Contains(msg, "lock not available")
}
