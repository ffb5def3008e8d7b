// Package bom implements the event-driven consumption engine: when an order
// transitions into a consuming or reversing status, every line item's bill of
// materials is resolved and its components' stock is deducted or restored,
// locally and on the remote platform, exactly once per order per direction.
package bom

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bomdomain "github.com/storebridge/backend/internal/domain/bom"
	"github.com/storebridge/backend/internal/domain/shared"
	syncdomain "github.com/storebridge/backend/internal/domain/sync"
)

// ConsumptionConfig tunes the idempotency windows
type ConsumptionConfig struct {
	// DedupTTL suppresses reprocessing of an already handled (order,
	// direction) across routine re-syncs
	DedupTTL time.Duration
	// LockTTL bounds worst-case staleness if a worker crashes mid-order
	LockTTL time.Duration
}

// DefaultConsumptionConfig returns the production idempotency windows
func DefaultConsumptionConfig() ConsumptionConfig {
	return ConsumptionConfig{
		DedupTTL: 7 * 24 * time.Hour,
		LockTTL:  2 * time.Minute,
	}
}

// ConsumptionService reacts to order sync events and applies BOM stock
// consumption. It implements shared.EventHandler and is registered on the
// event bus at startup.
type ConsumptionService struct {
	boms       bomdomain.Repository
	movements  bomdomain.MovementRepository
	products   syncdomain.ProductRepository
	variations syncdomain.VariationRepository
	platform   syncdomain.PlatformClient
	locks      shared.LockService
	cfg        ConsumptionConfig
	logger     *zap.Logger
}

// NewConsumptionService creates the consumption engine
func NewConsumptionService(
	boms bomdomain.Repository,
	movements bomdomain.MovementRepository,
	products syncdomain.ProductRepository,
	variations syncdomain.VariationRepository,
	platform syncdomain.PlatformClient,
	locks shared.LockService,
	cfg ConsumptionConfig,
	logger *zap.Logger,
) *ConsumptionService {
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 7 * 24 * time.Hour
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	return &ConsumptionService{
		boms:       boms,
		movements:  movements,
		products:   products,
		variations: variations,
		platform:   platform,
		locks:      locks,
		cfg:        cfg,
		logger:     logger,
	}
}

// EventTypes subscribes the service to order sync events
func (s *ConsumptionService) EventTypes() []string {
	return []string{syncdomain.EventTypeOrderSynced}
}

// Handle classifies the synced order's status into consuming, reversing or
// inert, and runs the corresponding stock movement.
func (s *ConsumptionService) Handle(ctx context.Context, event shared.DomainEvent) error {
	synced, ok := event.(*syncdomain.OrderSyncedEvent)
	if !ok {
		return nil
	}

	var direction bomdomain.Direction
	switch {
	case synced.Order.Status.IsConsuming():
		direction = bomdomain.DirectionConsume
	case synced.Order.Status.IsReversing():
		direction = bomdomain.DirectionRestore
	default:
		return nil
	}
	return s.Process(ctx, synced.TenantID(), synced.Order, direction)
}

// dedupKey is direction-scoped: a reversal must not be suppressed by a prior
// consumption's marker.
func dedupKey(direction bomdomain.Direction, tenantID uuid.UUID, orderRemoteID int64) string {
	return fmt.Sprintf("bom:%s:%s:%d", direction, tenantID, orderRemoteID)
}

func lockKey(tenantID uuid.UUID, orderRemoteID int64) string {
	return fmt.Sprintf("bom:lock:%s:%d", tenantID, orderRemoteID)
}

// Process applies the order's BOM stock movement in the given direction.
// Exactly-once is enforced by a direction-keyed dedup marker plus a
// per-order lock; the lock is released unconditionally so a legitimate
// retry after a failure is never permanently blocked.
func (s *ConsumptionService) Process(ctx context.Context, tenantID uuid.UUID, order *syncdomain.Order, direction bomdomain.Direction) error {
	dedup := dedupKey(direction, tenantID, order.RemoteID)
	done, err := s.locks.Exists(ctx, dedup)
	if err != nil {
		return fmt.Errorf("check dedup marker: %w", err)
	}
	if done {
		s.logger.Debug("order already processed, skipping",
			zap.Int64("order_remote_id", order.RemoteID),
			zap.String("direction", string(direction)),
		)
		return nil
	}

	lock := lockKey(tenantID, order.RemoteID)
	acquired, err := s.locks.SetIfAbsent(ctx, lock, string(direction), s.cfg.LockTTL)
	if err != nil {
		return fmt.Errorf("acquire order lock: %w", err)
	}
	if !acquired {
		s.logger.Debug("order locked by another worker, skipping",
			zap.Int64("order_remote_id", order.RemoteID),
		)
		return nil
	}
	defer func() {
		if err := s.locks.Delete(ctx, lock); err != nil {
			s.logger.Warn("order lock release failed",
				zap.String("key", lock),
				zap.Error(err),
			)
		}
	}()

	touched, err := s.processLineItems(ctx, tenantID, order, direction)
	if err != nil {
		return err
	}

	if _, err := s.locks.SetIfAbsent(ctx, dedup, time.Now().UTC().Format(time.RFC3339), s.cfg.DedupTTL); err != nil {
		return fmt.Errorf("set dedup marker: %w", err)
	}

	// Cascade failures are logged, not propagated: the order's own movement
	// is already committed and marked, and the next movement touching the
	// shared component will recompute again
	if err := s.cascade(ctx, tenantID, touched); err != nil {
		s.logger.Warn("cascade recomputation failed",
			zap.Int64("order_remote_id", order.RemoteID),
			zap.Error(err),
		)
	}

	s.logger.Info("order stock movement applied",
		zap.String("tenant_id", tenantID.String()),
		zap.Int64("order_remote_id", order.RemoteID),
		zap.String("direction", string(direction)),
		zap.Int("components_touched", len(touched)),
	)
	return nil
}

// processLineItems resolves each line item's BOM and moves component stock.
// Returns the set of components actually touched, for cascade recomputation.
func (s *ConsumptionService) processLineItems(ctx context.Context, tenantID uuid.UUID, order *syncdomain.Order, direction bomdomain.Direction) ([]bomdomain.Component, error) {
	touchedSet := make(map[string]bomdomain.Component)
	for _, line := range order.LineItems {
		bill, err := s.boms.FindForItem(ctx, tenantID, line.ProductRemoteID, line.VariationRemoteID)
		if err != nil {
			return nil, fmt.Errorf("find BOM for product %d: %w", line.ProductRemoteID, err)
		}
		if bill == nil {
			continue
		}

		for _, item := range bill.Items {
			quantity := item.Quantity * line.Quantity
			moved, err := s.moveComponentStock(ctx, tenantID, order.RemoteID, item.Component, quantity, direction)
			if err != nil {
				return nil, err
			}
			if moved {
				touchedSet[item.Component.Key()] = item.Component
			}
		}
	}

	touched := make([]bomdomain.Component, 0, len(touchedSet))
	for _, c := range touchedSet {
		touched = append(touched, c)
	}
	return touched, nil
}

// moveComponentStock deducts or restores one component's stock. Components
// with stock tracking disabled are skipped. Remote-facing components push the
// new quantity to the platform with retry; exhaustion fails the whole order
// so the queue layer can redeliver.
func (s *ConsumptionService) moveComponentStock(ctx context.Context, tenantID uuid.UUID, orderRemoteID int64, component bomdomain.Component, quantity int, direction bomdomain.Direction) (bool, error) {
	previous, err := s.componentStock(ctx, tenantID, component)
	if err != nil {
		return false, fmt.Errorf("read stock for %s: %w", component.Key(), err)
	}
	if previous == nil {
		s.logger.Debug("component stock untracked, skipping",
			zap.String("component", component.Key()),
		)
		return false, nil
	}

	newStock := *previous + quantity
	if direction == bomdomain.DirectionConsume {
		newStock = *previous - quantity
		if newStock < 0 {
			newStock = 0
		}
	}

	if err := s.setComponentStock(ctx, tenantID, component, newStock); err != nil {
		return false, fmt.Errorf("write stock for %s: %w", component.Key(), err)
	}

	if component.Kind != bomdomain.ComponentKindInternal {
		if err := s.pushRemoteStock(ctx, tenantID, component, newStock); err != nil {
			return false, fmt.Errorf("push stock for %s: %w", component.Key(), err)
		}
	}

	movement := &bomdomain.StockMovement{
		ID:            uuid.New(),
		TenantID:      tenantID,
		OrderRemoteID: orderRemoteID,
		Component:     component,
		Direction:     direction,
		Quantity:      quantity,
		PreviousStock: *previous,
		NewStock:      newStock,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.movements.Save(ctx, movement); err != nil {
		s.logger.Warn("stock movement audit write failed",
			zap.String("component", component.Key()),
			zap.Error(err),
		)
	}

	s.logger.Debug("component stock moved",
		zap.String("component", component.Key()),
		zap.String("direction", string(direction)),
		zap.Int("quantity", quantity),
		zap.Int("previous", *previous),
		zap.Int("new", newStock),
	)
	return true, nil
}

// componentStock reads the component's local stock by kind; nil means stock
// tracking is disabled.
func (s *ConsumptionService) componentStock(ctx context.Context, tenantID uuid.UUID, c bomdomain.Component) (*int, error) {
	if c.Kind == bomdomain.ComponentKindVariation {
		return s.variations.GetStockQuantity(ctx, tenantID, c.VariationRemoteID)
	}
	return s.products.GetStockQuantity(ctx, tenantID, c.ProductRemoteID)
}

func (s *ConsumptionService) setComponentStock(ctx context.Context, tenantID uuid.UUID, c bomdomain.Component, quantity int) error {
	if c.Kind == bomdomain.ComponentKindVariation {
		return s.variations.SetStockQuantity(ctx, tenantID, c.VariationRemoteID, quantity)
	}
	return s.products.SetStockQuantity(ctx, tenantID, c.ProductRemoteID, quantity)
}

// pushRemoteStock writes the quantity to the platform, retrying transient
// failures. Auth failures, missing resources and malformed identifiers abort
// immediately.
func (s *ConsumptionService) pushRemoteStock(ctx context.Context, tenantID uuid.UUID, c bomdomain.Component, quantity int) error {
	cfg := shared.DefaultRetryConfig()
	cfg.Retryable = syncdomain.IsRetryablePlatformError
	cfg.OnRetry = func(attempt int, err error) {
		s.logger.Debug("remote stock push retry",
			zap.String("component", c.Key()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return shared.Retry(ctx, cfg, func() error {
		if c.Kind == bomdomain.ComponentKindVariation {
			return s.platform.PushVariationStock(ctx, tenantID, c.ProductRemoteID, c.VariationRemoteID, quantity)
		}
		return s.platform.PushProductStock(ctx, tenantID, c.ProductRemoteID, quantity)
	})
}
