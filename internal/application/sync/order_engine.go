package sync

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storebridge/backend/internal/domain/shared"
	domain "github.com/storebridge/backend/internal/domain/sync"
)

// OrderEngine is the order specialization of the sync control loop. Beyond
// the shared loop it classifies status transitions, emits lifecycle events,
// and maintains the denormalized customer order counts and guest-order links
// after the fetch loop.
type OrderEngine struct {
	orders     domain.OrderRepository
	customers  domain.CustomerRepository
	validator  domain.RecordValidator
	search     domain.SearchIndex
	bus        shared.EventPublisher
	aggregates *CustomerAggregateService
	cfg        EngineConfig
	logger     *zap.Logger
}

// NewOrderEngine creates the order sync processor
func NewOrderEngine(
	orders domain.OrderRepository,
	customers domain.CustomerRepository,
	validator domain.RecordValidator,
	search domain.SearchIndex,
	bus shared.EventPublisher,
	aggregates *CustomerAggregateService,
	cfg EngineConfig,
	logger *zap.Logger,
) *OrderEngine {
	return &OrderEngine{
		orders:     orders,
		customers:  customers,
		validator:  validator,
		search:     search,
		bus:        bus,
		aggregates: aggregates,
		cfg:        cfg,
		logger:     logger,
	}
}

// EntityType returns the entity type this processor handles
func (e *OrderEngine) EntityType() domain.EntityType {
	return domain.EntityTypeOrders
}

// NewRun creates per-job state for one tenant
func (e *OrderEngine) NewRun(tenantID uuid.UUID) Run {
	return &orderRun{engine: e, tenantID: tenantID}
}

type orderRun struct {
	engine   *OrderEngine
	tenantID uuid.UUID
}

// ProcessPage validates and upserts one page of orders, then emits lifecycle
// events per upserted order.
func (r *orderRun) ProcessPage(ctx context.Context, records []json.RawMessage) (*PageOutcome, error) {
	e := r.engine
	out := &PageOutcome{}

	var incoming []*domain.Order
	for _, raw := range records {
		rec, issues := e.validator.ValidateOrder(raw)
		if rec != nil {
			// Observed IDs include validation-skipped records; a local row
			// must not be reconciled away just because its latest remote
			// revision failed validation
			out.SeenIDs = append(out.SeenIDs, rec.ID)
		}
		if len(issues) > 0 {
			out.Skipped++
			e.logger.Debug("invalid order record skipped",
				zap.String("tenant_id", r.tenantID.String()),
				zap.Any("issues", issues),
			)
			continue
		}
		incoming = append(incoming, orderFromRecord(r.tenantID, rec))
	}
	if len(incoming) == 0 {
		return out, nil
	}

	ids := make([]int64, len(incoming))
	for i, o := range incoming {
		ids[i] = o.RemoteID
	}
	previous, err := e.orders.FindStatuses(ctx, r.tenantID, ids)
	if err != nil {
		return nil, err
	}

	written, skipped := upsertChunked(ctx, incoming, e.cfg.ChunkSize,
		func(ctx context.Context, chunk []*domain.Order) error {
			return e.orders.UpsertBatch(ctx, r.tenantID, chunk)
		}, e.logger)
	out.Processed += len(written)
	out.Skipped += skipped

	r.upsertCustomers(ctx, written)

	for _, order := range written {
		r.emitLifecycleEvents(ctx, order, previous)

		if err := e.search.Upsert(ctx, r.tenantID, domain.EntityTypeOrders, order.RemoteID, order); err != nil {
			e.logger.Warn("order index write failed",
				zap.Int64("remote_id", order.RemoteID),
				zap.Error(err),
			)
		}
	}
	return out, nil
}

// upsertCustomers maintains the customer projection from the page's
// account-holder orders. There is no dedicated customer sync; billing
// identity on the order is the only source. The projection backs guest
// linking, review matching and the order-count aggregate, so a failed write
// degrades those until the next sync rather than failing the page.
func (r *orderRun) upsertCustomers(ctx context.Context, orders []*domain.Order) {
	e := r.engine

	byID := make(map[int64]*domain.Customer)
	for _, o := range orders {
		if o.CustomerRemoteID == nil {
			continue
		}
		byID[*o.CustomerRemoteID] = &domain.Customer{
			TenantID:  r.tenantID,
			RemoteID:  *o.CustomerRemoteID,
			Email:     o.BillingEmail,
			FirstName: o.BillingFirstName,
			LastName:  o.BillingLastName,
		}
	}
	if len(byID) == 0 {
		return
	}

	customers := make([]*domain.Customer, 0, len(byID))
	for _, c := range byID {
		customers = append(customers, c)
	}
	_, skipped := upsertChunked(ctx, customers, e.cfg.ChunkSize,
		func(ctx context.Context, chunk []*domain.Customer) error {
			return e.customers.UpsertBatch(ctx, r.tenantID, chunk)
		}, e.logger)
	if skipped > 0 {
		e.logger.Warn("customer projection upserts skipped",
			zap.String("tenant_id", r.tenantID.String()),
			zap.Int("skipped", skipped),
		)
	}
}

// emitLifecycleEvents classifies the upsert's transition and publishes the
// created/completed/synced events.
func (r *orderRun) emitLifecycleEvents(ctx context.Context, order *domain.Order, previous map[int64]domain.OrderStatus) {
	e := r.engine

	var prev *domain.OrderStatus
	if s, ok := previous[order.RemoteID]; ok {
		prev = &s
	}
	transition := domain.ClassifyTransition(prev, order.Status)

	var events []shared.DomainEvent
	if transition == domain.TransitionNew && order.IsRecent(e.cfg.RecentOrderWindow) {
		events = append(events, domain.NewOrderCreatedEvent(r.tenantID, order))
	}
	if order.Status == domain.OrderStatusCompleted &&
		(prev == nil || *prev != domain.OrderStatusCompleted) {
		events = append(events, domain.NewOrderCompletedEvent(r.tenantID, order))
	}
	events = append(events, domain.NewOrderSyncedEvent(r.tenantID, order, prev, transition))

	if err := e.bus.Publish(ctx, events...); err != nil {
		e.logger.Warn("order event publish failed",
			zap.Int64("remote_id", order.RemoteID),
			zap.Error(err),
		)
	}
}

// Reconcile deletes orders whose remote counterpart no longer exists, in one
// batched delete, and drops their index entries.
func (r *orderRun) Reconcile(ctx context.Context, seen map[int64]struct{}) (int64, error) {
	e := r.engine
	local, err := e.orders.AllRemoteIDs(ctx, r.tenantID)
	if err != nil {
		return 0, err
	}
	orphans := orphanedIDs(local, seen)
	if len(orphans) == 0 {
		return 0, nil
	}
	deleted, err := e.orders.DeleteByRemoteIDs(ctx, r.tenantID, orphans)
	if err != nil {
		return 0, err
	}
	if err := e.search.DeleteBatch(ctx, r.tenantID, domain.EntityTypeOrders, orphans); err != nil {
		e.logger.Warn("order index delete failed", zap.Error(err))
	}
	return deleted, nil
}

// Finalize recomputes customer order counts and heals guest-order links.
// Neither failure mode fails the sync.
func (r *orderRun) Finalize(ctx context.Context) error {
	e := r.engine
	e.aggregates.Recompute(ctx, r.tenantID)

	if err := e.linkGuestOrders(ctx, r.tenantID); err != nil {
		e.logger.Warn("guest order linking failed",
			zap.String("tenant_id", r.tenantID.String()),
			zap.Error(err),
		)
	}
	return nil
}

// linkGuestOrders re-matches orders with no linked customer but a known
// billing email. Guest checkouts commonly precede account registration; a
// later sync heals the link.
func (e *OrderEngine) linkGuestOrders(ctx context.Context, tenantID uuid.UUID) error {
	guests, err := e.orders.FindGuestOrders(ctx, tenantID)
	if err != nil {
		return err
	}
	if len(guests) == 0 {
		return nil
	}

	byEmail := make(map[string][]int64)
	for _, g := range guests {
		email := strings.ToLower(strings.TrimSpace(g.BillingEmail))
		if email == "" {
			continue
		}
		byEmail[email] = append(byEmail[email], g.RemoteID)
	}

	for email, orderIDs := range byEmail {
		customer, err := e.customers.FindByEmail(ctx, tenantID, email)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return err
		}
		linked, err := e.orders.LinkCustomer(ctx, tenantID, customer.RemoteID, orderIDs)
		if err != nil {
			return err
		}
		if linked > 0 {
			e.logger.Info("guest orders linked",
				zap.String("tenant_id", tenantID.String()),
				zap.Int64("customer_remote_id", customer.RemoteID),
				zap.Int64("orders", linked),
			)
		}
	}
	return nil
}

// orderFromRecord converts a validated wire record into the local projection
func orderFromRecord(tenantID uuid.UUID, rec *domain.OrderRecord) *domain.Order {
	total, err := decimal.NewFromString(rec.Total)
	if err != nil {
		total = decimal.Zero
	}

	var customerID *int64
	if rec.CustomerID > 0 {
		id := rec.CustomerID
		customerID = &id
	}

	items := make([]domain.OrderLineItem, 0, len(rec.LineItems))
	for _, li := range rec.LineItems {
		lineTotal, err := decimal.NewFromString(li.Total)
		if err != nil {
			lineTotal = decimal.Zero
		}
		items = append(items, domain.OrderLineItem{
			ProductRemoteID:   li.ProductID,
			VariationRemoteID: li.VariationID,
			Quantity:          li.Quantity,
			Name:              li.Name,
			Total:             lineTotal,
		})
	}

	return &domain.Order{
		TenantID:         tenantID,
		RemoteID:         rec.ID,
		Status:           domain.OrderStatus(rec.Status),
		Total:            total,
		Currency:         rec.Currency,
		BillingEmail:     rec.Billing.Email,
		BillingFirstName: rec.Billing.FirstName,
		BillingLastName:  rec.Billing.LastName,
		BillingCountry:   rec.Billing.Country,
		CustomerRemoteID: customerID,
		LineItems:        items,
		RawPayload:       rec.Raw,
		RemoteCreatedAt:  domain.ParseRemoteTime(rec.DateCreated),
		RemoteModifiedAt: domain.ParseRemoteTime(rec.DateModified),
	}
}
