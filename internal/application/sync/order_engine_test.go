package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/storebridge/backend/internal/domain/sync"
	"github.com/storebridge/backend/internal/infrastructure/cache"
	"github.com/storebridge/backend/internal/infrastructure/validation"
)

type orderEngineFixture struct {
	engine    *OrderEngine
	orders    *memOrderRepo
	customers *memCustomerRepo
	search    *memSearch
	bus       *memBus
	locks     *cache.InMemoryLockService
}

func newOrderEngineFixture(t *testing.T) *orderEngineFixture {
	t.Helper()
	orders := newMemOrderRepo()
	customers := newMemCustomerRepo()
	search := newMemSearch()
	bus := &memBus{}
	locks := cache.NewInMemoryLockService()
	t.Cleanup(func() { _ = locks.Close() })

	aggregates := NewCustomerAggregateService(customers, locks, zap.NewNop())
	engine := NewOrderEngine(orders, customers, stubValidator{}, search, bus,
		aggregates, DefaultEngineConfig(), zap.NewNop())
	return &orderEngineFixture{
		engine:    engine,
		orders:    orders,
		customers: customers,
		search:    search,
		bus:       bus,
		locks:     locks,
	}
}

func orderJSON(id int64, status string, created time.Time) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"id":%d,"status":%q,"currency":"EUR","total":"49.90","date_created":%q,`+
			`"billing":{"email":"jane@example.com","first_name":"Jane","last_name":"Doe"},`+
			`"line_items":[{"product_id":55,"variation_id":0,"quantity":2,"total":"49.90"}]}`,
		id, status, created.Format("2006-01-02T15:04:05")))
}

func TestOrderRun_ProcessPage_NewRecentOrderEmitsCreated(t *testing.T) {
	f := newOrderEngineFixture(t)
	tenantID := uuid.New()
	run := f.engine.NewRun(tenantID)

	out, err := run.ProcessPage(context.Background(), []json.RawMessage{
		orderJSON(100, "processing", time.Now().Add(-24*time.Hour)),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Processed)
	assert.Zero(t, out.Skipped)
	assert.Equal(t, []int64{100}, out.SeenIDs)

	assert.Len(t, f.bus.byType(domain.EventTypeOrderCreated), 1)
	assert.Empty(t, f.bus.byType(domain.EventTypeOrderCompleted))

	synced := f.bus.byType(domain.EventTypeOrderSynced)
	require.Len(t, synced, 1)
	event := synced[0].(*domain.OrderSyncedEvent)
	assert.Equal(t, domain.TransitionNew, event.Transition)
	assert.Nil(t, event.PreviousStatus)
	assert.Equal(t, domain.OrderStatusProcessing, event.Order.Status)

	// Indexed after persistence
	assert.Contains(t, f.search.upserts, int64(100))
}

func TestOrderRun_ProcessPage_HistoricalBackfillSuppressesCreated(t *testing.T) {
	f := newOrderEngineFixture(t)
	run := f.engine.NewRun(uuid.New())

	_, err := run.ProcessPage(context.Background(), []json.RawMessage{
		orderJSON(101, "processing", time.Now().Add(-90*24*time.Hour)),
	})
	require.NoError(t, err)

	assert.Empty(t, f.bus.byType(domain.EventTypeOrderCreated))
	assert.Len(t, f.bus.byType(domain.EventTypeOrderSynced), 1)
}

func TestOrderRun_ProcessPage_TransitionToCompleted(t *testing.T) {
	f := newOrderEngineFixture(t)
	tenantID := uuid.New()
	run := f.engine.NewRun(tenantID)

	_, err := run.ProcessPage(context.Background(), []json.RawMessage{
		orderJSON(102, "processing", time.Now().Add(-24*time.Hour)),
	})
	require.NoError(t, err)

	_, err = run.ProcessPage(context.Background(), []json.RawMessage{
		orderJSON(102, "completed", time.Now().Add(-24*time.Hour)),
	})
	require.NoError(t, err)

	completed := f.bus.byType(domain.EventTypeOrderCompleted)
	require.Len(t, completed, 1)

	synced := f.bus.byType(domain.EventTypeOrderSynced)
	require.Len(t, synced, 2)
	second := synced[1].(*domain.OrderSyncedEvent)
	assert.Equal(t, domain.TransitionStatusChanged, second.Transition)
	require.NotNil(t, second.PreviousStatus)
	assert.Equal(t, domain.OrderStatusProcessing, *second.PreviousStatus)
}

func TestOrderRun_ProcessPage_UnchangedStatusEmitsOnlySynced(t *testing.T) {
	f := newOrderEngineFixture(t)
	run := f.engine.NewRun(uuid.New())
	record := orderJSON(103, "completed", time.Now().Add(-90*24*time.Hour))

	_, err := run.ProcessPage(context.Background(), []json.RawMessage{record})
	require.NoError(t, err)
	_, err = run.ProcessPage(context.Background(), []json.RawMessage{record})
	require.NoError(t, err)

	// Completed fires once, on the first sight, not on re-sync
	assert.Len(t, f.bus.byType(domain.EventTypeOrderCompleted), 1)

	synced := f.bus.byType(domain.EventTypeOrderSynced)
	require.Len(t, synced, 2)
	assert.Equal(t, domain.TransitionUnchanged, synced[1].(*domain.OrderSyncedEvent).Transition)
}

func TestOrderRun_ProcessPage_InvalidRecordSkippedButObserved(t *testing.T) {
	f := newOrderEngineFixture(t)
	run := f.engine.NewRun(uuid.New())

	out, err := run.ProcessPage(context.Background(), []json.RawMessage{
		json.RawMessage(`{"id":104}`), // no status
		orderJSON(105, "processing", time.Now()),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, out.Processed)
	assert.Equal(t, 1, out.Skipped)
	// The invalid record's ID is still observed so reconciliation does not
	// delete its local row
	assert.Equal(t, []int64{104, 105}, out.SeenIDs)
}

func TestOrderRun_ProcessPage_MaintainsCustomerProjection(t *testing.T) {
	f := newOrderEngineFixture(t)
	run := f.engine.NewRun(uuid.New())

	withAccount := json.RawMessage(fmt.Sprintf(
		`{"id":110,"status":"processing","currency":"EUR","total":"10.00","customer_id":7,`+
			`"billing":{"email":"jane@example.com","first_name":"Jane","last_name":"Doe"},`+
			`"date_created":%q}`, time.Now().Format("2006-01-02T15:04:05")))
	guest := orderJSON(111, "processing", time.Now())

	_, err := run.ProcessPage(context.Background(), []json.RawMessage{withAccount, guest})
	require.NoError(t, err)

	stored := f.customers.byEmail["jane@example.com"]
	require.NotNil(t, stored)
	assert.Equal(t, int64(7), stored.RemoteID)
	assert.Equal(t, "Jane", stored.FirstName)
	assert.Equal(t, "Doe", stored.LastName)
	// The guest order carries no account identity and creates no customer
	assert.Len(t, f.customers.byEmail, 1)
}

func TestEngine_FullSync_KeepsInvalidButPresentOrders(t *testing.T) {
	f := newOrderEngineFixture(t)
	tenantID := uuid.New()

	// Order 99 exists locally and is still live remotely, but its latest
	// remote revision fails schema validation
	f.orders.orders[99] = &domain.Order{TenantID: tenantID, RemoteID: 99}

	platform := newMemPlatform()
	platform.pages = [][]json.RawMessage{{
		json.RawMessage(`{"id":99,"status":"processing","currency":"EU","total":"10.00","date_created":"2026-08-01T12:00:00"}`),
		orderJSON(100, "completed", time.Now().Add(-90*24*time.Hour)),
	}}

	orderEngine := NewOrderEngine(f.orders, f.customers, validation.NewSchemaValidator(),
		f.search, f.bus, NewCustomerAggregateService(f.customers, f.locks, zap.NewNop()),
		DefaultEngineConfig(), zap.NewNop())
	engine := NewEngine(orderEngine, platform, newMemCursorRepo(), DefaultEngineConfig(), zap.NewNop())

	result, err := engine.Sync(context.Background(), tenantID, false, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ItemsProcessed)
	assert.Equal(t, 1, result.ItemsSkipped)
	assert.Zero(t, result.ItemsDeleted)
	assert.Contains(t, f.orders.orders, int64(99))
	assert.Empty(t, f.orders.deletedIDs)
}

func TestOrderRun_Reconcile_DeletesOrphans(t *testing.T) {
	f := newOrderEngineFixture(t)
	tenantID := uuid.New()
	run := f.engine.NewRun(tenantID)

	for _, id := range []int64{1, 2, 3} {
		f.orders.orders[id] = &domain.Order{TenantID: tenantID, RemoteID: id}
	}

	deleted, err := run.Reconcile(context.Background(), map[int64]struct{}{1: {}, 3: {}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, []int64{2}, f.orders.deletedIDs)
	assert.Equal(t, []int64{2}, f.search.deletes)
}

func TestOrderRun_Reconcile_NothingToDelete(t *testing.T) {
	f := newOrderEngineFixture(t)
	run := f.engine.NewRun(uuid.New())

	deleted, err := run.Reconcile(context.Background(), map[int64]struct{}{})
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Empty(t, f.search.deletes)
}

func TestOrderRun_Finalize_RecomputesCountsAndLinksGuests(t *testing.T) {
	f := newOrderEngineFixture(t)
	tenantID := uuid.New()
	run := f.engine.NewRun(tenantID)

	f.customers.byEmail["jane@example.com"] = &domain.Customer{
		TenantID: tenantID,
		RemoteID: 9,
		Email:    "jane@example.com",
	}
	f.orders.guests = []domain.GuestOrder{
		{RemoteID: 200, BillingEmail: "Jane@Example.com"},
		{RemoteID: 201, BillingEmail: "jane@example.com"},
		{RemoteID: 202, BillingEmail: "unknown@example.com"},
		{RemoteID: 203, BillingEmail: ""},
	}

	require.NoError(t, run.Finalize(context.Background()))

	assert.Equal(t, 1, f.customers.recomputeCalls)
	require.Len(t, f.orders.linkedCalls, 1)
	link := f.orders.linkedCalls[0]
	assert.Equal(t, int64(9), link.customerRemoteID)
	assert.ElementsMatch(t, []int64{200, 201}, link.orderRemoteIDs)
}
