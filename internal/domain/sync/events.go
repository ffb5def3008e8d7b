package sync

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/storebridge/backend/internal/domain/shared"
)

// Event type constants for order lifecycle events
const (
	// EventTypeOrderSynced fires on every order upsert; the BOM consumption
	// engine subscribes to this one
	EventTypeOrderSynced = "order.synced"
	// EventTypeOrderCreated fires only for newly inserted, recent orders
	EventTypeOrderCreated = "order.created"
	// EventTypeOrderCompleted fires on a transition into completed
	EventTypeOrderCompleted = "order.completed"
)

const aggregateTypeOrder = "Order"

// OrderSyncedEvent is emitted for every upserted order
type OrderSyncedEvent struct {
	shared.BaseDomainEvent
	Order          *Order
	PreviousStatus *OrderStatus
	Transition     TransitionKind
}

// NewOrderSyncedEvent creates an order synced event
func NewOrderSyncedEvent(tenantID uuid.UUID, order *Order, previous *OrderStatus, transition TransitionKind) *OrderSyncedEvent {
	return &OrderSyncedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypeOrderSynced, aggregateTypeOrder,
			strconv.FormatInt(order.RemoteID, 10), tenantID),
		Order:          order,
		PreviousStatus: previous,
		Transition:     transition,
	}
}

// OrderCreatedEvent is emitted when a recent order is first seen locally.
// Historical backfills do not emit it.
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	Order *Order
}

// NewOrderCreatedEvent creates an order created event
func NewOrderCreatedEvent(tenantID uuid.UUID, order *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypeOrderCreated, aggregateTypeOrder,
			strconv.FormatInt(order.RemoteID, 10), tenantID),
		Order: order,
	}
}

// OrderCompletedEvent is emitted on a transition into the completed status
type OrderCompletedEvent struct {
	shared.BaseDomainEvent
	Order *Order
}

// NewOrderCompletedEvent creates an order completed event
func NewOrderCompletedEvent(tenantID uuid.UUID, order *Order) *OrderCompletedEvent {
	return &OrderCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypeOrderCompleted, aggregateTypeOrder,
			strconv.FormatInt(order.RemoteID, 10), tenantID),
		Order: order,
	}
}
