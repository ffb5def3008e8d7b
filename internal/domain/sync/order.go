package sync

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Order Status
// ---------------------------------------------------------------------------

// OrderStatus represents the lifecycle state of a remote order
type OrderStatus string

const (
	// OrderStatusPending indicates the order is awaiting payment
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing indicates payment received, awaiting fulfilment
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusOnHold indicates the order is on hold
	OrderStatusOnHold OrderStatus = "on-hold"
	// OrderStatusCompleted indicates the order is fulfilled and complete
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled indicates the order was cancelled
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusRefunded indicates the order was refunded
	OrderStatusRefunded OrderStatus = "refunded"
	// OrderStatusFailed indicates payment failed or was declined
	OrderStatusFailed OrderStatus = "failed"
)

// IsValid returns true if the status is a known lifecycle state
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusOnHold,
		OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded,
		OrderStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsConsuming reports whether entering this status consumes component stock
func (s OrderStatus) IsConsuming() bool {
	return s == OrderStatusProcessing || s == OrderStatusCompleted
}

// IsReversing reports whether entering this status restores component stock
func (s OrderStatus) IsReversing() bool {
	switch s {
	case OrderStatusCancelled, OrderStatusRefunded, OrderStatusFailed:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// Status Transitions
// ---------------------------------------------------------------------------

// TransitionKind classifies the outcome of an order upsert
type TransitionKind string

const (
	// TransitionNew indicates the order was newly inserted
	TransitionNew TransitionKind = "NEW"
	// TransitionStatusChanged indicates an existing order changed status
	TransitionStatusChanged TransitionKind = "STATUS_CHANGED"
	// TransitionUnchanged indicates the status did not change
	TransitionUnchanged TransitionKind = "UNCHANGED"
)

// ClassifyTransition compares the previously stored status (nil when the
// order was not present locally) against the incoming one.
func ClassifyTransition(previous *OrderStatus, next OrderStatus) TransitionKind {
	if previous == nil {
		return TransitionNew
	}
	if *previous != next {
		return TransitionStatusChanged
	}
	return TransitionUnchanged
}

// ---------------------------------------------------------------------------
// Order
// ---------------------------------------------------------------------------

// OrderLineItem is a single purchased line on an order
type OrderLineItem struct {
	// ProductRemoteID is the purchased product's remote ID
	ProductRemoteID int64
	// VariationRemoteID is the purchased variation's remote ID, 0 for
	// simple products
	VariationRemoteID int64
	// Quantity is the number of units purchased
	Quantity int
	// Name is the product name at purchase time
	Name string
	// Total is the line total
	Total decimal.Decimal
}

// Order is the local projection of a remote order, one row per
// (tenant, remote ID).
type Order struct {
	TenantID uuid.UUID
	RemoteID int64
	Status   OrderStatus
	Total    decimal.Decimal
	Currency string

	// Denormalized billing fields used for guest linking and review matching
	BillingEmail     string
	BillingFirstName string
	BillingLastName  string
	BillingCountry   string

	// CustomerRemoteID links to the remote customer, nil for guest checkouts
	CustomerRemoteID *int64

	LineItems []OrderLineItem

	// RawPayload preserves the original remote record for fields not yet
	// modeled
	RawPayload json.RawMessage

	RemoteCreatedAt  time.Time
	RemoteModifiedAt time.Time
}

// IsRecent reports whether the order was created within the given window of
// now. Used to suppress "created" events during historical backfills.
func (o *Order) IsRecent(window time.Duration) bool {
	return time.Since(o.RemoteCreatedAt) <= window
}

// OrderMatchCandidate is the lightweight projection of an order used by the
// review matcher. It deliberately excludes the raw payload; loading full
// orders for matching caused an out-of-memory failure in the past.
type OrderMatchCandidate struct {
	RemoteID         int64
	CustomerRemoteID *int64
	BillingEmail     string
	BillingFirstName string
	BillingLastName  string
	RemoteCreatedAt  time.Time
	ItemProductIDs   []int64
	ItemVariationIDs []int64
}
