package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// GuestOrder is the projection used by guest-order linking: an order with no
// linked customer but a known billing email.
type GuestOrder struct {
	RemoteID     int64
	BillingEmail string
}

// OrderRepository persists order projections, one row per (tenant, remote ID)
type OrderRepository interface {
	// FindStatuses returns the stored status for each remote ID that exists
	// locally. Missing IDs are absent from the map.
	FindStatuses(ctx context.Context, tenantID uuid.UUID, remoteIDs []int64) (map[int64]OrderStatus, error)

	// FindByRemoteID loads one order including its line items
	FindByRemoteID(ctx context.Context, tenantID uuid.UUID, remoteID int64) (*Order, error)

	// UpsertBatch creates or replaces the given orders in one transaction
	UpsertBatch(ctx context.Context, tenantID uuid.UUID, orders []*Order) error

	// AllRemoteIDs returns every stored remote ID for the tenant
	AllRemoteIDs(ctx context.Context, tenantID uuid.UUID) ([]int64, error)

	// DeleteByRemoteIDs removes orders in one batched statement and returns
	// the number of rows deleted
	DeleteByRemoteIDs(ctx context.Context, tenantID uuid.UUID, remoteIDs []int64) (int64, error)

	// FindMatchCandidates returns the lightweight matching projection of
	// orders created within [from, to], excluding raw payloads
	FindMatchCandidates(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]OrderMatchCandidate, error)

	// FindGuestOrders returns orders with no linked customer but a non-empty
	// billing email
	FindGuestOrders(ctx context.Context, tenantID uuid.UUID) ([]GuestOrder, error)

	// LinkCustomer bulk-links the given orders to a customer and returns the
	// number of rows updated
	LinkCustomer(ctx context.Context, tenantID uuid.UUID, customerRemoteID int64, orderRemoteIDs []int64) (int64, error)
}

// CustomerRepository persists customer projections
type CustomerRepository interface {
	// FindByEmail looks a customer up by email, case-insensitively
	FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*Customer, error)

	// UpsertBatch creates or replaces the given customers
	UpsertBatch(ctx context.Context, tenantID uuid.UUID, customers []*Customer) error

	// RecomputeOrderCounts recomputes every customer's denormalized order
	// count inside a single transaction guarded by a per-tenant advisory
	// lock. Safe to invoke concurrently from multiple workers.
	RecomputeOrderCounts(ctx context.Context, tenantID uuid.UUID) error
}

// ProductRepository persists product projections
type ProductRepository interface {
	UpsertBatch(ctx context.Context, tenantID uuid.UUID, products []*Product) error

	// AllRemoteIDs returns stored remote IDs, excluding internal-only
	// products which have no remote counterpart
	AllRemoteIDs(ctx context.Context, tenantID uuid.UUID) ([]int64, error)

	DeleteByRemoteIDs(ctx context.Context, tenantID uuid.UUID, remoteIDs []int64) (int64, error)

	// GetStockQuantity returns the stored quantity; nil means stock tracking
	// is disabled for the product
	GetStockQuantity(ctx context.Context, tenantID uuid.UUID, remoteID int64) (*int, error)

	// SetStockQuantity writes the stored quantity and refreshes stock status
	SetStockQuantity(ctx context.Context, tenantID uuid.UUID, remoteID int64, quantity int) error
}

// VariationRepository persists product variation projections
type VariationRepository interface {
	UpsertBatch(ctx context.Context, tenantID uuid.UUID, variations []*ProductVariation) error

	// AllRemoteIDs returns stored variation remote IDs for the tenant,
	// tracked independently of product IDs so stale variations can be
	// reconciled without touching their parents
	AllRemoteIDs(ctx context.Context, tenantID uuid.UUID) ([]int64, error)

	DeleteByRemoteIDs(ctx context.Context, tenantID uuid.UUID, remoteIDs []int64) (int64, error)

	GetStockQuantity(ctx context.Context, tenantID uuid.UUID, remoteID int64) (*int, error)

	SetStockQuantity(ctx context.Context, tenantID uuid.UUID, remoteID int64, quantity int) error
}

// ReviewRepository persists review projections
type ReviewRepository interface {
	UpsertBatch(ctx context.Context, tenantID uuid.UUID, reviews []*Review) error
	AllRemoteIDs(ctx context.Context, tenantID uuid.UUID) ([]int64, error)
	DeleteByRemoteIDs(ctx context.Context, tenantID uuid.UUID, remoteIDs []int64) (int64, error)
}

// SyncCursorRepository persists the per (tenant, entity type) incremental
// cursor
type SyncCursorRepository interface {
	// Get returns the cursor, or nil when no sync has completed yet
	Get(ctx context.Context, tenantID uuid.UUID, entityType EntityType) (*SyncCursor, error)

	// Save writes the cursor; called only after a successful sync
	Save(ctx context.Context, cursor *SyncCursor) error
}
