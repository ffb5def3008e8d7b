package bom

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists bills of materials
type Repository interface {
	// Save creates or updates a BOM
	Save(ctx context.Context, b *BillOfMaterials) error

	// FindForItem finds the BOM for a line item, trying
	// (productID, variationID) first and falling back to (productID, 0).
	// Returns nil when no BOM exists for either key.
	FindForItem(ctx context.Context, tenantID uuid.UUID, productRemoteID, variationRemoteID int64) (*BillOfMaterials, error)

	// FindReferencing returns every BOM (scoped to the tenant) that lists
	// the given component among its items. Drives cascade recomputation.
	FindReferencing(ctx context.Context, tenantID uuid.UUID, component Component) ([]*BillOfMaterials, error)

	// Delete removes a BOM
	Delete(ctx context.Context, id uuid.UUID) error
}

// MovementRepository persists the stock movement audit trail
type MovementRepository interface {
	Save(ctx context.Context, movement *StockMovement) error

	// FindByOrder returns all movements recorded for an order
	FindByOrder(ctx context.Context, tenantID uuid.UUID, orderRemoteID int64) ([]*StockMovement, error)
}
