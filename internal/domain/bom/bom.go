// Package bom models bills of materials: a parent product or variation's
// declared list of component requirements with quantity multipliers, and the
// stock movements produced when orders consume or restore those components.
package bom

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/storebridge/backend/internal/domain/shared"
)

// ComponentKind distinguishes what a BOM item references
type ComponentKind string

const (
	// ComponentKindProduct references a simple product that also exists on
	// the remote platform
	ComponentKindProduct ComponentKind = "product"
	// ComponentKindVariation references a product variation on the remote
	// platform
	ComponentKindVariation ComponentKind = "variation"
	// ComponentKindInternal references a local-only product; its stock is
	// never pushed to the platform
	ComponentKindInternal ComponentKind = "internal"
)

// IsValid returns true if the component kind is valid
func (k ComponentKind) IsValid() bool {
	switch k {
	case ComponentKindProduct, ComponentKindVariation, ComponentKindInternal:
		return true
	default:
		return false
	}
}

// Component identifies exactly one stock-bearing thing a BOM item consumes
type Component struct {
	Kind              ComponentKind
	ProductRemoteID   int64
	VariationRemoteID int64
}

// Key returns a stable identity string, used for visited sets during cascade
// traversal and for audit records.
func (c Component) Key() string {
	return fmt.Sprintf("%s:%d:%d", c.Kind, c.ProductRemoteID, c.VariationRemoteID)
}

// Validate checks the component's internal consistency
func (c Component) Validate() error {
	if !c.Kind.IsValid() {
		return shared.NewDomainError("INVALID_COMPONENT_KIND", "Unknown component kind")
	}
	if c.ProductRemoteID <= 0 {
		return shared.NewDomainError("INVALID_COMPONENT", "Component product ID must be positive")
	}
	if c.Kind == ComponentKindVariation && c.VariationRemoteID <= 0 {
		return shared.NewDomainError("INVALID_COMPONENT", "Variation component requires a variation ID")
	}
	if c.Kind != ComponentKindVariation && c.VariationRemoteID != 0 {
		return shared.NewDomainError("INVALID_COMPONENT", "Only variation components carry a variation ID")
	}
	return nil
}

// Item is one component requirement on a BOM
type Item struct {
	Component Component
	// Quantity is the per-unit multiplier: units of the component consumed
	// per unit of the parent
	Quantity int
}

// BillOfMaterials is the ordered component list for one parent product or
// variation. ParentVariationID is 0 for non-variable parents; BOM lookup for
// a line item falls back from (product, variation) to (product, 0).
type BillOfMaterials struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	ParentProductID   int64
	ParentVariationID int64
	Items             []Item

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks structural invariants: positive quantities and well-formed
// component references. Tenant consistency of the referenced components is
// enforced at the repository layer, where component rows are visible.
func (b *BillOfMaterials) Validate() error {
	if b.ParentProductID <= 0 {
		return shared.NewDomainError("INVALID_BOM", "Parent product ID must be positive")
	}
	if len(b.Items) == 0 {
		return shared.NewDomainError("INVALID_BOM", "A BOM requires at least one item")
	}
	for i, item := range b.Items {
		if item.Quantity <= 0 {
			return shared.NewDomainError("INVALID_BOM", fmt.Sprintf("Item %d has a non-positive quantity", i))
		}
		if err := item.Component.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ParentComponent returns the parent expressed as a component reference,
// used when a parent assembly is itself a component elsewhere.
func (b *BillOfMaterials) ParentComponent() Component {
	if b.ParentVariationID != 0 {
		return Component{
			Kind:              ComponentKindVariation,
			ProductRemoteID:   b.ParentProductID,
			VariationRemoteID: b.ParentVariationID,
		}
	}
	return Component{
		Kind:            ComponentKindProduct,
		ProductRemoteID: b.ParentProductID,
	}
}

// ---------------------------------------------------------------------------
// Stock Movements
// ---------------------------------------------------------------------------

// Direction records whether a movement consumed or restored stock
type Direction string

const (
	// DirectionConsume deducts component stock
	DirectionConsume Direction = "consume"
	// DirectionRestore returns previously consumed stock
	DirectionRestore Direction = "restore"
)

// StockMovement is the audit record of one successful component deduction or
// restoration.
type StockMovement struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	OrderRemoteID int64
	Component     Component
	Direction     Direction
	Quantity      int
	PreviousStock int
	NewStock      int
	OccurredAt    time.Time
}
