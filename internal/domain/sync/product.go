package sync

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockStatus represents the stock availability of a product or variation
type StockStatus string

const (
	// StockStatusInStock indicates the item can be purchased
	StockStatusInStock StockStatus = "in_stock"
	// StockStatusOutOfStock indicates the item is depleted
	StockStatusOutOfStock StockStatus = "out_of_stock"
	// StockStatusOnBackorder indicates the item is purchasable on backorder
	StockStatusOnBackorder StockStatus = "on_backorder"
)

// IsValid returns true if the stock status is valid
func (s StockStatus) IsValid() bool {
	switch s {
	case StockStatusInStock, StockStatusOutOfStock, StockStatusOnBackorder:
		return true
	default:
		return false
	}
}

// ProductType distinguishes simple products from variable (variation-bearing)
// products
type ProductType string

const (
	// ProductTypeSimple is a product without variations
	ProductTypeSimple ProductType = "simple"
	// ProductTypeVariable is a product whose purchasable units are variations
	ProductTypeVariable ProductType = "variable"
)

// Product is the local projection of a remote product.
//
// Price is nil when the remote record carries no price at this level, which
// is normal for variable parents; nil must never collapse to zero.
// StockQuantity is nil when stock tracking is disabled on the remote side,
// which is distinct from an explicit zero (depleted).
type Product struct {
	TenantID uuid.UUID
	RemoteID int64
	Name     string
	SKU      string
	Type     ProductType

	Price         *decimal.Decimal
	StockStatus   StockStatus
	StockQuantity *int

	// Internal marks products that exist only locally (assembly components
	// with no remote counterpart). Internal products are never reconciled
	// against the remote set and their stock is never pushed.
	Internal bool

	SEOScore        int
	ComplianceScore int

	RawPayload json.RawMessage

	RemoteCreatedAt  time.Time
	RemoteModifiedAt time.Time
}

// HasVariations reports whether a secondary variation fetch is required
func (p *Product) HasVariations() bool {
	return p.Type == ProductTypeVariable
}

// ProductVariation is the local projection of a remote product variation,
// one row per (tenant, parent product, remote variation ID).
type ProductVariation struct {
	TenantID        uuid.UUID
	ProductRemoteID int64
	RemoteID        int64
	SKU             string

	Price         *decimal.Decimal
	StockStatus   StockStatus
	StockQuantity *int

	RawPayload json.RawMessage

	RemoteCreatedAt  time.Time
	RemoteModifiedAt time.Time
}
