package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/storebridge/backend/internal/domain/bom"
)

// BOMModel persists one bill of materials per parent (product, variation).
// Items are stored as JSONB; they are always loaded as a unit.
type BOMModel struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_boms_tenant_parent"`

	ParentProductID   int64 `gorm:"not null;uniqueIndex:idx_boms_tenant_parent"`
	ParentVariationID int64 `gorm:"not null;default:0;uniqueIndex:idx_boms_tenant_parent"`

	Items json.RawMessage `gorm:"type:jsonb;not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name
func (BOMModel) TableName() string { return "bill_of_materials" }

// bomItemRow is the JSONB shape of one stored BOM item
type bomItemRow struct {
	Kind              string `json:"kind"`
	ProductRemoteID   int64  `json:"product_remote_id"`
	VariationRemoteID int64  `json:"variation_remote_id"`
	Quantity          int    `json:"quantity"`
}

// FromDomain populates the model from a domain BOM
func (m *BOMModel) FromDomain(b *bom.BillOfMaterials) error {
	rows := make([]bomItemRow, 0, len(b.Items))
	for _, item := range b.Items {
		rows = append(rows, bomItemRow{
			Kind:              string(item.Component.Kind),
			ProductRemoteID:   item.Component.ProductRemoteID,
			VariationRemoteID: item.Component.VariationRemoteID,
			Quantity:          item.Quantity,
		})
	}
	items, err := json.Marshal(rows)
	if err != nil {
		return err
	}

	m.ID = b.ID
	m.TenantID = b.TenantID
	m.ParentProductID = b.ParentProductID
	m.ParentVariationID = b.ParentVariationID
	m.Items = items
	return nil
}

// ToDomain converts the model to a domain BOM
func (m *BOMModel) ToDomain() (*bom.BillOfMaterials, error) {
	var rows []bomItemRow
	if err := json.Unmarshal(m.Items, &rows); err != nil {
		return nil, err
	}
	items := make([]bom.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, bom.Item{
			Component: bom.Component{
				Kind:              bom.ComponentKind(row.Kind),
				ProductRemoteID:   row.ProductRemoteID,
				VariationRemoteID: row.VariationRemoteID,
			},
			Quantity: row.Quantity,
		})
	}

	return &bom.BillOfMaterials{
		ID:                m.ID,
		TenantID:          m.TenantID,
		ParentProductID:   m.ParentProductID,
		ParentVariationID: m.ParentVariationID,
		Items:             items,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}, nil
}

// StockMovementModel persists the audit trail of component stock movements
type StockMovementModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID      uuid.UUID `gorm:"type:uuid;not null;index:idx_movements_tenant_order"`
	OrderRemoteID int64     `gorm:"not null;index:idx_movements_tenant_order"`

	ComponentKind     string `gorm:"type:varchar(16);not null"`
	ProductRemoteID   int64  `gorm:"not null"`
	VariationRemoteID int64  `gorm:"not null;default:0"`

	Direction     string `gorm:"type:varchar(16);not null"`
	Quantity      int    `gorm:"not null"`
	PreviousStock int    `gorm:"not null"`
	NewStock      int    `gorm:"not null"`

	OccurredAt time.Time `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name
func (StockMovementModel) TableName() string { return "stock_movements" }

// FromDomain populates the model from a domain stock movement
func (m *StockMovementModel) FromDomain(s *bom.StockMovement) {
	m.ID = s.ID
	m.TenantID = s.TenantID
	m.OrderRemoteID = s.OrderRemoteID
	m.ComponentKind = string(s.Component.Kind)
	m.ProductRemoteID = s.Component.ProductRemoteID
	m.VariationRemoteID = s.Component.VariationRemoteID
	m.Direction = string(s.Direction)
	m.Quantity = s.Quantity
	m.PreviousStock = s.PreviousStock
	m.NewStock = s.NewStock
	m.OccurredAt = s.OccurredAt
}

// ToDomain converts the model to a domain stock movement
func (m *StockMovementModel) ToDomain() *bom.StockMovement {
	return &bom.StockMovement{
		ID:            m.ID,
		TenantID:      m.TenantID,
		OrderRemoteID: m.OrderRemoteID,
		Component: bom.Component{
			Kind:              bom.ComponentKind(m.ComponentKind),
			ProductRemoteID:   m.ProductRemoteID,
			VariationRemoteID: m.VariationRemoteID,
		},
		Direction:     bom.Direction(m.Direction),
		Quantity:      m.Quantity,
		PreviousStock: m.PreviousStock,
		NewStock:      m.NewStock,
		OccurredAt:    m.OccurredAt,
	}
}
