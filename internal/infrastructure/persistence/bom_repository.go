package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storebridge/backend/internal/domain/bom"
	"github.com/storebridge/backend/internal/infrastructure/persistence/models"
)

// GormBOMRepository implements bom.Repository using GORM
type GormBOMRepository struct {
	db *gorm.DB
}

// NewGormBOMRepository creates a new GormBOMRepository
func NewGormBOMRepository(db *gorm.DB) *GormBOMRepository {
	return &GormBOMRepository{db: db}
}

// Save creates or updates the BOM, keyed by its parent
func (r *GormBOMRepository) Save(ctx context.Context, b *bom.BillOfMaterials) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	var model models.BOMModel
	if err := model.FromDomain(b); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "parent_product_id"}, {Name: "parent_variation_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"items", "updated_at"}),
	}).Create(&model).Error
}

// FindForItem finds the BOM for a line item, trying the exact
// (productID, variationID) key first and falling back to the product-level
// BOM. Returns nil when neither exists.
func (r *GormBOMRepository) FindForItem(ctx context.Context, tenantID uuid.UUID, productRemoteID, variationRemoteID int64) (*bom.BillOfMaterials, error) {
	if variationRemoteID != 0 {
		b, err := r.findByParent(ctx, tenantID, productRemoteID, variationRemoteID)
		if err != nil {
			return nil, err
		}
		if b != nil {
			return b, nil
		}
	}
	return r.findByParent(ctx, tenantID, productRemoteID, 0)
}

func (r *GormBOMRepository) findByParent(ctx context.Context, tenantID uuid.UUID, productRemoteID, variationRemoteID int64) (*bom.BillOfMaterials, error) {
	var model models.BOMModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND parent_product_id = ? AND parent_variation_id = ?",
			tenantID, productRemoteID, variationRemoteID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindReferencing returns every BOM whose item list contains the component.
// Matching uses JSONB containment against the stored item rows, so it hits
// the items column's GIN index.
func (r *GormBOMRepository) FindReferencing(ctx context.Context, tenantID uuid.UUID, component bom.Component) ([]*bom.BillOfMaterials, error) {
	needle, err := json.Marshal([]map[string]any{{
		"kind":                string(component.Kind),
		"product_remote_id":   component.ProductRemoteID,
		"variation_remote_id": component.VariationRemoteID,
	}})
	if err != nil {
		return nil, err
	}

	var rows []models.BOMModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND items @> ?", tenantID, string(needle)).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	boms := make([]*bom.BillOfMaterials, 0, len(rows))
	for i := range rows {
		b, err := rows[i].ToDomain()
		if err != nil {
			return nil, fmt.Errorf("decode bom %s: %w", rows[i].ID, err)
		}
		boms = append(boms, b)
	}
	return boms, nil
}

// Delete removes a BOM by ID
func (r *GormBOMRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.BOMModel{}, "id = ?", id).Error
}

var _ bom.Repository = (*GormBOMRepository)(nil)

// GormStockMovementRepository implements bom.MovementRepository using GORM
type GormStockMovementRepository struct {
	db *gorm.DB
}

// NewGormStockMovementRepository creates a new GormStockMovementRepository
func NewGormStockMovementRepository(db *gorm.DB) *GormStockMovementRepository {
	return &GormStockMovementRepository{db: db}
}

// Save appends one movement to the audit trail
func (r *GormStockMovementRepository) Save(ctx context.Context, movement *bom.StockMovement) error {
	if movement.ID == uuid.Nil {
		movement.ID = uuid.New()
	}
	var model models.StockMovementModel
	model.FromDomain(movement)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByOrder returns all movements recorded for an order, oldest first
func (r *GormStockMovementRepository) FindByOrder(ctx context.Context, tenantID uuid.UUID, orderRemoteID int64) ([]*bom.StockMovement, error) {
	var rows []models.StockMovementModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND order_remote_id = ?", tenantID, orderRemoteID).
		Order("occurred_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	movements := make([]*bom.StockMovement, len(rows))
	for i := range rows {
		movements[i] = rows[i].ToDomain()
	}
	return movements, nil
}

var _ bom.MovementRepository = (*GormStockMovementRepository)(nil)
