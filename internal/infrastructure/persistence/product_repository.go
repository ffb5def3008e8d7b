package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storebridge/backend/internal/domain/shared"
	domain "github.com/storebridge/backend/internal/domain/sync"
	"github.com/storebridge/backend/internal/infrastructure/persistence/models"
)

// GormProductRepository implements domain.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// UpsertBatch creates or replaces the given products in one transaction
func (r *GormProductRepository) UpsertBatch(ctx context.Context, tenantID uuid.UUID, products []*domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	rows := make([]models.ProductModel, len(products))
	for i, p := range products {
		rows[i].FromDomain(p)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "remote_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "sku", "type", "price", "stock_status", "stock_quantity",
				"seo_score", "compliance_score", "raw_payload",
				"remote_created_at", "remote_modified_at", "updated_at",
			}),
		}).Create(&rows).Error
	})
}

// AllRemoteIDs returns stored remote IDs, excluding internal-only products
// which have no remote counterpart and must never be reconciled away.
func (r *GormProductRepository) AllRemoteIDs(ctx context.Context, tenantID uuid.UUID) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("tenant_id = ? AND internal = false", tenantID).
		Pluck("remote_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteByRemoteIDs removes products in one batched statement
func (r *GormProductRepository) DeleteByRemoteIDs(ctx context.Context, tenantID uuid.UUID, remoteIDs []int64) (int64, error) {
	if len(remoteIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND remote_id IN ? AND internal = false", tenantID, remoteIDs).
		Delete(&models.ProductModel{})
	return result.RowsAffected, result.Error
}

// GetStockQuantity returns the stored quantity; nil means stock tracking is
// disabled for the product.
func (r *GormProductRepository) GetStockQuantity(ctx context.Context, tenantID uuid.UUID, remoteID int64) (*int, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).
		Select("stock_quantity").
		Where("tenant_id = ? AND remote_id = ?", tenantID, remoteID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.StockQuantity, nil
}

// SetStockQuantity writes the stored quantity and refreshes stock status
func (r *GormProductRepository) SetStockQuantity(ctx context.Context, tenantID uuid.UUID, remoteID int64, quantity int) error {
	status := domain.StockStatusInStock
	if quantity <= 0 {
		status = domain.StockStatusOutOfStock
	}
	result := r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("tenant_id = ? AND remote_id = ?", tenantID, remoteID).
		Updates(map[string]any{
			"stock_quantity": quantity,
			"stock_status":   string(status),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ domain.ProductRepository = (*GormProductRepository)(nil)

// GormVariationRepository implements domain.VariationRepository using GORM
type GormVariationRepository struct {
	db *gorm.DB
}

// NewGormVariationRepository creates a new GormVariationRepository
func NewGormVariationRepository(db *gorm.DB) *GormVariationRepository {
	return &GormVariationRepository{db: db}
}

// UpsertBatch creates or replaces the given variations in one transaction
func (r *GormVariationRepository) UpsertBatch(ctx context.Context, tenantID uuid.UUID, variations []*domain.ProductVariation) error {
	if len(variations) == 0 {
		return nil
	}
	rows := make([]models.VariationModel, len(variations))
	for i, v := range variations {
		rows[i].FromDomain(v)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "remote_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"product_remote_id", "sku", "price", "stock_status", "stock_quantity",
				"raw_payload", "remote_created_at", "remote_modified_at", "updated_at",
			}),
		}).Create(&rows).Error
	})
}

// AllRemoteIDs returns stored variation remote IDs for the tenant
func (r *GormVariationRepository) AllRemoteIDs(ctx context.Context, tenantID uuid.UUID) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.VariationModel{}).
		Where("tenant_id = ?", tenantID).
		Pluck("remote_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteByRemoteIDs removes variations in one batched statement
func (r *GormVariationRepository) DeleteByRemoteIDs(ctx context.Context, tenantID uuid.UUID, remoteIDs []int64) (int64, error) {
	if len(remoteIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND remote_id IN ?", tenantID, remoteIDs).
		Delete(&models.VariationModel{})
	return result.RowsAffected, result.Error
}

// GetStockQuantity returns the stored quantity; nil means stock tracking is
// disabled for the variation.
func (r *GormVariationRepository) GetStockQuantity(ctx context.Context, tenantID uuid.UUID, remoteID int64) (*int, error) {
	var model models.VariationModel
	if err := r.db.WithContext(ctx).
		Select("stock_quantity").
		Where("tenant_id = ? AND remote_id = ?", tenantID, remoteID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.StockQuantity, nil
}

// SetStockQuantity writes the stored quantity and refreshes stock status
func (r *GormVariationRepository) SetStockQuantity(ctx context.Context, tenantID uuid.UUID, remoteID int64, quantity int) error {
	status := domain.StockStatusInStock
	if quantity <= 0 {
		status = domain.StockStatusOutOfStock
	}
	result := r.db.WithContext(ctx).
		Model(&models.VariationModel{}).
		Where("tenant_id = ? AND remote_id = ?", tenantID, remoteID).
		Updates(map[string]any{
			"stock_quantity": quantity,
			"stock_status":   string(status),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ domain.VariationRepository = (*GormVariationRepository)(nil)
