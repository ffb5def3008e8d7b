package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storebridge/backend/internal/domain/shared"
	domain "github.com/storebridge/backend/internal/domain/sync"
	"github.com/storebridge/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements domain.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindStatuses returns the stored status for each remote ID that exists
// locally.
func (r *GormOrderRepository) FindStatuses(ctx context.Context, tenantID uuid.UUID, remoteIDs []int64) (map[int64]domain.OrderStatus, error) {
	if len(remoteIDs) == 0 {
		return map[int64]domain.OrderStatus{}, nil
	}

	var rows []struct {
		RemoteID int64
		Status   string
	}
	if err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Select("remote_id", "status").
		Where("tenant_id = ? AND remote_id IN ?", tenantID, remoteIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	statuses := make(map[int64]domain.OrderStatus, len(rows))
	for _, row := range rows {
		statuses[row.RemoteID] = domain.OrderStatus(row.Status)
	}
	return statuses, nil
}

// FindByRemoteID loads one order including its line items
func (r *GormOrderRepository) FindByRemoteID(ctx context.Context, tenantID uuid.UUID, remoteID int64) (*domain.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND remote_id = ?", tenantID, remoteID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// UpsertBatch creates or replaces the given orders in one transaction
func (r *GormOrderRepository) UpsertBatch(ctx context.Context, tenantID uuid.UUID, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	rows := make([]models.OrderModel, len(orders))
	for i, o := range orders {
		if err := rows[i].FromDomain(o); err != nil {
			return err
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "remote_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "total", "currency",
				"billing_email", "billing_first_name", "billing_last_name", "billing_country",
				"customer_remote_id", "line_items", "raw_payload",
				"remote_created_at", "remote_modified_at", "updated_at",
			}),
		}).Create(&rows).Error
	})
}

// AllRemoteIDs returns every stored remote ID for the tenant
func (r *GormOrderRepository) AllRemoteIDs(ctx context.Context, tenantID uuid.UUID) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("tenant_id = ?", tenantID).
		Pluck("remote_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteByRemoteIDs removes orders in one batched statement
func (r *GormOrderRepository) DeleteByRemoteIDs(ctx context.Context, tenantID uuid.UUID, remoteIDs []int64) (int64, error) {
	if len(remoteIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND remote_id IN ?", tenantID, remoteIDs).
		Delete(&models.OrderModel{})
	return result.RowsAffected, result.Error
}

// FindMatchCandidates returns the lightweight matching projection of orders
// created within [from, to]. The raw payload is deliberately excluded.
func (r *GormOrderRepository) FindMatchCandidates(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]domain.OrderMatchCandidate, error) {
	var rows []struct {
		RemoteID         int64
		CustomerRemoteID *int64
		BillingEmail     string
		BillingFirstName string
		BillingLastName  string
		RemoteCreatedAt  time.Time
		LineItems        []byte
	}
	if err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Select("remote_id", "customer_remote_id", "billing_email",
			"billing_first_name", "billing_last_name", "remote_created_at", "line_items").
		Where("tenant_id = ? AND remote_created_at BETWEEN ? AND ?", tenantID, from, to).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	candidates := make([]domain.OrderMatchCandidate, 0, len(rows))
	for _, row := range rows {
		var items []struct {
			ProductRemoteID   int64 `json:"product_remote_id"`
			VariationRemoteID int64 `json:"variation_remote_id"`
		}
		if len(row.LineItems) > 0 {
			if err := json.Unmarshal(row.LineItems, &items); err != nil {
				return nil, err
			}
		}
		c := domain.OrderMatchCandidate{
			RemoteID:         row.RemoteID,
			CustomerRemoteID: row.CustomerRemoteID,
			BillingEmail:     row.BillingEmail,
			BillingFirstName: row.BillingFirstName,
			BillingLastName:  row.BillingLastName,
			RemoteCreatedAt:  row.RemoteCreatedAt,
		}
		for _, item := range items {
			c.ItemProductIDs = append(c.ItemProductIDs, item.ProductRemoteID)
			if item.VariationRemoteID != 0 {
				c.ItemVariationIDs = append(c.ItemVariationIDs, item.VariationRemoteID)
			}
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// FindGuestOrders returns orders with no linked customer but a non-empty
// billing email
func (r *GormOrderRepository) FindGuestOrders(ctx context.Context, tenantID uuid.UUID) ([]domain.GuestOrder, error) {
	var rows []struct {
		RemoteID     int64
		BillingEmail string
	}
	if err := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Select("remote_id", "billing_email").
		Where("tenant_id = ? AND customer_remote_id IS NULL AND billing_email <> ''", tenantID).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	guests := make([]domain.GuestOrder, len(rows))
	for i, row := range rows {
		guests[i] = domain.GuestOrder{RemoteID: row.RemoteID, BillingEmail: row.BillingEmail}
	}
	return guests, nil
}

// LinkCustomer bulk-links the given orders to a customer
func (r *GormOrderRepository) LinkCustomer(ctx context.Context, tenantID uuid.UUID, customerRemoteID int64, orderRemoteIDs []int64) (int64, error) {
	if len(orderRemoteIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("tenant_id = ? AND remote_id IN ? AND customer_remote_id IS NULL", tenantID, orderRemoteIDs).
		Update("customer_remote_id", customerRemoteID)
	return result.RowsAffected, result.Error
}

var _ domain.OrderRepository = (*GormOrderRepository)(nil)
