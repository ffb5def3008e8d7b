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

// GormCustomerRepository implements domain.CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByEmail looks a customer up by email, case-insensitively
func (r *GormCustomerRepository) FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*domain.Customer, error) {
	if email == "" {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Email cannot be empty")
	}
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND LOWER(email) = LOWER(?)", tenantID, email).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// UpsertBatch creates or replaces the given customers
func (r *GormCustomerRepository) UpsertBatch(ctx context.Context, tenantID uuid.UUID, customers []*domain.Customer) error {
	if len(customers) == 0 {
		return nil
	}
	rows := make([]models.CustomerModel, len(customers))
	for i, c := range customers {
		rows[i].FromDomain(c)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "remote_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "first_name", "last_name", "remote_created_at", "updated_at",
		}),
	}).Create(&rows).Error
}

// RecomputeOrderCounts recomputes every customer's denormalized order count
// inside one transaction guarded by a per-tenant advisory lock. The lock
// serializes concurrent recomputes, which would otherwise deadlock on the
// bulk update; it is released automatically at transaction end.
func (r *GormCustomerRepository) RecomputeOrderCounts(ctx context.Context, tenantID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			"SELECT pg_advisory_xact_lock(hashtext(?))",
			"customer-counts:"+tenantID.String(),
		).Error; err != nil {
			return err
		}

		return tx.Exec(`
			UPDATE customers c
			SET orders_count = (
				SELECT COUNT(*)
				FROM orders o
				WHERE o.tenant_id = c.tenant_id
				  AND o.customer_remote_id = c.remote_id
			),
			updated_at = NOW()
			WHERE c.tenant_id = ?`,
			tenantID,
		).Error
	})
}

var _ domain.CustomerRepository = (*GormCustomerRepository)(nil)
