package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/storebridge/backend/internal/domain/sync"
	"github.com/storebridge/backend/internal/infrastructure/persistence/models"
)

// GormReviewRepository implements domain.ReviewRepository using GORM
type GormReviewRepository struct {
	db *gorm.DB
}

// NewGormReviewRepository creates a new GormReviewRepository
func NewGormReviewRepository(db *gorm.DB) *GormReviewRepository {
	return &GormReviewRepository{db: db}
}

// UpsertBatch creates or replaces the given reviews in one transaction
func (r *GormReviewRepository) UpsertBatch(ctx context.Context, tenantID uuid.UUID, reviews []*domain.Review) error {
	if len(reviews) == 0 {
		return nil
	}
	rows := make([]models.ReviewModel, len(reviews))
	for i, review := range reviews {
		rows[i].FromDomain(review)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "remote_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"product_remote_id", "rating", "content", "status",
				"reviewer_name", "reviewer_email",
				"customer_remote_id", "order_remote_id", "match_status",
				"raw_payload", "remote_created_at", "updated_at",
			}),
		}).Create(&rows).Error
	})
}

// AllRemoteIDs returns every stored review remote ID for the tenant
func (r *GormReviewRepository) AllRemoteIDs(ctx context.Context, tenantID uuid.UUID) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).
		Model(&models.ReviewModel{}).
		Where("tenant_id = ?", tenantID).
		Pluck("remote_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteByRemoteIDs removes reviews in one batched statement
func (r *GormReviewRepository) DeleteByRemoteIDs(ctx context.Context, tenantID uuid.UUID, remoteIDs []int64) (int64, error) {
	if len(remoteIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND remote_id IN ?", tenantID, remoteIDs).
		Delete(&models.ReviewModel{})
	return result.RowsAffected, result.Error
}

var _ domain.ReviewRepository = (*GormReviewRepository)(nil)
