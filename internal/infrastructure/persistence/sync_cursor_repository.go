package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/storebridge/backend/internal/domain/sync"
	"github.com/storebridge/backend/internal/infrastructure/persistence/models"
)

// GormSyncCursorRepository implements domain.SyncCursorRepository using GORM
type GormSyncCursorRepository struct {
	db *gorm.DB
}

// NewGormSyncCursorRepository creates a new GormSyncCursorRepository
func NewGormSyncCursorRepository(db *gorm.DB) *GormSyncCursorRepository {
	return &GormSyncCursorRepository{db: db}
}

// Get returns the cursor, or nil when no sync has completed yet
func (r *GormSyncCursorRepository) Get(ctx context.Context, tenantID uuid.UUID, entityType domain.EntityType) (*domain.SyncCursor, error) {
	var model models.SyncCursorModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_type = ?", tenantID, entityType.String()).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &domain.SyncCursor{
		TenantID:     model.TenantID,
		EntityType:   domain.EntityType(model.EntityType),
		LastSyncedAt: model.LastSyncedAt,
	}, nil
}

// Save writes the cursor; called only after a successful sync
func (r *GormSyncCursorRepository) Save(ctx context.Context, cursor *domain.SyncCursor) error {
	model := models.SyncCursorModel{
		TenantID:     cursor.TenantID,
		EntityType:   cursor.EntityType.String(),
		LastSyncedAt: cursor.LastSyncedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "entity_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_synced_at", "updated_at"}),
	}).Create(&model).Error
}

var _ domain.SyncCursorRepository = (*GormSyncCursorRepository)(nil)
