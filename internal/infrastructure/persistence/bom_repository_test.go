package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storebridge/backend/internal/domain/bom"
)

func TestGormBOMRepository_FindForItem(t *testing.T) {
	itemsJSON := []byte(`[{"kind":"internal","product_remote_id":900,"variation_remote_id":0,"quantity":2}]`)

	t.Run("prefers the variation-level key", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormBOMRepository(db)

		tenantID := uuid.New()
		bomID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "parent_product_id", "parent_variation_id", "items"}).
			AddRow(bomID, tenantID, int64(56), int64(561), itemsJSON)

		mock.ExpectQuery(`SELECT \* FROM "bill_of_materials" WHERE tenant_id = \$1 AND parent_product_id = \$2 AND parent_variation_id = \$3 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, int64(56), int64(561), 1).
			WillReturnRows(rows)

		found, err := repo.FindForItem(context.Background(), tenantID, 56, 561)

		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, bomID, found.ID)
		assert.Equal(t, int64(561), found.ParentVariationID)
		require.Len(t, found.Items, 1)
		assert.Equal(t, bom.ComponentKindInternal, found.Items[0].Component.Kind)
		assert.Equal(t, 2, found.Items[0].Quantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("falls back to the product-level key", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormBOMRepository(db)

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "bill_of_materials"`).
			WithArgs(tenantID, int64(56), int64(561), 1).
			WillReturnError(gorm.ErrRecordNotFound)

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "parent_product_id", "parent_variation_id", "items"}).
			AddRow(uuid.New(), tenantID, int64(56), int64(0), itemsJSON)

		mock.ExpectQuery(`SELECT \* FROM "bill_of_materials"`).
			WithArgs(tenantID, int64(56), int64(0), 1).
			WillReturnRows(rows)

		found, err := repo.FindForItem(context.Background(), tenantID, 56, 561)

		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, int64(0), found.ParentVariationID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil when neither key exists", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormBOMRepository(db)

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "bill_of_materials"`).
			WillReturnError(gorm.ErrRecordNotFound)
		mock.ExpectQuery(`SELECT \* FROM "bill_of_materials"`).
			WillReturnError(gorm.ErrRecordNotFound)

		found, err := repo.FindForItem(context.Background(), tenantID, 56, 561)

		assert.NoError(t, err)
		assert.Nil(t, found)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips the variation lookup for simple items", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormBOMRepository(db)

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "bill_of_materials"`).
			WithArgs(tenantID, int64(55), int64(0), 1).
			WillReturnError(gorm.ErrRecordNotFound)

		found, err := repo.FindForItem(context.Background(), tenantID, 55, 0)

		assert.NoError(t, err)
		assert.Nil(t, found)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormBOMRepository_FindReferencing(t *testing.T) {
	t.Run("matches on JSONB containment", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormBOMRepository(db)

		tenantID := uuid.New()
		itemsJSON := []byte(`[{"kind":"product","product_remote_id":55,"variation_remote_id":0,"quantity":3}]`)

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "parent_product_id", "parent_variation_id", "items"}).
			AddRow(uuid.New(), tenantID, int64(70), int64(0), itemsJSON)

		mock.ExpectQuery(`SELECT \* FROM "bill_of_materials" WHERE tenant_id = \$1 AND items @> \$2`).
			WithArgs(tenantID, `[{"kind":"product","product_remote_id":55,"variation_remote_id":0}]`).
			WillReturnRows(rows)

		boms, err := repo.FindReferencing(context.Background(), tenantID, bom.Component{
			Kind:            bom.ComponentKindProduct,
			ProductRemoteID: 55,
		})

		require.NoError(t, err)
		require.Len(t, boms, 1)
		assert.Equal(t, int64(70), boms[0].ParentProductID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormBOMRepository_Save(t *testing.T) {
	t.Run("rejects invalid BOMs without touching the database", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormBOMRepository(db)

		err := repo.Save(context.Background(), &bom.BillOfMaterials{
			TenantID:        uuid.New(),
			ParentProductID: 56,
		})

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("upserts on the parent key", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormBOMRepository(db)

		mock.ExpectExec(`INSERT INTO "bill_of_materials" .* ON CONFLICT \("tenant_id","parent_product_id","parent_variation_id"\) DO UPDATE SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		b := &bom.BillOfMaterials{
			TenantID:        uuid.New(),
			ParentProductID: 56,
			Items: []bom.Item{
				{Component: bom.Component{Kind: bom.ComponentKindInternal, ProductRemoteID: 900}, Quantity: 2},
			},
		}
		err := repo.Save(context.Background(), b)

		assert.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, b.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockMovementRepository(t *testing.T) {
	t.Run("save assigns an ID and inserts", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormStockMovementRepository(db)

		mock.ExpectExec(`INSERT INTO "stock_movements"`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		movement := &bom.StockMovement{
			TenantID:      uuid.New(),
			OrderRemoteID: 101,
			Component:     bom.Component{Kind: bom.ComponentKindInternal, ProductRemoteID: 900},
			Direction:     bom.DirectionConsume,
			Quantity:      4,
			PreviousStock: 10,
			NewStock:      6,
			OccurredAt:    time.Now().UTC(),
		}
		err := repo.Save(context.Background(), movement)

		assert.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, movement.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("find by order returns movements oldest first", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormStockMovementRepository(db)

		tenantID := uuid.New()
		occurred := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

		rows := sqlmock.NewRows([]string{
			"id", "tenant_id", "order_remote_id",
			"component_kind", "product_remote_id", "variation_remote_id",
			"direction", "quantity", "previous_stock", "new_stock", "occurred_at",
		}).AddRow(uuid.New(), tenantID, int64(101), "product", int64(55), int64(0), "consume", 2, 8, 6, occurred)

		mock.ExpectQuery(`SELECT \* FROM "stock_movements" WHERE tenant_id = \$1 AND order_remote_id = \$2 ORDER BY occurred_at ASC`).
			WithArgs(tenantID, int64(101)).
			WillReturnRows(rows)

		movements, err := repo.FindByOrder(context.Background(), tenantID, 101)

		require.NoError(t, err)
		require.Len(t, movements, 1)
		assert.Equal(t, bom.DirectionConsume, movements[0].Direction)
		assert.Equal(t, 6, movements[0].NewStock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
