package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/storebridge/backend/internal/domain/shared"
)

func TestGormCustomerRepository_FindByEmail(t *testing.T) {
	t.Run("matches case-insensitively", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormCustomerRepository(db)

		tenantID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "remote_id", "email", "first_name", "last_name", "orders_count"}).
			AddRow(uuid.New(), tenantID, int64(9), "jane@example.com", "Jane", "Doe", 3)

		mock.ExpectQuery(`SELECT \* FROM "customers" WHERE tenant_id = \$1 AND LOWER\(email\) = LOWER\(\$2\) ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, "Jane@Example.COM", 1).
			WillReturnRows(rows)

		customer, err := repo.FindByEmail(context.Background(), tenantID, "Jane@Example.COM")

		require.NoError(t, err)
		assert.Equal(t, int64(9), customer.RemoteID)
		assert.Equal(t, "jane@example.com", customer.Email)
		assert.Equal(t, 3, customer.OrdersCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing customer to not found", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormCustomerRepository(db)

		tenantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "customers"`).
			WithArgs(tenantID, "nobody@example.com", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		customer, err := repo.FindByEmail(context.Background(), tenantID, "nobody@example.com")

		assert.Nil(t, customer)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects empty email without querying", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormCustomerRepository(db)

		customer, err := repo.FindByEmail(context.Background(), uuid.New(), "")

		assert.Nil(t, customer)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCustomerRepository_RecomputeOrderCounts(t *testing.T) {
	t.Run("takes the advisory lock before updating", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormCustomerRepository(db)

		tenantID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
			WithArgs("customer-counts:" + tenantID.String()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`UPDATE customers c\s+SET orders_count =`).
			WithArgs(tenantID).
			WillReturnResult(sqlmock.NewResult(0, 4))
		mock.ExpectCommit()

		err := repo.RecomputeOrderCounts(context.Background(), tenantID)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the update fails", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormCustomerRepository(db)

		tenantID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
			WithArgs("customer-counts:" + tenantID.String()).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`UPDATE customers c`).
			WithArgs(tenantID).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err := repo.RecomputeOrderCounts(context.Background(), tenantID)

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
