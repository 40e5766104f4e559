package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/invoiceflow/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockInventoryRepository creates a GormInventoryRepository with a mocked SQL connection
func newMockInventoryRepository(t *testing.T) (*GormInventoryRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormInventoryRepository(gormDB), mock, mockDB
}

func inventoryItemRows(id uuid.UUID, name, normalized string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "normalized_name", "base_unit", "stock_level", "min_stock", "is_active"}).
		AddRow(id, name, normalized, "G", "1000", "200", true)
}

func TestGormInventoryRepository_FindByID(t *testing.T) {
	t.Run("finds existing item", func(t *testing.T) {
		repo, mock, mockDB := newMockInventoryRepository(t)
		defer mockDB.Close()

		itemID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "inventory_items" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(itemID, 1).
			WillReturnRows(inventoryItemRows(itemID, "Ribeye Beef AAA", "RIBEYE BEEF AAA"))

		item, err := repo.FindByID(context.Background(), itemID)

		assert.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, itemID, item.ID)
		assert.Equal(t, "RIBEYE BEEF AAA", item.NormalizedName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing item", func(t *testing.T) {
		repo, mock, mockDB := newMockInventoryRepository(t)
		defer mockDB.Close()

		itemID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "inventory_items" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(itemID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		item, err := repo.FindByID(context.Background(), itemID)

		assert.Nil(t, item)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInventoryRepository_FindByNormalizedName(t *testing.T) {
	t.Run("searches active items with ILIKE fragment", func(t *testing.T) {
		repo, mock, mockDB := newMockInventoryRepository(t)
		defer mockDB.Close()

		itemID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "inventory_items" WHERE normalized_name ILIKE \$1 AND is_active = \$2 ORDER BY normalized_name ASC LIMIT .*`).
			WithArgs("%RIBEYE%", true, 10).
			WillReturnRows(inventoryItemRows(itemID, "Ribeye Beef AAA", "RIBEYE BEEF AAA"))

		items, err := repo.FindByNormalizedName(context.Background(), "RIBEYE", 10)

		assert.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, itemID, items[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInventoryRepository_FindBelowMinimum(t *testing.T) {
	t.Run("only items with a configured threshold qualify", func(t *testing.T) {
		repo, mock, mockDB := newMockInventoryRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "inventory_items" WHERE is_active = \$1 AND \(min_stock > 0 AND stock_level < min_stock\) ORDER BY normalized_name ASC`).
			WithArgs(true).
			WillReturnRows(inventoryItemRows(uuid.New(), "Olive Oil", "OLIVE OIL"))

		items, err := repo.FindBelowMinimum(context.Background())

		assert.NoError(t, err)
		assert.Len(t, items, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInventoryRepository_PriceHistory(t *testing.T) {
	t.Run("returns entries newest first", func(t *testing.T) {
		repo, mock, mockDB := newMockInventoryRepository(t)
		defer mockDB.Close()

		itemID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "inventory_item_id", "price", "base_unit", "source_invoice_id", "recorded_at"}).
			AddRow(uuid.New(), itemID, "0.0284", "G", uuid.New(), time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)).
			AddRow(uuid.New(), itemID, "0.0265", "G", uuid.New(), time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC))

		mock.ExpectQuery(`SELECT \* FROM "inventory_price_history" WHERE inventory_item_id = \$1 ORDER BY recorded_at DESC LIMIT .*`).
			WithArgs(itemID, 12).
			WillReturnRows(rows)

		entries, err := repo.PriceHistory(context.Background(), itemID, 12)

		assert.NoError(t, err)
		require.Len(t, entries, 2)
		assert.True(t, entries[0].RecordedAt.After(entries[1].RecordedAt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
