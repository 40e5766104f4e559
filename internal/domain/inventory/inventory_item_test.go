package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/invoiceflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestItem(t *testing.T) *InventoryItem {
	t.Helper()
	item, err := NewInventoryItem("Ribeye Beef AAA", valueobject.BaseUnitGram)
	require.NoError(t, err)
	item.ClearDomainEvents()
	return item
}

func TestNewInventoryItem(t *testing.T) {
	t.Run("creates an active item with a matching key", func(t *testing.T) {
		item, err := NewInventoryItem("  Ribeye  Beef AAA ", valueobject.BaseUnitGram)
		require.NoError(t, err)

		assert.Equal(t, "Ribeye  Beef AAA", item.Name)
		assert.Equal(t, "RIBEYE BEEF AAA", item.NormalizedName)
		assert.True(t, item.IsActive)
		assert.True(t, item.StockLevel.IsZero())
		assert.Nil(t, item.CurrentPrice)
		assert.Len(t, item.GetDomainEvents(), 1)
	})

	t.Run("rejects blank name", func(t *testing.T) {
		_, err := NewInventoryItem("   ", valueobject.BaseUnitGram)
		assert.Error(t, err)
	})

	t.Run("rejects unknown base unit", func(t *testing.T) {
		_, err := NewInventoryItem("Olive Oil", valueobject.BaseUnit("KG"))
		assert.Error(t, err)
	})
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "RIBEYE BEEF AAA", NormalizeName("ribeye   beef aaa"))
	assert.Equal(t, "RIBEYE BEEF AAA", NormalizeName("  Ribeye Beef AAA  "))
	assert.Equal(t, "", NormalizeName("   "))
}

func TestRecordPrice(t *testing.T) {
	t.Run("first price has no previous", func(t *testing.T) {
		item := newTestItem(t)
		invoiceID := uuid.New()

		require.NoError(t, item.RecordPrice(dec("0.0125"), valueobject.BaseUnitGram, invoiceID))

		require.NotNil(t, item.CurrentPrice)
		assert.True(t, item.CurrentPrice.Equal(dec("0.0125")))
		assert.Nil(t, item.PreviousPrice)
		require.Len(t, item.PriceHistory, 1)
		assert.Equal(t, invoiceID, item.PriceHistory[0].SourceInvoiceID)
		assert.NotNil(t, item.LastPricedAt)
	})

	t.Run("second price rolls the first into previous", func(t *testing.T) {
		item := newTestItem(t)
		require.NoError(t, item.RecordPrice(dec("0.0125"), valueobject.BaseUnitGram, uuid.New()))
		require.NoError(t, item.RecordPrice(dec("0.0150"), valueobject.BaseUnitGram, uuid.New()))

		assert.True(t, item.CurrentPrice.Equal(dec("0.0150")))
		require.NotNil(t, item.PreviousPrice)
		assert.True(t, item.PreviousPrice.Equal(dec("0.0125")))
		assert.Len(t, item.PriceHistory, 2)

		change, ok := item.PriceChange()
		require.True(t, ok)
		assert.True(t, change.Equal(dec("0.2")), "25 cents on 1.25 is +20%%, got %s", change)
	})

	t.Run("price change needs two observations", func(t *testing.T) {
		item := newTestItem(t)
		_, ok := item.PriceChange()
		assert.False(t, ok)

		require.NoError(t, item.RecordPrice(dec("0.0125"), valueobject.BaseUnitGram, uuid.New()))
		_, ok = item.PriceChange()
		assert.False(t, ok)
	})

	t.Run("rejects unit mismatch", func(t *testing.T) {
		item := newTestItem(t)
		err := item.RecordPrice(dec("0.01"), valueobject.BaseUnitMilliliter, uuid.New())
		assert.Error(t, err)
		assert.Nil(t, item.CurrentPrice)
	})

	t.Run("rejects non positive price and missing source", func(t *testing.T) {
		item := newTestItem(t)
		assert.Error(t, item.RecordPrice(dec("0"), valueobject.BaseUnitGram, uuid.New()))
		assert.Error(t, item.RecordPrice(dec("-1"), valueobject.BaseUnitGram, uuid.New()))
		assert.Error(t, item.RecordPrice(dec("0.01"), valueobject.BaseUnitGram, uuid.Nil))
	})

	t.Run("emits a price recorded event", func(t *testing.T) {
		item := newTestItem(t)
		require.NoError(t, item.RecordPrice(dec("0.0125"), valueobject.BaseUnitGram, uuid.New()))

		events := item.GetDomainEvents()
		require.Len(t, events, 1)
		priced, ok := events[0].(*ItemPriceRecordedEvent)
		require.True(t, ok)
		assert.Nil(t, priced.OldPrice)
		assert.True(t, priced.NewPrice.Equal(dec("0.0125")))
	})
}

func TestStockOperations(t *testing.T) {
	t.Run("receive accumulates stock", func(t *testing.T) {
		item := newTestItem(t)
		require.NoError(t, item.ReceiveStock(dec("2840"), uuid.New()))
		require.NoError(t, item.ReceiveStock(dec("1160"), uuid.New()))

		assert.True(t, item.StockLevel.Equal(dec("4000")))
	})

	t.Run("receive rejects non positive quantity", func(t *testing.T) {
		item := newTestItem(t)
		assert.Error(t, item.ReceiveStock(dec("0"), uuid.New()))
	})

	t.Run("adjust overrides the running level with a reason", func(t *testing.T) {
		item := newTestItem(t)
		require.NoError(t, item.ReceiveStock(dec("5000"), uuid.New()))
		item.ClearDomainEvents()

		require.NoError(t, item.AdjustStock(dec("4200"), "monthly count"))

		assert.True(t, item.StockLevel.Equal(dec("4200")))
		events := item.GetDomainEvents()
		require.Len(t, events, 1)
		adjusted, ok := events[0].(*StockAdjustedEvent)
		require.True(t, ok)
		assert.Equal(t, "monthly count", adjusted.Reason)
		assert.True(t, adjusted.OldQuantity.Equal(dec("5000")))
	})

	t.Run("adjust requires a reason", func(t *testing.T) {
		item := newTestItem(t)
		assert.Error(t, item.AdjustStock(dec("100"), "  "))
	})

	t.Run("low stock threshold", func(t *testing.T) {
		item := newTestItem(t)
		require.NoError(t, item.SetMinStock(dec("1000")))
		require.NoError(t, item.ReceiveStock(dec("500"), uuid.New()))

		assert.True(t, item.IsBelowMinimum())

		require.NoError(t, item.ReceiveStock(dec("600"), uuid.New()))
		assert.False(t, item.IsBelowMinimum())
	})
}

func TestItemLifecycle(t *testing.T) {
	item := newTestItem(t)

	item.Deactivate()
	assert.False(t, item.IsActive)

	item.Reactivate()
	assert.True(t, item.IsActive)

	require.NoError(t, item.Rename("Ribeye Beef Prime"))
	assert.Equal(t, "RIBEYE BEEF PRIME", item.NormalizedName)

	assert.Error(t, item.Rename(""))

	item.SetSKU(" RB-001 ")
	assert.Equal(t, "RB-001", item.SKU)

	require.NoError(t, item.SetPrimaryVendor(uuid.New()))
	assert.Error(t, item.SetPrimaryVendor(uuid.Nil))
}
