package invoice

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/invoiceflow/backend/internal/domain/inventory"
	"github.com/invoiceflow/backend/internal/domain/invoice"
	"github.com/invoiceflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMatchingService(lineRepo *MockLineItemRepository, inventoryRepo *MockInventoryRepository) *MatchingService {
	return NewMatchingService(MatchingServiceConfig{
		LineRepo:      lineRepo,
		InventoryRepo: inventoryRepo,
		TxManager:     fakeTxManager{},
	})
}

// weightLine builds a detected catch-weight line ready for matching
func weightLine(t *testing.T) *invoice.LineItem {
	t.Helper()
	line, err := invoice.NewLineItem(uuid.New(), 1, "RIBEYE BEEF AAA")
	require.NoError(t, err)
	w := decimal.RequireFromString("2.84")
	line.SetFigures(decimal.NewFromInt(1), "", &w, "KG", decimal.RequireFromString("12.50"), decimal.RequireFromString("35.50"))
	line.ApplyDetection(invoice.DetectPricingModel(line.Figures(), invoice.DefaultDetectorConfig()))
	return line
}

func gramItem(t *testing.T, name string) *inventory.InventoryItem {
	t.Helper()
	item, err := inventory.NewInventoryItem(name, valueobject.BaseUnitGram)
	require.NoError(t, err)
	item.ClearDomainEvents()
	return item
}

func TestConfirmLine(t *testing.T) {
	ctx := context.Background()

	t.Run("confirm applies price and stock atomically", func(t *testing.T) {
		lineRepo := new(MockLineItemRepository)
		inventoryRepo := new(MockInventoryRepository)
		service := newMatchingService(lineRepo, inventoryRepo)

		item := gramItem(t, "Ribeye Beef AAA")
		prev := decimal.RequireFromString("0.0100")
		require.NoError(t, item.RecordPrice(prev, valueobject.BaseUnitGram, uuid.New()))
		item.ClearDomainEvents()

		line := weightLine(t)
		require.NoError(t, line.MatchAuto(item.ID, 0.9))
		line.ClearDomainEvents()

		lineRepo.On("FindByID", ctx, line.ID).Return(line, nil)
		inventoryRepo.On("FindByID", ctx, item.ID).Return(item, nil)
		inventoryRepo.On("Save", ctx, item).Return(nil)
		lineRepo.On("Save", ctx, line).Return(nil)

		confirmed, err := service.ConfirmLine(ctx, line.ID)
		require.NoError(t, err)

		assert.Equal(t, invoice.MatchStatusConfirmed, confirmed.MatchStatus)
		assert.True(t, confirmed.NewPrice.Equal(decimal.RequireFromString("0.0125")))
		assert.True(t, confirmed.PreviousPrice.Equal(prev))
		assert.True(t, confirmed.IsDiscrepancy, "25%% price jump must be flagged")

		assert.True(t, item.CurrentPrice.Equal(decimal.RequireFromString("0.0125")))
		assert.True(t, item.StockLevel.Equal(decimal.RequireFromString("2840")))
		lineRepo.AssertExpectations(t)
		inventoryRepo.AssertExpectations(t)
	})

	t.Run("configured threshold decides what counts as a discrepancy", func(t *testing.T) {
		lineRepo := new(MockLineItemRepository)
		inventoryRepo := new(MockInventoryRepository)
		service := NewMatchingService(MatchingServiceConfig{
			LineRepo:             lineRepo,
			InventoryRepo:        inventoryRepo,
			TxManager:            fakeTxManager{},
			PriceChangeThreshold: 0.50,
		})

		item := gramItem(t, "Ribeye Beef AAA")
		prev := decimal.RequireFromString("0.0100")
		require.NoError(t, item.RecordPrice(prev, valueobject.BaseUnitGram, uuid.New()))
		item.ClearDomainEvents()

		line := weightLine(t)
		require.NoError(t, line.MatchAuto(item.ID, 0.9))
		line.ClearDomainEvents()

		lineRepo.On("FindByID", ctx, line.ID).Return(line, nil)
		inventoryRepo.On("FindByID", ctx, item.ID).Return(item, nil)
		inventoryRepo.On("Save", ctx, item).Return(nil)
		lineRepo.On("Save", ctx, line).Return(nil)

		confirmed, err := service.ConfirmLine(ctx, line.ID)
		require.NoError(t, err)

		assert.False(t, confirmed.IsDiscrepancy, "a 25%% jump sits inside a 50%% threshold")
	})

	t.Run("new item line creates the inventory record first", func(t *testing.T) {
		lineRepo := new(MockLineItemRepository)
		inventoryRepo := new(MockInventoryRepository)
		service := newMatchingService(lineRepo, inventoryRepo)

		line := weightLine(t)
		require.NoError(t, line.MarkNewItem())

		lineRepo.On("FindByID", ctx, line.ID).Return(line, nil)
		inventoryRepo.On("Save", ctx, mock.AnythingOfType("*inventory.InventoryItem")).Return(nil)
		lineRepo.On("Save", ctx, line).Return(nil)

		confirmed, err := service.ConfirmLine(ctx, line.ID)
		require.NoError(t, err)

		assert.Equal(t, invoice.MatchStatusConfirmed, confirmed.MatchStatus)
		require.NotNil(t, confirmed.InventoryItemID)
		assert.Nil(t, confirmed.PreviousPrice, "a brand new item has no price history")

		saved := inventoryRepo.Calls[0].Arguments.Get(1).(*inventory.InventoryItem)
		assert.Equal(t, "RIBEYE BEEF AAA", saved.NormalizedName)
		assert.Equal(t, valueobject.BaseUnitGram, saved.BaseUnit)
		assert.True(t, saved.CurrentPrice.Equal(decimal.RequireFromString("0.0125")))
	})

	t.Run("new item with undetermined pricing cannot confirm", func(t *testing.T) {
		lineRepo := new(MockLineItemRepository)
		inventoryRepo := new(MockInventoryRepository)
		service := newMatchingService(lineRepo, inventoryRepo)

		line, err := invoice.NewLineItem(uuid.New(), 1, "MYSTERY ITEM")
		require.NoError(t, err)
		line.SetFigures(decimal.NewFromInt(3), "", nil, "", decimal.NewFromInt(10), decimal.RequireFromString("99.99"))
		line.ApplyDetection(invoice.DetectPricingModel(line.Figures(), invoice.DefaultDetectorConfig()))
		require.NoError(t, line.MarkNewItem())

		lineRepo.On("FindByID", ctx, line.ID).Return(line, nil)

		_, err = service.ConfirmLine(ctx, line.ID)
		assert.Error(t, err)
		inventoryRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("deposit line confirms without inventory effects", func(t *testing.T) {
		lineRepo := new(MockLineItemRepository)
		inventoryRepo := new(MockInventoryRepository)
		service := newMatchingService(lineRepo, inventoryRepo)

		item := gramItem(t, "Bottle Deposit")

		line := weightLine(t)
		line.SetLineType(invoice.LineTypeDeposit)
		require.NoError(t, line.MatchManual(item.ID))

		lineRepo.On("FindByID", ctx, line.ID).Return(line, nil)
		inventoryRepo.On("FindByID", ctx, item.ID).Return(item, nil)
		lineRepo.On("Save", ctx, line).Return(nil)

		confirmed, err := service.ConfirmLine(ctx, line.ID)
		require.NoError(t, err)

		assert.False(t, confirmed.AddedToInventory)
		assert.Nil(t, item.CurrentPrice)
		assert.True(t, item.StockLevel.IsZero())
		inventoryRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("save failure aborts the whole confirmation", func(t *testing.T) {
		lineRepo := new(MockLineItemRepository)
		inventoryRepo := new(MockInventoryRepository)
		service := newMatchingService(lineRepo, inventoryRepo)

		item := gramItem(t, "Ribeye Beef AAA")
		line := weightLine(t)
		require.NoError(t, line.MatchAuto(item.ID, 0.9))

		lineRepo.On("FindByID", ctx, line.ID).Return(line, nil)
		inventoryRepo.On("FindByID", ctx, item.ID).Return(item, nil)
		inventoryRepo.On("Save", ctx, item).Return(assert.AnError)

		_, err := service.ConfirmLine(ctx, line.ID)
		assert.Error(t, err)
		lineRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestMarkNewItemRefusesNonInventoryLines(t *testing.T) {
	ctx := context.Background()

	lineRepo := new(MockLineItemRepository)
	inventoryRepo := new(MockInventoryRepository)
	service := newMatchingService(lineRepo, inventoryRepo)

	line := weightLine(t)
	line.SetLineType(invoice.LineTypeDeposit)
	lineRepo.On("FindByID", ctx, line.ID).Return(line, nil)

	_, err := service.MarkNewItem(ctx, line.ID)
	require.Error(t, err)

	assert.Equal(t, invoice.MatchStatusUnmatched, line.MatchStatus)
	lineRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAutoMatchLine(t *testing.T) {
	ctx := context.Background()

	t.Run("strong candidate is linked", func(t *testing.T) {
		lineRepo := new(MockLineItemRepository)
		inventoryRepo := new(MockInventoryRepository)
		service := newMatchingService(lineRepo, inventoryRepo)

		item := gramItem(t, "Ribeye Beef AAA")
		line := weightLine(t)

		lineRepo.On("FindByID", ctx, line.ID).Return(line, nil)
		inventoryRepo.On("FindByNormalizedName", ctx, "RIBEYE BEEF AAA", 1).
			Return([]*inventory.InventoryItem{item}, nil)
		lineRepo.On("Save", ctx, line).Return(nil)

		matched, err := service.AutoMatchLine(ctx, line.ID)
		require.NoError(t, err)

		assert.Equal(t, invoice.MatchStatusAutoMatched, matched.MatchStatus)
		assert.Equal(t, item.ID, *matched.InventoryItemID)
		assert.Equal(t, 1.0, matched.MatchConfidence)
	})

	t.Run("weak candidate leaves the line unmatched", func(t *testing.T) {
		lineRepo := new(MockLineItemRepository)
		inventoryRepo := new(MockInventoryRepository)
		service := newMatchingService(lineRepo, inventoryRepo)

		item := gramItem(t, "Chicken Breast Boneless Skinless")
		line := weightLine(t)

		lineRepo.On("FindByID", ctx, line.ID).Return(line, nil)
		inventoryRepo.On("FindByNormalizedName", ctx, "RIBEYE BEEF AAA", 1).
			Return([]*inventory.InventoryItem{item}, nil)

		matched, err := service.AutoMatchLine(ctx, line.ID)
		require.NoError(t, err)

		assert.Equal(t, invoice.MatchStatusUnmatched, matched.MatchStatus)
		lineRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("no candidates leaves the line unmatched", func(t *testing.T) {
		lineRepo := new(MockLineItemRepository)
		inventoryRepo := new(MockInventoryRepository)
		service := newMatchingService(lineRepo, inventoryRepo)

		line := weightLine(t)
		lineRepo.On("FindByID", ctx, line.ID).Return(line, nil)
		inventoryRepo.On("FindByNormalizedName", ctx, "RIBEYE BEEF AAA", 1).
			Return([]*inventory.InventoryItem{}, nil)

		matched, err := service.AutoMatchLine(ctx, line.ID)
		require.NoError(t, err)
		assert.Equal(t, invoice.MatchStatusUnmatched, matched.MatchStatus)
	})
}

func TestRejectSkipReopenThroughService(t *testing.T) {
	ctx := context.Background()

	lineRepo := new(MockLineItemRepository)
	inventoryRepo := new(MockInventoryRepository)
	service := newMatchingService(lineRepo, inventoryRepo)

	item := gramItem(t, "Ribeye Beef AAA")
	line := weightLine(t)
	require.NoError(t, line.MatchAuto(item.ID, 0.9))

	lineRepo.On("FindByID", ctx, line.ID).Return(line, nil)
	lineRepo.On("Save", ctx, line).Return(nil)

	rejected, err := service.RejectMatch(ctx, line.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.MatchStatusRejected, rejected.MatchStatus)
	assert.Nil(t, rejected.InventoryItemID)

	skipped, err := service.SkipLine(ctx, line.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.MatchStatusSkipped, skipped.MatchStatus)

	reopened, err := service.ReopenLine(ctx, line.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.MatchStatusUnmatched, reopened.MatchStatus)
}

func TestNameSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, nameSimilarity("RIBEYE BEEF AAA", "RIBEYE BEEF AAA"))
	assert.Equal(t, 0.0, nameSimilarity("RIBEYE BEEF AAA", "OLIVE OIL"))
	assert.Equal(t, 0.0, nameSimilarity("", "RIBEYE"))

	partial := nameSimilarity("RIBEYE BEEF AAA", "RIBEYE BEEF PRIME")
	assert.Greater(t, partial, 0.4)
	assert.Less(t, partial, 1.0)
}
