package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/invoiceflow/backend/internal/domain/inventory"
	"github.com/invoiceflow/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormInventoryRepository implements inventory.Repository using GORM
type GormInventoryRepository struct {
	db *gorm.DB
}

// NewGormInventoryRepository creates a new GormInventoryRepository
func NewGormInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

// FindByID finds an item by its ID
func (r *GormInventoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	var item inventory.InventoryItem
	if err := conn(ctx, r.db).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByNormalizedName finds active items whose normalized name contains
// the given fragment, for match candidate search
func (r *GormInventoryRepository) FindByNormalizedName(ctx context.Context, fragment string, limit int) ([]*inventory.InventoryItem, error) {
	var items []*inventory.InventoryItem
	if err := conn(ctx, r.db).
		Where("normalized_name ILIKE ?", "%"+fragment+"%").
		Where("is_active = ?", true).
		Order("normalized_name ASC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindBySKU finds an item by exact SKU
func (r *GormInventoryRepository) FindBySKU(ctx context.Context, sku string) (*inventory.InventoryItem, error) {
	var item inventory.InventoryItem
	if err := conn(ctx, r.db).First(&item, "sku = ?", sku).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByVendorID lists items usually bought from a vendor
func (r *GormInventoryRepository) FindByVendorID(ctx context.Context, vendorID uuid.UUID) ([]*inventory.InventoryItem, error) {
	var items []*inventory.InventoryItem
	if err := conn(ctx, r.db).
		Where("vendor_id = ?", vendorID).
		Order("normalized_name ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindBelowMinimum lists active items under their low-stock threshold.
// Items with no threshold configured are never reported.
func (r *GormInventoryRepository) FindBelowMinimum(ctx context.Context) ([]*inventory.InventoryItem, error) {
	var items []*inventory.InventoryItem
	if err := conn(ctx, r.db).
		Where("is_active = ?", true).
		Where("min_stock > 0 AND stock_level < min_stock").
		Order("normalized_name ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Save creates or updates an item and persists its price history entries.
// History rows are append-only; the aggregate only carries entries added
// since it was loaded, so each is upserted.
func (r *GormInventoryRepository) Save(ctx context.Context, item *inventory.InventoryItem) error {
	if err := conn(ctx, r.db).Save(item).Error; err != nil {
		return err
	}
	for i := range item.PriceHistory {
		if err := conn(ctx, r.db).Save(&item.PriceHistory[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// PriceHistory returns an item's recorded prices, newest first
func (r *GormInventoryRepository) PriceHistory(ctx context.Context, itemID uuid.UUID, limit int) ([]inventory.PriceHistoryEntry, error) {
	var entries []inventory.PriceHistoryEntry
	if err := conn(ctx, r.db).
		Where("inventory_item_id = ?", itemID).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Ensure GormInventoryRepository implements inventory.Repository
var _ inventory.Repository = (*GormInventoryRepository)(nil)
