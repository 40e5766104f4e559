package inventory

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for inventory item persistence
type Repository interface {
	// FindByID finds an item by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryItem, error)

	// FindByNormalizedName finds active items whose normalized name
	// contains the given fragment, for match candidate search
	FindByNormalizedName(ctx context.Context, fragment string, limit int) ([]*InventoryItem, error)

	// FindBySKU finds an item by exact SKU
	FindBySKU(ctx context.Context, sku string) (*InventoryItem, error)

	// FindByVendorID lists items usually bought from a vendor
	FindByVendorID(ctx context.Context, vendorID uuid.UUID) ([]*InventoryItem, error)

	// FindBelowMinimum lists active items under their low-stock threshold
	FindBelowMinimum(ctx context.Context) ([]*InventoryItem, error)

	// Save creates or updates an item and appends new price history entries
	Save(ctx context.Context, item *InventoryItem) error

	// PriceHistory returns an item's recorded prices, newest first
	PriceHistory(ctx context.Context, itemID uuid.UUID, limit int) ([]PriceHistoryEntry, error)

}
