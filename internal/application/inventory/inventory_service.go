package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/invoiceflow/backend/internal/domain/inventory"
	"github.com/invoiceflow/backend/internal/domain/shared"
	"github.com/invoiceflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// defaultSearchLimit bounds candidate searches when the caller does not
const defaultSearchLimit = 20

// InventoryService handles inventory item management. Prices are never set
// here; they only move through confirmed invoice lines.
type InventoryService struct {
	itemRepo       inventory.Repository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(itemRepo inventory.Repository, eventPublisher shared.EventPublisher, logger *zap.Logger) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryService{
		itemRepo:       itemRepo,
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// CreateItemCommand carries the fields for a new inventory item
type CreateItemCommand struct {
	Name     string
	BaseUnit valueobject.BaseUnit
	SKU      string
	Category string
	VendorID *uuid.UUID
	MinStock *decimal.Decimal
}

// Create registers a new inventory item. SKUs are unique across items.
func (s *InventoryService) Create(ctx context.Context, cmd CreateItemCommand) (*inventory.InventoryItem, error) {
	item, err := inventory.NewInventoryItem(cmd.Name, cmd.BaseUnit)
	if err != nil {
		return nil, err
	}
	if cmd.SKU != "" {
		existing, err := s.itemRepo.FindBySKU(ctx, cmd.SKU)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		if existing != nil {
			return nil, shared.NewDomainError("SKU_TAKEN", "an item with this SKU already exists")
		}
		item.SetSKU(cmd.SKU)
	}
	if cmd.Category != "" {
		item.SetCategory(cmd.Category)
	}
	if cmd.VendorID != nil {
		if err := item.SetPrimaryVendor(*cmd.VendorID); err != nil {
			return nil, err
		}
	}
	if cmd.MinStock != nil {
		if err := item.SetMinStock(*cmd.MinStock); err != nil {
			return nil, err
		}
	}

	if err := s.itemRepo.Save(ctx, item); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, item)

	s.logger.Info("inventory item created",
		zap.String("item_id", item.ID.String()),
		zap.String("normalized_name", item.NormalizedName))
	return item, nil
}

// GetByID retrieves an item
func (s *InventoryService) GetByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	return s.itemRepo.FindByID(ctx, id)
}

// Search finds active items whose normalized name contains the fragment.
// The fragment is normalized the same way item names are.
func (s *InventoryService) Search(ctx context.Context, fragment string, limit int) ([]*inventory.InventoryItem, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	return s.itemRepo.FindByNormalizedName(ctx, inventory.NormalizeName(fragment), limit)
}

// ListByVendor lists items usually bought from a vendor
func (s *InventoryService) ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]*inventory.InventoryItem, error) {
	return s.itemRepo.FindByVendorID(ctx, vendorID)
}

// ListBelowMinimum lists active items under their low-stock threshold
func (s *InventoryService) ListBelowMinimum(ctx context.Context) ([]*inventory.InventoryItem, error) {
	return s.itemRepo.FindBelowMinimum(ctx)
}

// PriceHistory returns an item's recorded prices, newest first
func (s *InventoryService) PriceHistory(ctx context.Context, itemID uuid.UUID, limit int) ([]inventory.PriceHistoryEntry, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if _, err := s.itemRepo.FindByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.itemRepo.PriceHistory(ctx, itemID, limit)
}

// ReceiveStock adds delivered quantity, in the item's base unit
func (s *InventoryService) ReceiveStock(ctx context.Context, itemID uuid.UUID, quantity decimal.Decimal, sourceInvoiceID uuid.UUID) (*inventory.InventoryItem, error) {
	return s.loadAndMutate(ctx, itemID, func(item *inventory.InventoryItem) error {
		return item.ReceiveStock(quantity, sourceInvoiceID)
	})
}

// AdjustStock corrects the stock level to a counted value
func (s *InventoryService) AdjustStock(ctx context.Context, itemID uuid.UUID, actual decimal.Decimal, reason string) (*inventory.InventoryItem, error) {
	return s.loadAndMutate(ctx, itemID, func(item *inventory.InventoryItem) error {
		return item.AdjustStock(actual, reason)
	})
}

// SetMinStock sets the low-stock threshold
func (s *InventoryService) SetMinStock(ctx context.Context, itemID uuid.UUID, quantity decimal.Decimal) (*inventory.InventoryItem, error) {
	return s.loadAndMutate(ctx, itemID, func(item *inventory.InventoryItem) error {
		return item.SetMinStock(quantity)
	})
}

// Rename changes the display name and its normalized form
func (s *InventoryService) Rename(ctx context.Context, itemID uuid.UUID, name string) (*inventory.InventoryItem, error) {
	return s.loadAndMutate(ctx, itemID, func(item *inventory.InventoryItem) error {
		return item.Rename(name)
	})
}

// Deactivate hides an item from match candidate search
func (s *InventoryService) Deactivate(ctx context.Context, itemID uuid.UUID) (*inventory.InventoryItem, error) {
	return s.loadAndMutate(ctx, itemID, func(item *inventory.InventoryItem) error {
		item.Deactivate()
		return nil
	})
}

// Reactivate restores a deactivated item
func (s *InventoryService) Reactivate(ctx context.Context, itemID uuid.UUID) (*inventory.InventoryItem, error) {
	return s.loadAndMutate(ctx, itemID, func(item *inventory.InventoryItem) error {
		item.Reactivate()
		return nil
	})
}

func (s *InventoryService) loadAndMutate(ctx context.Context, itemID uuid.UUID, mutate func(*inventory.InventoryItem) error) (*inventory.InventoryItem, error) {
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := mutate(item); err != nil {
		return nil, err
	}
	if err := s.itemRepo.Save(ctx, item); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, item)
	return item, nil
}

func (s *InventoryService) publishEvents(ctx context.Context, item *inventory.InventoryItem) {
	if s.eventPublisher == nil {
		return
	}
	events := item.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	item.ClearDomainEvents()
}
