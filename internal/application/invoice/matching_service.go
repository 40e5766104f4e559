package invoice

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/invoiceflow/backend/internal/domain/inventory"
	"github.com/invoiceflow/backend/internal/domain/invoice"
	"github.com/invoiceflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// defaultAutoMatchThreshold is the minimum similarity confidence for an
// unattended match; weaker candidates are left for the reviewer.
const defaultAutoMatchThreshold = 0.80

// MatchCandidate is one inventory item proposed for a line
type MatchCandidate struct {
	Item       *inventory.InventoryItem `json:"item"`
	Confidence float64                  `json:"confidence"`
}

// MatchingService drives invoice lines through the match state machine and
// applies confirmed lines to the inventory.
type MatchingService struct {
	lineRepo             invoice.LineItemRepository
	inventoryRepo        inventory.Repository
	txManager            shared.TransactionManager
	eventPublisher       shared.EventPublisher
	autoMatchThreshold   float64
	priceChangeThreshold decimal.Decimal
	logger               *zap.Logger
}

// MatchingServiceConfig holds configuration for the matching service
type MatchingServiceConfig struct {
	LineRepo       invoice.LineItemRepository
	InventoryRepo  inventory.Repository
	TxManager      shared.TransactionManager
	EventPublisher shared.EventPublisher
	// AutoMatchThreshold overrides the default minimum confidence for
	// unattended matches when positive
	AutoMatchThreshold float64
	// PriceChangeThreshold overrides the confirm-time discrepancy
	// threshold (fractional unit-price move) when positive
	PriceChangeThreshold float64
	Logger               *zap.Logger
}

// NewMatchingService creates a new MatchingService
func NewMatchingService(config MatchingServiceConfig) *MatchingService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := config.AutoMatchThreshold
	if threshold <= 0 {
		threshold = defaultAutoMatchThreshold
	}
	return &MatchingService{
		lineRepo:             config.LineRepo,
		inventoryRepo:        config.InventoryRepo,
		txManager:            config.TxManager,
		eventPublisher:       config.EventPublisher,
		autoMatchThreshold:   threshold,
		priceChangeThreshold: decimal.NewFromFloat(config.PriceChangeThreshold),
		logger:               logger,
	}
}

// FindCandidates proposes inventory items for a line by normalized name
// similarity, strongest first.
func (s *MatchingService) FindCandidates(ctx context.Context, lineID uuid.UUID, limit int) ([]MatchCandidate, error) {
	line, err := s.lineRepo.FindByID(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	normalized := inventory.NormalizeName(line.RawDescription)
	items, err := s.inventoryRepo.FindByNormalizedName(ctx, normalized, limit)
	if err != nil {
		return nil, err
	}

	candidates := make([]MatchCandidate, 0, len(items))
	for _, item := range items {
		candidates = append(candidates, MatchCandidate{
			Item:       item,
			Confidence: nameSimilarity(normalized, item.NormalizedName),
		})
	}
	return candidates, nil
}

// AutoMatchLine links the line to its best candidate when the similarity
// clears the threshold; otherwise the line stays unmatched.
func (s *MatchingService) AutoMatchLine(ctx context.Context, lineID uuid.UUID) (*invoice.LineItem, error) {
	line, err := s.lineRepo.FindByID(ctx, lineID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.FindCandidates(ctx, lineID, 1)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 || candidates[0].Confidence < s.autoMatchThreshold {
		return line, nil
	}

	if err := line.MatchAuto(candidates[0].Item.ID, candidates[0].Confidence); err != nil {
		return nil, err
	}
	if err := s.lineRepo.Save(ctx, line); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, line)
	return line, nil
}

// MatchManual links a line to the inventory item the reviewer picked
func (s *MatchingService) MatchManual(ctx context.Context, lineID, inventoryItemID uuid.UUID) (*invoice.LineItem, error) {
	line, err := s.lineRepo.FindByID(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if _, err := s.inventoryRepo.FindByID(ctx, inventoryItemID); err != nil {
		return nil, err
	}
	if err := line.MatchManual(inventoryItemID); err != nil {
		return nil, err
	}
	if err := s.lineRepo.Save(ctx, line); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, line)
	return line, nil
}

// MarkNewItem flags a line as a product the inventory has never carried
func (s *MatchingService) MarkNewItem(ctx context.Context, lineID uuid.UUID) (*invoice.LineItem, error) {
	return s.mutateLine(ctx, lineID, func(line *invoice.LineItem) error {
		return line.MarkNewItem()
	})
}

// RejectMatch discards a proposed match
func (s *MatchingService) RejectMatch(ctx context.Context, lineID uuid.UUID) (*invoice.LineItem, error) {
	return s.mutateLine(ctx, lineID, func(line *invoice.LineItem) error {
		return line.Reject()
	})
}

// SkipLine shelves a line without resolving it
func (s *MatchingService) SkipLine(ctx context.Context, lineID uuid.UUID) (*invoice.LineItem, error) {
	return s.mutateLine(ctx, lineID, func(line *invoice.LineItem) error {
		return line.Skip()
	})
}

// ReopenLine pulls a skipped line back for another pass
func (s *MatchingService) ReopenLine(ctx context.Context, lineID uuid.UUID) (*invoice.LineItem, error) {
	return s.mutateLine(ctx, lineID, func(line *invoice.LineItem) error {
		return line.Reopen()
	})
}

// ConfirmLine finalizes a match. The line transition, the inventory price
// update, and the stock receipt commit in one transaction so a confirmed
// line can never exist without its inventory effects.
func (s *MatchingService) ConfirmLine(ctx context.Context, lineID uuid.UUID) (*invoice.LineItem, error) {
	var line *invoice.LineItem
	var item *inventory.InventoryItem

	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		line, err = s.lineRepo.FindByID(ctx, lineID)
		if err != nil {
			return err
		}

		if line.MatchStatus == invoice.MatchStatusNewItem && line.InventoryItemID == nil {
			item, err = s.createItemForLine(ctx, line)
			if err != nil {
				return err
			}
			if err := line.AttachInventoryItem(item.ID); err != nil {
				return err
			}
		} else if line.InventoryItemID != nil {
			item, err = s.inventoryRepo.FindByID(ctx, *line.InventoryItemID)
			if err != nil {
				return err
			}
		}

		var previousPrice *decimal.Decimal
		if item != nil {
			previousPrice = item.CurrentPrice
		}

		if err := line.Confirm(previousPrice, s.priceChangeThreshold); err != nil {
			return err
		}

		if item != nil && line.ForInventory {
			if price := linePrice(line); price != nil {
				if err := item.RecordPrice(*price, line.BaseUnit, line.InvoiceID); err != nil {
					return err
				}
			}
			if line.TotalBaseUnits.IsPositive() {
				if err := item.ReceiveStock(line.TotalBaseUnits, line.InvoiceID); err != nil {
					return err
				}
			}
			if err := s.inventoryRepo.Save(ctx, item); err != nil {
				return err
			}
		}

		return s.lineRepo.Save(ctx, line)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, line)
	if item != nil {
		s.publishEvents(ctx, item)
	}

	s.logger.Info("line confirmed",
		zap.String("line_id", line.ID.String()),
		zap.String("invoice_id", line.InvoiceID.String()),
		zap.Bool("discrepancy", line.IsDiscrepancy))
	return line, nil
}

// createItemForLine builds an inventory record from a new-item line
func (s *MatchingService) createItemForLine(ctx context.Context, line *invoice.LineItem) (*inventory.InventoryItem, error) {
	baseUnit := line.BaseUnit
	if !baseUnit.IsValid() {
		return nil, shared.NewDomainError("UNDETERMINED_PRICING",
			"cannot create an inventory item from a line with no resolved base unit")
	}
	item, err := inventory.NewInventoryItem(line.RawDescription, baseUnit)
	if err != nil {
		return nil, err
	}
	if line.SKU != "" {
		item.SetSKU(line.SKU)
	}
	return item, nil
}

func (s *MatchingService) mutateLine(ctx context.Context, lineID uuid.UUID, mutate func(*invoice.LineItem) error) (*invoice.LineItem, error) {
	line, err := s.lineRepo.FindByID(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if err := mutate(line); err != nil {
		return nil, err
	}
	if err := s.lineRepo.Save(ctx, line); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, line)
	return line, nil
}

func (s *MatchingService) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
	if s.eventPublisher == nil {
		return
	}
	events := aggregate.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	aggregate.ClearDomainEvents()
}

// nameSimilarity scores two normalized names by token overlap (Jaccard)
func nameSimilarity(a, b string) float64 {
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(tokensA))
	for _, tok := range tokensA {
		setA[tok] = struct{}{}
	}
	setB := make(map[string]struct{}, len(tokensB))
	for _, tok := range tokensB {
		setB[tok] = struct{}{}
	}

	common := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			common++
		}
	}
	union := len(setA) + len(setB) - common
	return float64(common) / float64(union)
}

// linePrice returns the line's normalized per-base-unit price, if detection
// produced one.
func linePrice(line *invoice.LineItem) *decimal.Decimal {
	switch {
	case line.PricePerG != nil:
		return line.PricePerG
	case line.PricePerML != nil:
		return line.PricePerML
	case line.PricePerUnit != nil:
		return line.PricePerUnit
	}
	return nil
}
