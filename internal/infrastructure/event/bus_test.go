package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/invoiceflow/backend/internal/domain/inventory"
	"github.com/invoiceflow/backend/internal/domain/invoice"
	"github.com/invoiceflow/backend/internal/domain/shared"
	"github.com/invoiceflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingHandler collects the events it receives
type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	seen   []shared.DomainEvent
	err    error
	panics bool
}

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("handler exploded")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, event)
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func statusEvent() *invoice.InvoiceStatusChangedEvent {
	return invoice.NewInvoiceStatusChangedEvent(uuid.New(), invoice.StatusDraft, invoice.StatusPending)
}

func TestInMemoryEventBus(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to type-matched handlers", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		matched := &recordingHandler{types: []string{invoice.EventTypeInvoiceStatusChanged}}
		other := &recordingHandler{types: []string{inventory.EventTypeStockReceived}}
		bus.Subscribe(matched)
		bus.Subscribe(other)

		require.NoError(t, bus.Publish(ctx, statusEvent()))

		assert.Equal(t, 1, matched.count())
		assert.Equal(t, 0, other.count())
	})

	t.Run("wildcard handlers see everything", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		audit := &recordingHandler{}
		bus.Subscribe(audit)

		price := decimal.RequireFromString("0.0125")
		item, err := inventory.NewInventoryItem("Ribeye", valueobject.BaseUnitGram)
		require.NoError(t, err)

		require.NoError(t, bus.Publish(ctx,
			statusEvent(),
			inventory.NewItemPriceRecordedEvent(item, nil, price, uuid.New()),
		))
		assert.Equal(t, 2, audit.count())
	})

	t.Run("one failing handler does not block the rest", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		failing := &recordingHandler{types: []string{invoice.EventTypeInvoiceStatusChanged}, err: errors.New("boom")}
		healthy := &recordingHandler{types: []string{invoice.EventTypeInvoiceStatusChanged}}
		bus.Subscribe(failing)
		bus.Subscribe(healthy)

		require.NoError(t, bus.Publish(ctx, statusEvent()))
		assert.Equal(t, 1, healthy.count())
	})

	t.Run("a panicking handler is contained", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		bus.Subscribe(&recordingHandler{panics: true})
		healthy := &recordingHandler{}
		bus.Subscribe(healthy)

		require.NoError(t, bus.Publish(ctx, statusEvent()))
		assert.Equal(t, 1, healthy.count())
	})

	t.Run("unsubscribed handlers stop receiving", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := &recordingHandler{types: []string{invoice.EventTypeInvoiceStatusChanged}}
		bus.Subscribe(h)
		require.NoError(t, bus.Publish(ctx, statusEvent()))

		bus.Unsubscribe(h)
		require.NoError(t, bus.Publish(ctx, statusEvent()))
		assert.Equal(t, 1, h.count())
	})
}

func TestPriceAlertHandler(t *testing.T) {
	ctx := context.Background()
	item, err := inventory.NewInventoryItem("Ribeye", valueobject.BaseUnitGram)
	require.NoError(t, err)

	t.Run("quiet on small moves and first prices", func(t *testing.T) {
		h := NewPriceAlertHandler(zap.NewNop(), 0.10)

		old := decimal.RequireFromString("0.0100")
		small := inventory.NewItemPriceRecordedEvent(item, &old, decimal.RequireFromString("0.0104"), uuid.New())
		assert.NoError(t, h.Handle(ctx, small))

		first := inventory.NewItemPriceRecordedEvent(item, nil, decimal.RequireFromString("0.0125"), uuid.New())
		assert.NoError(t, h.Handle(ctx, first))
	})

	t.Run("large moves are handled without error", func(t *testing.T) {
		h := NewPriceAlertHandler(zap.NewNop(), 0.10)
		old := decimal.RequireFromString("0.0100")
		jump := inventory.NewItemPriceRecordedEvent(item, &old, decimal.RequireFromString("0.0125"), uuid.New())
		assert.NoError(t, h.Handle(ctx, jump))
	})

	t.Run("only repricing events are watched", func(t *testing.T) {
		h := NewPriceAlertHandler(zap.NewNop(), 0.10)
		assert.Equal(t, []string{inventory.EventTypeItemPriceRecorded}, h.EventTypes())
		assert.NoError(t, h.Handle(ctx, statusEvent()))
	})
}
