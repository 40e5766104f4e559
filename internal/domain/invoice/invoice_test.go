package invoice

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invoiceflow/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv, err := NewInvoice(uuid.New(), "Maple Leaf Foods", "INV-12345",
		time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return inv
}

func money(s string) valueobject.Money {
	m, err := valueobject.NewMoneyFromString(s, valueobject.USD)
	if err != nil {
		panic(err)
	}
	return m
}

func TestNewInvoice(t *testing.T) {
	t.Run("starts as an unpaid draft", func(t *testing.T) {
		inv := newTestInvoice(t)

		assert.Equal(t, StatusDraft, inv.Status)
		assert.Equal(t, PaymentStatusUnpaid, inv.PaymentStatus)
		assert.True(t, inv.AmountPaid.IsZero())
		assert.Len(t, inv.GetDomainEvents(), 1)
	})

	t.Run("rejects missing identifiers", func(t *testing.T) {
		_, err := NewInvoice(uuid.Nil, "Maple Leaf Foods", "INV-12345", time.Now())
		assert.Error(t, err)

		_, err = NewInvoice(uuid.New(), "  ", "INV-12345", time.Now())
		assert.Error(t, err)

		_, err = NewInvoice(uuid.New(), "Maple Leaf Foods", "", time.Now())
		assert.Error(t, err)
	})

	t.Run("trims vendor name and invoice number", func(t *testing.T) {
		inv, err := NewInvoice(uuid.New(), " Maple Leaf Foods ", " INV-12345 ", time.Now())
		require.NoError(t, err)
		assert.Equal(t, "Maple Leaf Foods", inv.VendorName)
		assert.Equal(t, "INV-12345", inv.InvoiceNumber)
	})
}

func TestInvoiceLifecycle(t *testing.T) {
	t.Run("walks the full pipeline", func(t *testing.T) {
		inv := newTestInvoice(t)

		require.NoError(t, inv.Submit())
		require.NoError(t, inv.StartExtraction())
		require.NoError(t, inv.CompleteExtraction())
		require.NoError(t, inv.MarkReviewed())
		require.NoError(t, inv.MarkProcessed())
		require.NoError(t, inv.MarkSentToQB())
		require.NoError(t, inv.Archive())

		assert.Equal(t, StatusArchived, inv.Status)
	})

	t.Run("cannot skip steps", func(t *testing.T) {
		inv := newTestInvoice(t)

		assert.Error(t, inv.MarkReviewed())
		assert.Error(t, inv.MarkSentToQB())
		assert.Error(t, inv.Archive(), "drafts cannot be archived")
	})

	t.Run("error is reachable from any processing step", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.Submit())
		require.NoError(t, inv.StartExtraction())

		require.NoError(t, inv.MarkError("extractor timeout"))

		assert.Equal(t, StatusError, inv.Status)
		assert.Equal(t, "extractor timeout", inv.ErrorMessage)
	})

	t.Run("retry requeues an errored invoice and clears the message", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.Submit())
		require.NoError(t, inv.MarkError("upload truncated"))

		require.NoError(t, inv.Retry())

		assert.Equal(t, StatusPending, inv.Status)
		assert.Empty(t, inv.ErrorMessage)
	})

	t.Run("retry only applies to errored invoices", func(t *testing.T) {
		inv := newTestInvoice(t)
		assert.Error(t, inv.Retry())
	})

	t.Run("archived is terminal", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.Submit())
		require.NoError(t, inv.StartExtraction())
		require.NoError(t, inv.CompleteExtraction())
		require.NoError(t, inv.MarkReviewed())
		require.NoError(t, inv.Archive())

		assert.Error(t, inv.Submit())
		assert.Error(t, inv.MarkError("too late"))
		assert.True(t, inv.Status.IsTerminal())
	})

	t.Run("every transition raises a status event", func(t *testing.T) {
		inv := newTestInvoice(t)
		inv.ClearDomainEvents()

		require.NoError(t, inv.Submit())
		require.NoError(t, inv.StartExtraction())

		events := inv.GetDomainEvents()
		require.Len(t, events, 2)
		changed, ok := events[0].(*InvoiceStatusChangedEvent)
		require.True(t, ok)
		assert.Equal(t, StatusDraft, changed.FromStatus)
		assert.Equal(t, StatusPending, changed.ToStatus)
	})
}

func TestInvoicePayments(t *testing.T) {
	paidInvoice := func(t *testing.T) *Invoice {
		inv := newTestInvoice(t)
		require.NoError(t, inv.SetTotals(money("90.00"), money("10.00"), money("100.00")))
		return inv
	}

	t.Run("payment status follows the amounts", func(t *testing.T) {
		inv := paidInvoice(t)
		assert.Equal(t, PaymentStatusUnpaid, inv.PaymentStatus)

		require.NoError(t, inv.RecordPayment(money("40.00"), "eft", "TX-1", time.Now()))
		assert.Equal(t, PaymentStatusPartial, inv.PaymentStatus)
		assert.True(t, inv.OutstandingAmount().Equals(money("60.00")))

		require.NoError(t, inv.RecordPayment(money("60.00"), "eft", "TX-2", time.Now()))
		assert.Equal(t, PaymentStatusPaid, inv.PaymentStatus)
		assert.True(t, inv.OutstandingAmount().IsZero())
		assert.Len(t, inv.Payments, 2)
	})

	t.Run("overpayment still reads as paid", func(t *testing.T) {
		inv := paidInvoice(t)
		require.NoError(t, inv.RecordPayment(money("120.00"), "cheque", "TX-9", time.Now()))

		assert.Equal(t, PaymentStatusPaid, inv.PaymentStatus)
		assert.True(t, inv.OutstandingAmount().IsZero(), "outstanding floors at zero")
	})

	t.Run("rejects non positive amounts", func(t *testing.T) {
		inv := paidInvoice(t)
		assert.Error(t, inv.RecordPayment(money("0.00"), "eft", "", time.Now()))
		assert.Error(t, inv.RecordPayment(money("-5.00"), "eft", "", time.Now()))
	})

	t.Run("payment never advances the pipeline", func(t *testing.T) {
		inv := paidInvoice(t)
		require.NoError(t, inv.RecordPayment(money("100.00"), "eft", "TX-1", time.Now()))
		assert.Equal(t, StatusDraft, inv.Status)
	})

	t.Run("voided invoices take no payments", func(t *testing.T) {
		inv := paidInvoice(t)
		require.NoError(t, inv.Void())
		assert.Error(t, inv.RecordPayment(money("10.00"), "eft", "", time.Now()))
	})

	t.Run("cannot void a fully paid invoice", func(t *testing.T) {
		inv := paidInvoice(t)
		require.NoError(t, inv.RecordPayment(money("100.00"), "eft", "TX-1", time.Now()))
		assert.Error(t, inv.Void())
	})
}

func TestInvoiceFlags(t *testing.T) {
	t.Run("flags are orthogonal to status", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.Submit())

		inv.Dispute()
		inv.MarkOverdue()

		assert.True(t, inv.IsDisputed)
		assert.True(t, inv.IsOverdue)
		assert.Equal(t, StatusPending, inv.Status)
		assert.Equal(t, PaymentStatusUnpaid, inv.PaymentStatus)

		inv.ResolveDispute()
		assert.False(t, inv.IsDisputed)
	})

	t.Run("overdue refresh tracks due date and payment", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.SetTotals(money("100.00"), money("0.00"), money("100.00")))
		inv.SetDueDate(time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC))

		inv.RefreshOverdue(time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC))
		assert.True(t, inv.IsOverdue)

		require.NoError(t, inv.RecordPayment(money("100.00"), "eft", "TX-1", time.Now()))
		inv.RefreshOverdue(time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC))
		assert.False(t, inv.IsOverdue, "paid invoices are never overdue")
	})
}

func TestInvoiceLineRollups(t *testing.T) {
	inv := newTestInvoice(t)

	confirmed, err := NewLineItem(inv.ID, 1, "PORK LOIN")
	require.NoError(t, err)
	confirmed.SetFigures(dec("2"), "", nil, "", dec("5.00"), dec("10.00"))
	require.NoError(t, confirmed.MatchManual(uuid.New()))
	require.NoError(t, confirmed.Confirm(nil, dec("0")))

	open, err := NewLineItem(inv.ID, 2, "CHICKEN BREAST")
	require.NoError(t, err)
	open.FlagForReview("pack format unresolved")
	open.flagDiscrepancy("total mismatch")

	inv.Lines = []*LineItem{confirmed, open}

	assert.True(t, inv.HasUnresolvedLines())
	assert.Equal(t, 1, inv.DiscrepancyCount())

	require.NoError(t, open.Skip())
	assert.False(t, inv.HasUnresolvedLines())
}

func TestStatusTransitionTable(t *testing.T) {
	assert.True(t, StatusDraft.CanTransitionTo(StatusPending))
	assert.True(t, StatusError.CanTransitionTo(StatusPending))
	assert.True(t, StatusError.CanTransitionTo(StatusArchived))
	assert.False(t, StatusDraft.CanTransitionTo(StatusExtracted))
	assert.False(t, StatusArchived.CanTransitionTo(StatusPending))
	assert.False(t, StatusSentToQB.CanTransitionTo(StatusError))

	for s := range statusTransitions {
		assert.True(t, s.IsValid())
	}
}
