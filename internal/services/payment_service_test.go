package services

import (
	"context"
	"errors"
	"testing"

	"society-billing/internal/events"
	"society-billing/internal/ledger"
	"society-billing/internal/models"
	"society-billing/internal/timeutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aprilInvoice(t *testing.T) (*fixture, *models.Invoice) {
	t.Helper()
	f := newFixture(t, models.SocietySettings{BillingDueDay: 10})
	f.addStandardUnit(1)
	f.generate(t, 4, 2025)
	return f, f.invoiceFor(t, 1, 4, 2025)
}

func TestRecordPaymentValidation(t *testing.T) {
	f, inv := aprilInvoice(t)

	tests := []struct {
		name string
		req  models.RecordPaymentRequest
	}{
		{"zero amount", models.RecordPaymentRequest{InvoiceID: inv.ID, Amount: decimal.Zero, PaymentDate: f.clock, PaymentMethod: models.MethodCash}},
		{"negative amount", models.RecordPaymentRequest{InvoiceID: inv.ID, Amount: amt("-1"), PaymentDate: f.clock, PaymentMethod: models.MethodCash}},
		{"unknown method", models.RecordPaymentRequest{InvoiceID: inv.ID, Amount: amt("10"), PaymentDate: f.clock, PaymentMethod: "barter"}},
		{"missing date", models.RecordPaymentRequest{InvoiceID: inv.ID, Amount: amt("10"), PaymentMethod: models.MethodCash}},
		{"missing invoice", models.RecordPaymentRequest{Amount: amt("10"), PaymentDate: f.clock, PaymentMethod: models.MethodCash}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.payments.RecordPayment(context.Background(), tc.req)
			var verr *models.ValidationError
			assert.True(t, errors.As(err, &verr), "got %v", err)
		})
	}

	_, err := f.payments.RecordPayment(context.Background(), models.RecordPaymentRequest{
		InvoiceID: 9999, Amount: amt("10"), PaymentDate: f.clock, PaymentMethod: models.MethodCash,
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRecordPaymentPartialThenFull(t *testing.T) {
	f, inv := aprilInvoice(t)

	first := f.pay(t, inv.ID, "2000", models.MethodCheque, timeutil.Date(2025, 4, 5))
	assert.True(t, first.AppliedAmount.Equal(amt("2000")))
	assert.True(t, first.AdvanceAmount.IsZero())

	second := f.pay(t, inv.ID, "3250", models.MethodCash, timeutil.Date(2025, 4, 8))
	assert.Equal(t, "RCP-2025-2026-000002", second.ReceiptNumber)

	inv = f.invoiceFor(t, 1, 4, 2025)
	assert.Equal(t, models.InvoicePaid, inv.Status)
	assert.True(t, inv.BalanceDue.IsZero())
	requireConsistent(t, inv)

	l := f.store.Ledger()
	assert.True(t, l.Balance(societyID, ledger.CodeBank).Equal(amt("2000")))
	assert.True(t, l.Balance(societyID, ledger.CodeCash).Equal(amt("3250")))
	assert.True(t, l.Balance(societyID, ledger.CodeReceivable).IsZero())
	requireBalancedPostings(t, f.store.AllEntries())
}

func TestRecordPaymentOverpaymentBecomesAdvance(t *testing.T) {
	f, inv := aprilInvoice(t)

	p := f.pay(t, inv.ID, "6000", models.MethodNEFT, timeutil.Date(2025, 4, 5))
	assert.True(t, p.AppliedAmount.Equal(amt("5250")))
	assert.True(t, p.AdvanceAmount.Equal(amt("750")))

	inv = f.invoiceFor(t, 1, 4, 2025)
	assert.Equal(t, models.InvoicePaid, inv.Status)
	assert.True(t, inv.BalanceDue.IsZero())
	assert.True(t, inv.CreditAmount.Equal(amt("750")))

	l := f.store.Ledger()
	assert.True(t, l.Balance(societyID, ledger.CodeMemberAdvances).Equal(amt("-750")))
	assert.True(t, l.Balance(societyID, ledger.CodeReceivable).IsZero())
	requireBalancedPostings(t, f.store.AllEntries())
}

func TestRecordPaymentRejectsCancelledAndCarried(t *testing.T) {
	f, april := aprilInvoice(t)
	f.generate(t, 5, 2025)

	_, err := f.payments.RecordPayment(context.Background(), models.RecordPaymentRequest{
		InvoiceID: april.ID, Amount: amt("100"), PaymentDate: f.clock, PaymentMethod: models.MethodCash,
	})
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Message, "carried forward")

	may := f.invoiceFor(t, 1, 5, 2025)
	_, err = f.invoices.CancelInvoice(context.Background(), may.ID, f.clock)
	require.NoError(t, err)

	_, err = f.payments.RecordPayment(context.Background(), models.RecordPaymentRequest{
		InvoiceID: may.ID, Amount: amt("100"), PaymentDate: f.clock, PaymentMethod: models.MethodCash,
	})
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Message, "cancelled")
}

func TestRecordPaymentDeduplicatesExternalRef(t *testing.T) {
	f, inv := aprilInvoice(t)
	req := models.RecordPaymentRequest{
		InvoiceID: inv.ID, Amount: amt("1000"), PaymentDate: f.clock,
		PaymentMethod: models.MethodUPI, ExternalRef: "UTR123",
	}

	first, err := f.payments.RecordPayment(context.Background(), req)
	require.NoError(t, err)

	_, err = f.payments.RecordPayment(context.Background(), req)
	var conflict *models.IdempotencyConflict
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, first.ID, conflict.Existing.ID)

	payments, err := f.payments.ListPayments(context.Background(), models.PaymentFilter{SocietyID: societyID})
	require.NoError(t, err)
	assert.Len(t, payments, 1)
	assert.True(t, f.invoiceFor(t, 1, 4, 2025).PaidAmount.Equal(amt("1000")))
}

func TestRefundPaymentRestoresBalance(t *testing.T) {
	f, inv := aprilInvoice(t)
	p := f.pay(t, inv.ID, "6000", models.MethodCash, timeutil.Date(2025, 4, 5))

	refunded, err := f.payments.RefundPayment(context.Background(), p.ID, timeutil.Date(2025, 4, 6))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, refunded.Status)
	require.NotNil(t, refunded.RefundedAt)

	inv = f.invoiceFor(t, 1, 4, 2025)
	assert.Equal(t, models.InvoiceSent, inv.Status)
	assert.True(t, inv.PaidAmount.IsZero())
	assert.True(t, inv.CreditAmount.IsZero())
	assert.True(t, inv.BalanceDue.Equal(amt("5250")))

	l := f.store.Ledger()
	assert.True(t, l.Balance(societyID, ledger.CodeCash).IsZero())
	assert.True(t, l.Balance(societyID, ledger.CodeMemberAdvances).IsZero())
	assert.True(t, l.Balance(societyID, ledger.CodeReceivable).Equal(amt("5250")))
	requireBalancedPostings(t, f.store.AllEntries())

	_, err = f.payments.RefundPayment(context.Background(), p.ID, timeutil.Date(2025, 4, 7))
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ErrorIs(t, err, models.ErrAlreadyRefunded)

	assert.Contains(t, f.events.Types(), events.PaymentRefunded)
}

func TestRefundAfterDueDateMarksOverdue(t *testing.T) {
	f, inv := aprilInvoice(t)
	p := f.pay(t, inv.ID, "5250", models.MethodCash, timeutil.Date(2025, 4, 5))

	_, err := f.payments.RefundPayment(context.Background(), p.ID, timeutil.Date(2025, 4, 20))
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceOverdue, f.invoiceFor(t, 1, 4, 2025).Status)
}

func TestRefundRejectedOnceCarriedForward(t *testing.T) {
	f, inv := aprilInvoice(t)
	p := f.pay(t, inv.ID, "2000", models.MethodCash, timeutil.Date(2025, 4, 5))
	f.generate(t, 5, 2025)

	_, err := f.payments.RefundPayment(context.Background(), p.ID, timeutil.Date(2025, 5, 2))
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))

	got, err := f.payments.GetPayment(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCaptured, got.Status)
}

func TestPaymentReads(t *testing.T) {
	f, inv := aprilInvoice(t)
	p := f.pay(t, inv.ID, "100", models.MethodCash, timeutil.Date(2025, 4, 5))

	got, err := f.payments.GetByReceiptNumber(context.Background(), societyID, p.ReceiptNumber)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = f.payments.GetByReceiptNumber(context.Background(), societyID, "RCP-1999-2000-000001")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRefundAfterLaterAdvanceReconciles(t *testing.T) {
	f, inv := aprilInvoice(t)
	first := f.pay(t, inv.ID, "3000", models.MethodCash, timeutil.Date(2025, 4, 3))
	second := f.pay(t, inv.ID, "3000", models.MethodUPI, timeutil.Date(2025, 4, 4))
	assert.True(t, second.AdvanceAmount.Equal(amt("750")))
	requireReconciled(t, f)

	_, err := f.payments.RefundPayment(context.Background(), first.ID, timeutil.Date(2025, 4, 6))
	require.NoError(t, err)

	got := f.invoiceFor(t, 1, 4, 2025)
	assert.Equal(t, models.InvoicePartiallyPaid, got.Status)
	assert.True(t, got.PaidAmount.Equal(amt("3000")))
	assert.True(t, got.BalanceDue.Equal(amt("2250")))
	assert.True(t, got.CreditAmount.IsZero(), "the advance is used up once the first payment goes back")

	l := f.store.Ledger()
	assert.True(t, l.Balance(societyID, ledger.CodeReceivable).Equal(amt("2250")))
	assert.True(t, l.Balance(societyID, ledger.CodeMemberAdvances).IsZero())
	assert.True(t, l.Balance(societyID, ledger.CodeCash).IsZero())
	assert.True(t, l.Balance(societyID, ledger.CodeBank).Equal(amt("3000")))
	requireReconciled(t, f)

	_, err = f.payments.RefundPayment(context.Background(), second.ID, timeutil.Date(2025, 4, 7))
	require.NoError(t, err)
	got = f.invoiceFor(t, 1, 4, 2025)
	assert.Equal(t, models.InvoiceSent, got.Status)
	assert.True(t, got.BalanceDue.Equal(amt("5250")))
	assert.True(t, l.Balance(societyID, ledger.CodeBank).IsZero())
	requireReconciled(t, f)
}

func TestBalancesReconcileAcrossPaymentHistory(t *testing.T) {
	f := newFixture(t, models.SocietySettings{BillingDueDay: 10})
	f.addStandardUnit(1)
	f.addStandardUnit(2)
	f.generate(t, 4, 2025)
	requireReconciled(t, f)

	f.pay(t, f.invoiceFor(t, 1, 4, 2025).ID, "2000", models.MethodCash, timeutil.Date(2025, 4, 5))
	overpaid := f.pay(t, f.invoiceFor(t, 2, 4, 2025).ID, "6000", models.MethodNEFT, timeutil.Date(2025, 4, 5))
	requireReconciled(t, f)

	f.generate(t, 5, 2025)
	may1 := f.invoiceFor(t, 1, 5, 2025)
	assert.True(t, may1.PreviousBalance.Equal(amt("3250")))
	assert.True(t, may1.TotalAmount.Equal(amt("8500")))
	requireReconciled(t, f)

	partOne := f.pay(t, may1.ID, "4000", models.MethodCash, timeutil.Date(2025, 5, 3))
	f.pay(t, may1.ID, "5000", models.MethodUPI, timeutil.Date(2025, 5, 4))
	may1 = f.invoiceFor(t, 1, 5, 2025)
	assert.True(t, may1.CreditAmount.Equal(amt("500")))
	requireReconciled(t, f)

	_, err := f.payments.RefundPayment(context.Background(), overpaid.ID, timeutil.Date(2025, 5, 5))
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceOverdue, f.invoiceFor(t, 2, 4, 2025).Status)
	requireReconciled(t, f)

	_, err = f.invoices.CancelInvoice(context.Background(), f.invoiceFor(t, 2, 5, 2025).ID, timeutil.Date(2025, 5, 6))
	require.NoError(t, err)
	requireReconciled(t, f)

	_, err = f.payments.RefundPayment(context.Background(), partOne.ID, timeutil.Date(2025, 5, 7))
	require.NoError(t, err)
	may1 = f.invoiceFor(t, 1, 5, 2025)
	assert.True(t, may1.BalanceDue.Equal(amt("3500")))
	assert.True(t, may1.CreditAmount.IsZero())
	requireReconciled(t, f)
}

func TestAdvanceIsHeldForManualSettlement(t *testing.T) {
	f, inv := aprilInvoice(t)
	f.pay(t, inv.ID, "6000", models.MethodNEFT, timeutil.Date(2025, 4, 5))

	f.generate(t, 5, 2025)
	may := f.invoiceFor(t, 1, 5, 2025)
	assert.True(t, may.PreviousBalance.IsZero())
	assert.True(t, may.TotalAmount.Equal(amt("5250")), "the advance is not netted into the next bill")
	assert.True(t, f.invoiceFor(t, 1, 4, 2025).CreditAmount.Equal(amt("750")))
	assert.True(t, f.store.Ledger().Balance(societyID, ledger.CodeMemberAdvances).Equal(amt("-750")))
	requireReconciled(t, f)
}
