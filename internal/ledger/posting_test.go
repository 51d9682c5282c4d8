package ledger

import (
	"errors"
	"testing"

	"society-billing/internal/models"
	"society-billing/internal/timeutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestValidateRejectsImbalance(t *testing.T) {
	p := &Posting{SocietyID: 1, SourceType: models.SourceInvoice, SourceID: 9}
	p.Debit(CodeReceivable, amt("100")).Credit(CodeMaintenanceIncome, amt("99.99"))

	err := p.Validate()
	var imb *ImbalancedPostingError
	require.True(t, errors.As(err, &imb))
	assert.True(t, imb.Debit.Equal(amt("100")))
	assert.True(t, imb.Credit.Equal(amt("99.99")))
}

func TestValidateDropsZeroLines(t *testing.T) {
	p := &Posting{SocietyID: 1, SourceType: models.SourceInvoice, SourceID: 9}
	p.Debit(CodeReceivable, amt("500")).
		Credit(CodeMaintenanceIncome, amt("500")).
		Credit(CodeGSTPayable, decimal.Zero).
		Credit(CodeInterestIncome, decimal.Zero)

	require.NoError(t, p.Validate())
	assert.Len(t, p.Lines, 2)
}

func TestValidateRejectsNegativeAndEmpty(t *testing.T) {
	neg := &Posting{SourceType: models.SourcePayment, SourceID: 1}
	neg.Debit(CodeCash, amt("-5")).Credit(CodeReceivable, amt("-5"))
	var verr *models.ValidationError
	assert.True(t, errors.As(neg.Validate(), &verr))

	empty := &Posting{SourceType: models.SourcePayment, SourceID: 1}
	empty.Debit(CodeCash, decimal.Zero).Credit(CodeReceivable, decimal.Zero)
	assert.True(t, errors.As(empty.Validate(), &verr))
	assert.True(t, empty.IsEmpty())

	orphan := &Posting{SourceType: models.SourcePayment}
	orphan.Debit(CodeCash, amt("1")).Credit(CodeReceivable, amt("1"))
	assert.True(t, errors.As(orphan.Validate(), &verr))
}

func TestReverseSwapsSides(t *testing.T) {
	pay := &models.Payment{
		ID: 3, SocietyID: 1, ReceiptNumber: "RCP-2025-2026-000001",
		Amount: amt("6000"), AppliedAmount: amt("5250"), AdvanceAmount: amt("750"),
		PaymentMethod: models.MethodUPI, PaymentDate: timeutil.Date(2025, 4, 5),
	}
	p := PaymentPosting(pay)
	require.NoError(t, p.Validate())

	rev := p.Reverse(models.SourceRefund, pay.ID, timeutil.Date(2025, 4, 20), "refund")
	require.NoError(t, rev.Validate())
	require.Len(t, rev.Lines, len(p.Lines))
	for i := range p.Lines {
		assert.Equal(t, p.Lines[i].AccountCode, rev.Lines[i].AccountCode)
		assert.Equal(t, p.Lines[i].Side.Opposite(), rev.Lines[i].Side)
		assert.True(t, p.Lines[i].Amount.Equal(rev.Lines[i].Amount))
	}
	assert.Equal(t, models.SourceRefund, rev.SourceType)
}

func TestInvoicePostingBalances(t *testing.T) {
	inv := &models.Invoice{
		ID: 1, SocietyID: 1, InvoiceNumber: "INV-202505-0001", BillingMonth: 5, BillingYear: 2025,
		Subtotal: amt("5000"), GSTAmount: amt("900"), InterestAmount: amt("48.08"),
		PreviousBalance: amt("3250"), IssueDate: timeutil.Date(2025, 5, 1),
	}
	p := InvoicePosting(inv)
	require.NoError(t, p.Validate())

	debit, credit := p.Totals()
	assert.True(t, debit.Equal(amt("5948.08")), "carried balance is not posted again")
	assert.True(t, debit.Equal(credit))
}

func TestDebitAccountFor(t *testing.T) {
	assert.Equal(t, CodeCash, DebitAccountFor(models.MethodCash))
	assert.Equal(t, CodeGatewayClearing, DebitAccountFor(models.MethodRazorpay))
	for _, m := range []models.PaymentMethod{models.MethodCheque, models.MethodNEFT, models.MethodRTGS, models.MethodUPI, models.MethodDemandDraft} {
		assert.Equal(t, CodeBank, DebitAccountFor(m), m)
	}
}

func TestDefaultChartIsTyped(t *testing.T) {
	seen := map[string]bool{}
	for _, a := range DefaultChart(7) {
		assert.True(t, a.Type.Valid(), a.Code)
		assert.Equal(t, int64(7), a.SocietyID)
		assert.False(t, seen[a.Code], "duplicate code %s", a.Code)
		seen[a.Code] = true
	}
}

func TestRefundPostingSplitsByReopenedAmounts(t *testing.T) {
	pay := &models.Payment{ID: 4, SocietyID: 1, ReceiptNumber: "RCP-2025-2026-000004", Amount: amt("3000"), PaymentMethod: models.MethodUPI}

	p := RefundPosting(pay, amt("2250"), amt("750"), timeutil.Date(2025, 4, 6))
	require.NoError(t, p.Validate())
	assert.Equal(t, models.SourceRefund, p.SourceType)
	assert.Equal(t, []Line{
		{AccountCode: CodeReceivable, Side: models.SideDebit, Amount: amt("2250")},
		{AccountCode: CodeMemberAdvances, Side: models.SideDebit, Amount: amt("750")},
		{AccountCode: CodeBank, Side: models.SideCredit, Amount: amt("3000")},
	}, p.Lines)

	noAdvance := RefundPosting(pay, amt("3000"), decimal.Zero, timeutil.Date(2025, 4, 6))
	require.NoError(t, noAdvance.Validate())
	assert.Len(t, noAdvance.Lines, 2)
}
