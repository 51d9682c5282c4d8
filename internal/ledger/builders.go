package ledger

import (
	"fmt"
	"time"

	"society-billing/internal/models"

	"github.com/shopspring/decimal"
)

// InvoicePosting charges the period's new charges to receivables.
// The carried balance is already on the books and is not posted again.
func InvoicePosting(inv *models.Invoice) *Posting {
	p := &Posting{
		SocietyID:  inv.SocietyID,
		SourceType: models.SourceInvoice,
		SourceID:   inv.ID,
		Date:       inv.IssueDate,
		Narration:  fmt.Sprintf("Maintenance %s for %02d/%d", inv.InvoiceNumber, inv.BillingMonth, inv.BillingYear),
	}
	p.Debit(CodeReceivable, inv.CurrentCharges())
	p.Credit(CodeMaintenanceIncome, inv.Subtotal)
	p.Credit(CodeGSTPayable, inv.GSTAmount)
	p.Credit(CodeInterestIncome, inv.InterestAmount)
	return p
}

// PaymentPosting moves money into the method's account; anything beyond the
// invoice balance is held as a member advance.
func PaymentPosting(pay *models.Payment) *Posting {
	p := &Posting{
		SocietyID:  pay.SocietyID,
		SourceType: models.SourcePayment,
		SourceID:   pay.ID,
		Date:       pay.PaymentDate,
		Narration:  fmt.Sprintf("Receipt %s via %s", pay.ReceiptNumber, pay.PaymentMethod),
	}
	p.Debit(DebitAccountFor(pay.PaymentMethod), pay.Amount)
	p.Credit(CodeReceivable, pay.AppliedAmount)
	p.Credit(CodeMemberAdvances, pay.AdvanceAmount)
	return p
}

// RefundPosting pays the money back out of the method's account. The
// receivable and advance amounts are what the refund reopens on the invoice,
// which need not match how the payment was first split.
func RefundPosting(pay *models.Payment, receivable, advance decimal.Decimal, date time.Time) *Posting {
	p := &Posting{
		SocietyID:  pay.SocietyID,
		SourceType: models.SourceRefund,
		SourceID:   pay.ID,
		Date:       date,
		Narration:  fmt.Sprintf("Refund of %s", pay.ReceiptNumber),
	}
	p.Debit(CodeReceivable, receivable)
	p.Debit(CodeMemberAdvances, advance)
	p.Credit(DebitAccountFor(pay.PaymentMethod), pay.Amount)
	return p
}
