package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the debit or credit side of a ledger line
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// Opposite returns the other side
func (s Side) Opposite() Side {
	if s == SideDebit {
		return SideCredit
	}
	return SideDebit
}

// SourceType names the document a ledger entry belongs to
type SourceType string

const (
	SourceInvoice    SourceType = "invoice"
	SourcePayment    SourceType = "payment"
	SourceRefund     SourceType = "refund"
	SourceAdjustment SourceType = "adjustment"
)

// LedgerEntry is one immutable line of a double-entry posting
type LedgerEntry struct {
	ID          int64           `json:"id"`
	SocietyID   int64           `json:"society_id"`
	AccountID   int64           `json:"account_id"`
	AccountCode string          `json:"account_code"`
	EntryDate   time.Time       `json:"entry_date"`
	Side        Side            `json:"side"`
	Amount      decimal.Decimal `json:"amount"`
	SourceType  SourceType      `json:"source_type"`
	SourceID    int64           `json:"source_id"`
	Narration   string          `json:"narration"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AccountTotal is the debit and credit turnover of one account over a range
type AccountTotal struct {
	AccountID int64           `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Type      AccountType     `json:"type"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// Balance returns the balance in the account's normal direction
func (t AccountTotal) Balance() decimal.Decimal {
	if t.Type.DebitNormal() {
		return t.Debit.Sub(t.Credit)
	}
	return t.Credit.Sub(t.Debit)
}

// LedgerFilter selects account totals by date range; zero dates are open ends
type LedgerFilter struct {
	SocietyID int64
	From      time.Time
	To        time.Time
}
