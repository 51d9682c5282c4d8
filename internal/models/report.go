package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Aging bucket labels
const (
	BucketCurrent = "Current"
	Bucket1To30   = "1-30"
	Bucket31To60  = "31-60"
	Bucket61To90  = "61-90"
	Bucket90Plus  = "90+"
)

// AgingBuckets is the fixed display order of aging buckets
var AgingBuckets = []string{BucketCurrent, Bucket1To30, Bucket31To60, Bucket61To90, Bucket90Plus}

type AgingBucket struct {
	Label  string          `json:"label"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type AgingReport struct {
	SocietyID        int64           `json:"society_id"`
	AsOf             time.Time       `json:"as_of"`
	Buckets          []AgingBucket   `json:"buckets"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	InvoiceCount     int             `json:"invoice_count"`
}

type Defaulter struct {
	UnitID           int64           `json:"unit_id"`
	UnitNumber       string          `json:"unit_number,omitempty"`
	MemberID         int64           `json:"member_id"`
	MemberName       string          `json:"member_name,omitempty"`
	InvoiceCount     int             `json:"invoice_count"`
	OldestDueDate    time.Time       `json:"oldest_due_date"`
	DaysOverdue      int             `json:"days_overdue"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
}

type MethodTotal struct {
	Method PaymentMethod   `json:"method"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type CollectionSummary struct {
	SocietyID  int64           `json:"society_id"`
	From       time.Time       `json:"from"`
	To         time.Time       `json:"to"`
	ByMethod   []MethodTotal   `json:"by_method"`
	Count      int             `json:"count"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

type StatementLine struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

type IncomeExpenseStatement struct {
	SocietyID    int64           `json:"society_id"`
	From         time.Time       `json:"from"`
	To           time.Time       `json:"to"`
	Income       []StatementLine `json:"income"`
	Expenses     []StatementLine `json:"expenses"`
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Surplus      decimal.Decimal `json:"surplus"`
}

type FundPosition struct {
	SocietyID        int64           `json:"society_id"`
	AsOf             time.Time       `json:"as_of"`
	Assets           []StatementLine `json:"assets"`
	Liabilities      []StatementLine `json:"liabilities"`
	Equity           []StatementLine `json:"equity"`
	TotalAssets      decimal.Decimal `json:"total_assets"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	TotalEquity      decimal.Decimal `json:"total_equity"`
	Balanced         bool            `json:"balanced"`
	Difference       decimal.Decimal `json:"difference"`
}

// GenerationResult reports what a monthly run did per unit
type GenerationResult struct {
	SocietyID int64         `json:"society_id"`
	Period    Period        `json:"period"`
	Count     int           `json:"count"`
	Created   []UnitInvoice `json:"created"`
	Skipped   []int64       `json:"skipped"`
	Failed    []UnitFailure `json:"failed"`
}

type UnitInvoice struct {
	UnitID        int64  `json:"unit_id"`
	InvoiceID     int64  `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
}

type UnitFailure struct {
	UnitID int64  `json:"unit_id"`
	Reason string `json:"reason"`
}
