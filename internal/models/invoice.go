package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of a maintenance invoice
type InvoiceStatus string

const (
	InvoiceDraft         InvoiceStatus = "draft"
	InvoiceSent          InvoiceStatus = "sent"
	InvoicePartiallyPaid InvoiceStatus = "partially_paid"
	InvoicePaid          InvoiceStatus = "paid"
	InvoiceOverdue       InvoiceStatus = "overdue"
	InvoiceCancelled     InvoiceStatus = "cancelled"
)

// Invoice is the maintenance bill for one unit and one billing period
type Invoice struct {
	ID               int64           `json:"id"`
	SocietyID        int64           `json:"society_id"`
	UnitID           int64           `json:"unit_id"`
	MemberID         int64           `json:"member_id"`
	UnitNumber       string          `json:"unit_number,omitempty"`
	MemberName       string          `json:"member_name,omitempty"`
	InvoiceNumber    string          `json:"invoice_number"`
	BillingMonth     int             `json:"billing_month"`
	BillingYear      int             `json:"billing_year"`
	IssueDate        time.Time       `json:"issue_date"`
	DueDate          time.Time       `json:"due_date"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	GSTAmount        decimal.Decimal `json:"gst_amount"`
	InterestAmount   decimal.Decimal `json:"interest_amount"`
	PreviousBalance  decimal.Decimal `json:"previous_balance"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	BalanceDue       decimal.Decimal `json:"balance_due"`
	CreditAmount     decimal.Decimal `json:"credit_amount"`
	Status           InvoiceStatus   `json:"status"`
	CarriedForwardTo *int64          `json:"carried_forward_to,omitempty"`
	Version          int             `json:"version"`
	LineItems        []LineItem      `json:"line_items,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// LineItem is one fee head on an invoice
type LineItem struct {
	ID          int64            `json:"id"`
	InvoiceID   int64            `json:"invoice_id"`
	Description string           `json:"description"`
	Rate        decimal.Decimal  `json:"rate"`
	AreaSqft    *decimal.Decimal `json:"area_sqft,omitempty"`
	Amount      decimal.Decimal  `json:"amount"`
	GSTAmount   decimal.Decimal  `json:"gst_amount"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
}

// CurrentCharges is what this period adds on top of the carried balance
func (inv *Invoice) CurrentCharges() decimal.Decimal {
	return inv.Subtotal.Add(inv.GSTAmount).Add(inv.InterestAmount)
}

// IsOpen reports whether the invoice still counts as receivable
func (inv *Invoice) IsOpen() bool {
	return inv.Status != InvoiceCancelled && inv.CarriedForwardTo == nil && inv.BalanceDue.IsPositive()
}

// Recalculate derives total and balance from the components and paid amount,
// then moves the status to match. Cancelled invoices keep their status.
func (inv *Invoice) Recalculate(asOf time.Time) {
	inv.TotalAmount = inv.CurrentCharges().Add(inv.PreviousBalance)
	inv.BalanceDue = inv.TotalAmount.Sub(inv.PaidAmount)
	if inv.BalanceDue.IsNegative() {
		inv.BalanceDue = decimal.Zero
	}

	if inv.Status == InvoiceCancelled {
		return
	}
	switch {
	case inv.BalanceDue.IsZero():
		inv.Status = InvoicePaid
	case inv.PaidAmount.IsPositive():
		inv.Status = InvoicePartiallyPaid
	case !asOf.IsZero() && asOf.After(inv.DueDate):
		inv.Status = InvoiceOverdue
	case inv.Status == InvoicePaid, inv.Status == InvoicePartiallyPaid:
		inv.Status = InvoiceSent
	}
}

// InvoiceFilter narrows invoice listings; zero values are ignored
type InvoiceFilter struct {
	SocietyID    int64
	UnitID       int64
	BillingMonth int
	BillingYear  int
	Status       InvoiceStatus
	OpenOnly     bool
	Limit        int
	Offset       int
}

// Period identifies a billing month
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// Before reports whether p is an earlier billing month than other
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}
