package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how the member paid
type PaymentMethod string

const (
	MethodCash        PaymentMethod = "cash"
	MethodCheque      PaymentMethod = "cheque"
	MethodNEFT        PaymentMethod = "neft"
	MethodRTGS        PaymentMethod = "rtgs"
	MethodUPI         PaymentMethod = "upi"
	MethodRazorpay    PaymentMethod = "razorpay"
	MethodDemandDraft PaymentMethod = "demand_draft"
)

// PaymentMethods lists every accepted method in display order
var PaymentMethods = []PaymentMethod{
	MethodCash, MethodCheque, MethodNEFT, MethodRTGS, MethodUPI, MethodRazorpay, MethodDemandDraft,
}

// Valid reports whether m is an accepted method
func (m PaymentMethod) Valid() bool {
	for _, known := range PaymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

// PaymentStatus is the lifecycle state of a payment
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentCaptured PaymentStatus = "captured"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Payment is money received against one invoice
type Payment struct {
	ID            int64           `json:"id"`
	SocietyID     int64           `json:"society_id"`
	InvoiceID     int64           `json:"invoice_id"`
	ReceiptNumber string          `json:"receipt_number,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	AppliedAmount decimal.Decimal `json:"applied_amount"`
	AdvanceAmount decimal.Decimal `json:"advance_amount"`
	PaymentDate   time.Time       `json:"payment_date"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Status        PaymentStatus   `json:"status"`
	ExternalRef   string          `json:"external_ref,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	RefundedAt    *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RecordPaymentRequest is the input for recording a payment
type RecordPaymentRequest struct {
	InvoiceID     int64           `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"payment_date"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	ExternalRef   string          `json:"external_ref,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

// PaymentFilter narrows payment listings; zero values are ignored
type PaymentFilter struct {
	SocietyID int64
	InvoiceID int64
	Status    PaymentStatus
	Method    PaymentMethod
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}
