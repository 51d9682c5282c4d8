package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OnlineOrderStatus represents the state of a gateway order
type OnlineOrderStatus string

const (
	OnlineOrderCreated  OnlineOrderStatus = "created"
	OnlineOrderCaptured OnlineOrderStatus = "captured"
	OnlineOrderFailed   OnlineOrderStatus = "failed"
)

// OnlineOrder links a Razorpay order to the invoice it pays
type OnlineOrder struct {
	ID                int64             `json:"id"`
	SocietyID         int64             `json:"society_id"`
	InvoiceID         int64             `json:"invoice_id"`
	RazorpayOrderID   string            `json:"razorpay_order_id"`
	RazorpayPaymentID string            `json:"razorpay_payment_id,omitempty"`
	Amount            decimal.Decimal   `json:"amount"`
	Status            OnlineOrderStatus `json:"status"`
	FailureReason     string            `json:"failure_reason,omitempty"`
	PaymentID         *int64            `json:"payment_id,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
}

// CreateOrderResponse is handed to the checkout widget
type CreateOrderResponse struct {
	OrderID       string `json:"order_id"`
	InvoiceNumber string `json:"invoice_number"`
	AmountPaise   int64  `json:"amount"`
	Currency      string `json:"currency"`
	KeyID         string `json:"key_id"`
}
