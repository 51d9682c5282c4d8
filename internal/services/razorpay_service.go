package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"society-billing/internal/logger"
	"society-billing/internal/metrics"
	"society-billing/internal/models"
	"society-billing/internal/money"

	"github.com/rs/zerolog"
)

// Razorpay webhook events acted on
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// maxCarryHops bounds the walk from a paid invoice to the one now carrying its balance
const maxCarryHops = 24

type RazorpayService struct {
	deps          Deps
	payments      *PaymentService
	orders        OrderCreator
	keyID         string
	webhookSecret string
	log           zerolog.Logger
}

// NewRazorpayService wires the gateway. orders may be nil when no API keys are
// configured; webhooks are still verified and processed.
func NewRazorpayService(deps Deps, payments *PaymentService, orders OrderCreator, keyID, webhookSecret string) *RazorpayService {
	return &RazorpayService{
		deps:          deps.withDefaults(),
		payments:      payments,
		orders:        orders,
		keyID:         keyID,
		webhookSecret: webhookSecret,
		log:           logger.WithComponent("razorpay"),
	}
}

// CreateOrder opens a checkout order for the invoice's balance due
func (s *RazorpayService) CreateOrder(ctx context.Context, invoiceID int64) (*models.CreateOrderResponse, error) {
	if s.orders == nil {
		return nil, fmt.Errorf("razorpay client not configured")
	}

	inv, err := s.deps.Invoices.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !inv.IsOpen() {
		return nil, models.NewValidationError("invoice_id", "invoice %s has nothing to pay", inv.InvoiceNumber)
	}

	amountPaise := money.ToPaise(inv.BalanceDue)
	order, err := s.orders.Create(map[string]interface{}{
		"amount":   amountPaise,
		"currency": "INR",
		"receipt":  inv.InvoiceNumber,
		"notes": map[string]interface{}{
			"society_id": inv.SocietyID,
			"invoice_id": inv.ID,
			"unit_id":    inv.UnitID,
		},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create razorpay order: %w", err)
	}
	orderID, _ := order["id"].(string)
	if orderID == "" {
		return nil, fmt.Errorf("razorpay order response has no id")
	}

	if err := s.deps.Orders.Create(ctx, &models.OnlineOrder{
		SocietyID:       inv.SocietyID,
		InvoiceID:       inv.ID,
		RazorpayOrderID: orderID,
		Amount:          inv.BalanceDue,
		Status:          models.OnlineOrderCreated,
	}); err != nil {
		return nil, fmt.Errorf("failed to store order: %w", err)
	}

	return &models.CreateOrderResponse{
		OrderID:       orderID,
		InvoiceNumber: inv.InvoiceNumber,
		AmountPaise:   amountPaise,
		Currency:      "INR",
		KeyID:         s.keyID,
	}, nil
}

// VerifyWebhookSignature checks X-Razorpay-Signature against the raw body.
// Without a configured secret nothing verifies.
func (s *RazorpayService) VerifyWebhookSignature(body []byte, signature string) bool {
	if s.webhookSecret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(SignWebhook(s.webhookSecret, body)), []byte(signature))
}

// SignWebhook computes the hex HMAC-SHA256 Razorpay sends for a body
func SignWebhook(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// ProcessWebhook applies a verified gateway event. Replays are harmless.
func (s *RazorpayService) ProcessWebhook(ctx context.Context, event string, payload map[string]interface{}) error {
	var err error
	switch event {
	case EventPaymentCaptured:
		err = s.handlePaymentCaptured(ctx, payload)
	case EventPaymentFailed:
		err = s.handlePaymentFailed(ctx, payload)
	default:
		s.log.Debug().Str("event", event).Msg("ignoring webhook event")
		metrics.WebhookEvents.WithLabelValues(event, "ignored").Inc()
		return nil
	}
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(event, "error").Inc()
		return err
	}
	return nil
}

// paymentEntity digs payload.payment.entity out of the event body
func paymentEntity(payload map[string]interface{}) map[string]interface{} {
	p, ok := payload["payment"].(map[string]interface{})
	if !ok {
		p = payload
	}
	entity, ok := p["entity"].(map[string]interface{})
	if !ok {
		entity = p
	}
	return entity
}

func paiseOf(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(math.Round(n))
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	}
	return 0
}

func (s *RazorpayService) handlePaymentCaptured(ctx context.Context, payload map[string]interface{}) error {
	entity := paymentEntity(payload)
	orderID, _ := entity["order_id"].(string)
	paymentID, _ := entity["id"].(string)
	if orderID == "" || paymentID == "" {
		return models.NewValidationError("payload", "missing order_id or payment id in webhook")
	}

	order, err := s.deps.Orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("order %s: %w", orderID, err)
	}

	amount := order.Amount
	if paise := paiseOf(entity["amount"]); paise > 0 {
		amount = money.FromPaise(paise)
	}

	invoiceID, err := s.payableInvoice(ctx, order.InvoiceID)
	if err != nil {
		return err
	}

	outcome := "processed"
	pay, err := s.payments.RecordPayment(ctx, models.RecordPaymentRequest{
		InvoiceID:     invoiceID,
		Amount:        amount,
		PaymentDate:   s.deps.Now(),
		PaymentMethod: models.MethodRazorpay,
		ExternalRef:   paymentID,
		Notes:         fmt.Sprintf("Razorpay order %s", orderID),
	})
	var conflict *models.IdempotencyConflict
	if errors.As(err, &conflict) {
		pay, err = conflict.Existing, nil
		outcome = "duplicate"
	}
	if err != nil {
		return fmt.Errorf("record payment %s: %w", paymentID, err)
	}

	if order.Status != models.OnlineOrderCaptured {
		if err := s.deps.Orders.MarkCaptured(ctx, orderID, paymentID, pay.ID, s.deps.Now()); err != nil {
			return fmt.Errorf("mark order %s captured: %w", orderID, err)
		}
	}

	metrics.WebhookEvents.WithLabelValues(EventPaymentCaptured, outcome).Inc()
	s.log.Info().Str("order_id", orderID).Str("payment_id", paymentID).Str("outcome", outcome).Msg("payment captured")
	return nil
}

// payableInvoice follows carry-forward links so money captured after the next
// month's bill was issued lands on the invoice now holding the balance
func (s *RazorpayService) payableInvoice(ctx context.Context, invoiceID int64) (int64, error) {
	for hop := 0; hop < maxCarryHops; hop++ {
		inv, err := s.deps.Invoices.Get(ctx, invoiceID)
		if err != nil {
			return 0, fmt.Errorf("invoice %d: %w", invoiceID, err)
		}
		if inv.CarriedForwardTo == nil {
			return inv.ID, nil
		}
		invoiceID = *inv.CarriedForwardTo
	}
	return 0, fmt.Errorf("invoice %d: carry-forward chain too long", invoiceID)
}

func (s *RazorpayService) handlePaymentFailed(ctx context.Context, payload map[string]interface{}) error {
	entity := paymentEntity(payload)
	orderID, _ := entity["order_id"].(string)
	paymentID, _ := entity["id"].(string)
	if orderID == "" {
		return models.NewValidationError("payload", "missing order_id in webhook")
	}

	reason := "Payment failed"
	if desc, ok := entity["error_description"].(string); ok && desc != "" {
		reason = desc
	}

	order, err := s.deps.Orders.GetByOrderID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("order %s: %w", orderID, err)
	}
	if err := s.deps.Orders.MarkFailed(ctx, orderID, paymentID, reason, s.deps.Now()); err != nil {
		return fmt.Errorf("mark order %s failed: %w", orderID, err)
	}

	amount := order.Amount
	if paise := paiseOf(entity["amount"]); paise > 0 {
		amount = money.FromPaise(paise)
	}
	if _, err := s.payments.RecordFailed(ctx, order.InvoiceID, amount, paymentID, reason); err != nil {
		return fmt.Errorf("record failed payment: %w", err)
	}

	metrics.WebhookEvents.WithLabelValues(EventPaymentFailed, "processed").Inc()
	s.log.Warn().Str("order_id", orderID).Str("reason", reason).Msg("payment failed")
	return nil
}
