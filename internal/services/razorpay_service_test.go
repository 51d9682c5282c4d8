package services

import (
	"context"
	"errors"
	"testing"

	"society-billing/internal/ledger"
	"society-billing/internal/models"
	"society-billing/internal/timeutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrders struct {
	calls []map[string]interface{}
	err   error
}

func (o *fakeOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	o.calls = append(o.calls, data)
	if o.err != nil {
		return nil, o.err
	}
	return map[string]interface{}{"id": "order_ABC", "status": "created"}, nil
}

func capturedPayload(orderID, paymentID string, paise float64) map[string]interface{} {
	return map[string]interface{}{
		"payment": map[string]interface{}{
			"entity": map[string]interface{}{
				"id":       paymentID,
				"order_id": orderID,
				"amount":   paise,
				"status":   "captured",
			},
		},
	}
}

func newGateway(t *testing.T) (*fixture, *RazorpayService, *fakeOrders, *models.Invoice) {
	t.Helper()
	f, inv := aprilInvoice(t)
	orders := &fakeOrders{}
	svc := NewRazorpayService(f.deps, f.payments, orders, "rzp_test_key", "whsec")
	return f, svc, orders, inv
}

func TestCreateOrderForBalanceDue(t *testing.T) {
	f, svc, orders, inv := newGateway(t)
	f.pay(t, inv.ID, "250", models.MethodCash, timeutil.Date(2025, 4, 2))

	resp, err := svc.CreateOrder(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "order_ABC", resp.OrderID)
	assert.Equal(t, int64(500000), resp.AmountPaise)
	assert.Equal(t, "rzp_test_key", resp.KeyID)

	require.Len(t, orders.calls, 1)
	assert.Equal(t, int64(500000), orders.calls[0]["amount"])
	assert.Equal(t, inv.InvoiceNumber, orders.calls[0]["receipt"])

	stored, err := f.deps.Orders.GetByOrderID(context.Background(), "order_ABC")
	require.NoError(t, err)
	assert.Equal(t, inv.ID, stored.InvoiceID)
	assert.Equal(t, models.OnlineOrderCreated, stored.Status)
}

func TestCreateOrderRejectsSettledInvoice(t *testing.T) {
	f, svc, orders, inv := newGateway(t)
	f.pay(t, inv.ID, "5250", models.MethodCash, timeutil.Date(2025, 4, 2))

	_, err := svc.CreateOrder(context.Background(), inv.ID)
	var verr *models.ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Empty(t, orders.calls)

	unconfigured := NewRazorpayService(f.deps, f.payments, nil, "", "")
	_, err = unconfigured.CreateOrder(context.Background(), inv.ID)
	assert.Error(t, err)
}

func TestVerifyWebhookSignature(t *testing.T) {
	_, svc, _, _ := newGateway(t)
	body := []byte(`{"event":"payment.captured"}`)

	assert.True(t, svc.VerifyWebhookSignature(body, SignWebhook("whsec", body)))
	assert.False(t, svc.VerifyWebhookSignature(body, SignWebhook("other", body)))
	assert.False(t, svc.VerifyWebhookSignature(body, ""))

	noSecret := NewRazorpayService(Deps{}, nil, nil, "", "")
	assert.False(t, noSecret.VerifyWebhookSignature(body, SignWebhook("", body)))
}

func TestWebhookCapturedIsIdempotent(t *testing.T) {
	f, svc, _, inv := newGateway(t)
	_, err := svc.CreateOrder(context.Background(), inv.ID)
	require.NoError(t, err)

	payload := capturedPayload("order_ABC", "pay_001", 525000)
	require.NoError(t, svc.ProcessWebhook(context.Background(), EventPaymentCaptured, payload))
	require.NoError(t, svc.ProcessWebhook(context.Background(), EventPaymentCaptured, payload))

	payments, err := f.payments.ListPayments(context.Background(), models.PaymentFilter{SocietyID: societyID})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, models.MethodRazorpay, payments[0].PaymentMethod)
	assert.Equal(t, "pay_001", payments[0].ExternalRef)

	inv = f.invoiceFor(t, 1, 4, 2025)
	assert.Equal(t, models.InvoicePaid, inv.Status)
	assert.True(t, inv.PaidAmount.Equal(amt("5250")))
	assert.True(t, f.store.Ledger().Balance(societyID, ledger.CodeGatewayClearing).Equal(amt("5250")))

	order, err := f.deps.Orders.GetByOrderID(context.Background(), "order_ABC")
	require.NoError(t, err)
	assert.Equal(t, models.OnlineOrderCaptured, order.Status)
	require.NotNil(t, order.PaymentID)
	assert.Equal(t, payments[0].ID, *order.PaymentID)
}

func TestWebhookCapturedFollowsCarryForward(t *testing.T) {
	f, svc, _, april := newGateway(t)
	_, err := svc.CreateOrder(context.Background(), april.ID)
	require.NoError(t, err)

	f.generate(t, 5, 2025)
	require.NoError(t, svc.ProcessWebhook(context.Background(), EventPaymentCaptured, capturedPayload("order_ABC", "pay_002", 525000)))

	may := f.invoiceFor(t, 1, 5, 2025)
	assert.True(t, may.PaidAmount.Equal(amt("5250")))
	assert.True(t, may.BalanceDue.Equal(amt("5250")))
	assert.Equal(t, models.InvoicePartiallyPaid, may.Status)
}

func TestWebhookFailedStoresAuditRow(t *testing.T) {
	f, svc, _, inv := newGateway(t)
	_, err := svc.CreateOrder(context.Background(), inv.ID)
	require.NoError(t, err)
	entries := len(f.store.AllEntries())

	payload := capturedPayload("order_ABC", "pay_003", 525000)
	payload["payment"].(map[string]interface{})["entity"].(map[string]interface{})["error_description"] = "Card declined"

	require.NoError(t, svc.ProcessWebhook(context.Background(), EventPaymentFailed, payload))
	require.NoError(t, svc.ProcessWebhook(context.Background(), EventPaymentFailed, payload))

	payments, err := f.payments.ListPayments(context.Background(), models.PaymentFilter{SocietyID: societyID})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, models.PaymentFailed, payments[0].Status)
	assert.Empty(t, payments[0].ReceiptNumber)
	assert.Len(t, f.store.AllEntries(), entries, "failed attempts are not posted")

	order, err := f.deps.Orders.GetByOrderID(context.Background(), "order_ABC")
	require.NoError(t, err)
	assert.Equal(t, models.OnlineOrderFailed, order.Status)
	assert.Equal(t, "Card declined", order.FailureReason)

	assert.True(t, f.invoiceFor(t, 1, 4, 2025).PaidAmount.IsZero())
}

func TestWebhookCaptureAfterFailedAttemptIsRecorded(t *testing.T) {
	f, svc, _, inv := newGateway(t)
	_, err := svc.CreateOrder(context.Background(), inv.ID)
	require.NoError(t, err)

	failed := capturedPayload("order_ABC", "pay_004", 300000)
	failed["payment"].(map[string]interface{})["entity"].(map[string]interface{})["error_description"] = "Authorisation timed out"
	require.NoError(t, svc.ProcessWebhook(context.Background(), EventPaymentFailed, failed))

	// the bank authorises late and Razorpay captures the same payment id
	require.NoError(t, svc.ProcessWebhook(context.Background(), EventPaymentCaptured, capturedPayload("order_ABC", "pay_004", 300000)))
	require.NoError(t, svc.ProcessWebhook(context.Background(), EventPaymentCaptured, capturedPayload("order_ABC", "pay_004", 300000)))

	captured, err := f.deps.Payments.GetByExternalRef(context.Background(), societyID, "pay_004")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCaptured, captured.Status)
	assert.NotEmpty(t, captured.ReceiptNumber)
	assert.True(t, captured.Amount.Equal(amt("3000")))

	attempt, err := f.deps.Payments.GetFailedByExternalRef(context.Background(), societyID, "pay_004")
	require.NoError(t, err)
	assert.NotEqual(t, captured.ID, attempt.ID)

	payments, err := f.payments.ListPayments(context.Background(), models.PaymentFilter{SocietyID: societyID})
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	got := f.invoiceFor(t, 1, 4, 2025)
	assert.Equal(t, models.InvoicePartiallyPaid, got.Status)
	assert.True(t, got.BalanceDue.Equal(amt("2250")))

	order, err := f.deps.Orders.GetByOrderID(context.Background(), "order_ABC")
	require.NoError(t, err)
	assert.Equal(t, models.OnlineOrderCaptured, order.Status)
	require.NotNil(t, order.PaymentID)
	assert.Equal(t, captured.ID, *order.PaymentID)

	assert.True(t, f.store.Ledger().Balance(societyID, ledger.CodeGatewayClearing).Equal(amt("3000")))
	requireReconciled(t, f)
}

func TestWebhookFailureAfterCaptureKeepsPayment(t *testing.T) {
	f, svc, _, inv := newGateway(t)
	_, err := svc.CreateOrder(context.Background(), inv.ID)
	require.NoError(t, err)

	require.NoError(t, svc.ProcessWebhook(context.Background(), EventPaymentCaptured, capturedPayload("order_ABC", "pay_005", 525000)))
	require.NoError(t, svc.ProcessWebhook(context.Background(), EventPaymentFailed, capturedPayload("order_ABC", "pay_005", 525000)))

	payments, err := f.payments.ListPayments(context.Background(), models.PaymentFilter{SocietyID: societyID})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, models.PaymentCaptured, payments[0].Status)

	order, err := f.deps.Orders.GetByOrderID(context.Background(), "order_ABC")
	require.NoError(t, err)
	assert.Equal(t, models.OnlineOrderCaptured, order.Status)
	assert.Equal(t, models.InvoicePaid, f.invoiceFor(t, 1, 4, 2025).Status)
}

func TestWebhookIgnoresOtherEventsAndRejectsBadPayloads(t *testing.T) {
	_, svc, _, _ := newGateway(t)

	assert.NoError(t, svc.ProcessWebhook(context.Background(), "order.paid", map[string]interface{}{}))

	err := svc.ProcessWebhook(context.Background(), EventPaymentCaptured, map[string]interface{}{})
	var verr *models.ValidationError
	assert.True(t, errors.As(err, &verr))

	err = svc.ProcessWebhook(context.Background(), EventPaymentCaptured, capturedPayload("order_missing", "pay_9", 100))
	assert.ErrorIs(t, err, models.ErrNotFound)
}
