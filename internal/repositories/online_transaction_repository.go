package repositories

import (
	"context"
	"time"

	"society-billing/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OnlineOrderRepository tracks Razorpay orders raised against invoices
type OnlineOrderRepository struct {
	DB *pgxpool.Pool
}

func NewOnlineOrderRepository(db *pgxpool.Pool) *OnlineOrderRepository {
	return &OnlineOrderRepository{DB: db}
}

func (r *OnlineOrderRepository) Create(ctx context.Context, o *models.OnlineOrder) error {
	if o.Status == "" {
		o.Status = models.OnlineOrderCreated
	}
	err := conn(ctx, r.DB).QueryRow(ctx,
		`INSERT INTO online_orders (society_id, invoice_id, razorpay_order_id, amount, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		o.SocietyID, o.InvoiceID, o.RazorpayOrderID, o.Amount, o.Status,
	).Scan(&o.ID, &o.CreatedAt)
	return mapError(err)
}

func (r *OnlineOrderRepository) GetByOrderID(ctx context.Context, orderID string) (*models.OnlineOrder, error) {
	var o models.OnlineOrder
	err := conn(ctx, r.DB).QueryRow(ctx,
		`SELECT id, society_id, invoice_id, razorpay_order_id, razorpay_payment_id, amount, status,
		        failure_reason, payment_id, created_at, completed_at
		 FROM online_orders WHERE razorpay_order_id = $1`, orderID,
	).Scan(&o.ID, &o.SocietyID, &o.InvoiceID, &o.RazorpayOrderID, &o.RazorpayPaymentID, &o.Amount,
		&o.Status, &o.FailureReason, &o.PaymentID, &o.CreatedAt, &o.CompletedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &o, nil
}

func (r *OnlineOrderRepository) MarkCaptured(ctx context.Context, orderID, paymentID string, paymentRowID int64, at time.Time) error {
	_, err := conn(ctx, r.DB).Exec(ctx,
		`UPDATE online_orders
		 SET status = 'captured', razorpay_payment_id = $2, payment_id = $3, completed_at = $4
		 WHERE razorpay_order_id = $1`,
		orderID, paymentID, paymentRowID, at)
	return err
}

// MarkFailed records a failed attempt; a captured order is never downgraded
func (r *OnlineOrderRepository) MarkFailed(ctx context.Context, orderID, paymentID, reason string, at time.Time) error {
	_, err := conn(ctx, r.DB).Exec(ctx,
		`UPDATE online_orders
		 SET status = 'failed', razorpay_payment_id = $2, failure_reason = $3, completed_at = $4
		 WHERE razorpay_order_id = $1 AND status <> 'captured'`,
		orderID, paymentID, reason, at)
	return err
}
