package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"society-billing/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository struct {
	DB *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

const paymentColumns = `id, society_id, invoice_id, COALESCE(receipt_number, ''), amount, applied_amount,
	advance_amount, payment_date, payment_method, status, COALESCE(external_ref, ''), notes,
	refunded_at, created_at`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.SocietyID, &p.InvoiceID, &p.ReceiptNumber, &p.Amount, &p.AppliedAmount,
		&p.AdvanceAmount, &p.PaymentDate, &p.PaymentMethod, &p.Status, &p.ExternalRef, &p.Notes,
		&p.RefundedAt, &p.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	p.PaymentDate = asDate(p.PaymentDate)
	if p.RefundedAt != nil {
		d := asDate(*p.RefundedAt)
		p.RefundedAt = &d
	}
	return &p, nil
}

// Create stores a payment. Receipt number and external reference are unique
// per society; a clash comes back as a DuplicateError.
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	err := conn(ctx, r.DB).QueryRow(ctx,
		`INSERT INTO payments (society_id, invoice_id, receipt_number, amount, applied_amount, advance_amount,
		                       payment_date, payment_method, status, external_ref, notes)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11)
		 RETURNING id, created_at`,
		p.SocietyID, p.InvoiceID, p.ReceiptNumber, p.Amount, p.AppliedAmount, p.AdvanceAmount,
		p.PaymentDate, p.PaymentMethod, p.Status, p.ExternalRef, p.Notes,
	).Scan(&p.ID, &p.CreatedAt)
	return mapError(err)
}

func (r *PaymentRepository) Get(ctx context.Context, id int64) (*models.Payment, error) {
	return scanPayment(conn(ctx, r.DB).QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
}

func (r *PaymentRepository) GetForUpdate(ctx context.Context, id int64) (*models.Payment, error) {
	return scanPayment(conn(ctx, r.DB).QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id))
}

// GetByExternalRef returns the captured or refunded payment for an upstream
// reference. Failed attempts are ignored.
func (r *PaymentRepository) GetByExternalRef(ctx context.Context, societyID int64, ref string) (*models.Payment, error) {
	return scanPayment(conn(ctx, r.DB).QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments
		 WHERE society_id = $1 AND external_ref = $2 AND status <> 'failed'`,
		societyID, ref))
}

func (r *PaymentRepository) GetFailedByExternalRef(ctx context.Context, societyID int64, ref string) (*models.Payment, error) {
	return scanPayment(conn(ctx, r.DB).QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments
		 WHERE society_id = $1 AND external_ref = $2 AND status = 'failed'`,
		societyID, ref))
}

func (r *PaymentRepository) GetByReceiptNumber(ctx context.Context, societyID int64, number string) (*models.Payment, error) {
	return scanPayment(conn(ctx, r.DB).QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE society_id = $1 AND receipt_number = $2`,
		societyID, number))
}

// List returns payments matching the filter ordered by payment date
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	where := []string{"society_id = $1"}
	args := []any{filter.SocietyID}
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.InvoiceID != 0 {
		add("invoice_id = $%d", filter.InvoiceID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Method != "" {
		add("payment_method = $%d", filter.Method)
	}
	if !filter.From.IsZero() {
		add("payment_date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("payment_date <= $%d", filter.To)
	}

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY payment_date, id`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	}

	rows, err := conn(ctx, r.DB).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *PaymentRepository) MarkRefunded(ctx context.Context, id int64, at time.Time) error {
	tag, err := conn(ctx, r.DB).Exec(ctx,
		`UPDATE payments SET status = 'refunded', refunded_at = $2 WHERE id = $1 AND status = 'captured'`,
		id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrAlreadyRefunded
	}
	return nil
}
