package repositories

import (
	"context"
	"fmt"

	"society-billing/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SequenceRepository hands out gapless document numbers. The counter row is
// locked by the upsert until the caller's transaction ends, so a rolled back
// invoice or receipt gives its number back.
type SequenceRepository struct {
	DB *pgxpool.Pool
}

func NewSequenceRepository(db *pgxpool.Pool) *SequenceRepository {
	return &SequenceRepository{DB: db}
}

func (r *SequenceRepository) NextInvoiceSeq(ctx context.Context, societyID int64, period models.Period) (int64, error) {
	var next int64
	err := conn(ctx, r.DB).QueryRow(ctx,
		`INSERT INTO invoice_sequences (society_id, billing_year, billing_month, last_value)
		 VALUES ($1, $2, $3, 1)
		 ON CONFLICT (society_id, billing_year, billing_month)
		 DO UPDATE SET last_value = invoice_sequences.last_value + 1
		 RETURNING last_value`,
		societyID, period.Year, period.Month,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next invoice number: %w", err)
	}
	return next, nil
}

func (r *SequenceRepository) NextReceiptSeq(ctx context.Context, societyID int64, financialYear string) (int64, error) {
	var next int64
	err := conn(ctx, r.DB).QueryRow(ctx,
		`INSERT INTO receipt_sequences (society_id, financial_year, last_value)
		 VALUES ($1, $2, 1)
		 ON CONFLICT (society_id, financial_year)
		 DO UPDATE SET last_value = receipt_sequences.last_value + 1
		 RETURNING last_value`,
		societyID, financialYear,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next receipt number: %w", err)
	}
	return next, nil
}
