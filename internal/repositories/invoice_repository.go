package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"society-billing/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type InvoiceRepository struct {
	DB *pgxpool.Pool
}

func NewInvoiceRepository(db *pgxpool.Pool) *InvoiceRepository {
	return &InvoiceRepository{DB: db}
}

const invoiceColumns = `id, society_id, unit_id, member_id, unit_number, member_name, invoice_number,
	billing_month, billing_year, issue_date, due_date, subtotal, gst_amount, interest_amount,
	previous_balance, total_amount, paid_amount, balance_due, credit_amount, status,
	carried_forward_to, version, created_at, updated_at`

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	var inv models.Invoice
	err := row.Scan(&inv.ID, &inv.SocietyID, &inv.UnitID, &inv.MemberID, &inv.UnitNumber, &inv.MemberName,
		&inv.InvoiceNumber, &inv.BillingMonth, &inv.BillingYear, &inv.IssueDate, &inv.DueDate,
		&inv.Subtotal, &inv.GSTAmount, &inv.InterestAmount, &inv.PreviousBalance, &inv.TotalAmount,
		&inv.PaidAmount, &inv.BalanceDue, &inv.CreditAmount, &inv.Status, &inv.CarriedForwardTo,
		&inv.Version, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	inv.IssueDate = asDate(inv.IssueDate)
	inv.DueDate = asDate(inv.DueDate)
	return &inv, nil
}

// ExistsForPeriod reports whether the unit already has an invoice for the period
func (r *InvoiceRepository) ExistsForPeriod(ctx context.Context, societyID, unitID int64, period models.Period) (bool, error) {
	var exists bool
	err := conn(ctx, r.DB).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM invoices
		  WHERE society_id = $1 AND unit_id = $2 AND billing_month = $3 AND billing_year = $4)`,
		societyID, unitID, period.Month, period.Year,
	).Scan(&exists)
	return exists, err
}

// Create inserts the invoice and its line items. A second invoice for the
// same unit and period yields a DuplicateError on DupUnitPeriod.
func (r *InvoiceRepository) Create(ctx context.Context, inv *models.Invoice) error {
	db := conn(ctx, r.DB)

	err := db.QueryRow(ctx,
		`INSERT INTO invoices (society_id, unit_id, member_id, unit_number, member_name, invoice_number,
		                       billing_month, billing_year, issue_date, due_date, subtotal, gst_amount,
		                       interest_amount, previous_balance, total_amount, paid_amount, balance_due,
		                       credit_amount, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		 ON CONFLICT ON CONSTRAINT invoices_unit_period_key DO NOTHING
		 RETURNING id, version, created_at, updated_at`,
		inv.SocietyID, inv.UnitID, inv.MemberID, inv.UnitNumber, inv.MemberName, inv.InvoiceNumber,
		inv.BillingMonth, inv.BillingYear, inv.IssueDate, inv.DueDate, inv.Subtotal, inv.GSTAmount,
		inv.InterestAmount, inv.PreviousBalance, inv.TotalAmount, inv.PaidAmount, inv.BalanceDue,
		inv.CreditAmount, inv.Status,
	).Scan(&inv.ID, &inv.Version, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		err = mapError(err)
		if err == models.ErrNotFound {
			return &models.DuplicateError{Key: models.DupUnitPeriod, Value: fmt.Sprintf("%d/%02d-%d", inv.UnitID, inv.BillingMonth, inv.BillingYear)}
		}
		return err
	}

	for i := range inv.LineItems {
		item := &inv.LineItems[i]
		item.InvoiceID = inv.ID
		err := db.QueryRow(ctx,
			`INSERT INTO invoice_line_items (invoice_id, description, rate, area_sqft, amount, gst_amount, total_amount)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id`,
			item.InvoiceID, item.Description, item.Rate, item.AreaSqft, item.Amount, item.GSTAmount, item.TotalAmount,
		).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert line item: %w", err)
		}
	}
	return nil
}

// Get loads an invoice with its line items
func (r *InvoiceRepository) Get(ctx context.Context, id int64) (*models.Invoice, error) {
	inv, err := scanInvoice(conn(ctx, r.DB).QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if inv.LineItems, err = r.lineItems(ctx, id); err != nil {
		return nil, err
	}
	return inv, nil
}

// GetForUpdate locks the invoice row until the surrounding transaction ends
func (r *InvoiceRepository) GetForUpdate(ctx context.Context, id int64) (*models.Invoice, error) {
	return scanInvoice(conn(ctx, r.DB).QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id))
}

func (r *InvoiceRepository) GetByNumber(ctx context.Context, societyID int64, number string) (*models.Invoice, error) {
	inv, err := scanInvoice(conn(ctx, r.DB).QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE society_id = $1 AND invoice_number = $2`,
		societyID, number))
	if err != nil {
		return nil, err
	}
	if inv.LineItems, err = r.lineItems(ctx, inv.ID); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *InvoiceRepository) lineItems(ctx context.Context, invoiceID int64) ([]models.LineItem, error) {
	rows, err := conn(ctx, r.DB).Query(ctx,
		`SELECT id, invoice_id, description, rate, area_sqft, amount, gst_amount, total_amount
		 FROM invoice_line_items WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.LineItem
	for rows.Next() {
		var item models.LineItem
		var area decimal.NullDecimal
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Description, &item.Rate, &area,
			&item.Amount, &item.GSTAmount, &item.TotalAmount); err != nil {
			return nil, err
		}
		if area.Valid {
			item.AreaSqft = &area.Decimal
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// List returns invoices matching the filter, newest period first
func (r *InvoiceRepository) List(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	where := []string{"society_id = $1"}
	args := []any{filter.SocietyID}
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.UnitID != 0 {
		add("unit_id = $%d", filter.UnitID)
	}
	if filter.BillingMonth != 0 {
		add("billing_month = $%d", filter.BillingMonth)
	}
	if filter.BillingYear != 0 {
		add("billing_year = $%d", filter.BillingYear)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.OpenOnly {
		where = append(where, "balance_due > 0", "status <> 'cancelled'", "carried_forward_to IS NULL")
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY billing_year DESC, billing_month DESC, invoice_number`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	}

	rows, err := conn(ctx, r.DB).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// ListCarryable returns the unit's unpaid invoices from earlier periods that
// have not been absorbed into a later invoice. Rows are locked.
func (r *InvoiceRepository) ListCarryable(ctx context.Context, societyID, unitID int64, before models.Period) ([]*models.Invoice, error) {
	rows, err := conn(ctx, r.DB).Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE society_id = $1 AND unit_id = $2
		   AND balance_due > 0 AND status <> 'cancelled' AND carried_forward_to IS NULL
		   AND (billing_year < $3 OR (billing_year = $3 AND billing_month < $4))
		 ORDER BY billing_year, billing_month
		 FOR UPDATE`,
		societyID, unitID, before.Year, before.Month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *InvoiceRepository) MarkCarriedForward(ctx context.Context, ids []int64, toID int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := conn(ctx, r.DB).Exec(ctx,
		`UPDATE invoices SET carried_forward_to = $1, version = version + 1, updated_at = NOW()
		 WHERE id = ANY($2)`, toID, ids)
	return err
}

// ClearCarriedForward releases invoices absorbed by a cancelled invoice
func (r *InvoiceRepository) ClearCarriedForward(ctx context.Context, toID int64) error {
	_, err := conn(ctx, r.DB).Exec(ctx,
		`UPDATE invoices SET carried_forward_to = NULL, version = version + 1, updated_at = NOW()
		 WHERE carried_forward_to = $1`, toID)
	return err
}

// UpdateBalances writes paid, balance, credit and status, guarded by version
func (r *InvoiceRepository) UpdateBalances(ctx context.Context, inv *models.Invoice) error {
	tag, err := conn(ctx, r.DB).Exec(ctx,
		`UPDATE invoices
		 SET paid_amount = $2, balance_due = $3, credit_amount = $4, status = $5,
		     version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND version = $6`,
		inv.ID, inv.PaidAmount, inv.BalanceDue, inv.CreditAmount, inv.Status, inv.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %d was modified concurrently", inv.ID)
	}
	inv.Version++
	return nil
}

// MarkOverdue flips sent invoices past their due date to overdue
func (r *InvoiceRepository) MarkOverdue(ctx context.Context, societyID int64, asOf time.Time) (int64, error) {
	tag, err := conn(ctx, r.DB).Exec(ctx,
		`UPDATE invoices SET status = 'overdue', version = version + 1, updated_at = NOW()
		 WHERE society_id = $1 AND status = 'sent' AND due_date < $2
		   AND balance_due > 0 AND carried_forward_to IS NULL`,
		societyID, asOf)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
