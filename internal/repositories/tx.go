package repositories

import (
	"context"
	"errors"
	"fmt"

	"society-billing/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// TxManager runs a function inside one database transaction. Repositories
// called with the context it hands out join that transaction.
type TxManager struct {
	DB *pgxpool.Pool
}

func NewTxManager(db *pgxpool.Pool) *TxManager {
	return &TxManager{DB: db}
}

// RunInTx commits when fn returns nil and rolls back otherwise. Nested calls
// reuse the outer transaction.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// conn returns the transaction bound to ctx, or the pool
func conn(ctx context.Context, pool *pgxpool.Pool) DBTX {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

const uniqueViolation = "23505"

// constraintKeys maps unique constraints to DuplicateError keys
var constraintKeys = map[string]string{
	"invoices_unit_period_key":    models.DupUnitPeriod,
	"invoices_number_key":         models.DupInvoiceNumber,
	"payments_receipt_number_key": models.DupReceiptNumber,
	"payments_external_ref_key":   models.DupExternalRef,
	"payments_failed_ref_key":     models.DupExternalRef,
	"online_orders_order_id_key":  models.DupOrderID,
}

// mapError turns driver errors into domain errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		key, ok := constraintKeys[pgErr.ConstraintName]
		if !ok {
			key = pgErr.ConstraintName
		}
		return &models.DuplicateError{Key: key}
	}
	return err
}
