package services

import (
	"context"
	"time"

	"society-billing/internal/ledger"
	"society-billing/internal/models"
)

// TxRunner runs fn inside one database transaction
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type InvoiceStore interface {
	ExistsForPeriod(ctx context.Context, societyID, unitID int64, period models.Period) (bool, error)
	Create(ctx context.Context, inv *models.Invoice) error
	Get(ctx context.Context, id int64) (*models.Invoice, error)
	GetForUpdate(ctx context.Context, id int64) (*models.Invoice, error)
	GetByNumber(ctx context.Context, societyID int64, number string) (*models.Invoice, error)
	List(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error)
	ListCarryable(ctx context.Context, societyID, unitID int64, before models.Period) ([]*models.Invoice, error)
	MarkCarriedForward(ctx context.Context, ids []int64, toID int64) error
	ClearCarriedForward(ctx context.Context, toID int64) error
	UpdateBalances(ctx context.Context, inv *models.Invoice) error
	MarkOverdue(ctx context.Context, societyID int64, asOf time.Time) (int64, error)
}

type LedgerStore interface {
	EnsureChart(ctx context.Context, societyID int64, accounts []models.Account) error
	ListAccounts(ctx context.Context, societyID int64) ([]models.Account, error)
	Post(ctx context.Context, p *ledger.Posting) ([]models.LedgerEntry, error)
	EntriesBySource(ctx context.Context, societyID int64, sourceType models.SourceType, sourceID int64) ([]models.LedgerEntry, error)
	AccountTotals(ctx context.Context, filter models.LedgerFilter) ([]models.AccountTotal, error)
}

type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	Get(ctx context.Context, id int64) (*models.Payment, error)
	GetForUpdate(ctx context.Context, id int64) (*models.Payment, error)
	GetByExternalRef(ctx context.Context, societyID int64, ref string) (*models.Payment, error)
	GetFailedByExternalRef(ctx context.Context, societyID int64, ref string) (*models.Payment, error)
	GetByReceiptNumber(ctx context.Context, societyID int64, number string) (*models.Payment, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error)
	MarkRefunded(ctx context.Context, id int64, at time.Time) error
}

type SequenceStore interface {
	NextInvoiceSeq(ctx context.Context, societyID int64, period models.Period) (int64, error)
	NextReceiptSeq(ctx context.Context, societyID int64, financialYear string) (int64, error)
}

type OrderStore interface {
	Create(ctx context.Context, o *models.OnlineOrder) error
	GetByOrderID(ctx context.Context, orderID string) (*models.OnlineOrder, error)
	MarkCaptured(ctx context.Context, orderID, paymentID string, paymentRowID int64, at time.Time) error
	MarkFailed(ctx context.Context, orderID, paymentID, reason string, at time.Time) error
}

// MasterData is the read side of the society, unit and member registry
type MasterData interface {
	GetSociety(ctx context.Context, societyID int64) (*models.SocietySettings, error)
	GetBillableUnits(ctx context.Context, societyID int64, period models.Period) ([]models.BillableUnit, error)
}

// Locker serializes a job across processes. The returned func releases it.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// ReportCache forgets a society's cached reports once its books change
type ReportCache interface {
	InvalidateReports(ctx context.Context, societyID int64)
}

// OrderCreator is the part of the Razorpay client used to open checkout orders
type OrderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}
