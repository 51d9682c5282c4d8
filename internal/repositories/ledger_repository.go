package repositories

import (
	"context"
	"fmt"
	"time"

	"society-billing/internal/ledger"
	"society-billing/internal/models"
	"society-billing/internal/timeutil"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository stores the chart of accounts and the append-only ledger
type LedgerRepository struct {
	DB *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{DB: db}
}

// EnsureChart creates any missing accounts; existing ones are left untouched
func (r *LedgerRepository) EnsureChart(ctx context.Context, societyID int64, accounts []models.Account) error {
	db := conn(ctx, r.DB)
	for _, a := range accounts {
		if !a.Type.Valid() {
			return models.NewValidationError("type", "unknown account type %q", a.Type)
		}
		_, err := db.Exec(ctx,
			`INSERT INTO accounts (society_id, code, name, type)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (society_id, code) DO NOTHING`,
			societyID, a.Code, a.Name, a.Type,
		)
		if err != nil {
			return fmt.Errorf("ensure account %s: %w", a.Code, err)
		}
	}
	return nil
}

func (r *LedgerRepository) ListAccounts(ctx context.Context, societyID int64) ([]models.Account, error) {
	rows, err := conn(ctx, r.DB).Query(ctx,
		`SELECT id, society_id, code, name, type, created_at
		 FROM accounts WHERE society_id = $1 ORDER BY code`, societyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.SocietyID, &a.Code, &a.Name, &a.Type, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Post validates and appends every line of the posting. It must run inside
// the caller's transaction so the posting lands with its source document.
func (r *LedgerRepository) Post(ctx context.Context, p *ledger.Posting) ([]models.LedgerEntry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	db := conn(ctx, r.DB)

	codes := make([]string, 0, len(p.Lines))
	for _, l := range p.Lines {
		codes = append(codes, l.AccountCode)
	}

	rows, err := db.Query(ctx,
		`SELECT code, id FROM accounts WHERE society_id = $1 AND code = ANY($2)`,
		p.SocietyID, codes)
	if err != nil {
		return nil, err
	}
	accountIDs := make(map[string]int64)
	for rows.Next() {
		var code string
		var id int64
		if err := rows.Scan(&code, &id); err != nil {
			rows.Close()
			return nil, err
		}
		accountIDs[code] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	entries := make([]models.LedgerEntry, 0, len(p.Lines))
	for _, l := range p.Lines {
		accountID, ok := accountIDs[l.AccountCode]
		if !ok {
			return nil, fmt.Errorf("account %s not found for society %d", l.AccountCode, p.SocietyID)
		}
		e := models.LedgerEntry{
			SocietyID:   p.SocietyID,
			AccountID:   accountID,
			AccountCode: l.AccountCode,
			EntryDate:   p.Date,
			Side:        l.Side,
			Amount:      l.Amount,
			SourceType:  p.SourceType,
			SourceID:    p.SourceID,
			Narration:   p.Narration,
		}
		err := db.QueryRow(ctx,
			`INSERT INTO ledger_entries (society_id, account_id, entry_date, side, amount, source_type, source_id, narration)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id, created_at`,
			e.SocietyID, e.AccountID, e.EntryDate, e.Side, e.Amount, e.SourceType, e.SourceID, e.Narration,
		).Scan(&e.ID, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// EntriesBySource returns every line posted for one source document
func (r *LedgerRepository) EntriesBySource(ctx context.Context, societyID int64, sourceType models.SourceType, sourceID int64) ([]models.LedgerEntry, error) {
	rows, err := conn(ctx, r.DB).Query(ctx,
		`SELECT e.id, e.society_id, e.account_id, a.code, e.entry_date, e.side, e.amount,
		        e.source_type, e.source_id, e.narration, e.created_at
		 FROM ledger_entries e
		 JOIN accounts a ON a.id = e.account_id
		 WHERE e.society_id = $1 AND e.source_type = $2 AND e.source_id = $3
		 ORDER BY e.id`,
		societyID, sourceType, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.SocietyID, &e.AccountID, &e.AccountCode, &e.EntryDate, &e.Side,
			&e.Amount, &e.SourceType, &e.SourceID, &e.Narration, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.EntryDate = asDate(e.EntryDate)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AccountTotals sums debits and credits per account; accounts without
// activity are returned with zero totals
func (r *LedgerRepository) AccountTotals(ctx context.Context, filter models.LedgerFilter) ([]models.AccountTotal, error) {
	rows, err := conn(ctx, r.DB).Query(ctx,
		`SELECT a.id, a.code, a.name, a.type,
		        COALESCE(SUM(e.amount) FILTER (WHERE e.side = 'debit'), 0),
		        COALESCE(SUM(e.amount) FILTER (WHERE e.side = 'credit'), 0)
		 FROM accounts a
		 LEFT JOIN ledger_entries e ON e.account_id = a.id
		      AND ($2::date IS NULL OR e.entry_date >= $2)
		      AND ($3::date IS NULL OR e.entry_date <= $3)
		 WHERE a.society_id = $1
		 GROUP BY a.id, a.code, a.name, a.type
		 ORDER BY a.code`,
		filter.SocietyID, nullDate(filter.From), nullDate(filter.To))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []models.AccountTotal
	for rows.Next() {
		var t models.AccountTotal
		if err := rows.Scan(&t.AccountID, &t.Code, &t.Name, &t.Type, &t.Debit, &t.Credit); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// asDate normalizes a scanned DATE to midnight IST on the same calendar day
func asDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return timeutil.Date(t.Year(), t.Month(), t.Day())
}

func nullDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
