package storetest

import (
	"context"
	"fmt"
	"sort"

	"society-billing/internal/ledger"
	"society-billing/internal/models"

	"github.com/shopspring/decimal"
)

// Ledger is the chart of accounts and the append-only entry table
type Ledger struct{ s *Store }

func (l *Ledger) EnsureChart(_ context.Context, societyID int64, accounts []models.Account) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	existing := make(map[string]bool)
	for _, a := range l.s.accounts[societyID] {
		existing[a.Code] = true
	}
	for _, a := range accounts {
		if !a.Type.Valid() {
			return models.NewValidationError("type", "unknown account type %q", a.Type)
		}
		if existing[a.Code] {
			continue
		}
		a.ID = l.s.id()
		a.SocietyID = societyID
		l.s.accounts[societyID] = append(l.s.accounts[societyID], a)
		existing[a.Code] = true
	}
	return nil
}

func (l *Ledger) ListAccounts(_ context.Context, societyID int64) ([]models.Account, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	out := append([]models.Account(nil), l.s.accounts[societyID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (l *Ledger) Post(_ context.Context, p *ledger.Posting) ([]models.LedgerEntry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if l.s.PostHook != nil {
		if err := l.s.PostHook(p); err != nil {
			return nil, err
		}
	}

	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	ids := make(map[string]int64)
	for _, a := range l.s.accounts[p.SocietyID] {
		ids[a.Code] = a.ID
	}

	entries := make([]models.LedgerEntry, 0, len(p.Lines))
	for _, line := range p.Lines {
		accountID, ok := ids[line.AccountCode]
		if !ok {
			return nil, fmt.Errorf("account %s not found for society %d", line.AccountCode, p.SocietyID)
		}
		entries = append(entries, models.LedgerEntry{
			ID:          l.s.id(),
			SocietyID:   p.SocietyID,
			AccountID:   accountID,
			AccountCode: line.AccountCode,
			EntryDate:   p.Date,
			Side:        line.Side,
			Amount:      line.Amount,
			SourceType:  p.SourceType,
			SourceID:    p.SourceID,
			Narration:   p.Narration,
			CreatedAt:   now(),
		})
	}
	l.s.entries = append(l.s.entries, entries...)
	return entries, nil
}

func (l *Ledger) EntriesBySource(_ context.Context, societyID int64, sourceType models.SourceType, sourceID int64) ([]models.LedgerEntry, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range l.s.entries {
		if e.SocietyID == societyID && e.SourceType == sourceType && e.SourceID == sourceID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *Ledger) AccountTotals(_ context.Context, f models.LedgerFilter) ([]models.AccountTotal, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	byID := make(map[int64]*models.AccountTotal)
	var totals []*models.AccountTotal
	for _, a := range l.s.accounts[f.SocietyID] {
		t := &models.AccountTotal{AccountID: a.ID, Code: a.Code, Name: a.Name, Type: a.Type}
		byID[a.ID] = t
		totals = append(totals, t)
	}
	for _, e := range l.s.entries {
		t, ok := byID[e.AccountID]
		if !ok {
			continue
		}
		if !f.From.IsZero() && e.EntryDate.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && e.EntryDate.After(f.To) {
			continue
		}
		if e.Side == models.SideDebit {
			t.Debit = t.Debit.Add(e.Amount)
		} else {
			t.Credit = t.Credit.Add(e.Amount)
		}
	}

	sort.Slice(totals, func(i, j int) bool { return totals[i].Code < totals[j].Code })
	out := make([]models.AccountTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	return out, nil
}

// Balance returns the net debit-minus-credit of one account code
func (l *Ledger) Balance(societyID int64, code string) decimal.Decimal {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	net := decimal.Zero
	for _, e := range l.s.entries {
		if e.SocietyID != societyID || e.AccountCode != code {
			continue
		}
		if e.Side == models.SideDebit {
			net = net.Add(e.Amount)
		} else {
			net = net.Sub(e.Amount)
		}
	}
	return net
}
