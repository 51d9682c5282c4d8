// Package ledger builds and checks balanced double-entry postings.
// A Posting is the unit of persistence: all of its lines are stored in
// one transaction or none are.
package ledger

import (
	"fmt"
	"time"

	"society-billing/internal/models"

	"github.com/shopspring/decimal"
)

// Line is one debit or credit against an account code
type Line struct {
	AccountCode string
	Side        models.Side
	Amount      decimal.Decimal
}

// Posting is a set of lines that must balance, tied to one source document
type Posting struct {
	SocietyID  int64
	SourceType models.SourceType
	SourceID   int64
	Date       time.Time
	Narration  string
	Lines      []Line
}

// ImbalancedPostingError means debits and credits of a posting differ
type ImbalancedPostingError struct {
	SourceType models.SourceType
	SourceID   int64
	Debit      decimal.Decimal
	Credit     decimal.Decimal
}

func (e *ImbalancedPostingError) Error() string {
	return fmt.Sprintf("imbalanced posting for %s %d: debit %s != credit %s",
		e.SourceType, e.SourceID, e.Debit.StringFixed(2), e.Credit.StringFixed(2))
}

// Debit appends a debit line
func (p *Posting) Debit(code string, amount decimal.Decimal) *Posting {
	p.Lines = append(p.Lines, Line{AccountCode: code, Side: models.SideDebit, Amount: amount})
	return p
}

// Credit appends a credit line
func (p *Posting) Credit(code string, amount decimal.Decimal) *Posting {
	p.Lines = append(p.Lines, Line{AccountCode: code, Side: models.SideCredit, Amount: amount})
	return p
}

// Totals sums both sides
func (p *Posting) Totals() (debit, credit decimal.Decimal) {
	for _, l := range p.Lines {
		if l.Side == models.SideDebit {
			debit = debit.Add(l.Amount)
		} else {
			credit = credit.Add(l.Amount)
		}
	}
	return debit, credit
}

// Validate drops zero lines and checks the posting can be stored.
func (p *Posting) Validate() error {
	kept := p.Lines[:0]
	for _, l := range p.Lines {
		if l.Amount.IsNegative() {
			return models.NewValidationError("amount", "negative ledger amount %s on %s", l.Amount, l.AccountCode)
		}
		if l.Side != models.SideDebit && l.Side != models.SideCredit {
			return models.NewValidationError("side", "unknown side %q", l.Side)
		}
		if l.Amount.IsZero() {
			continue
		}
		kept = append(kept, l)
	}
	p.Lines = kept

	if p.SourceID == 0 {
		return models.NewValidationError("source_id", "posting has no source document")
	}

	debit, credit := p.Totals()
	if !debit.Equal(credit) {
		return &ImbalancedPostingError{SourceType: p.SourceType, SourceID: p.SourceID, Debit: debit, Credit: credit}
	}
	if len(p.Lines) < 2 {
		return models.NewValidationError("lines", "posting needs at least one debit and one credit")
	}
	return nil
}

// IsEmpty is true when every line is zero
func (p *Posting) IsEmpty() bool {
	for _, l := range p.Lines {
		if !l.Amount.IsZero() {
			return false
		}
	}
	return true
}

// Reverse returns a posting with every side swapped, for corrections.
func (p *Posting) Reverse(sourceType models.SourceType, sourceID int64, date time.Time, narration string) *Posting {
	rev := &Posting{
		SocietyID:  p.SocietyID,
		SourceType: sourceType,
		SourceID:   sourceID,
		Date:       date,
		Narration:  narration,
		Lines:      make([]Line, 0, len(p.Lines)),
	}
	for _, l := range p.Lines {
		rev.Lines = append(rev.Lines, Line{AccountCode: l.AccountCode, Side: l.Side.Opposite(), Amount: l.Amount})
	}
	return rev
}

// FromEntries rebuilds a posting from stored entries of one source document.
func FromEntries(entries []models.LedgerEntry) *Posting {
	if len(entries) == 0 {
		return &Posting{}
	}
	p := &Posting{
		SocietyID:  entries[0].SocietyID,
		SourceType: entries[0].SourceType,
		SourceID:   entries[0].SourceID,
		Date:       entries[0].EntryDate,
		Narration:  entries[0].Narration,
	}
	for _, e := range entries {
		p.Lines = append(p.Lines, Line{AccountCode: e.AccountCode, Side: e.Side, Amount: e.Amount})
	}
	return p
}
