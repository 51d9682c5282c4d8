package storetest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"society-billing/internal/models"
)

// Invoices is the invoice table
type Invoices struct{ s *Store }

func (r *Invoices) ExistsForPeriod(_ context.Context, societyID, unitID int64, period models.Period) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invoices {
		if inv.SocietyID == societyID && inv.UnitID == unitID &&
			inv.BillingMonth == period.Month && inv.BillingYear == period.Year {
			return true, nil
		}
	}
	return false, nil
}

func (r *Invoices) Create(_ context.Context, inv *models.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.invoices {
		if other.SocietyID != inv.SocietyID {
			continue
		}
		if other.UnitID == inv.UnitID && other.BillingMonth == inv.BillingMonth && other.BillingYear == inv.BillingYear {
			return &models.DuplicateError{Key: models.DupUnitPeriod, Value: fmt.Sprintf("%d/%02d-%d", inv.UnitID, inv.BillingMonth, inv.BillingYear)}
		}
		if other.InvoiceNumber == inv.InvoiceNumber {
			return &models.DuplicateError{Key: models.DupInvoiceNumber, Value: inv.InvoiceNumber}
		}
	}

	inv.ID = r.s.id()
	inv.Version = 1
	inv.CreatedAt = now()
	inv.UpdatedAt = inv.CreatedAt
	for i := range inv.LineItems {
		inv.LineItems[i].ID = r.s.id()
		inv.LineItems[i].InvoiceID = inv.ID
	}
	r.s.invoices[inv.ID] = copyInvoice(inv)
	return nil
}

func (r *Invoices) Get(_ context.Context, id int64) (*models.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return copyInvoice(inv), nil
}

func (r *Invoices) GetForUpdate(ctx context.Context, id int64) (*models.Invoice, error) {
	return r.Get(ctx, id)
}

func (r *Invoices) GetByNumber(_ context.Context, societyID int64, number string) (*models.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invoices {
		if inv.SocietyID == societyID && inv.InvoiceNumber == number {
			return copyInvoice(inv), nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *Invoices) List(_ context.Context, f models.InvoiceFilter) ([]*models.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*models.Invoice
	for _, inv := range r.s.invoices {
		switch {
		case inv.SocietyID != f.SocietyID,
			f.UnitID != 0 && inv.UnitID != f.UnitID,
			f.BillingMonth != 0 && inv.BillingMonth != f.BillingMonth,
			f.BillingYear != 0 && inv.BillingYear != f.BillingYear,
			f.Status != "" && inv.Status != f.Status,
			f.OpenOnly && !inv.IsOpen():
			continue
		}
		out = append(out, copyInvoice(inv))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.BillingYear != b.BillingYear {
			return a.BillingYear > b.BillingYear
		}
		if a.BillingMonth != b.BillingMonth {
			return a.BillingMonth > b.BillingMonth
		}
		return a.InvoiceNumber < b.InvoiceNumber
	})
	return page(out, f.Limit, f.Offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		return items
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func (r *Invoices) ListCarryable(_ context.Context, societyID, unitID int64, before models.Period) ([]*models.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*models.Invoice
	for _, inv := range r.s.invoices {
		p := models.Period{Month: inv.BillingMonth, Year: inv.BillingYear}
		if inv.SocietyID == societyID && inv.UnitID == unitID && inv.IsOpen() && p.Before(before) {
			out = append(out, copyInvoice(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return models.Period{Month: out[i].BillingMonth, Year: out[i].BillingYear}.
			Before(models.Period{Month: out[j].BillingMonth, Year: out[j].BillingYear})
	})
	return out, nil
}

func (r *Invoices) MarkCarriedForward(_ context.Context, ids []int64, toID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		inv, ok := r.s.invoices[id]
		if !ok {
			return models.ErrNotFound
		}
		to := toID
		inv.CarriedForwardTo = &to
		inv.Version++
	}
	return nil
}

func (r *Invoices) ClearCarriedForward(_ context.Context, toID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invoices {
		if inv.CarriedForwardTo != nil && *inv.CarriedForwardTo == toID {
			inv.CarriedForwardTo = nil
			inv.Version++
		}
	}
	return nil
}

func (r *Invoices) UpdateBalances(_ context.Context, inv *models.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.invoices[inv.ID]
	if !ok || stored.Version != inv.Version {
		return fmt.Errorf("invoice %d was modified concurrently", inv.ID)
	}
	stored.PaidAmount = inv.PaidAmount
	stored.BalanceDue = inv.BalanceDue
	stored.CreditAmount = inv.CreditAmount
	stored.Status = inv.Status
	stored.Version++
	stored.UpdatedAt = now()
	inv.Version++
	return nil
}

func (r *Invoices) MarkOverdue(_ context.Context, societyID int64, asOf time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, inv := range r.s.invoices {
		if inv.SocietyID == societyID && inv.Status == models.InvoiceSent && inv.DueDate.Before(asOf) &&
			inv.BalanceDue.IsPositive() && inv.CarriedForwardTo == nil {
			inv.Status = models.InvoiceOverdue
			inv.Version++
			n++
		}
	}
	return n, nil
}
