package storetest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"society-billing/internal/models"
)

// Payments is the payment table
type Payments struct{ s *Store }

func (r *Payments) Create(_ context.Context, p *models.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.payments {
		if other.SocietyID != p.SocietyID {
			continue
		}
		failed := p.Status == models.PaymentFailed
		if p.ExternalRef != "" && other.ExternalRef == p.ExternalRef && (other.Status == models.PaymentFailed) == failed {
			return &models.DuplicateError{Key: models.DupExternalRef, Value: p.ExternalRef}
		}
		if p.ReceiptNumber != "" && other.ReceiptNumber == p.ReceiptNumber {
			return &models.DuplicateError{Key: models.DupReceiptNumber, Value: p.ReceiptNumber}
		}
	}
	p.ID = r.s.id()
	p.CreatedAt = now()
	r.s.payments[p.ID] = copyPayment(p)
	return nil
}

func (r *Payments) Get(_ context.Context, id int64) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return copyPayment(p), nil
}

func (r *Payments) GetForUpdate(ctx context.Context, id int64) (*models.Payment, error) {
	return r.Get(ctx, id)
}

func (r *Payments) find(match func(p *models.Payment) bool) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if match(p) {
			return copyPayment(p), nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *Payments) GetByExternalRef(_ context.Context, societyID int64, ref string) (*models.Payment, error) {
	return r.find(func(p *models.Payment) bool {
		return p.SocietyID == societyID && p.ExternalRef == ref && p.Status != models.PaymentFailed
	})
}

func (r *Payments) GetFailedByExternalRef(_ context.Context, societyID int64, ref string) (*models.Payment, error) {
	return r.find(func(p *models.Payment) bool {
		return p.SocietyID == societyID && p.ExternalRef == ref && p.Status == models.PaymentFailed
	})
}

func (r *Payments) GetByReceiptNumber(_ context.Context, societyID int64, number string) (*models.Payment, error) {
	return r.find(func(p *models.Payment) bool { return p.SocietyID == societyID && p.ReceiptNumber == number })
}

func (r *Payments) List(_ context.Context, f models.PaymentFilter) ([]*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*models.Payment
	for _, p := range r.s.payments {
		switch {
		case p.SocietyID != f.SocietyID,
			f.InvoiceID != 0 && p.InvoiceID != f.InvoiceID,
			f.Status != "" && p.Status != f.Status,
			f.Method != "" && p.PaymentMethod != f.Method,
			!f.From.IsZero() && p.PaymentDate.Before(f.From),
			!f.To.IsZero() && p.PaymentDate.After(f.To):
			continue
		}
		out = append(out, copyPayment(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PaymentDate.Equal(out[j].PaymentDate) {
			return out[i].PaymentDate.Before(out[j].PaymentDate)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Limit, f.Offset), nil
}

func (r *Payments) MarkRefunded(_ context.Context, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok || p.Status != models.PaymentCaptured {
		return models.ErrAlreadyRefunded
	}
	p.Status = models.PaymentRefunded
	p.RefundedAt = &at
	return nil
}

// Sequences hands out invoice and receipt numbers
type Sequences struct{ s *Store }

func (q *Sequences) NextInvoiceSeq(_ context.Context, societyID int64, period models.Period) (int64, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	key := fmt.Sprintf("%d:%d-%02d", societyID, period.Year, period.Month)
	q.s.invoiceSeq[key]++
	return q.s.invoiceSeq[key], nil
}

func (q *Sequences) NextReceiptSeq(_ context.Context, societyID int64, financialYear string) (int64, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	key := fmt.Sprintf("%d:%s", societyID, financialYear)
	q.s.receiptSeq[key]++
	return q.s.receiptSeq[key], nil
}

// Orders is the gateway order table
type Orders struct{ s *Store }

func (r *Orders) Create(_ context.Context, o *models.OnlineOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[o.RazorpayOrderID]; ok {
		return &models.DuplicateError{Key: models.DupOrderID, Value: o.RazorpayOrderID}
	}
	o.ID = r.s.id()
	o.CreatedAt = now()
	c := *o
	r.s.orders[o.RazorpayOrderID] = &c
	return nil
}

func (r *Orders) GetByOrderID(_ context.Context, orderID string) (*models.OnlineOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := *o
	return &c, nil
}

func (r *Orders) MarkCaptured(_ context.Context, orderID, paymentID string, paymentRowID int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok {
		return models.ErrNotFound
	}
	o.Status = models.OnlineOrderCaptured
	o.RazorpayPaymentID = paymentID
	o.PaymentID = &paymentRowID
	o.CompletedAt = &at
	return nil
}

func (r *Orders) MarkFailed(_ context.Context, orderID, paymentID, reason string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok {
		return models.ErrNotFound
	}
	if o.Status == models.OnlineOrderCaptured {
		return nil
	}
	o.Status = models.OnlineOrderFailed
	o.RazorpayPaymentID = paymentID
	o.FailureReason = reason
	o.CompletedAt = &at
	return nil
}
