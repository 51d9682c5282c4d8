// Package storetest is an in-memory implementation of the billing stores.
// Transactions are serialized and roll back by restoring a snapshot, which is
// enough to exercise the engine's invariants without Postgres.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"society-billing/internal/ledger"
	"society-billing/internal/models"
)

type txMarker struct{}

// Store holds every table. Use the facet accessors to get the per-table stores.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID     int64
	invoices   map[int64]*models.Invoice
	payments   map[int64]*models.Payment
	orders     map[string]*models.OnlineOrder
	accounts   map[int64][]models.Account
	entries    []models.LedgerEntry
	invoiceSeq map[string]int64
	receiptSeq map[string]int64

	// PostHook, when set, runs before each posting is stored; an error aborts it
	PostHook func(p *ledger.Posting) error
}

func New() *Store {
	return &Store{
		invoices:   make(map[int64]*models.Invoice),
		payments:   make(map[int64]*models.Payment),
		orders:     make(map[string]*models.OnlineOrder),
		accounts:   make(map[int64][]models.Account),
		invoiceSeq: make(map[string]int64),
		receiptSeq: make(map[string]int64),
	}
}

func (s *Store) Invoices() *Invoices   { return &Invoices{s} }
func (s *Store) Ledger() *Ledger       { return &Ledger{s} }
func (s *Store) Payments() *Payments   { return &Payments{s} }
func (s *Store) Sequences() *Sequences { return &Sequences{s} }
func (s *Store) Orders() *Orders       { return &Orders{s} }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

type snapshot struct {
	nextID     int64
	invoices   map[int64]*models.Invoice
	payments   map[int64]*models.Payment
	orders     map[string]*models.OnlineOrder
	accounts   map[int64][]models.Account
	entries    []models.LedgerEntry
	invoiceSeq map[string]int64
	receiptSeq map[string]int64
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		nextID:     s.nextID,
		invoices:   make(map[int64]*models.Invoice, len(s.invoices)),
		payments:   make(map[int64]*models.Payment, len(s.payments)),
		orders:     make(map[string]*models.OnlineOrder, len(s.orders)),
		accounts:   make(map[int64][]models.Account, len(s.accounts)),
		entries:    append([]models.LedgerEntry(nil), s.entries...),
		invoiceSeq: make(map[string]int64, len(s.invoiceSeq)),
		receiptSeq: make(map[string]int64, len(s.receiptSeq)),
	}
	for k, v := range s.invoices {
		snap.invoices[k] = copyInvoice(v)
	}
	for k, v := range s.payments {
		snap.payments[k] = copyPayment(v)
	}
	for k, v := range s.orders {
		o := *v
		snap.orders[k] = &o
	}
	for k, v := range s.accounts {
		snap.accounts[k] = append([]models.Account(nil), v...)
	}
	for k, v := range s.invoiceSeq {
		snap.invoiceSeq[k] = v
	}
	for k, v := range s.receiptSeq {
		snap.receiptSeq[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.nextID
	s.invoices = snap.invoices
	s.payments = snap.payments
	s.orders = snap.orders
	s.accounts = snap.accounts
	s.entries = snap.entries
	s.invoiceSeq = snap.invoiceSeq
	s.receiptSeq = snap.receiptSeq
}

// RunInTx runs fn alone; any error restores the state seen before it started.
// Nested calls join the outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func copyInvoice(inv *models.Invoice) *models.Invoice {
	c := *inv
	c.LineItems = append([]models.LineItem(nil), inv.LineItems...)
	if inv.CarriedForwardTo != nil {
		to := *inv.CarriedForwardTo
		c.CarriedForwardTo = &to
	}
	return &c
}

func copyPayment(p *models.Payment) *models.Payment {
	c := *p
	if p.RefundedAt != nil {
		at := *p.RefundedAt
		c.RefundedAt = &at
	}
	return &c
}

// AllInvoices returns every stored invoice ordered by id
func (s *Store) AllInvoices() []*models.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		out = append(out, copyInvoice(inv))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AllEntries returns every ledger line in posting order
func (s *Store) AllEntries() []models.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.LedgerEntry(nil), s.entries...)
}

func now() time.Time { return time.Now() }
