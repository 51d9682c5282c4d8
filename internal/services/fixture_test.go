package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"society-billing/internal/ledger"
	"society-billing/internal/models"
	"society-billing/internal/storetest"
	"society-billing/internal/timeutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const societyID = int64(1)

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	store       *storetest.Store
	master      *storetest.Master
	locker      *storetest.Locker
	events      *storetest.Recorder
	reportCache *storetest.ReportCache
	clock       time.Time
	deps        Deps
	invoices    *InvoiceService
	payments    *PaymentService
	reports     *ReportService
}

func newFixture(t *testing.T, settings models.SocietySettings) *fixture {
	t.Helper()
	f := &fixture{
		store:       storetest.New(),
		master:      storetest.NewMaster(),
		locker:      storetest.NewLocker(),
		events:      &storetest.Recorder{},
		reportCache: &storetest.ReportCache{},
		clock:       timeutil.Date(2025, 4, 1),
	}
	if settings.ID == 0 {
		settings.ID = societyID
	}
	if settings.Name == "" {
		settings.Name = "Green Acres CHS"
	}
	f.master.AddSociety(settings)

	f.deps = Deps{
		Tx:        f.store,
		Invoices:  f.store.Invoices(),
		Ledger:    f.store.Ledger(),
		Payments:  f.store.Payments(),
		Sequences: f.store.Sequences(),
		Orders:    f.store.Orders(),
		Master:    f.master,
		Locker:    f.locker,
		Events:    f.events,
		Reports:   f.reportCache,
		Now:       func() time.Time { return f.clock },
	}
	f.invoices = NewInvoiceService(f.deps, InvoiceOptions{Workers: 4})
	f.payments = NewPaymentService(f.deps)
	f.reports = NewReportService(f.deps)
	return f
}

// addStandardUnit registers a 1000 sq ft flat billed 5/sq ft plus a 250 fixed fund: 5250 a month
func (f *fixture) addStandardUnit(unitID int64) {
	f.master.AddUnit(societyID, models.BillableUnit{
		UnitID:     unitID,
		UnitNumber: fmt.Sprintf("A-%d", 100+unitID),
		AreaSqft:   amt("1000"),
		MemberID:   unitID * 10,
		MemberName: fmt.Sprintf("Member %d", unitID),
		FeeItems: []models.FeeItem{
			{Description: "Maintenance", Rate: amt("5"), PerSqft: true},
			{Description: "Sinking Fund", Rate: amt("250")},
		},
	})
}

func (f *fixture) generate(t *testing.T, month, year int) *models.GenerationResult {
	t.Helper()
	res, err := f.invoices.GenerateMonthlyInvoices(context.Background(), societyID, month, year)
	require.NoError(t, err)
	return res
}

func (f *fixture) invoiceFor(t *testing.T, unitID int64, month, year int) *models.Invoice {
	t.Helper()
	list, err := f.invoices.ListInvoices(context.Background(), models.InvoiceFilter{
		SocietyID: societyID, UnitID: unitID, BillingMonth: month, BillingYear: year,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0]
}

func (f *fixture) pay(t *testing.T, invoiceID int64, amount string, method models.PaymentMethod, date time.Time) *models.Payment {
	t.Helper()
	p, err := f.payments.RecordPayment(context.Background(), models.RecordPaymentRequest{
		InvoiceID:     invoiceID,
		Amount:        amt(amount),
		PaymentDate:   date,
		PaymentMethod: method,
	})
	require.NoError(t, err)
	return p
}

// requireBalancedPostings checks every source document's lines net to zero
func requireBalancedPostings(t *testing.T, entries []models.LedgerEntry) {
	t.Helper()
	type key struct {
		st models.SourceType
		id int64
	}
	debit := make(map[key]decimal.Decimal)
	credit := make(map[key]decimal.Decimal)
	for _, e := range entries {
		k := key{e.SourceType, e.SourceID}
		if e.Side == models.SideDebit {
			debit[k] = debit[k].Add(e.Amount)
		} else {
			credit[k] = credit[k].Add(e.Amount)
		}
	}
	for k, d := range debit {
		require.True(t, d.Equal(credit[k]), "%s %d: debit %s credit %s", k.st, k.id, d, credit[k])
	}
	require.Equal(t, len(debit), len(credit))
}

// requireConsistent checks balance and status agree with total and paid
func requireConsistent(t *testing.T, inv *models.Invoice) {
	t.Helper()
	want := inv.TotalAmount.Sub(inv.PaidAmount)
	if want.IsNegative() {
		want = decimal.Zero
	}
	require.True(t, inv.BalanceDue.Equal(want), "%s balance %s want %s", inv.InvoiceNumber, inv.BalanceDue, want)
	require.True(t, inv.TotalAmount.Equal(inv.CurrentCharges().Add(inv.PreviousBalance)))

	switch inv.Status {
	case models.InvoicePaid:
		require.True(t, inv.BalanceDue.IsZero())
	case models.InvoicePartiallyPaid:
		require.True(t, inv.PaidAmount.IsPositive())
		require.True(t, inv.BalanceDue.IsPositive())
	case models.InvoiceSent, models.InvoiceOverdue:
		require.True(t, inv.BalanceDue.IsPositive())
	}
}

// requireReconciled checks the receivable and advance accounts agree with the
// invoices: AR holds every open balance, Member Advances every credit
func requireReconciled(t *testing.T, f *fixture) {
	t.Helper()
	invoices, err := f.invoices.ListInvoices(context.Background(), models.InvoiceFilter{SocietyID: societyID})
	require.NoError(t, err)

	outstanding, credit := decimal.Zero, decimal.Zero
	for _, inv := range invoices {
		requireConsistent(t, inv)
		if inv.IsOpen() {
			outstanding = outstanding.Add(inv.BalanceDue)
		}
		if inv.Status != models.InvoiceCancelled {
			credit = credit.Add(inv.CreditAmount)
		}
	}

	l := f.store.Ledger()
	ar := l.Balance(societyID, ledger.CodeReceivable)
	advances := l.Balance(societyID, ledger.CodeMemberAdvances).Neg()
	require.True(t, ar.Equal(outstanding), "AR ledger %s, open invoice balances %s", ar, outstanding)
	require.True(t, advances.Equal(credit), "advances ledger %s, invoice credit %s", advances, credit)
	requireBalancedPostings(t, f.store.AllEntries())
}
