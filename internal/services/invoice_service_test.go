package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"

	"society-billing/internal/cache"
	"society-billing/internal/events"
	"society-billing/internal/ledger"
	"society-billing/internal/models"
	"society-billing/internal/timeutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCarriesUnpaidBalanceForward(t *testing.T) {
	f := newFixture(t, models.SocietySettings{BillingDueDay: 10})
	f.addStandardUnit(1)

	res := f.generate(t, 4, 2025)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "INV-202504-0001", res.Created[0].InvoiceNumber)

	april := f.invoiceFor(t, 1, 4, 2025)
	assert.True(t, april.Subtotal.Equal(amt("5250")))
	assert.True(t, april.TotalAmount.Equal(amt("5250")))
	assert.Equal(t, models.InvoiceSent, april.Status)
	assert.Equal(t, timeutil.Date(2025, 4, 1), april.IssueDate)
	assert.Equal(t, timeutil.Date(2025, 4, 10), april.DueDate)
	require.Len(t, april.LineItems, 2)
	require.NotNil(t, april.LineItems[0].AreaSqft)
	assert.Nil(t, april.LineItems[1].AreaSqft)

	f.clock = timeutil.Date(2025, 4, 5)
	p := f.pay(t, april.ID, "2000", models.MethodUPI, f.clock)
	assert.Equal(t, "RCP-2025-2026-000001", p.ReceiptNumber)

	april = f.invoiceFor(t, 1, 4, 2025)
	assert.Equal(t, models.InvoicePartiallyPaid, april.Status)
	assert.True(t, april.BalanceDue.Equal(amt("3250")))

	f.clock = timeutil.Date(2025, 5, 1)
	f.generate(t, 5, 2025)

	may := f.invoiceFor(t, 1, 5, 2025)
	assert.Equal(t, "INV-202505-0001", may.InvoiceNumber)
	assert.True(t, may.PreviousBalance.Equal(amt("3250")))
	assert.True(t, may.InterestAmount.IsZero())
	assert.True(t, may.TotalAmount.Equal(amt("8500")))
	assert.True(t, may.BalanceDue.Equal(amt("8500")))

	april = f.invoiceFor(t, 1, 4, 2025)
	require.NotNil(t, april.CarriedForwardTo)
	assert.Equal(t, may.ID, *april.CarriedForwardTo)
	assert.False(t, april.IsOpen())

	// receivables on the books equal what the latest invoice says is owed
	assert.True(t, f.store.Ledger().Balance(societyID, ledger.CodeReceivable).Equal(may.BalanceDue))
	requireBalancedPostings(t, f.store.AllEntries())
	for _, inv := range f.store.AllInvoices() {
		requireConsistent(t, inv)
	}
}

func TestGenerateChargesInterestOnArrears(t *testing.T) {
	f := newFixture(t, models.SocietySettings{InterestRatePct: amt("18"), BillingDueDay: 10})
	f.master.AddUnit(societyID, models.BillableUnit{
		UnitID: 7, UnitNumber: "B-7", MemberID: 70, MemberName: "K Iyer",
		FeeItems: []models.FeeItem{{Description: "Maintenance", Rate: amt("10000")}},
	})

	f.generate(t, 4, 2025)
	f.generate(t, 5, 2025)

	may := f.invoiceFor(t, 7, 5, 2025)
	// 10000 × 18% × 21 days / 365
	assert.True(t, may.InterestAmount.Equal(amt("103.56")), may.InterestAmount.String())
	assert.True(t, may.TotalAmount.Equal(amt("20103.56")))
	assert.True(t, f.store.Ledger().Balance(societyID, ledger.CodeInterestIncome).Equal(amt("-103.56")))
	requireBalancedPostings(t, f.store.AllEntries())
}

func TestGenerateComputesGST(t *testing.T) {
	f := newFixture(t, models.SocietySettings{})
	f.master.AddUnit(societyID, models.BillableUnit{
		UnitID: 3, MemberID: 30,
		FeeItems: []models.FeeItem{{Description: "Clubhouse", Rate: amt("1000"), GSTRatePct: amt("18")}},
	})

	f.generate(t, 6, 2025)
	inv := f.invoiceFor(t, 3, 6, 2025)
	assert.True(t, inv.GSTAmount.Equal(amt("180")))
	assert.True(t, inv.TotalAmount.Equal(amt("1180")))
	assert.True(t, inv.LineItems[0].TotalAmount.Equal(amt("1180")))
	assert.True(t, f.store.Ledger().Balance(societyID, ledger.CodeGSTPayable).Equal(amt("-180")))
}

func TestGenerateIsIdempotent(t *testing.T) {
	f := newFixture(t, models.SocietySettings{})
	for id := int64(1); id <= 3; id++ {
		f.addStandardUnit(id)
	}

	first := f.generate(t, 4, 2025)
	require.Equal(t, 3, first.Count)
	entries := len(f.store.AllEntries())

	second := f.generate(t, 4, 2025)
	assert.Equal(t, 0, second.Count)
	assert.Equal(t, []int64{1, 2, 3}, second.Skipped)
	assert.Len(t, f.store.AllInvoices(), 3)
	assert.Len(t, f.store.AllEntries(), entries)
}

func TestGenerateDropsCachedReports(t *testing.T) {
	f := newFixture(t, models.SocietySettings{BillingDueDay: 10})
	f.addStandardUnit(1)

	f.generate(t, 4, 2025)
	assert.Equal(t, 1, f.reportCache.Invalidations(societyID))

	f.generate(t, 4, 2025)
	assert.Equal(t, 1, f.reportCache.Invalidations(societyID), "a run that creates nothing keeps the cache")

	f.pay(t, f.invoiceFor(t, 1, 4, 2025).ID, "100", models.MethodCash, timeutil.Date(2025, 4, 2))
	assert.Equal(t, 2, f.reportCache.Invalidations(societyID))
}

func TestGenerateDropsCachedReportsAfterPartialRun(t *testing.T) {
	f := newFixture(t, models.SocietySettings{})
	for id := int64(1); id <= 5; id++ {
		f.addStandardUnit(id)
	}
	var posts atomic.Int32
	f.store.PostHook = func(p *ledger.Posting) error {
		if posts.Add(1) > 1 {
			return errors.New("disk full")
		}
		return nil
	}

	res, err := f.invoices.GenerateMonthlyInvoices(context.Background(), societyID, 4, 2025)
	require.Error(t, err)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, 1, f.reportCache.Invalidations(societyID))
}

func TestGenerateNumbersSequentiallyWithoutGaps(t *testing.T) {
	f := newFixture(t, models.SocietySettings{})
	const units = 25
	for id := int64(1); id <= units; id++ {
		f.addStandardUnit(id)
	}

	res := f.generate(t, 4, 2025)
	require.Equal(t, units, res.Count)

	var numbers []string
	for i, c := range res.Created {
		assert.Equal(t, int64(i+1), c.UnitID, "results are ordered by unit")
		numbers = append(numbers, c.InvoiceNumber)
	}
	sort.Strings(numbers)
	for i, n := range numbers {
		assert.Equal(t, fmt.Sprintf("INV-202504-%04d", i+1), n)
	}
}

func TestGenerateReportsUnitsWithMissingData(t *testing.T) {
	f := newFixture(t, models.SocietySettings{})
	f.addStandardUnit(1)
	f.master.AddUnit(societyID, models.BillableUnit{UnitID: 2, FeeItems: []models.FeeItem{{Description: "Maintenance", Rate: amt("100")}}})
	f.master.AddUnit(societyID, models.BillableUnit{UnitID: 3, MemberID: 30})
	f.master.AddUnit(societyID, models.BillableUnit{UnitID: 4, MemberID: 40,
		FeeItems: []models.FeeItem{{Description: "Maintenance", Rate: amt("5"), PerSqft: true}}})

	res := f.generate(t, 4, 2025)
	assert.Equal(t, 1, res.Count)
	require.Len(t, res.Failed, 3)
	assert.Equal(t, int64(2), res.Failed[0].UnitID)
	assert.Contains(t, res.Failed[0].Reason, "member")
	assert.Equal(t, int64(3), res.Failed[1].UnitID)
	assert.Contains(t, res.Failed[1].Reason, "fee")
	assert.Equal(t, int64(4), res.Failed[2].UnitID)
}

func TestGenerateRejectsBadPeriod(t *testing.T) {
	f := newFixture(t, models.SocietySettings{})

	for _, tc := range []struct{ month, year int }{{0, 2025}, {13, 2025}, {4, 2019}, {4, 2031}} {
		_, err := f.invoices.GenerateMonthlyInvoices(context.Background(), societyID, tc.month, tc.year)
		var verr *models.ValidationError
		assert.True(t, errors.As(err, &verr), "%d/%d", tc.month, tc.year)
	}
	assert.Empty(t, f.store.AllInvoices())
}

func TestGenerateRefusesWhileLockHeld(t *testing.T) {
	f := newFixture(t, models.SocietySettings{})
	f.addStandardUnit(1)

	release, err := f.locker.Obtain(context.Background(), cache.GenerationLockKey(societyID, 2025, 4), 0)
	require.NoError(t, err)

	_, err = f.invoices.GenerateMonthlyInvoices(context.Background(), societyID, 4, 2025)
	assert.ErrorIs(t, err, models.ErrGenerationInProgress)

	release()
	assert.Equal(t, 1, f.generate(t, 4, 2025).Count)
}

func TestGenerateAbortsOnPostingFailure(t *testing.T) {
	f := newFixture(t, models.SocietySettings{})
	for id := int64(1); id <= 5; id++ {
		f.addStandardUnit(id)
	}
	boom := errors.New("disk full")
	f.store.PostHook = func(p *ledger.Posting) error { return boom }

	res, err := f.invoices.GenerateMonthlyInvoices(context.Background(), societyID, 4, 2025)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, res.Count)
	assert.Empty(t, f.store.AllInvoices(), "failed units roll back")

	f.store.PostHook = nil
	res = f.generate(t, 4, 2025)
	require.Equal(t, 5, res.Count)

	var numbers []string
	for _, c := range res.Created {
		numbers = append(numbers, c.InvoiceNumber)
	}
	sort.Strings(numbers)
	assert.Equal(t, "INV-202504-0001", numbers[0], "rolled back runs consume no numbers")
	assert.Equal(t, "INV-202504-0005", numbers[4])
}

func TestGenerateZeroChargeInvoiceIsPaid(t *testing.T) {
	f := newFixture(t, models.SocietySettings{})
	f.master.AddUnit(societyID, models.BillableUnit{UnitID: 5, MemberID: 50,
		FeeItems: []models.FeeItem{{Description: "Waived", Rate: amt("0")}}})

	f.generate(t, 4, 2025)
	inv := f.invoiceFor(t, 5, 4, 2025)
	assert.Equal(t, models.InvoicePaid, inv.Status)
	assert.Empty(t, f.store.AllEntries())
}

func TestGeneratePublishesEvents(t *testing.T) {
	f := newFixture(t, models.SocietySettings{})
	f.addStandardUnit(1)
	f.addStandardUnit(2)

	f.generate(t, 4, 2025)
	assert.Equal(t, []string{events.InvoiceGenerated, events.InvoiceGenerated}, f.events.Types())
}

func TestRefreshOverdue(t *testing.T) {
	f := newFixture(t, models.SocietySettings{BillingDueDay: 10})
	f.addStandardUnit(1)
	f.addStandardUnit(2)
	f.generate(t, 4, 2025)
	f.pay(t, f.invoiceFor(t, 2, 4, 2025).ID, "5250", models.MethodCash, timeutil.Date(2025, 4, 3))

	n, err := f.invoices.RefreshOverdue(context.Background(), societyID, timeutil.Date(2025, 4, 10))
	require.NoError(t, err)
	assert.Zero(t, n, "not overdue on the due date")

	n, err = f.invoices.RefreshOverdue(context.Background(), societyID, timeutil.Date(2025, 4, 11))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, models.InvoiceOverdue, f.invoiceFor(t, 1, 4, 2025).Status)
	assert.Equal(t, models.InvoicePaid, f.invoiceFor(t, 2, 4, 2025).Status)
}

func TestCancelInvoiceReversesChargesAndReopensCarried(t *testing.T) {
	f := newFixture(t, models.SocietySettings{})
	f.addStandardUnit(1)
	f.generate(t, 4, 2025)
	april := f.invoiceFor(t, 1, 4, 2025)
	f.pay(t, april.ID, "2000", models.MethodCash, timeutil.Date(2025, 4, 5))
	f.generate(t, 5, 2025)
	may := f.invoiceFor(t, 1, 5, 2025)

	_, err := f.invoices.CancelInvoice(context.Background(), april.ID, timeutil.Date(2025, 5, 2))
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr), "invoice with payments cannot be cancelled")

	cancelled, err := f.invoices.CancelInvoice(context.Background(), may.ID, timeutil.Date(2025, 5, 2))
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceCancelled, cancelled.Status)

	april = f.invoiceFor(t, 1, 4, 2025)
	assert.Nil(t, april.CarriedForwardTo)
	assert.True(t, april.IsOpen())
	assert.True(t, f.store.Ledger().Balance(societyID, ledger.CodeReceivable).Equal(amt("3250")))
	requireBalancedPostings(t, f.store.AllEntries())

	_, err = f.invoices.CancelInvoice(context.Background(), may.ID, timeutil.Date(2025, 5, 2))
	assert.True(t, errors.As(err, &verr), "second cancel is rejected")
	assert.Contains(t, f.events.Types(), events.InvoiceCancelled)
}

func TestInvoiceReads(t *testing.T) {
	f := newFixture(t, models.SocietySettings{})
	f.addStandardUnit(1)
	f.generate(t, 4, 2025)

	inv, err := f.invoices.GetInvoiceByNumber(context.Background(), societyID, "INV-202504-0001")
	require.NoError(t, err)
	got, err := f.invoices.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.InvoiceNumber, got.InvoiceNumber)

	_, err = f.invoices.GetInvoice(context.Background(), 9999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
