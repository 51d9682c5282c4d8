package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"society-billing/internal/models"
	"society-billing/internal/timeutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeUnitApril bills three units for April 2025 and settles one fully,
// one partly and leaves the third untouched
func threeUnitApril(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t, models.SocietySettings{BillingDueDay: 10})
	for id := int64(1); id <= 3; id++ {
		f.addStandardUnit(id)
	}
	f.generate(t, 4, 2025)
	f.pay(t, f.invoiceFor(t, 1, 4, 2025).ID, "5250", models.MethodCash, timeutil.Date(2025, 4, 3))
	f.pay(t, f.invoiceFor(t, 2, 4, 2025).ID, "2000", models.MethodUPI, timeutil.Date(2025, 4, 4))
	return f
}

func TestReportAging(t *testing.T) {
	f := threeUnitApril(t)

	report, err := f.reports.Aging(context.Background(), societyID, timeutil.Date(2025, 4, 25))
	require.NoError(t, err)
	assert.Equal(t, 2, report.InvoiceCount)
	assert.True(t, report.TotalOutstanding.Equal(amt("8500")), report.TotalOutstanding.String())

	for _, b := range report.Buckets {
		if b.Label == models.Bucket1To30 {
			assert.Equal(t, 2, b.Count)
			assert.True(t, b.Amount.Equal(report.TotalOutstanding))
			continue
		}
		assert.Zero(t, b.Count, b.Label)
	}

	defaulters, err := f.reports.Defaulters(context.Background(), societyID, timeutil.Date(2025, 4, 25), 1)
	require.NoError(t, err)
	require.Len(t, defaulters, 2)
	assert.Equal(t, int64(3), defaulters[0].UnitID)
}

func TestReportCollections(t *testing.T) {
	f := threeUnitApril(t)

	summary, err := f.reports.Collections(context.Background(), societyID, timeutil.Date(2025, 4, 1), timeutil.Date(2025, 4, 30))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count)
	assert.True(t, summary.GrandTotal.Equal(amt("7250")))

	_, err = f.reports.Collections(context.Background(), societyID, timeutil.Date(2025, 4, 30), timeutil.Date(2025, 4, 1))
	var verr *models.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestReportIncomeExpense(t *testing.T) {
	f := threeUnitApril(t)

	st, err := f.reports.IncomeExpense(context.Background(), societyID, timeutil.Date(2025, 4, 1), timeutil.Date(2025, 4, 30))
	require.NoError(t, err)
	assert.True(t, st.TotalIncome.Equal(amt("15750")), st.TotalIncome.String())
	assert.True(t, st.TotalExpense.IsZero())
	assert.True(t, st.Surplus.Equal(st.TotalIncome))
}

func TestReportFundPositionStaysBalanced(t *testing.T) {
	f := threeUnitApril(t)

	fp, err := f.reports.FundPosition(context.Background(), societyID, timeutil.Date(2025, 4, 30))
	require.NoError(t, err)
	assert.True(t, fp.Balanced)
	assert.True(t, fp.Difference.IsZero())
	assert.True(t, fp.TotalAssets.Equal(amt("15750")), fp.TotalAssets.String())

	// carry forward, refund and cancel must keep the books square
	f.clock = timeutil.Date(2025, 5, 1)
	f.generate(t, 5, 2025)
	p := f.pay(t, f.invoiceFor(t, 3, 5, 2025).ID, "1000", models.MethodNEFT, timeutil.Date(2025, 5, 2))
	_, err = f.payments.RefundPayment(context.Background(), p.ID, timeutil.Date(2025, 5, 3))
	require.NoError(t, err)
	_, err = f.invoices.CancelInvoice(context.Background(), f.invoiceFor(t, 1, 5, 2025).ID, timeutil.Date(2025, 5, 3))
	require.NoError(t, err)

	fp, err = f.reports.FundPosition(context.Background(), societyID, timeutil.Date(2025, 5, 31))
	require.NoError(t, err)
	assert.True(t, fp.Balanced, "difference %s", fp.Difference)
	requireBalancedPostings(t, f.store.AllEntries())
}

func TestInvoicePDFAndBulkZip(t *testing.T) {
	f := threeUnitApril(t)

	doc, err := f.invoices.Document(context.Background(), f.invoiceFor(t, 2, 4, 2025).ID)
	require.NoError(t, err)
	assert.Equal(t, "Green Acres CHS", doc.Society.Name)
	require.Len(t, doc.Payments, 1)

	data, err := RenderInvoicePDF(doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	archive, n, err := f.invoices.BulkPDFZip(context.Background(), societyID, models.Period{Month: 4, Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)
	assert.Equal(t, "INV-202504-0001.pdf", zr.File[0].Name)
}

func TestRupeesUsesPlainPrefix(t *testing.T) {
	assert.Equal(t, "Rs. 1,23,456.50", rupees(amt("123456.5")))
}
