package reports

import (
	"bytes"
	"encoding/csv"
	"testing"

	"society-billing/internal/models"
	"society-billing/internal/timeutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteDefaultersCSV(t *testing.T) {
	rows := []models.Defaulter{
		{UnitID: 4, UnitNumber: "A-101", MemberName: "R Sharma", InvoiceCount: 2,
			OldestDueDate: timeutil.Date(2025, 4, 10), DaysOverdue: 81, TotalOutstanding: amt("3250")},
		{UnitID: 9, MemberID: 90, InvoiceCount: 1,
			OldestDueDate: timeutil.Date(2025, 6, 10), DaysOverdue: 20, TotalOutstanding: amt("99.5")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDefaultersCSV(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Unit", records[0][0])
	assert.Equal(t, []string{"A-101", "R Sharma", "2", "2025-04-10", "81", "3250.00"}, records[1])
	assert.Equal(t, []string{"9", "90", "1", "2025-06-10", "20", "99.50"}, records[2])
}

func TestWriteAgingXLSX(t *testing.T) {
	report := Aging(1, []*models.Invoice{openInvoice(1, 45, "400")}, timeutil.Date(2025, 6, 30))

	var buf bytes.Buffer
	require.NoError(t, WriteAgingXLSX(&buf, report))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	label, err := f.GetCellValue(sheet, "A6")
	require.NoError(t, err)
	assert.Equal(t, models.Bucket31To60, label)

	amount, err := f.GetCellValue(sheet, "C6")
	require.NoError(t, err)
	assert.Equal(t, "400", amount)

	total, err := f.GetCellValue(sheet, "A9")
	require.NoError(t, err)
	assert.Equal(t, "Total", total)
}

func TestWriteCollectionsXLSX(t *testing.T) {
	summary := models.CollectionSummary{
		From:       timeutil.Date(2025, 4, 1),
		To:         timeutil.Date(2025, 4, 30),
		ByMethod:   []models.MethodTotal{{Method: models.MethodUPI, Count: 2, Amount: amt("2500")}},
		Count:      2,
		GrandTotal: amt("2500"),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCollectionsXLSX(&buf, summary))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	method, err := f.GetCellValue(sheet, "A4")
	require.NoError(t, err)
	assert.Equal(t, "upi", method)

	count, err := f.GetCellValue(sheet, "B5")
	require.NoError(t, err)
	assert.Equal(t, "2", count)
}
