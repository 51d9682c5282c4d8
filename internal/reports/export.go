package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"society-billing/internal/models"
	"society-billing/internal/timeutil"

	"github.com/xuri/excelize/v2"
)

const sheet = "Sheet1"

// WriteDefaultersCSV writes the defaulters list as CSV with a header row
func WriteDefaultersCSV(w io.Writer, rows []models.Defaulter) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Unit", "Member", "Invoices", "Oldest Due Date", "Days Overdue", "Outstanding"}); err != nil {
		return err
	}
	for _, d := range rows {
		unit := d.UnitNumber
		if unit == "" {
			unit = strconv.FormatInt(d.UnitID, 10)
		}
		member := d.MemberName
		if member == "" {
			member = strconv.FormatInt(d.MemberID, 10)
		}
		if err := cw.Write([]string{
			unit,
			member,
			strconv.Itoa(d.InvoiceCount),
			d.OldestDueDate.Format(timeutil.DateLayout),
			strconv.Itoa(d.DaysOverdue),
			d.TotalOutstanding.StringFixed(2),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func setRow(f *excelize.File, row int, values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// WriteAgingXLSX writes the aging buckets as a one-sheet workbook
func WriteAgingXLSX(w io.Writer, report models.AgingReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := setRow(f, 1, "Aging as of", report.AsOf.Format(timeutil.DateLayout)); err != nil {
		return err
	}
	if err := setRow(f, 3, "Bucket", "Invoices", "Amount"); err != nil {
		return err
	}
	row := 4
	for _, b := range report.Buckets {
		if err := setRow(f, row, b.Label, b.Count, b.Amount.InexactFloat64()); err != nil {
			return err
		}
		row++
	}
	if err := setRow(f, row, "Total", report.InvoiceCount, report.TotalOutstanding.InexactFloat64()); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write aging workbook: %w", err)
	}
	return nil
}

// WriteCollectionsXLSX writes collections by payment method as a workbook
func WriteCollectionsXLSX(w io.Writer, summary models.CollectionSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := setRow(f, 1, "Collections", summary.From.Format(timeutil.DateLayout), summary.To.Format(timeutil.DateLayout)); err != nil {
		return err
	}
	if err := setRow(f, 3, "Method", "Payments", "Amount"); err != nil {
		return err
	}
	row := 4
	for _, m := range summary.ByMethod {
		if err := setRow(f, row, string(m.Method), m.Count, m.Amount.InexactFloat64()); err != nil {
			return err
		}
		row++
	}
	if err := setRow(f, row, "Total", summary.Count, summary.GrandTotal.InexactFloat64()); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write collections workbook: %w", err)
	}
	return nil
}
