package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"society-billing/internal/models"
	"society-billing/internal/money"
	"society-billing/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"
)

const pdfWorkers = 5

// InvoiceDocument is everything printed on a member's bill
type InvoiceDocument struct {
	Society  models.SocietySettings `json:"society"`
	Invoice  *models.Invoice        `json:"invoice"`
	Payments []*models.Payment      `json:"payments"`
}

// Document assembles the printable view of one invoice
func (s *InvoiceService) Document(ctx context.Context, invoiceID int64) (*InvoiceDocument, error) {
	inv, err := s.deps.Invoices.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	settings, err := loadSettings(ctx, s.deps.Master, inv.SocietyID, s.opts.SettingsCacheTTL)
	if err != nil {
		return nil, err
	}
	payments, err := s.deps.Payments.List(ctx, models.PaymentFilter{SocietyID: inv.SocietyID, InvoiceID: inv.ID})
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	return &InvoiceDocument{Society: *settings, Invoice: inv, Payments: payments}, nil
}

// rupees renders an amount for the PDF core fonts, which have no ₹ glyph
func rupees(d decimal.Decimal) string {
	return strings.Replace(money.FormatINR(d), "₹", "Rs. ", 1)
}

// RenderInvoicePDF lays out a single invoice on A4
func RenderInvoicePDF(doc *InvoiceDocument) ([]byte, error) {
	inv := doc.Invoice
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Letterhead
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 9, doc.Society.Name, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	if doc.Society.Address != "" {
		pdf.CellFormat(190, 5, doc.Society.Address, "", 1, "C", false, 0, "")
	}
	var regLine []string
	if doc.Society.RegistrationNumber != "" {
		regLine = append(regLine, "Reg. No: "+doc.Society.RegistrationNumber)
	}
	if doc.Society.GSTIN != "" {
		regLine = append(regLine, "GSTIN: "+doc.Society.GSTIN)
	}
	if len(regLine) > 0 {
		pdf.CellFormat(190, 5, strings.Join(regLine, "   "), "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(190, 8, "MAINTENANCE BILL", "TB", 1, "C", false, 0, "")
	pdf.Ln(2)

	// Bill-to and invoice details
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(95, 7, fmt.Sprintf("Member: %s", inv.MemberName), "LT", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Bill No: %s", inv.InvoiceNumber), "RT", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Unit: %s", inv.UnitNumber), "L", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Period: %02d/%d", inv.BillingMonth, inv.BillingYear), "R", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Bill Date: %s", inv.IssueDate.Format(timeutil.DisplayDate)), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Due Date: %s", inv.DueDate.Format(timeutil.DisplayDate)), "RB", 1, "L", false, 0, "")
	pdf.Ln(4)

	// Line items
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(70, 7, "Particulars", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Rate", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Area (sq ft)", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Amount", "1", 0, "C", true, 0, "")
	pdf.CellFormat(20, 7, "GST", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Total", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, item := range inv.LineItems {
		desc := item.Description
		if len(desc) > 38 {
			desc = desc[:35] + "..."
		}
		area := "-"
		if item.AreaSqft != nil {
			area = item.AreaSqft.String()
		}
		pdf.CellFormat(70, 6, desc, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, item.Rate.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, area, "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, item.Amount.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, item.GSTAmount.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, item.TotalAmount.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	// Summary
	summary := []struct {
		label  string
		amount decimal.Decimal
	}{
		{"Subtotal", inv.Subtotal},
		{"GST", inv.GSTAmount},
		{"Interest on arrears", inv.InterestAmount},
		{"Current charges", inv.CurrentCharges()},
		{"Previous balance", inv.PreviousBalance},
		{"Total", inv.TotalAmount},
		{"Paid", inv.PaidAmount},
	}
	for _, row := range summary {
		pdf.CellFormat(140, 6, row.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, rupees(row.amount), "", 1, "R", false, 0, "")
	}
	if inv.CreditAmount.IsPositive() {
		pdf.CellFormat(140, 6, "Advance held", "", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, rupees(inv.CreditAmount), "", 1, "R", false, 0, "")
	}

	if inv.BalanceDue.IsPositive() {
		pdf.SetFillColor(255, 200, 200)
	} else {
		pdf.SetFillColor(200, 255, 200)
	}
	pdf.SetFont("Arial", "B", 13)
	balanceText := fmt.Sprintf("Balance Due: %s", rupees(inv.BalanceDue))
	if inv.Status == models.InvoiceCancelled {
		balanceText = "CANCELLED"
	} else if !inv.BalanceDue.IsPositive() {
		balanceText = "FULLY PAID"
	}
	pdf.CellFormat(190, 10, balanceText, "1", 1, "C", true, 0, "")

	// Receipts
	if len(doc.Payments) > 0 {
		pdf.Ln(5)
		pdf.SetFont("Arial", "B", 11)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(190, 7, "Receipts", "1", 1, "L", true, 0, "")

		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(200, 200, 200)
		pdf.CellFormat(50, 7, "Receipt #", "1", 0, "C", true, 0, "")
		pdf.CellFormat(35, 7, "Date", "1", 0, "C", true, 0, "")
		pdf.CellFormat(35, 7, "Mode", "1", 0, "C", true, 0, "")
		pdf.CellFormat(35, 7, "Amount", "1", 0, "C", true, 0, "")
		pdf.CellFormat(35, 7, "Status", "1", 1, "C", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		for _, p := range doc.Payments {
			pdf.CellFormat(50, 6, p.ReceiptNumber, "1", 0, "C", false, 0, "")
			pdf.CellFormat(35, 6, p.PaymentDate.Format(timeutil.DisplayDate), "1", 0, "C", false, 0, "")
			pdf.CellFormat(35, 6, string(p.PaymentMethod), "1", 0, "C", false, 0, "")
			pdf.CellFormat(35, 6, p.Amount.StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.CellFormat(35, 6, string(p.Status), "1", 1, "C", false, 0, "")
		}
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(190, 5, "This is a computer generated bill and does not require a signature.", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BulkPDFZip renders every invoice of a billing period and bundles them into
// one archive. Returns the archive and the number of invoices in it.
func (s *InvoiceService) BulkPDFZip(ctx context.Context, societyID int64, period models.Period) ([]byte, int, error) {
	invoices, err := s.deps.Invoices.List(ctx, models.InvoiceFilter{
		SocietyID:    societyID,
		BillingMonth: period.Month,
		BillingYear:  period.Year,
	})
	if err != nil {
		return nil, 0, err
	}

	type pdfResult struct {
		name string
		data []byte
		err  error
	}

	results := make(chan pdfResult, len(invoices))
	jobs := make(chan *models.Invoice, len(invoices))

	var wg sync.WaitGroup
	for i := 0; i < pdfWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for inv := range jobs {
				doc, err := s.Document(ctx, inv.ID)
				if err != nil {
					results <- pdfResult{name: inv.InvoiceNumber, err: err}
					continue
				}
				data, err := RenderInvoicePDF(doc)
				results <- pdfResult{name: inv.InvoiceNumber, data: data, err: err}
			}
		}()
	}

	for _, inv := range invoices {
		jobs <- inv
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var rendered []pdfResult
	for r := range results {
		if r.err != nil {
			s.log.Warn().Err(r.err).Str("invoice", r.name).Msg("skipping invoice in bulk export")
			continue
		}
		rendered = append(rendered, r)
	}
	sort.Slice(rendered, func(i, j int) bool { return rendered[i].name < rendered[j].name })

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, r := range rendered {
		fw, err := zw.Create(r.name + ".pdf")
		if err != nil {
			return nil, 0, err
		}
		if _, err := fw.Write(r.data); err != nil {
			return nil, 0, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), len(rendered), nil
}
