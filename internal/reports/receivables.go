// Package reports derives receivable, collection and fund statements from
// invoices, payments and ledger totals. Every function is pure: the caller
// loads the data and passes the reporting date explicitly.
package reports

import (
	"sort"
	"time"

	"society-billing/internal/models"
	"society-billing/internal/timeutil"
)

// BucketFor places a number of days past due into its aging bucket
func BucketFor(daysOverdue int) string {
	switch {
	case daysOverdue <= 0:
		return models.BucketCurrent
	case daysOverdue <= 30:
		return models.Bucket1To30
	case daysOverdue <= 60:
		return models.Bucket31To60
	case daysOverdue <= 90:
		return models.Bucket61To90
	default:
		return models.Bucket90Plus
	}
}

// Aging groups open invoices by days past due as of asOf. Cancelled, settled
// and carried-forward invoices are not receivables and are left out.
func Aging(societyID int64, invoices []*models.Invoice, asOf time.Time) models.AgingReport {
	report := models.AgingReport{SocietyID: societyID, AsOf: timeutil.DateOf(asOf)}

	index := make(map[string]int, len(models.AgingBuckets))
	for i, label := range models.AgingBuckets {
		report.Buckets = append(report.Buckets, models.AgingBucket{Label: label})
		index[label] = i
	}

	for _, inv := range invoices {
		if !inv.IsOpen() {
			continue
		}
		b := &report.Buckets[index[BucketFor(timeutil.DaysBetween(inv.DueDate, asOf))]]
		b.Count++
		b.Amount = b.Amount.Add(inv.BalanceDue)
		report.TotalOutstanding = report.TotalOutstanding.Add(inv.BalanceDue)
		report.InvoiceCount++
	}
	return report
}

// Defaulters lists units whose oldest open invoice is at least minDaysOverdue
// past due, largest outstanding first.
func Defaulters(invoices []*models.Invoice, asOf time.Time, minDaysOverdue int) []models.Defaulter {
	if minDaysOverdue < 1 {
		minDaysOverdue = 1
	}

	byUnit := make(map[int64]*models.Defaulter)
	var order []int64
	for _, inv := range invoices {
		if !inv.IsOpen() {
			continue
		}
		d, ok := byUnit[inv.UnitID]
		if !ok {
			d = &models.Defaulter{
				UnitID:        inv.UnitID,
				UnitNumber:    inv.UnitNumber,
				MemberID:      inv.MemberID,
				MemberName:    inv.MemberName,
				OldestDueDate: inv.DueDate,
			}
			byUnit[inv.UnitID] = d
			order = append(order, inv.UnitID)
		}
		d.InvoiceCount++
		d.TotalOutstanding = d.TotalOutstanding.Add(inv.BalanceDue)
		if inv.DueDate.Before(d.OldestDueDate) {
			d.OldestDueDate = inv.DueDate
		}
	}

	var out []models.Defaulter
	for _, unitID := range order {
		d := byUnit[unitID]
		d.DaysOverdue = timeutil.DaysBetween(d.OldestDueDate, asOf)
		if d.DaysOverdue >= minDaysOverdue {
			out = append(out, *d)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].TotalOutstanding.Equal(out[j].TotalOutstanding) {
			return out[i].TotalOutstanding.GreaterThan(out[j].TotalOutstanding)
		}
		return out[i].UnitID < out[j].UnitID
	})
	return out
}

// Collections totals captured payments dated within [from, to] by method
func Collections(societyID int64, payments []*models.Payment, from, to time.Time) models.CollectionSummary {
	summary := models.CollectionSummary{SocietyID: societyID, From: from, To: to}

	totals := make(map[models.PaymentMethod]*models.MethodTotal)
	for _, p := range payments {
		if p.Status != models.PaymentCaptured {
			continue
		}
		if p.PaymentDate.Before(from) || p.PaymentDate.After(to) {
			continue
		}
		t, ok := totals[p.PaymentMethod]
		if !ok {
			t = &models.MethodTotal{Method: p.PaymentMethod}
			totals[p.PaymentMethod] = t
		}
		t.Count++
		t.Amount = t.Amount.Add(p.Amount)
		summary.Count++
		summary.GrandTotal = summary.GrandTotal.Add(p.Amount)
	}

	for _, m := range models.PaymentMethods {
		if t, ok := totals[m]; ok {
			summary.ByMethod = append(summary.ByMethod, *t)
		}
	}
	return summary
}
