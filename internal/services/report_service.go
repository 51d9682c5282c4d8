package services

import (
	"context"
	"fmt"
	"time"

	"society-billing/internal/cache"
	"society-billing/internal/logger"
	"society-billing/internal/metrics"
	"society-billing/internal/models"
	"society-billing/internal/reports"
	"society-billing/internal/timeutil"

	"github.com/rs/zerolog"
)

const reportCacheTTL = 5 * time.Minute

// ReportService loads invoices, payments and ledger totals and derives the
// receivable and fund reports from them
type ReportService struct {
	deps Deps
	log  zerolog.Logger
}

func NewReportService(deps Deps) *ReportService {
	return &ReportService{deps: deps.withDefaults(), log: logger.WithComponent("reports")}
}

func (s *ReportService) openInvoices(ctx context.Context, societyID int64) ([]*models.Invoice, error) {
	invoices, err := s.deps.Invoices.List(ctx, models.InvoiceFilter{SocietyID: societyID, OpenOnly: true})
	if err != nil {
		return nil, fmt.Errorf("load open invoices: %w", err)
	}
	return invoices, nil
}

func (s *ReportService) Aging(ctx context.Context, societyID int64, asOf time.Time) (*models.AgingReport, error) {
	asOf = timeutil.DateOf(asOf)
	key := cache.ReportKey(societyID, "aging", asOf.Format(timeutil.DateLayout))

	var cached models.AgingReport
	if cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	invoices, err := s.openInvoices(ctx, societyID)
	if err != nil {
		return nil, err
	}
	report := reports.Aging(societyID, invoices, asOf)
	cache.SetJSON(ctx, key, report, reportCacheTTL)
	return &report, nil
}

func (s *ReportService) Defaulters(ctx context.Context, societyID int64, asOf time.Time, minDaysOverdue int) ([]models.Defaulter, error) {
	invoices, err := s.openInvoices(ctx, societyID)
	if err != nil {
		return nil, err
	}
	return reports.Defaulters(invoices, timeutil.DateOf(asOf), minDaysOverdue), nil
}

func (s *ReportService) Collections(ctx context.Context, societyID int64, from, to time.Time) (*models.CollectionSummary, error) {
	if to.Before(from) {
		return nil, models.NewValidationError("to", "must not be before from")
	}
	payments, err := s.deps.Payments.List(ctx, models.PaymentFilter{
		SocietyID: societyID,
		Status:    models.PaymentCaptured,
		From:      from,
		To:        to,
	})
	if err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	summary := reports.Collections(societyID, payments, timeutil.DateOf(from), timeutil.DateOf(to))
	return &summary, nil
}

func (s *ReportService) IncomeExpense(ctx context.Context, societyID int64, from, to time.Time) (*models.IncomeExpenseStatement, error) {
	if to.Before(from) {
		return nil, models.NewValidationError("to", "must not be before from")
	}
	totals, err := s.deps.Ledger.AccountTotals(ctx, models.LedgerFilter{SocietyID: societyID, From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("load account totals: %w", err)
	}
	st := reports.IncomeExpense(societyID, totals, timeutil.DateOf(from), timeutil.DateOf(to))
	return &st, nil
}

// FundPosition builds the balance sheet as of asOf. An imbalance is reported
// in the result and logged; it is never adjusted away.
func (s *ReportService) FundPosition(ctx context.Context, societyID int64, asOf time.Time) (*models.FundPosition, error) {
	totals, err := s.deps.Ledger.AccountTotals(ctx, models.LedgerFilter{SocietyID: societyID, To: asOf})
	if err != nil {
		return nil, fmt.Errorf("load account totals: %w", err)
	}

	fp := reports.FundPosition(societyID, totals, asOf)
	if !fp.Balanced {
		metrics.FundPositionImbalance.Inc()
		s.log.Error().
			Int64("society_id", societyID).
			Str("as_of", fp.AsOf.Format(timeutil.DateLayout)).
			Str("assets", fp.TotalAssets.StringFixed(2)).
			Str("liabilities", fp.TotalLiabilities.StringFixed(2)).
			Str("equity", fp.TotalEquity.StringFixed(2)).
			Str("difference", fp.Difference.StringFixed(2)).
			Msg("fund position does not balance")
	}
	return &fp, nil
}
