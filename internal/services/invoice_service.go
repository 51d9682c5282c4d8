package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"society-billing/internal/cache"
	"society-billing/internal/events"
	"society-billing/internal/ledger"
	"society-billing/internal/logger"
	"society-billing/internal/metrics"
	"society-billing/internal/models"
	"society-billing/internal/money"
	"society-billing/internal/timeutil"

	"github.com/rs/zerolog"
)

const (
	minBillingYear  = 2020
	maxBillingYear  = 2030
	numberRetries   = 3
	defaultDueDay   = 10
	defaultWorkers  = 4
	defaultLockTTL  = 5 * time.Minute
	defaultCacheTTL = 10 * time.Minute
)

// InvoiceOptions tunes monthly generation
type InvoiceOptions struct {
	Workers          int
	RunLockTTL       time.Duration
	SettingsCacheTTL time.Duration
	DefaultDueDay    int
}

type InvoiceService struct {
	deps   Deps
	opts   InvoiceOptions
	charts *chartGuard
	log    zerolog.Logger
}

func NewInvoiceService(deps Deps, opts InvoiceOptions) *InvoiceService {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.RunLockTTL <= 0 {
		opts.RunLockTTL = defaultLockTTL
	}
	if opts.SettingsCacheTTL <= 0 {
		opts.SettingsCacheTTL = defaultCacheTTL
	}
	if opts.DefaultDueDay <= 0 {
		opts.DefaultDueDay = defaultDueDay
	}
	deps = deps.withDefaults()
	return &InvoiceService{
		deps:   deps,
		opts:   opts,
		charts: &chartGuard{ledger: deps.Ledger},
		log:    logger.WithComponent("invoices"),
	}
}

// ValidatePeriod accepts billing months of the supported years
func ValidatePeriod(month, year int) error {
	if month < 1 || month > 12 {
		return models.NewValidationError("billing_month", "must be between 1 and 12, got %d", month)
	}
	if year < minBillingYear || year > maxBillingYear {
		return models.NewValidationError("billing_year", "must be between %d and %d, got %d", minBillingYear, maxBillingYear, year)
	}
	return nil
}

// unitOutcome is what happened to one unit in a run
type unitOutcome struct {
	unitID  int64
	invoice *models.Invoice
	skipped bool
	failure string
	err     error
}

// GenerateMonthlyInvoices bills every billable unit of the society for the
// period. Units already billed are skipped, so re-running a partially failed
// run only creates what is missing.
func (s *InvoiceService) GenerateMonthlyInvoices(ctx context.Context, societyID int64, month, year int) (*models.GenerationResult, error) {
	if err := ValidatePeriod(month, year); err != nil {
		return nil, err
	}

	release, err := s.deps.Locker.Obtain(ctx, cache.GenerationLockKey(societyID, year, month), s.opts.RunLockTTL)
	if errors.Is(err, cache.ErrLocked) {
		return nil, models.ErrGenerationInProgress
	}
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	defer func() { metrics.GenerationDuration.Observe(time.Since(start).Seconds()) }()

	if err := s.charts.ensure(ctx, societyID); err != nil {
		return nil, err
	}
	settings, err := loadSettings(ctx, s.deps.Master, societyID, s.opts.SettingsCacheTTL)
	if err != nil {
		return nil, err
	}

	period := models.Period{Month: month, Year: year}
	units, err := s.deps.Master.GetBillableUnits(ctx, societyID, period)
	if err != nil {
		return nil, fmt.Errorf("load billable units: %w", err)
	}

	log := s.log.With().Int64("society_id", societyID).Int("year", year).Int("month", month).Logger()
	log.Info().Int("units", len(units)).Msg("generation started")

	outcomes, err := s.runUnits(ctx, settings, units, period)

	result := &models.GenerationResult{SocietyID: societyID, Period: period}
	for _, o := range outcomes {
		switch {
		case o.invoice != nil:
			result.Created = append(result.Created, models.UnitInvoice{
				UnitID:        o.unitID,
				InvoiceID:     o.invoice.ID,
				InvoiceNumber: o.invoice.InvoiceNumber,
			})
			metrics.InvoicesGenerated.Inc()
			s.deps.Events.Publish(ctx, events.Event{
				Type:      events.InvoiceGenerated,
				SocietyID: societyID,
				UnitID:    o.unitID,
				InvoiceID: o.invoice.ID,
				Number:    o.invoice.InvoiceNumber,
				Amount:    o.invoice.TotalAmount,
				At:        s.deps.Now(),
			})
		case o.skipped:
			result.Skipped = append(result.Skipped, o.unitID)
			metrics.UnitsSkipped.Inc()
		case o.failure != "":
			result.Failed = append(result.Failed, models.UnitFailure{UnitID: o.unitID, Reason: o.failure})
			metrics.UnitsFailed.Inc()
		}
	}
	result.Count = len(result.Created)
	if result.Count > 0 {
		s.deps.Reports.InvalidateReports(ctx, societyID)
	}

	if err != nil {
		log.Error().Err(err).Int("created", result.Count).Msg("generation aborted")
		return result, err
	}

	log.Info().
		Int("created", result.Count).
		Int("skipped", len(result.Skipped)).
		Int("failed", len(result.Failed)).
		Msg("generation finished")
	return result, nil
}

// runUnits bills units on a bounded worker pool. The first storage or
// posting error stops dispatching; units already committed stay committed.
func (s *InvoiceService) runUnits(ctx context.Context, settings *models.SocietySettings, units []models.BillableUnit, period models.Period) ([]unitOutcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan models.BillableUnit)
	results := make(chan unitOutcome, len(units))

	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for unit := range jobs {
				o := s.generateUnit(ctx, settings, unit, period)
				if o.err != nil {
					cancel()
				}
				results <- o
			}
		}()
	}

dispatch:
	for _, u := range units {
		select {
		case jobs <- u:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var outcomes []unitOutcome
	var firstErr error
	for o := range results {
		if o.err != nil {
			if firstErr == nil || errors.Is(firstErr, context.Canceled) {
				firstErr = o.err
			}
			continue
		}
		outcomes = append(outcomes, o)
	}
	if firstErr == nil && len(outcomes) < len(units) {
		firstErr = ctx.Err()
	}

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].unitID < outcomes[j].unitID })
	return outcomes, firstErr
}

// generateUnit creates one unit's invoice in its own transaction
func (s *InvoiceService) generateUnit(ctx context.Context, settings *models.SocietySettings, unit models.BillableUnit, period models.Period) unitOutcome {
	out := unitOutcome{unitID: unit.UnitID}
	if err := ctx.Err(); err != nil {
		out.err = err
		return out
	}

	items, err := buildLineItems(unit)
	if err != nil {
		var insufficient *models.InsufficientDataError
		if errors.As(err, &insufficient) {
			out.failure = insufficient.Reason
		} else {
			out.err = err
		}
		return out
	}

	for attempt := 1; ; attempt++ {
		inv, skipped, err := s.createInvoice(ctx, settings, unit, items, period)
		switch {
		case err == nil:
			out.invoice, out.skipped = inv, skipped
			return out
		case models.IsDuplicate(err, models.DupUnitPeriod):
			out.skipped = true
			return out
		case models.IsDuplicate(err, models.DupInvoiceNumber) && attempt < numberRetries:
			s.log.Warn().Int64("unit_id", unit.UnitID).Int("attempt", attempt).Msg("invoice number taken, retrying")
			continue
		default:
			out.err = fmt.Errorf("unit %d: %w", unit.UnitID, err)
			return out
		}
	}
}

func (s *InvoiceService) createInvoice(ctx context.Context, settings *models.SocietySettings, unit models.BillableUnit, items []models.LineItem, period models.Period) (*models.Invoice, bool, error) {
	dueDay := settings.BillingDueDay
	if dueDay <= 0 {
		dueDay = s.opts.DefaultDueDay
	}

	inv := &models.Invoice{
		SocietyID:    settings.ID,
		UnitID:       unit.UnitID,
		MemberID:     unit.MemberID,
		UnitNumber:   unit.UnitNumber,
		MemberName:   unit.MemberName,
		BillingMonth: period.Month,
		BillingYear:  period.Year,
		IssueDate:    timeutil.FirstOfMonth(period.Year, period.Month),
		DueDate:      timeutil.DueDate(period.Year, period.Month, dueDay),
		Status:       models.InvoiceSent,
		LineItems:    append([]models.LineItem(nil), items...),
	}
	for _, item := range items {
		inv.Subtotal = inv.Subtotal.Add(item.Amount)
		inv.GSTAmount = inv.GSTAmount.Add(item.GSTAmount)
	}

	skipped := false
	err := s.deps.Tx.RunInTx(ctx, func(ctx context.Context) error {
		exists, err := s.deps.Invoices.ExistsForPeriod(ctx, settings.ID, unit.UnitID, period)
		if err != nil {
			return err
		}
		if exists {
			skipped = true
			return nil
		}

		prior, err := s.deps.Invoices.ListCarryable(ctx, settings.ID, unit.UnitID, period)
		if err != nil {
			return fmt.Errorf("load unpaid invoices: %w", err)
		}
		priorIDs := make([]int64, 0, len(prior))
		for _, p := range prior {
			priorIDs = append(priorIDs, p.ID)
			inv.PreviousBalance = inv.PreviousBalance.Add(p.BalanceDue)
			inv.InterestAmount = inv.InterestAmount.Add(
				money.CalculateInterest(p.BalanceDue, settings.InterestRatePct, p.DueDate, inv.IssueDate, settings.GraceDays))
		}
		inv.Recalculate(time.Time{})

		seq, err := s.deps.Sequences.NextInvoiceSeq(ctx, settings.ID, period)
		if err != nil {
			return fmt.Errorf("allocate invoice number: %w", err)
		}
		inv.InvoiceNumber = money.GenerateInvoiceNumber(period.Year, period.Month, seq)

		if err := s.deps.Invoices.Create(ctx, inv); err != nil {
			return err
		}
		if len(priorIDs) > 0 {
			if err := s.deps.Invoices.MarkCarriedForward(ctx, priorIDs, inv.ID); err != nil {
				return fmt.Errorf("carry forward: %w", err)
			}
		}

		posting := ledger.InvoicePosting(inv)
		if posting.IsEmpty() {
			return nil
		}
		if _, err := s.deps.Ledger.Post(ctx, posting); err != nil {
			return fmt.Errorf("post invoice %s: %w", inv.InvoiceNumber, err)
		}
		return nil
	})
	if err != nil || skipped {
		return nil, skipped, err
	}
	return inv, false, nil
}

// buildLineItems prices the unit's fee structure
func buildLineItems(unit models.BillableUnit) ([]models.LineItem, error) {
	if unit.MemberID == 0 {
		return nil, &models.InsufficientDataError{UnitID: unit.UnitID, Reason: "no member assigned"}
	}
	if len(unit.FeeItems) == 0 {
		return nil, &models.InsufficientDataError{UnitID: unit.UnitID, Reason: "no fee structure configured"}
	}

	items := make([]models.LineItem, 0, len(unit.FeeItems))
	for _, fee := range unit.FeeItems {
		item := models.LineItem{Description: fee.Description, Rate: fee.Rate}
		if fee.PerSqft {
			if !unit.AreaSqft.IsPositive() {
				return nil, &models.InsufficientDataError{UnitID: unit.UnitID, Reason: fmt.Sprintf("%s is charged per sq ft but unit has no area", fee.Description)}
			}
			area := unit.AreaSqft
			item.AreaSqft = &area
			item.Amount = money.Round2(fee.Rate.Mul(area))
		} else {
			item.Amount = money.Round2(fee.Rate)
		}
		item.GSTAmount = money.Percent(item.Amount, fee.GSTRatePct)
		item.TotalAmount = item.Amount.Add(item.GSTAmount)
		items = append(items, item)
	}
	return items, nil
}

// RefreshOverdue moves sent invoices past their due date to overdue
func (s *InvoiceService) RefreshOverdue(ctx context.Context, societyID int64, asOf time.Time) (int64, error) {
	n, err := s.deps.Invoices.MarkOverdue(ctx, societyID, timeutil.DateOf(asOf))
	if err != nil {
		return 0, fmt.Errorf("refresh overdue: %w", err)
	}
	if n > 0 {
		s.log.Info().Int64("society_id", societyID).Int64("invoices", n).Msg("marked overdue")
		s.deps.Reports.InvalidateReports(ctx, societyID)
	}
	return n, nil
}

// CancelInvoice voids an unpaid invoice and reverses its charges. Invoices it
// had carried forward become open again.
func (s *InvoiceService) CancelInvoice(ctx context.Context, invoiceID int64, asOf time.Time) (*models.Invoice, error) {
	var inv *models.Invoice
	err := s.deps.Tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.deps.Invoices.GetForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		switch {
		case inv.Status == models.InvoiceCancelled:
			return models.NewValidationError("status", "invoice %s is already cancelled", inv.InvoiceNumber)
		case inv.PaidAmount.IsPositive():
			return models.NewValidationError("paid_amount", "invoice %s has payments; refund them first", inv.InvoiceNumber)
		case inv.CarriedForwardTo != nil:
			return models.NewValidationError("carried_forward_to", "invoice %s is carried forward to invoice %d", inv.InvoiceNumber, *inv.CarriedForwardTo)
		}

		entries, err := s.deps.Ledger.EntriesBySource(ctx, inv.SocietyID, models.SourceInvoice, inv.ID)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			reversal := ledger.FromEntries(entries).Reverse(models.SourceAdjustment, inv.ID,
				timeutil.DateOf(asOf), fmt.Sprintf("Cancellation of %s", inv.InvoiceNumber))
			if _, err := s.deps.Ledger.Post(ctx, reversal); err != nil {
				return fmt.Errorf("post cancellation: %w", err)
			}
		}

		inv.Status = models.InvoiceCancelled
		if err := s.deps.Invoices.UpdateBalances(ctx, inv); err != nil {
			return err
		}
		return s.deps.Invoices.ClearCarriedForward(ctx, inv.ID)
	})
	if err != nil {
		return nil, err
	}

	s.deps.Events.Publish(ctx, events.Event{
		Type:      events.InvoiceCancelled,
		SocietyID: inv.SocietyID,
		UnitID:    inv.UnitID,
		InvoiceID: inv.ID,
		Number:    inv.InvoiceNumber,
		Amount:    inv.TotalAmount,
		At:        s.deps.Now(),
	})
	s.deps.Reports.InvalidateReports(ctx, inv.SocietyID)
	return inv, nil
}

func (s *InvoiceService) GetInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	return s.deps.Invoices.Get(ctx, id)
}

func (s *InvoiceService) GetInvoiceByNumber(ctx context.Context, societyID int64, number string) (*models.Invoice, error) {
	return s.deps.Invoices.GetByNumber(ctx, societyID, number)
}

func (s *InvoiceService) ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	return s.deps.Invoices.List(ctx, filter)
}
