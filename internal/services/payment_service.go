package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"society-billing/internal/events"
	"society-billing/internal/ledger"
	"society-billing/internal/logger"
	"society-billing/internal/metrics"
	"society-billing/internal/models"
	"society-billing/internal/money"
	"society-billing/internal/timeutil"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type PaymentService struct {
	deps   Deps
	charts *chartGuard
	log    zerolog.Logger
}

func NewPaymentService(deps Deps) *PaymentService {
	deps = deps.withDefaults()
	return &PaymentService{
		deps:   deps,
		charts: &chartGuard{ledger: deps.Ledger},
		log:    logger.WithComponent("payments"),
	}
}

func validatePayment(req models.RecordPaymentRequest) error {
	if req.InvoiceID <= 0 {
		return models.NewValidationError("invoice_id", "is required")
	}
	if !req.Amount.IsPositive() {
		return models.NewValidationError("amount", "must be greater than zero")
	}
	if !req.PaymentMethod.Valid() {
		return models.NewValidationError("payment_method", "unknown method %q", req.PaymentMethod)
	}
	if req.PaymentDate.IsZero() {
		return models.NewValidationError("payment_date", "is required")
	}
	return nil
}

// RecordPayment applies a payment to an invoice, issues a receipt and posts it.
// A repeated external reference returns *IdempotencyConflict carrying the
// payment stored the first time.
func (s *PaymentService) RecordPayment(ctx context.Context, req models.RecordPaymentRequest) (*models.Payment, error) {
	if err := validatePayment(req); err != nil {
		return nil, err
	}
	req.Amount = money.Round2(req.Amount)
	req.PaymentDate = timeutil.DateOf(req.PaymentDate)

	var (
		pay *models.Payment
		inv *models.Invoice
	)
	err := s.deps.Tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		inv, err = s.deps.Invoices.GetForUpdate(ctx, req.InvoiceID)
		if err != nil {
			return err
		}

		if req.ExternalRef != "" {
			existing, err := s.deps.Payments.GetByExternalRef(ctx, inv.SocietyID, req.ExternalRef)
			if err == nil {
				return &models.IdempotencyConflict{ExternalRef: req.ExternalRef, Existing: existing}
			}
			if !errors.Is(err, models.ErrNotFound) {
				return err
			}
		}

		switch {
		case inv.Status == models.InvoiceCancelled:
			return models.NewValidationError("invoice_id", "invoice %s is cancelled", inv.InvoiceNumber)
		case inv.CarriedForwardTo != nil:
			return models.NewValidationError("invoice_id", "invoice %s is carried forward to invoice %d; pay that invoice instead", inv.InvoiceNumber, *inv.CarriedForwardTo)
		}

		if err := s.charts.ensure(ctx, inv.SocietyID); err != nil {
			return err
		}

		applied := money.Min(req.Amount, money.NonNegative(inv.BalanceDue))
		advance := req.Amount.Sub(applied)

		seq, err := s.deps.Sequences.NextReceiptSeq(ctx, inv.SocietyID, money.FinancialYear(req.PaymentDate))
		if err != nil {
			return fmt.Errorf("allocate receipt number: %w", err)
		}

		pay = &models.Payment{
			SocietyID:     inv.SocietyID,
			InvoiceID:     inv.ID,
			ReceiptNumber: money.GenerateReceiptNumber(money.FinancialYear(req.PaymentDate), seq),
			Amount:        req.Amount,
			AppliedAmount: applied,
			AdvanceAmount: advance,
			PaymentDate:   req.PaymentDate,
			PaymentMethod: req.PaymentMethod,
			Status:        models.PaymentCaptured,
			ExternalRef:   req.ExternalRef,
			Notes:         req.Notes,
		}
		if err := s.deps.Payments.Create(ctx, pay); err != nil {
			return err
		}

		inv.PaidAmount = inv.PaidAmount.Add(req.Amount)
		inv.CreditAmount = inv.CreditAmount.Add(advance)
		inv.Recalculate(s.deps.Now())
		if err := s.deps.Invoices.UpdateBalances(ctx, inv); err != nil {
			return err
		}

		if _, err := s.deps.Ledger.Post(ctx, ledger.PaymentPosting(pay)); err != nil {
			return fmt.Errorf("post receipt %s: %w", pay.ReceiptNumber, err)
		}
		return nil
	})

	if models.IsDuplicate(err, models.DupExternalRef) {
		return nil, s.conflict(ctx, inv, req.ExternalRef)
	}
	if err != nil {
		return nil, err
	}

	metrics.PaymentsRecorded.WithLabelValues(string(pay.PaymentMethod)).Inc()
	s.log.Info().
		Int64("invoice_id", inv.ID).
		Str("receipt", pay.ReceiptNumber).
		Str("amount", pay.Amount.StringFixed(2)).
		Str("status", string(inv.Status)).
		Msg("payment recorded")

	s.deps.Events.Publish(ctx, events.Event{
		Type:      events.PaymentRecorded,
		SocietyID: pay.SocietyID,
		UnitID:    inv.UnitID,
		InvoiceID: inv.ID,
		PaymentID: pay.ID,
		Number:    pay.ReceiptNumber,
		Amount:    pay.Amount,
		At:        s.deps.Now(),
	})
	s.deps.Reports.InvalidateReports(ctx, pay.SocietyID)
	return pay, nil
}

// conflict loads the payment that won a race on the same external reference
func (s *PaymentService) conflict(ctx context.Context, inv *models.Invoice, ref string) error {
	if inv == nil {
		return &models.DuplicateError{Key: models.DupExternalRef, Value: ref}
	}
	existing, err := s.deps.Payments.GetByExternalRef(ctx, inv.SocietyID, ref)
	if err != nil {
		return fmt.Errorf("load payment %s: %w", ref, err)
	}
	return &models.IdempotencyConflict{ExternalRef: ref, Existing: existing}
}

// RefundPayment reverses a captured payment and reopens the invoice balance
func (s *PaymentService) RefundPayment(ctx context.Context, paymentID int64, refundDate time.Time) (*models.Payment, error) {
	if refundDate.IsZero() {
		refundDate = s.deps.Now()
	}
	refundDate = timeutil.DateOf(refundDate)

	var (
		pay *models.Payment
		inv *models.Invoice
	)
	err := s.deps.Tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		pay, err = s.deps.Payments.GetForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		switch pay.Status {
		case models.PaymentCaptured:
		case models.PaymentRefunded:
			return alreadyRefunded(pay)
		default:
			return models.NewValidationError("status", "only captured payments can be refunded, payment is %s", pay.Status)
		}

		inv, err = s.deps.Invoices.GetForUpdate(ctx, pay.InvoiceID)
		if err != nil {
			return err
		}
		if inv.CarriedForwardTo != nil {
			return models.NewValidationError("invoice_id", "invoice %s is carried forward to invoice %d", inv.InvoiceNumber, *inv.CarriedForwardTo)
		}

		if err := s.charts.ensure(ctx, inv.SocietyID); err != nil {
			return err
		}

		// The refund undoes whatever the invoice holds now. A later payment may
		// have turned part of this one into the member's advance.
		oldBalance, oldCredit := inv.BalanceDue, inv.CreditAmount
		inv.PaidAmount = money.NonNegative(inv.PaidAmount.Sub(pay.Amount))
		inv.Recalculate(refundDate)
		inv.CreditAmount = money.NonNegative(inv.PaidAmount.Sub(inv.TotalAmount))

		posting := ledger.RefundPosting(pay, inv.BalanceDue.Sub(oldBalance), oldCredit.Sub(inv.CreditAmount), refundDate)
		if _, err := s.deps.Ledger.Post(ctx, posting); err != nil {
			return fmt.Errorf("post refund: %w", err)
		}
		if err := s.deps.Invoices.UpdateBalances(ctx, inv); err != nil {
			return err
		}

		if err := s.deps.Payments.MarkRefunded(ctx, pay.ID, refundDate); err != nil {
			if errors.Is(err, models.ErrAlreadyRefunded) {
				return alreadyRefunded(pay)
			}
			return err
		}
		pay.Status = models.PaymentRefunded
		pay.RefundedAt = &refundDate
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RefundsTotal.Inc()
	s.log.Info().Int64("payment_id", pay.ID).Str("receipt", pay.ReceiptNumber).Msg("payment refunded")

	s.deps.Events.Publish(ctx, events.Event{
		Type:      events.PaymentRefunded,
		SocietyID: pay.SocietyID,
		UnitID:    inv.UnitID,
		InvoiceID: inv.ID,
		PaymentID: pay.ID,
		Number:    pay.ReceiptNumber,
		Amount:    pay.Amount,
		At:        s.deps.Now(),
	})
	s.deps.Reports.InvalidateReports(ctx, pay.SocietyID)
	return pay, nil
}

func alreadyRefunded(pay *models.Payment) error {
	return &models.ValidationError{
		Field:   "status",
		Message: fmt.Sprintf("payment %s is already refunded", pay.ReceiptNumber),
		Err:     models.ErrAlreadyRefunded,
	}
}

// RecordFailed stores a declined gateway attempt for audit. Nothing is posted
// and the invoice is untouched. A failed attempt never blocks a later capture
// of the same upstream payment.
func (s *PaymentService) RecordFailed(ctx context.Context, invoiceID int64, amount decimal.Decimal, externalRef, notes string) (*models.Payment, error) {
	inv, err := s.deps.Invoices.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if externalRef != "" {
		for _, lookup := range []func(context.Context, int64, string) (*models.Payment, error){
			s.deps.Payments.GetByExternalRef,
			s.deps.Payments.GetFailedByExternalRef,
		} {
			existing, err := lookup(ctx, inv.SocietyID, externalRef)
			if err == nil {
				return existing, nil
			}
			if !errors.Is(err, models.ErrNotFound) {
				return nil, err
			}
		}
	}

	pay := &models.Payment{
		SocietyID:     inv.SocietyID,
		InvoiceID:     inv.ID,
		Amount:        money.Round2(amount),
		PaymentDate:   timeutil.DateOf(s.deps.Now()),
		PaymentMethod: models.MethodRazorpay,
		Status:        models.PaymentFailed,
		ExternalRef:   externalRef,
		Notes:         notes,
	}
	if err := s.deps.Payments.Create(ctx, pay); err != nil {
		if models.IsDuplicate(err, models.DupExternalRef) {
			return s.deps.Payments.GetFailedByExternalRef(ctx, inv.SocietyID, externalRef)
		}
		return nil, err
	}

	s.deps.Events.Publish(ctx, events.Event{
		Type:      events.PaymentFailed,
		SocietyID: pay.SocietyID,
		UnitID:    inv.UnitID,
		InvoiceID: inv.ID,
		PaymentID: pay.ID,
		Amount:    pay.Amount,
		At:        s.deps.Now(),
	})
	return pay, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	return s.deps.Payments.Get(ctx, id)
}

func (s *PaymentService) GetByReceiptNumber(ctx context.Context, societyID int64, number string) (*models.Payment, error) {
	return s.deps.Payments.GetByReceiptNumber(ctx, societyID, number)
}

func (s *PaymentService) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error) {
	return s.deps.Payments.List(ctx, filter)
}
