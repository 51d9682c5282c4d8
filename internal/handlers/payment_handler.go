package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"society-billing/internal/models"
	"society-billing/internal/services"
	"society-billing/internal/timeutil"
	"society-billing/pkg/utils"

	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	Service  *services.PaymentService
	Invoices *services.InvoiceService
}

func NewPaymentHandler(s *services.PaymentService, invoices *services.InvoiceService) *PaymentHandler {
	return &PaymentHandler{Service: s, Invoices: invoices}
}

type recordPaymentRequest struct {
	InvoiceID     int64                `json:"invoice_id"`
	Amount        decimal.Decimal      `json:"amount"`
	PaymentDate   string               `json:"payment_date"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	ExternalRef   string               `json:"external_ref"`
	Notes         string               `json:"notes"`
}

// RecordPayment applies an offline payment against an invoice.
// A repeated external_ref answers 200 with the payment already stored.
// POST /api/societies/{societyID}/payments
func (h *PaymentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	societyID, err := societyIDParam(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	date, err := parseDate("payment_date", req.PaymentDate, timeutil.Today())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	inv, err := h.Invoices.GetInvoice(r.Context(), req.InvoiceID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if inv.SocietyID != societyID {
		writeServiceError(w, r, models.ErrNotFound)
		return
	}

	payment, err := h.Service.RecordPayment(r.Context(), models.RecordPaymentRequest{
		InvoiceID:     req.InvoiceID,
		Amount:        req.Amount,
		PaymentDate:   date,
		PaymentMethod: req.PaymentMethod,
		ExternalRef:   req.ExternalRef,
		Notes:         req.Notes,
	})
	var conflict *models.IdempotencyConflict
	if errors.As(err, &conflict) {
		utils.JSON(w, http.StatusOK, conflict.Existing)
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, payment)
}

// ListPayments filters by invoice, status, method and date range
// GET /api/societies/{societyID}/payments
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	societyID, err := societyIDParam(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	q := r.URL.Query()
	filter := models.PaymentFilter{
		SocietyID: societyID,
		Status:    models.PaymentStatus(q.Get("status")),
		Method:    models.PaymentMethod(q.Get("method")),
	}
	invoiceID, err := intQuery(r, "invoice_id", 0)
	if err == nil {
		filter.InvoiceID = int64(invoiceID)
		filter.Limit, err = intQuery(r, "limit", 0)
	}
	if err == nil {
		filter.Offset, err = intQuery(r, "offset", 0)
	}
	if err == nil {
		filter.From, err = dateQuery(r, "from", filter.From)
	}
	if err == nil {
		filter.To, err = dateQuery(r, "to", filter.To)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	payments, err := h.Service.ListPayments(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	utils.JSON(w, http.StatusOK, payments)
}

type refundRequest struct {
	RefundDate string `json:"refund_date"`
}

// RefundPayment reverses a captured payment
// POST /api/societies/{societyID}/payments/{id}/refund
func (h *PaymentHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	societyID, err := societyIDParam(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	id, err := idVar(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req refundRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	date, err := parseDate("refund_date", req.RefundDate, timeutil.Today())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	existing, err := h.Service.GetPayment(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if existing.SocietyID != societyID {
		writeServiceError(w, r, models.ErrNotFound)
		return
	}

	refunded, err := h.Service.RefundPayment(r.Context(), id, date)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, refunded)
}
