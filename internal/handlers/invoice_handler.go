package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"society-billing/internal/models"
	"society-billing/internal/services"
	"society-billing/internal/timeutil"
	"society-billing/pkg/utils"
)

type InvoiceHandler struct {
	Service *services.InvoiceService
	Gateway *services.RazorpayService
}

func NewInvoiceHandler(s *services.InvoiceService, gateway *services.RazorpayService) *InvoiceHandler {
	return &InvoiceHandler{Service: s, Gateway: gateway}
}

type generateRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// Generate runs monthly billing for the society
// POST /api/societies/{societyID}/billing/generate
func (h *InvoiceHandler) Generate(w http.ResponseWriter, r *http.Request) {
	societyID, err := societyIDParam(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.Service.GenerateMonthlyInvoices(r.Context(), societyID, req.Month, req.Year)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, result)
}

type refreshRequest struct {
	AsOf string `json:"as_of"`
}

// RefreshOverdue flips unpaid invoices past their due date to overdue
// POST /api/societies/{societyID}/billing/refresh-overdue
func (h *InvoiceHandler) RefreshOverdue(w http.ResponseWriter, r *http.Request) {
	societyID, err := societyIDParam(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req refreshRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	asOf, err := parseDate("as_of", req.AsOf, timeutil.Today())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	n, err := h.Service.RefreshOverdue(r.Context(), societyID, asOf)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// ListInvoices filters by unit, month, year, status or open=true
// GET /api/societies/{societyID}/invoices
func (h *InvoiceHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	societyID, err := societyIDParam(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	filter := models.InvoiceFilter{
		SocietyID: societyID,
		Status:    models.InvoiceStatus(r.URL.Query().Get("status")),
		OpenOnly:  r.URL.Query().Get("open") == "true",
	}
	var unitID int
	for name, dst := range map[string]*int{
		"unit_id": &unitID,
		"month":   &filter.BillingMonth,
		"year":    &filter.BillingYear,
		"limit":   &filter.Limit,
		"offset":  &filter.Offset,
	} {
		if *dst, err = intQuery(r, name, 0); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	filter.UnitID = int64(unitID)

	invoices, err := h.Service.ListInvoices(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if invoices == nil {
		invoices = []*models.Invoice{}
	}
	utils.JSON(w, http.StatusOK, invoices)
}

// invoiceInSociety loads {id} and hides invoices of other societies
func (h *InvoiceHandler) invoiceInSociety(r *http.Request) (*models.Invoice, error) {
	societyID, err := societyIDParam(r)
	if err != nil {
		return nil, err
	}
	id, err := idVar(r, "id")
	if err != nil {
		return nil, err
	}
	inv, err := h.Service.GetInvoice(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if inv.SocietyID != societyID {
		return nil, models.ErrNotFound
	}
	return inv, nil
}

// GetInvoice retrieves an invoice by ID
// GET /api/societies/{societyID}/invoices/{id}
func (h *InvoiceHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoiceInSociety(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, inv)
}

// DownloadPDF renders one invoice
// GET /api/societies/{societyID}/invoices/{id}/pdf
func (h *InvoiceHandler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoiceInSociety(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	doc, err := h.Service.Document(r.Context(), inv.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	data, err := services.RenderInvoicePDF(doc)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.Attachment(w, "application/pdf", inv.InvoiceNumber+".pdf", data)
}

// DownloadBulkPDF zips every invoice of ?month=&year=
// GET /api/societies/{societyID}/invoices/bulk-pdf
func (h *InvoiceHandler) DownloadBulkPDF(w http.ResponseWriter, r *http.Request) {
	societyID, err := societyIDParam(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	month, err := intQuery(r, "month", 0)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	year, err := intQuery(r, "year", 0)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := services.ValidatePeriod(month, year); err != nil {
		writeServiceError(w, r, err)
		return
	}

	data, n, err := h.Service.BulkPDFZip(r.Context(), societyID, models.Period{Month: month, Year: year})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if n == 0 {
		utils.Error(w, http.StatusNotFound, "no invoices for this period")
		return
	}
	utils.Attachment(w, "application/zip", fmt.Sprintf("invoices-%d-%02d.zip", year, month), data)
}

// CancelInvoice voids an unpaid invoice and reverses its posting
// POST /api/societies/{societyID}/invoices/{id}/cancel
func (h *InvoiceHandler) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoiceInSociety(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	cancelled, err := h.Service.CancelInvoice(r.Context(), inv.ID, timeutil.Today())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, cancelled)
}

// CreateOnlineOrder opens a Razorpay checkout for the balance due
// POST /api/societies/{societyID}/invoices/{id}/online-order
func (h *InvoiceHandler) CreateOnlineOrder(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoiceInSociety(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if h.Gateway == nil {
		utils.Error(w, http.StatusServiceUnavailable, "online payments are not configured")
		return
	}
	order, err := h.Gateway.CreateOrder(r.Context(), inv.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, order)
}
