package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"society-billing/internal/models"
	"society-billing/internal/reports"
	"society-billing/internal/services"
	"society-billing/internal/timeutil"
	"society-billing/pkg/utils"
)

const (
	contentTypeCSV  = "text/csv"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(s *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: s}
}

// asOfParams reads {societyID} and ?as_of= (default today)
func asOfParams(r *http.Request) (int64, time.Time, error) {
	societyID, err := societyIDParam(r)
	if err != nil {
		return 0, time.Time{}, err
	}
	asOf, err := dateQuery(r, "as_of", timeutil.Today())
	return societyID, asOf, err
}

// rangeParams reads {societyID}, ?from= (default first of this month) and ?to= (default today)
func rangeParams(r *http.Request) (int64, time.Time, time.Time, error) {
	societyID, err := societyIDParam(r)
	if err != nil {
		return 0, time.Time{}, time.Time{}, err
	}
	today := timeutil.Today()
	from, err := dateQuery(r, "from", timeutil.FirstOfMonth(today.Year(), int(today.Month())))
	if err != nil {
		return 0, time.Time{}, time.Time{}, err
	}
	to, err := dateQuery(r, "to", today)
	return societyID, from, to, err
}

// Aging returns receivables by days past due; ?format=xlsx downloads a workbook
// GET /api/societies/{societyID}/reports/aging
func (h *ReportHandler) Aging(w http.ResponseWriter, r *http.Request) {
	societyID, asOf, err := asOfParams(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	report, err := h.Service.Aging(r.Context(), societyID, asOf)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "xlsx" {
		var buf bytes.Buffer
		if err := reports.WriteAgingXLSX(&buf, *report); err != nil {
			writeServiceError(w, r, err)
			return
		}
		utils.Attachment(w, contentTypeXLSX, fmt.Sprintf("aging-%s.xlsx", asOf.Format(timeutil.DateLayout)), buf.Bytes())
		return
	}
	utils.JSON(w, http.StatusOK, report)
}

// Defaulters lists units overdue by at least ?min_days= (default 1); ?format=csv downloads
// GET /api/societies/{societyID}/reports/defaulters
func (h *ReportHandler) Defaulters(w http.ResponseWriter, r *http.Request) {
	societyID, asOf, err := asOfParams(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	minDays, err := intQuery(r, "min_days", 1)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	rows, err := h.Service.Defaulters(r.Context(), societyID, asOf, minDays)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		var buf bytes.Buffer
		if err := reports.WriteDefaultersCSV(&buf, rows); err != nil {
			writeServiceError(w, r, err)
			return
		}
		utils.Attachment(w, contentTypeCSV, fmt.Sprintf("defaulters-%s.csv", asOf.Format(timeutil.DateLayout)), buf.Bytes())
		return
	}
	if rows == nil {
		rows = []models.Defaulter{}
	}
	utils.JSON(w, http.StatusOK, rows)
}

// Collections totals captured payments by method; ?format=xlsx downloads a workbook
// GET /api/societies/{societyID}/reports/collections
func (h *ReportHandler) Collections(w http.ResponseWriter, r *http.Request) {
	societyID, from, to, err := rangeParams(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	summary, err := h.Service.Collections(r.Context(), societyID, from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if r.URL.Query().Get("format") == "xlsx" {
		var buf bytes.Buffer
		if err := reports.WriteCollectionsXLSX(&buf, *summary); err != nil {
			writeServiceError(w, r, err)
			return
		}
		name := fmt.Sprintf("collections-%s-to-%s.xlsx", from.Format(timeutil.DateLayout), to.Format(timeutil.DateLayout))
		utils.Attachment(w, contentTypeXLSX, name, buf.Bytes())
		return
	}
	utils.JSON(w, http.StatusOK, summary)
}

// IncomeExpense returns the income and expenditure statement for ?from=&to=
// GET /api/societies/{societyID}/reports/income-expense
func (h *ReportHandler) IncomeExpense(w http.ResponseWriter, r *http.Request) {
	societyID, from, to, err := rangeParams(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	st, err := h.Service.IncomeExpense(r.Context(), societyID, from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, st)
}

// FundPosition returns the balance sheet as of ?as_of=
// GET /api/societies/{societyID}/reports/fund-position
func (h *ReportHandler) FundPosition(w http.ResponseWriter, r *http.Request) {
	societyID, asOf, err := asOfParams(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	fp, err := h.Service.FundPosition(r.Context(), societyID, asOf)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, fp)
}
