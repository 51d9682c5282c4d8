package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"society-billing/internal/ledger"
	"society-billing/internal/logger"
	"society-billing/internal/models"
	"society-billing/internal/timeutil"
	"society-billing/pkg/utils"

	"github.com/gorilla/mux"
)

// writeServiceError maps engine errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr      *models.ValidationError
		dup       *models.DuplicateError
		imbalance *ledger.ImbalancedPostingError
	)
	switch {
	case errors.As(err, &verr):
		utils.Error(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, models.ErrNotFound):
		utils.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, models.ErrGenerationInProgress):
		utils.Error(w, http.StatusConflict, err.Error())
	case errors.As(err, &dup):
		utils.Error(w, http.StatusConflict, dup.Error())
	case errors.As(err, &imbalance):
		logger.FromContext(r.Context()).Error().Err(err).Msg("unbalanced posting rejected")
		utils.Error(w, http.StatusInternalServerError, "Internal server error")
	default:
		logger.FromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		utils.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}

func societyIDParam(r *http.Request) (int64, error) {
	return idVar(r, "societyID")
}

func idVar(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

// dateQuery reads a YYYY-MM-DD query parameter, falling back to def when absent
func dateQuery(r *http.Request, name string, def time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	d, err := timeutil.ParseDate(raw)
	if err != nil {
		return time.Time{}, models.NewValidationError(name, "expected YYYY-MM-DD")
	}
	return d, nil
}

// intQuery reads an integer query parameter, falling back to def when absent
func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.NewValidationError(name, "must be an integer")
	}
	return n, nil
}

// parseDate reads an optional YYYY-MM-DD body field
func parseDate(field, raw string, def time.Time) (time.Time, error) {
	if raw == "" {
		return def, nil
	}
	d, err := timeutil.ParseDate(raw)
	if err != nil {
		return time.Time{}, models.NewValidationError(field, "expected YYYY-MM-DD")
	}
	return d, nil
}
