package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"society-billing/internal/logger"
	"society-billing/internal/services"
	"society-billing/pkg/utils"
)

const maxWebhookBody = 1 << 20

type RazorpayHandler struct {
	Service *services.RazorpayService
}

func NewRazorpayHandler(service *services.RazorpayService) *RazorpayHandler {
	return &RazorpayHandler{Service: service}
}

// HandleWebhook processes Razorpay webhook events. Once the signature checks
// out the answer is always 200; processing errors are logged, not retried.
// POST /api/payments/razorpay/webhook
func (h *RazorpayHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context()).With().Str("component", "razorpay").Logger()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		log.Warn().Err(err).Msg("failed to read webhook body")
		utils.Error(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	signature := r.Header.Get("X-Razorpay-Signature")
	if !h.Service.VerifyWebhookSignature(body, signature) {
		log.Warn().Msg("invalid webhook signature")
		utils.Error(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var envelope struct {
		Event   string                 `json:"event"`
		Payload map[string]interface{} `json:"payload"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		log.Warn().Err(err).Msg("failed to parse webhook")
		utils.Error(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	log.Info().Str("event", envelope.Event).Msg("received webhook")
	if err := h.Service.ProcessWebhook(r.Context(), envelope.Event, envelope.Payload); err != nil {
		log.Error().Err(err).Str("event", envelope.Event).Msg("webhook processing error")
	}

	utils.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
