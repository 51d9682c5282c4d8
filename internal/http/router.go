package http

import (
	"net/http"

	"society-billing/internal/auth"
	"society-billing/internal/handlers"
	"society-billing/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	invoiceHandler *handlers.InvoiceHandler,
	paymentHandler *handlers.PaymentHandler,
	reportHandler *handlers.ReportHandler,
	razorpayHandler *handlers.RazorpayHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware)

	// guarded wraps a handler with the capability check for its route
	guarded := func(capability string, h http.HandlerFunc) http.Handler {
		return authMiddleware.RequireCapability(capability)(h)
	}

	// Society-scoped API; the token's society must match {societyID}
	api := r.PathPrefix("/api/societies/{societyID:[0-9]+}").Subrouter()
	api.Use(authMiddleware.Authenticate)

	// Billing runs
	api.Handle("/billing/generate", guarded(auth.CapBillingGenerate, invoiceHandler.Generate)).Methods("POST")
	api.Handle("/billing/refresh-overdue", guarded(auth.CapBillingGenerate, invoiceHandler.RefreshOverdue)).Methods("POST")

	// Invoices (bulk-pdf registered before {id})
	api.Handle("/invoices", guarded(auth.CapReportsView, invoiceHandler.ListInvoices)).Methods("GET")
	api.Handle("/invoices/bulk-pdf", guarded(auth.CapReportsView, invoiceHandler.DownloadBulkPDF)).Methods("GET")
	api.Handle("/invoices/{id:[0-9]+}", guarded(auth.CapReportsView, invoiceHandler.GetInvoice)).Methods("GET")
	api.Handle("/invoices/{id:[0-9]+}/pdf", guarded(auth.CapReportsView, invoiceHandler.DownloadPDF)).Methods("GET")
	api.Handle("/invoices/{id:[0-9]+}/cancel", guarded(auth.CapBillingGenerate, invoiceHandler.CancelInvoice)).Methods("POST")
	api.Handle("/invoices/{id:[0-9]+}/online-order", guarded(auth.CapPaymentsRecord, invoiceHandler.CreateOnlineOrder)).Methods("POST")

	// Payments
	api.Handle("/payments", guarded(auth.CapPaymentsRecord, paymentHandler.RecordPayment)).Methods("POST")
	api.Handle("/payments", guarded(auth.CapReportsView, paymentHandler.ListPayments)).Methods("GET")
	api.Handle("/payments/{id:[0-9]+}/refund", guarded(auth.CapPaymentsRefund, paymentHandler.RefundPayment)).Methods("POST")

	// Reports
	api.Handle("/reports/aging", guarded(auth.CapReportsView, reportHandler.Aging)).Methods("GET")
	api.Handle("/reports/defaulters", guarded(auth.CapReportsView, reportHandler.Defaulters)).Methods("GET")
	api.Handle("/reports/collections", guarded(auth.CapReportsView, reportHandler.Collections)).Methods("GET")
	api.Handle("/reports/income-expense", guarded(auth.CapReportsView, reportHandler.IncomeExpense)).Methods("GET")
	api.Handle("/reports/fund-position", guarded(auth.CapReportsView, reportHandler.FundPosition)).Methods("GET")

	// Gateway webhook, authenticated by signature
	r.HandleFunc("/api/payments/razorpay/webhook", razorpayHandler.HandleWebhook).Methods("POST")

	// Health check endpoints (no auth required)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	return r
}
