package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"society-billing/internal/app"
	"society-billing/internal/auth"
	"society-billing/internal/config"
	"society-billing/internal/handlers"
	"society-billing/internal/health"
	h "society-billing/internal/http"
	"society-billing/internal/logger"
	"society-billing/internal/middleware"
	"society-billing/internal/services"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if err := logger.Setup(logger.LogConfig{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: time.RFC3339,
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	l := logger.WithComponent("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		l.Fatal().Err(err).Msg("startup failed")
	}
	defer a.Close()

	applied, err := a.Migrate(ctx)
	if err != nil {
		l.Fatal().Err(err).Msg("migrations failed")
	}
	l.Info().Int("applied", applied).Msg("migrations complete")

	if interval := cfg.OverdueSweepInterval(); interval > 0 {
		sweeper := services.NewOverdueSweeper(a.Invoices, a.Master, interval)
		sweeper.Start()
		defer sweeper.Stop()
	}

	authMiddleware := middleware.NewAuthMiddleware(auth.NewJWTManager(cfg))
	router := h.NewRouter(
		handlers.NewInvoiceHandler(a.Invoices, a.Gateway),
		handlers.NewPaymentHandler(a.Payments, a.Invoices),
		handlers.NewReportHandler(a.Reports),
		handlers.NewRazorpayHandler(a.Gateway),
		handlers.NewHealthHandler(health.NewHealthChecker(a.Pool)),
		authMiddleware,
	)

	// Outermost first: CORS, request logging, panic recovery
	handler := middleware.NewCORS(cfg)(middleware.RequestLogger(middleware.PanicRecovery(router)))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		l.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	l.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("graceful shutdown failed")
	}
}
