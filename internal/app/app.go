// Package app wires configuration, Postgres, Redis and the billing services
// together for the server and the CLI.
package app

import (
	"context"
	"fmt"

	"society-billing/internal/cache"
	"society-billing/internal/config"
	"society-billing/internal/database"
	"society-billing/internal/db"
	"society-billing/internal/events"
	"society-billing/internal/logger"
	"society-billing/internal/repositories"
	"society-billing/internal/services"
	"society-billing/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/razorpay/razorpay-go"
)

type App struct {
	Config   *config.Config
	Pool     *pgxpool.Pool
	Master   *repositories.MasterDataRepository
	Invoices *services.InvoiceService
	Payments *services.PaymentService
	Reports  *services.ReportService
	Gateway  *services.RazorpayService
}

// Open connects to the database and Redis and builds the services.
// Redis is optional; without it settings are not cached and generation
// runs are not locked across processes.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.WithComponent("app")

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Redis.Enabled {
		if err := cache.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, continuing without cache")
		} else {
			log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
		}
	}

	master := repositories.NewMasterDataRepository(pool)
	deps := services.Deps{
		Tx:        repositories.NewTxManager(pool),
		Invoices:  repositories.NewInvoiceRepository(pool),
		Ledger:    repositories.NewLedgerRepository(pool),
		Payments:  repositories.NewPaymentRepository(pool),
		Sequences: repositories.NewSequenceRepository(pool),
		Orders:    repositories.NewOnlineOrderRepository(pool),
		Master:    master,
		Locker:    cache.NewRunLock(),
		Events:    events.New(cache.GetClient()),
	}

	invoices := services.NewInvoiceService(deps, services.InvoiceOptions{
		Workers:          cfg.Billing.Workers,
		RunLockTTL:       cfg.RunLockTTL(),
		SettingsCacheTTL: cfg.SettingsCacheTTL(),
		DefaultDueDay:    cfg.Billing.DefaultDueDay,
	})
	payments := services.NewPaymentService(deps)

	var orders services.OrderCreator
	if cfg.Razorpay.KeyID != "" && cfg.Razorpay.KeySecret != "" {
		orders = razorpay.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret).Order
	} else {
		log.Warn().Msg("razorpay keys not set, online orders disabled")
	}

	return &App{
		Config:   cfg,
		Pool:     pool,
		Master:   master,
		Invoices: invoices,
		Payments: payments,
		Reports:  services.NewReportService(deps),
		Gateway:  services.NewRazorpayService(deps, payments, orders, cfg.Razorpay.KeyID, cfg.Razorpay.WebhookSecret),
	}, nil
}

// Migrate applies pending schema migrations
func (a *App) Migrate(ctx context.Context) (int, error) {
	n, err := database.NewMigrator(a.Pool, migrations.FS).RunMigrations(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrations: %w", err)
	}
	return n, nil
}

func (a *App) Close() {
	cache.Close()
	a.Pool.Close()
}
