package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"society-billing/internal/cache"
	"society-billing/internal/events"
	"society-billing/internal/ledger"
	"society-billing/internal/models"
	"society-billing/internal/timeutil"
)

// Deps bundles the stores and collaborators shared by the billing services
type Deps struct {
	Tx        TxRunner
	Invoices  InvoiceStore
	Ledger    LedgerStore
	Payments  PaymentStore
	Sequences SequenceStore
	Orders    OrderStore
	Master    MasterData
	Locker    Locker
	Events    events.Publisher
	Reports   ReportCache
	Now       func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Locker == nil {
		d.Locker = cache.NewRunLock()
	}
	if d.Reports == nil {
		d.Reports = cache.ReportInvalidator{}
	}
	if d.Now == nil {
		d.Now = timeutil.Now
	}
	return d
}

// chartGuard creates a society's standard accounts the first time it is billed
type chartGuard struct {
	ledger LedgerStore
	done   sync.Map
}

func (g *chartGuard) ensure(ctx context.Context, societyID int64) error {
	if _, ok := g.done.Load(societyID); ok {
		return nil
	}
	if err := g.ledger.EnsureChart(ctx, societyID, ledger.DefaultChart(societyID)); err != nil {
		return fmt.Errorf("ensure chart of accounts: %w", err)
	}
	g.done.Store(societyID, struct{}{})
	return nil
}

// loadSettings reads society settings through the Redis cache
func loadSettings(ctx context.Context, master MasterData, societyID int64, ttl time.Duration) (*models.SocietySettings, error) {
	key := cache.SocietySettingsKey(societyID)

	var settings models.SocietySettings
	if cache.GetJSON(ctx, key, &settings) {
		return &settings, nil
	}

	s, err := master.GetSociety(ctx, societyID)
	if err != nil {
		return nil, fmt.Errorf("load society %d: %w", societyID, err)
	}
	cache.SetJSON(ctx, key, s, ttl)
	return s, nil
}
