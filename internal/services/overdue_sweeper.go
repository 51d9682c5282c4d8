package services

import (
	"context"
	"sync"
	"time"

	"society-billing/internal/logger"
	"society-billing/internal/timeutil"

	"github.com/rs/zerolog"
)

const defaultSweepInterval = time.Hour

// SocietyLister enumerates the societies a background job should visit
type SocietyLister interface {
	ListSocietyIDs(ctx context.Context) ([]int64, error)
}

// OverdueSweeper periodically moves unpaid invoices past their due date to
// overdue for every society, so reports and member views do not depend on
// someone calling refresh-overdue by hand.
type OverdueSweeper struct {
	invoices  *InvoiceService
	societies SocietyLister
	interval  time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	log       zerolog.Logger
}

func NewOverdueSweeper(invoices *InvoiceService, societies SocietyLister, interval time.Duration) *OverdueSweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &OverdueSweeper{
		invoices:  invoices,
		societies: societies,
		interval:  interval,
		now:       invoices.deps.Now,
		stopChan:  make(chan struct{}),
		log:       logger.WithComponent("overdue-sweeper"),
	}
}

// Start sweeps once immediately, then every interval until Stop
func (s *OverdueSweeper) Start() {
	s.log.Info().Dur("interval", s.interval).Msg("starting overdue sweeper")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.SweepOnce(context.Background())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.SweepOnce(context.Background())
			case <-s.stopChan:
				s.log.Info().Msg("stopping overdue sweeper")
				return
			}
		}
	}()
}

// Stop ends the loop and waits for a sweep in progress
func (s *OverdueSweeper) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

// SweepOnce refreshes every society and returns how many invoices changed.
// A failing society is logged and skipped.
func (s *OverdueSweeper) SweepOnce(ctx context.Context) int64 {
	ids, err := s.societies.ListSocietyIDs(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list societies")
		return 0
	}

	asOf := timeutil.DateOf(s.now())
	var total int64
	for _, id := range ids {
		n, err := s.invoices.RefreshOverdue(ctx, id, asOf)
		if err != nil {
			s.log.Error().Err(err).Int64("society_id", id).Msg("overdue refresh failed")
			continue
		}
		total += n
	}
	if total > 0 {
		s.log.Info().Int64("updated", total).Int("societies", len(ids)).Msg("overdue sweep complete")
	}
	return total
}
