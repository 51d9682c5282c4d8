package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"society-billing/internal/cache"
	"society-billing/internal/events"
	"society-billing/internal/models"
)

// Master serves society settings and billable units from memory
type Master struct {
	mu        sync.Mutex
	societies map[int64]models.SocietySettings
	units     map[int64][]models.BillableUnit
}

func NewMaster() *Master {
	return &Master{
		societies: make(map[int64]models.SocietySettings),
		units:     make(map[int64][]models.BillableUnit),
	}
}

func (m *Master) AddSociety(s models.SocietySettings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.societies[s.ID] = s
}

func (m *Master) AddUnit(societyID int64, u models.BillableUnit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units[societyID] = append(m.units[societyID], u)
}

func (m *Master) GetSociety(_ context.Context, societyID int64) (*models.SocietySettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.societies[societyID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &s, nil
}

func (m *Master) ListSocietyIDs(_ context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.societies))
	for id := range m.societies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Master) GetBillableUnits(_ context.Context, societyID int64, _ models.Period) ([]models.BillableUnit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.BillableUnit(nil), m.units[societyID]...), nil
}

// Locker is an in-process run lock
type Locker struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewLocker() *Locker {
	return &Locker{held: make(map[string]bool)}
}

func (l *Locker) Obtain(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, cache.ErrLocked
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}

// Recorder keeps every published event
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *Recorder) Publish(_ context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Types lists the published event types in order
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// ReportCache counts report invalidations per society
type ReportCache struct {
	mu    sync.Mutex
	drops map[int64]int
}

func (c *ReportCache) InvalidateReports(_ context.Context, societyID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.drops == nil {
		c.drops = make(map[int64]int)
	}
	c.drops[societyID]++
}

// Invalidations reports how often a society's reports were dropped
func (c *ReportCache) Invalidations(societyID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drops[societyID]
}
