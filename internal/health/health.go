package health

import (
	"context"
	"time"

	"society-billing/internal/cache"
)

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	db Pinger
}

type HealthStatus struct {
	Status   string         `json:"status"`
	Database DatabaseHealth `json:"database"`
	Redis    string         `json:"redis"`
}

type DatabaseHealth struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"response_time_ms"`
}

func NewHealthChecker(db Pinger) *HealthChecker {
	return &HealthChecker{db: db}
}

// CheckBasic reports unhealthy only when the database is down. Redis is
// optional; without it settings are read uncached and runs lock in-process.
func (h *HealthChecker) CheckBasic(ctx context.Context) HealthStatus {
	dbHealth := h.checkDatabase(ctx)

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	}

	redisStatus := "disabled"
	if cache.GetClient() != nil {
		redisStatus = "unhealthy"
		if cache.IsHealthy() {
			redisStatus = "healthy"
		}
	}

	return HealthStatus{
		Status:   status,
		Database: dbHealth,
		Redis:    redisStatus,
	}
}

func (h *HealthChecker) checkDatabase(ctx context.Context) DatabaseHealth {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return DatabaseHealth{
			Status:       "unhealthy",
			ResponseTime: responseTime,
		}
	}

	return DatabaseHealth{
		Status:       "healthy",
		ResponseTime: responseTime,
	}
}
