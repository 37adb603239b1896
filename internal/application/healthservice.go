package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericfisherdev/passworder/internal/domain/port/driven"
)

// Health status values reported by HealthService.
const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
)

// healthPingTimeout bounds how long a health probe waits on the store.
const healthPingTimeout = 2 * time.Second

// HealthReport is the result of a health probe.
type HealthReport struct {
	Status string
	Time   time.Time
}

// Healthy reports whether every dependency answered.
func (r HealthReport) Healthy() bool {
	return r.Status == HealthStatusOK
}

// HealthService probes the storage backend for liveness. It depends only on
// port interfaces.
type HealthService struct {
	store  driven.HealthChecker
	now    func() time.Time
	logger *slog.Logger
}

// NewHealthService creates a new HealthService with the required dependencies.
func NewHealthService(store driven.HealthChecker, logger *slog.Logger) *HealthService {
	return &HealthService{
		store:  store,
		now:    time.Now,
		logger: logger,
	}
}

// Check pings the store and reports ok or degraded. Store errors are logged,
// not returned, so callers can always render a report.
func (s *HealthService) Check(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()

	report := HealthReport{Status: HealthStatusOK, Time: s.now().UTC()}
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		report.Status = HealthStatusDegraded
	}
	return report
}
