package classify

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"dbfleet/internal/domain"
)

// Scheduler runs classification passes on a cron schedule, one pass per
// engine type per tick. A pass still running when the next tick fires is
// skipped by the per-engine run lock rather than queued.
type Scheduler struct {
	cron   *cron.Cron
	svc    *Service
	logger *slog.Logger
}

// NewScheduler creates a pass scheduler.
func NewScheduler(svc *Service, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		svc:    svc,
		logger: logger.With("component", "scheduler"),
	}
}

// Start registers the schedule and starts the cron loop. An empty schedule
// is a no-op.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		return nil
	}
	_, err := s.cron.AddFunc(schedule, func() {
		ctx := context.Background()
		for _, dbType := range []string{
			domain.DBTypeMySQL, domain.DBTypePostgreSQL,
			domain.DBTypeSQLServer, domain.DBTypeOracle,
		} {
			if _, err := s.svc.RunPass(ctx, dbType); err != nil {
				s.logger.Warn("scheduled pass failed", "db_type", dbType, "error", err)
			}
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("classification scheduler started", "schedule", schedule)
	return nil
}

// Stop gracefully stops the cron loop.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("classification scheduler stopped")
}
