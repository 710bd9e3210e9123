package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/waterwatch/lifedrop/pkg/core/services"
	"github.com/waterwatch/lifedrop/pkg/db"
)

// Sweeper periodically removes expired alerts so the store does not rely on reads to reap them
type Sweeper struct {
	cron   *cron.Cron
	store  db.AlertStore
	logger *zap.Logger
	now    func() time.Time
}

// NewSweeper schedules an expiry sweep on a standard five-field cron expression
func NewSweeper(store db.AlertStore, logger *zap.Logger, schedule string) (*Sweeper, error) {
	s := &Sweeper{
		cron:   cron.New(),
		store:  store,
		logger: logger,
		now:    time.Now,
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.Sweep(context.Background()) }); err != nil {
		return nil, fmt.Errorf("failed to schedule expiry sweep %q: %w", schedule, err)
	}

	return s, nil
}

// Sweep runs one purge immediately and returns the number of alerts removed
func (s *Sweeper) Sweep(ctx context.Context) int {
	removed, err := services.PurgeExpiredAlerts(ctx, s.store, s.logger, s.now())
	if err != nil {
		s.logger.Error("Expiry sweep failed", zap.Error(err))
		return 0
	}
	if removed > 0 {
		s.logger.Info("Expiry sweep removed alerts", zap.Int("count", removed))
	}
	return removed
}

// Start begins running the schedule in the background
func (s *Sweeper) Start() {
	s.logger.Info("Starting expiry sweeper")
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to end
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
