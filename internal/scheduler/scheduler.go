package scheduler

import (
	"context"
	"fmt"
	"time"

	"waffle-pos-backend/internal/logger"
	"waffle-pos-backend/internal/metrics"
	"waffle-pos-backend/internal/models"

	"github.com/robfig/cron/v3"
)

// StaleShiftFinder lists open shifts opened more than `after` ago.
type StaleShiftFinder interface {
	StaleOpenShifts(ctx context.Context, after time.Duration) ([]models.Shift, error)
}

// Scheduler runs the periodic ledger jobs.
type Scheduler struct {
	cron   *cron.Cron
	finder StaleShiftFinder
	after  time.Duration
}

// NewScheduler registers the stale-shift sweep on a seconds-precision cron
// spec evaluated in UTC.
func NewScheduler(finder StaleShiftFinder, after time.Duration, spec string) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron:   c,
		finder: finder,
		after:  after,
	}

	if _, err := s.cron.AddFunc(spec, s.runSweep); err != nil {
		return nil, fmt.Errorf("register stale shift sweep %q: %w", spec, err)
	}
	logger.Info("cron jobs registered", "stale_shift_schedule", spec, "stale_after", after.String())
	return s, nil
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := s.SweepStaleShifts(ctx); err != nil {
		logger.Error("stale shift sweep failed", "error", err)
	}
}

// SweepStaleShifts warns about every stale open shift and publishes the
// count. It returns the number found.
func (s *Scheduler) SweepStaleShifts(ctx context.Context) (int, error) {
	stale, err := s.finder.StaleOpenShifts(ctx, s.after)
	if err != nil {
		return 0, err
	}

	for _, shift := range stale {
		logger.Warn("shift left open past threshold",
			"shift_id", shift.ID,
			"cashier_id", shift.CashierID,
			"opened_at", shift.OpenedAt,
			"open_for", time.Since(shift.OpenedAt).Round(time.Minute).String(),
		)
	}
	metrics.StaleOpenShifts.Set(float64(len(stale)))
	return len(stale), nil
}

func (s *Scheduler) Start() {
	logger.Info("starting cron scheduler")
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("cron scheduler stopped")
}
