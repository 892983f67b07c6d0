// Package jobs runs the minute-interval notification scans: upcoming-meeting
// reminders and scheduled-followup reminders, each iterating every active
// tenant through the tenant connection manager.
package jobs

import (
	"context"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// everyMinute is the fixed notification schedule.
const everyMinute = "* * * * *"

// Scan is one notification sweep across all tenants. Run reports a top-level
// failure; per-tenant failures are handled inside the scan.
type Scan interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler triggers every registered scan once per minute. Failures are
// fire-and-forget: a scan that errors or panics is logged and the remaining
// scans, and all future ticks, still run.
type Scheduler struct {
	cron    *cron.Cron
	scans   []Scan
	logger  *zap.Logger
	running atomic.Bool
}

// NewScheduler builds a scheduler over the given scans.
func NewScheduler(logger *zap.Logger, scans ...Scan) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{cron: cron.New(), scans: scans, logger: logger}
}

// Start registers the minute trigger and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(everyMinute, func() {
		s.RunTick(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("notification scheduler started", zap.Int("scans", len(s.scans)))
	return nil
}

// Stop halts the trigger and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunTick executes every scan in order. A tick that starts while the
// previous one is still running is skipped, so a slow scan cannot stack
// concurrent sweeps over the same rows.
func (s *Scheduler) RunTick(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("skipping tick, previous scan still running")
		return
	}
	defer s.running.Store(false)

	s.logger.Info("running scheduled notifications")
	for _, scan := range s.scans {
		s.runScan(ctx, scan)
	}
}

func (s *Scheduler) runScan(ctx context.Context, scan Scan) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("notification scan panicked",
				zap.String("scan", scan.Name()), zap.Any("panic", r))
		}
	}()

	if err := scan.Run(ctx); err != nil {
		s.logger.Error("notification scan failed",
			zap.String("scan", scan.Name()), zap.Error(err))
	}
}
