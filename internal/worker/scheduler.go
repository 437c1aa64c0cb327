// Package worker runs the periodic sweeps: SLA breach checks and the daily
// KPI computation.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bsic-bank/dataquality-service/internal/clock"
	"github.com/bsic-bank/dataquality-service/internal/config"
	"github.com/bsic-bank/dataquality-service/internal/observability"
)

// SLASweeper flips breach flags on overdue tickets.
type SLASweeper interface {
	CheckSLABreaches(ctx context.Context) (int, error)
}

// KpiCalculator recomputes daily indicators.
type KpiCalculator interface {
	CalculateDailyKpis(ctx context.Context, date time.Time) error
}

// Scheduler owns the timer-driven background jobs. Sweeps share no mutable
// state with request handlers beyond the persistent store.
type Scheduler struct {
	sla     SLASweeper
	kpi     KpiCalculator
	cfg     config.SchedulerConfig
	clock   clock.Clock
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewScheduler constructs the scheduler.
func NewScheduler(sweeper SLASweeper, calculator KpiCalculator, cfg config.SchedulerConfig, clk clock.Clock, metrics *observability.Metrics, logger *zap.Logger) *Scheduler {
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		sla:     sweeper,
		kpi:     calculator,
		cfg:     cfg,
		clock:   clk,
		metrics: metrics,
		logger:  logger,
	}
}

// Start launches the sweep goroutines. They stop when ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.runSLASweep(ctx)
	go s.runKpiSweep(ctx)
}

func (s *Scheduler) runSLASweep(ctx context.Context) {
	interval := time.Duration(s.cfg.SLASweepMinutes) * time.Minute
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("sla sweep scheduled", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			flagged, err := s.sla.CheckSLABreaches(ctx)
			if err != nil {
				s.logger.Error("sla sweep failed", zap.Error(err))
				continue
			}
			s.metrics.RecordSweep("sla_breach", flagged)
			if flagged > 0 {
				s.logger.Info("sla sweep flagged tickets", zap.Int("count", flagged))
			}
		}
	}
}

func (s *Scheduler) runKpiSweep(ctx context.Context) {
	interval := time.Duration(s.cfg.KPIIntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("kpi sweep scheduled", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Each run recomputes yesterday's indicators; recomputation
			// replaces rather than accumulates, so overlap with a manual
			// trigger is harmless.
			date := s.clock.Now().AddDate(0, 0, -s.cfg.KPIMaxAgeDays)
			if err := s.kpi.CalculateDailyKpis(ctx, date); err != nil {
				s.logger.Error("kpi sweep failed", zap.Error(err))
				continue
			}
			s.metrics.RecordSweep("daily_kpi", 1)
		}
	}
}
