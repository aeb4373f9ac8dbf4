// Package scheduler runs the month-close rollover on a cron spec instead of
// as a hidden side effect of reads. The tick is idempotent, so overlapping
// deployments running it twice is harmless.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/optica-backoffice/cash-ledger/internal/api/service"
	"github.com/optica-backoffice/cash-ledger/internal/config"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron        *cron.Cron
	bankService service.BankCashService
	logger      *slog.Logger
}

// NewScheduler creates a scheduler and registers the month-close tick
func NewScheduler(logger *slog.Logger, cfg *config.SchedulerConfig, bankService service.BankCashService) (*Scheduler, error) {
	// Cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron:        c,
		bankService: bankService,
		logger:      logger,
	}

	if _, err := c.AddFunc(cfg.MonthCloseSpec, s.runMonthClose); err != nil {
		return nil, err
	}

	logger.Info("Month-close job registered", "spec", cfg.MonthCloseSpec)
	return s, nil
}

func (s *Scheduler) runMonthClose() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	closed, err := s.bankService.CloseExpiredMonths(ctx)
	if err != nil {
		s.logger.Error("Month-close tick failed", "months_closed", closed, "error", err)
		return
	}

	if closed > 0 {
		s.logger.Info("Month-close tick finished", "months_closed", closed)
	} else {
		s.logger.Debug("Month-close tick: nothing to close")
	}
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Starting cron scheduler")
	s.cron.Start()
}

// Stop gracefully stops the cron scheduler, waiting for running jobs
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping cron scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron scheduler stopped")
}
