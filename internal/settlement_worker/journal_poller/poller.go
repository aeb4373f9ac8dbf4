// Package journal_poller retries pending settlement journal rows. It is the
// repair loop behind the Kafka fast path: a lost publish, a worker crash, or
// a broker outage leaves the row PENDING, and the poller picks it up.
package journal_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/optica-backoffice/cash-ledger/internal/config"
	"github.com/optica-backoffice/cash-ledger/internal/domain/settlement"
	"github.com/optica-backoffice/cash-ledger/internal/domain/shared"
	"github.com/optica-backoffice/cash-ledger/internal/settlement_worker/service"
)

// Poller processes pending settlement journal tasks
type Poller struct {
	settlements       settlement.Repository
	processingService service.ProcessingService
	logger            *slog.Logger
	pollInterval      time.Duration
	batchSize         int
	maxRetryAttempts  int
}

func NewPoller(
	cfg *config.JournalConfig,
	settlements settlement.Repository,
	processingService service.ProcessingService,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		settlements:       settlements,
		processingService: processingService,
		logger:            logger,
		pollInterval:      cfg.PollingInterval,
		batchSize:         cfg.BatchSize,
		maxRetryAttempts:  cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting settlement journal poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Settlement journal poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			p.logger.Debug("Journal poller tick: processing pending settlement tasks")
			if err := p.processPendingTasks(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending settlement tasks", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingTasks(ctx context.Context) error {
	tasks, err := p.settlements.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending settlement tasks: %w", err)
	}

	if len(tasks) == 0 {
		p.logger.Debug("No pending settlement tasks found.")
		return nil
	}

	p.logger.Info("Fetched pending settlement tasks", "count", len(tasks))

	for _, task := range tasks {
		logger := p.logger
		if task.CorrelationID != "" {
			logger = p.logger.With("correlation_id", task.CorrelationID)
		}

		// Give the Kafka fast path one poll interval before stepping in; a
		// freshly enqueued task is most likely already in flight.
		if time.Since(task.CreatedAt) < p.pollInterval {
			logger.Debug("Skipping freshly created settlement task", "task_id", task.ID)
			continue
		}

		if task.Attempts >= p.maxRetryAttempts {
			logger.Warn("Max retry attempts reached for settlement task, marking as FAILED",
				"task_id", task.ID, "attempts_made", task.Attempts,
			)
			if errUpdate := p.settlements.UpdateStatus(ctx, task.ID, shared.SettlementStatusFailed, string(shared.FailureReasonUnknownError)); errUpdate != nil {
				logger.Error("Failed to update settlement task status after max retries", "task_id", task.ID, "error", errUpdate)
			}
			continue
		}

		if err := p.processingService.ProcessSettlement(ctx, task.Request()); err != nil {
			logger.Error("Failed to process settlement task from journal",
				"task_id", task.ID, "current_attempts", task.Attempts, "error", err,
			)
			continue
		}
		logger.Info("Successfully processed settlement task from journal", "task_id", task.ID)
	}
	return nil
}
