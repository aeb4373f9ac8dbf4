package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/optica-backoffice/cash-ledger/internal/domain/settlement"
	"github.com/optica-backoffice/cash-ledger/internal/domain/shared"
)

// SettlementProcessingService implements the ProcessingService interface. It
// owns the journal row lifecycle; the applier owns the bank register side.
type SettlementProcessingService struct {
	settlements settlement.Repository
	applier     SettlementApplier
	logger      *slog.Logger
}

// NewSettlementProcessingService creates a new settlement processing service
func NewSettlementProcessingService(
	logger *slog.Logger,
	settlements settlement.Repository,
	applier SettlementApplier,
) ProcessingService {
	return &SettlementProcessingService{
		settlements: settlements,
		applier:     applier,
		logger:      logger,
	}
}

// ProcessSettlement applies one settlement request. The journal row is the
// source of truth: the message's own fields are only used to locate it, so a
// replayed or duplicated message can never apply stale amounts.
func (s *SettlementProcessingService) ProcessSettlement(ctx context.Context, request *shared.SettlementRequest) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	task, err := s.settlements.GetByID(ctx, request.TaskID)
	if err != nil {
		if errors.Is(err, settlement.ErrTaskNotFound{ID: request.TaskID}) {
			// The row is written before the message is published, so a
			// missing row means the journal was truncated out of band.
			// Retrying cannot help; drop the message.
			logger.Error("Settlement task not found in journal, dropping message",
				"task_id", request.TaskID,
			)
			return nil
		}
		return fmt.Errorf("failed to load settlement task %d: %w", request.TaskID, err)
	}

	if task.Status != shared.SettlementStatusPending {
		logger.Info("Settlement task already resolved, skipping",
			"task_id", task.ID,
			"status", string(task.Status),
		)
		return nil
	}

	if task.Kind == shared.SettlementKindReverse {
		// A reversal compensates an earlier settlement; applying it first
		// would debit the bank register for money it never received. The
		// check runs before the attempt counter so waiting on the settlement
		// does not burn retry budget.
		settle, err := s.precedingSettlement(ctx, task)
		if err != nil {
			return fmt.Errorf("failed to load settlement history for reversal task %d: %w", task.ID, err)
		}
		switch {
		case settle == nil || settle.Status == shared.SettlementStatusFailed:
			logger.Warn("Reversal task has no applied settlement to compensate",
				"task_id", task.ID,
			)
			if updErr := s.settlements.UpdateStatus(ctx, task.ID, shared.SettlementStatusFailed, string(shared.FailureReasonSettlementNotApplied)); updErr != nil {
				return fmt.Errorf("failed to mark reversal task %d failed: %w", task.ID, updErr)
			}
			return nil
		case settle.Status == shared.SettlementStatusPending:
			logger.Info("Reversal deferred until its settlement applies",
				"task_id", task.ID,
				"settlement_task_id", settle.ID,
			)
			return fmt.Errorf("settlement task %d still pending, reversal task %d deferred", settle.ID, task.ID)
		}
	}

	if err := s.settlements.IncrementAttempts(ctx, task.ID); err != nil {
		logger.Error("Failed to increment settlement attempts", "task_id", task.ID, "error", err)
	}

	if err := s.applier.Apply(ctx, task); err != nil {
		var terminal ErrTerminalFailure
		if errors.As(err, &terminal) {
			logger.Warn("Settlement task failed terminally",
				"task_id", task.ID,
				"reason", string(terminal.Reason),
				"error", terminal.Cause,
			)
			if updErr := s.settlements.UpdateStatus(ctx, task.ID, shared.SettlementStatusFailed, string(terminal.Reason)); updErr != nil {
				return fmt.Errorf("failed to mark settlement task %d failed: %w", task.ID, updErr)
			}
			return nil
		}

		logger.Error("Settlement task failed, will retry",
			"task_id", task.ID,
			"attempts", task.Attempts+1,
			"error", err,
		)
		return err
	}

	if err := s.settlements.UpdateStatus(ctx, task.ID, shared.SettlementStatusApplied, ""); err != nil {
		// The bank side is applied and idempotent; the retry re-runs the
		// reference check and lands here again.
		return fmt.Errorf("failed to mark settlement task %d applied: %w", task.ID, err)
	}

	logger.Info("Settlement task applied",
		"task_id", task.ID,
		"kind", string(task.Kind),
		"bank_register_id", task.BankRegisterID.String(),
		"amount", task.Amount,
	)

	return nil
}

// precedingSettlement finds the most recent SETTLEMENT task journaled before
// the given reversal for the same drawer.
func (s *SettlementProcessingService) precedingSettlement(ctx context.Context, reversal *settlement.Task) (*settlement.Task, error) {
	tasks, err := s.settlements.GetByPettyRegisterID(ctx, reversal.PettyRegisterID)
	if err != nil {
		return nil, err
	}

	var settle *settlement.Task
	for _, t := range tasks {
		if t.ID >= reversal.ID || t.Kind != shared.SettlementKindSettle {
			continue
		}
		settle = t
	}

	return settle, nil
}
