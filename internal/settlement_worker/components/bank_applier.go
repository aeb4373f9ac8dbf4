package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/optica-backoffice/cash-ledger/internal/domain/movement"
	"github.com/optica-backoffice/cash-ledger/internal/domain/register"
	"github.com/optica-backoffice/cash-ledger/internal/domain/settlement"
	"github.com/optica-backoffice/cash-ledger/internal/domain/shared"
	"github.com/optica-backoffice/cash-ledger/internal/settlement_worker/service"
)

// BankApplier applies settlement tasks to bank registers
type BankApplier struct {
	bankRegs register.Repository
	bankMovs movement.Repository
	logger   *slog.Logger
}

// NewBankApplier creates a new bank register applier
func NewBankApplier(logger *slog.Logger, bankRegs register.Repository, bankMovs movement.Repository) *BankApplier {
	return &BankApplier{
		bankRegs: bankRegs,
		bankMovs: bankMovs,
		logger:   logger,
	}
}

// Apply inserts the task's bank movement and overwrites the register balance.
// The per-task reference string makes retries idempotent: when the movement
// already exists the balance is re-aligned to its snapshot instead of applied
// twice. Settlements may land on CLOSED registers; a drawer closed on the
// last evening of a month settles into a register that has since rolled over.
func (a *BankApplier) Apply(ctx context.Context, task *settlement.Task) error {
	reference := TaskReference(task.ID)

	existing, err := a.bankMovs.GetByReference(ctx, reference)
	if err != nil {
		return fmt.Errorf("failed to check settlement idempotency: %w", err)
	}
	if existing != nil {
		// Movement landed on a previous attempt; only the balance write (or
		// the journal update) was lost. Re-align and finish.
		a.logger.Info("Settlement movement already exists, repairing balance",
			"task_id", task.ID,
			"movement_id", existing.ID.String(),
			"balance_after", existing.BalanceAfter,
		)
		if err := a.bankRegs.UpdateBalance(ctx, task.BankRegisterID, existing.BalanceAfter); err != nil {
			return fmt.Errorf("failed to repair bank balance: %w", err)
		}
		return nil
	}

	bank, err := a.bankRegs.GetByID(ctx, task.BankRegisterID)
	if err != nil {
		if errors.Is(err, register.ErrRegisterNotFound{}) {
			return service.ErrTerminalFailure{Reason: shared.FailureReasonBankRegisterNotFound, Cause: err}
		}
		return err
	}

	before, after, err := bank.ApplyMovement(task.Direction(), task.Amount)
	if err != nil {
		switch {
		case errors.Is(err, register.ErrInsufficientFunds):
			return service.ErrTerminalFailure{Reason: shared.FailureReasonInsufficientFunds, Cause: err}
		case errors.Is(err, register.ErrInvalidAmount):
			return service.ErrTerminalFailure{Reason: shared.FailureReasonInvalidAmount, Cause: err}
		default:
			return err
		}
	}

	mov := movement.New(bank, task.Direction(), task.Amount, before, after, a.description(task))
	mov.Category = a.category(task)
	mov.Reference = reference
	mov.CorrelationID = task.CorrelationID
	mov.CreatedByID = "settlement-worker"

	if err := a.bankMovs.Create(ctx, mov); err != nil {
		return fmt.Errorf("failed to create settlement movement: %w", err)
	}

	if err := a.bankRegs.UpdateBalance(ctx, bank.ID, after); err != nil {
		// The movement exists; the retry path repairs the balance from its
		// snapshot via the reference check above.
		return fmt.Errorf("failed to update bank balance after settlement: %w", err)
	}

	a.logger.Info("Settlement applied to bank register",
		"task_id", task.ID,
		"bank_register_id", bank.ID.String(),
		"movement_id", mov.ID.String(),
		"direction", string(task.Direction()),
		"amount", task.Amount,
		"balance_after", after,
	)

	return nil
}

func (a *BankApplier) description(task *settlement.Task) string {
	if task.Kind == shared.SettlementKindReverse {
		return fmt.Sprintf("Reversal of settlement from petty register %s", task.PettyRegisterID.String())
	}
	return fmt.Sprintf("Settlement of petty register %s", task.PettyRegisterID.String())
}

func (a *BankApplier) category(task *settlement.Task) movement.Category {
	if task.Kind == shared.SettlementKindReverse {
		return movement.CategorySettlementReversal
	}
	return movement.CategorySettlement
}

// TaskReference builds the idempotency reference carried by the bank movement
// of a journal task.
func TaskReference(taskID int64) string {
	return fmt.Sprintf("settlement-task:%d", taskID)
}
