package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/optica-backoffice/cash-ledger/internal/domain/movement"
	"github.com/optica-backoffice/cash-ledger/internal/domain/register"
)

// Safety bound on the expired-month sweep; 10 years of unclosed months means
// something else is wrong.
const maxRolloverIterations = 120

// BankCashServiceImpl implements the BankCashService interface
type BankCashServiceImpl struct {
	bankRegs  register.Repository
	bankMovs  movement.Repository
	pettyRegs register.Repository
	logger    *slog.Logger
}

// NewBankCashService creates a new bank register service
func NewBankCashService(
	logger *slog.Logger,
	bankRegs register.Repository,
	bankMovs movement.Repository,
	pettyRegs register.Repository,
) BankCashService {
	return &BankCashServiceImpl{
		bankRegs:  bankRegs,
		bankMovs:  bankMovs,
		pettyRegs: pettyRegs,
		logger:    logger,
	}
}

// OpenOrUpdate creates or updates the register for the month of the given
// date. The upsert is keyed on the month anchor: a second call for any day of
// the same month updates the existing register instead of creating another.
func (s *BankCashServiceImpl) OpenOrUpdate(ctx context.Context, date time.Time, initialBalance *int64, state register.State, ownerID, ownerName, note string) (*register.CashRegister, error) {
	monthStart := register.StartOfMonth(date)

	existing, err := s.bankRegs.FindByPeriodStart(ctx, monthStart)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing bank register: %w", err)
	}

	if existing != nil {
		return s.updateExisting(ctx, existing, initialBalance, state, note)
	}

	balance, err := s.resolveInitialBalance(ctx, monthStart, initialBalance)
	if err != nil {
		return nil, err
	}

	reg, err := register.NewBankRegister(date, balance, state, ownerID, ownerName, note)
	if err != nil {
		return nil, err
	}

	if err := s.bankRegs.Create(ctx, reg); err != nil {
		return nil, err
	}

	s.logger.Info("Bank register opened",
		"register_id", reg.ID.String(),
		"period_start", reg.PeriodStart,
		"initial_balance", reg.InitialBalance,
		"state", string(reg.State),
	)

	return reg, nil
}

func (s *BankCashServiceImpl) updateExisting(ctx context.Context, reg *register.CashRegister, initialBalance *int64, state register.State, note string) (*register.CashRegister, error) {
	if !reg.IsActive() {
		return nil, ErrRegisterArchived
	}

	if initialBalance != nil {
		if *initialBalance < 0 {
			return nil, register.ErrNegativeBalance
		}
		// Shifting the opening balance shifts the running balance by the
		// same delta; recorded movements keep their snapshots.
		delta := *initialBalance - reg.InitialBalance
		reg.InitialBalance = *initialBalance
		reg.CurrentBalance += delta
	}

	if note != "" {
		reg.Note = note
	}

	if state == register.StateClosed && reg.State != register.StateClosed {
		if err := reg.Close(nil); err != nil {
			return nil, err
		}
	} else if state == register.StateOpen && reg.State == register.StateClosed {
		return nil, register.ErrAlreadyClosed
	}

	if err := s.bankRegs.Update(ctx, reg); err != nil {
		return nil, err
	}

	s.logger.Info("Bank register updated",
		"register_id", reg.ID.String(),
		"initial_balance", reg.InitialBalance,
		"state", string(reg.State),
	)

	return reg, nil
}

// resolveInitialBalance implements the inheritance chain: explicit value,
// else the closing balance of the previous month's latest CLOSED register,
// else zero.
func (s *BankCashServiceImpl) resolveInitialBalance(ctx context.Context, monthStart time.Time, initialBalance *int64) (int64, error) {
	if initialBalance != nil {
		return *initialBalance, nil
	}

	prev, err := s.bankRegs.FindLatestClosedInMonth(ctx, monthStart.AddDate(0, -1, 0))
	if err != nil {
		return 0, fmt.Errorf("failed to resolve inherited balance: %w", err)
	}
	if prev != nil {
		return prev.CurrentBalance, nil
	}
	return 0, nil
}

// GetByID retrieves a bank register by id, archived included
func (s *BankCashServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*register.CashRegister, error) {
	return s.bankRegs.GetByID(ctx, id)
}

// RegisterMovement appends a bank movement. Attached movements require the
// register OPEN and reject overdrafts; a nil register id stores the movement
// unattached with no balance effect until an operator reconciles it.
func (s *BankCashServiceImpl) RegisterMovement(ctx context.Context, registerID *uuid.UUID, input MovementInput) (*movement.Movement, error) {
	if registerID == nil {
		if input.Amount < 0 {
			return nil, register.ErrInvalidAmount
		}

		mov := movement.NewUnattached(input.Direction, input.Category, input.Amount, input.Description)
		mov.CreatedByID = input.CreatedByID
		mov.CreatedByName = input.CreatedByName
		mov.CorrelationID = input.CorrelationID
		if !input.Date.IsZero() {
			mov.Date = input.Date
		}

		if err := s.bankMovs.Create(ctx, mov); err != nil {
			return nil, err
		}

		s.logger.Info("Unattached bank movement recorded",
			"movement_id", mov.ID.String(),
			"direction", string(mov.Direction),
			"amount", mov.Amount,
		)
		return mov, nil
	}

	reg, err := s.bankRegs.GetByID(ctx, *registerID)
	if err != nil {
		return nil, err
	}
	if !reg.IsActive() {
		return nil, ErrRegisterArchived
	}
	if !reg.IsOpen() {
		return nil, register.ErrRegisterNotOpen{RegisterID: *registerID}
	}

	before, after, err := reg.ApplyMovement(input.Direction, input.Amount)
	if err != nil {
		return nil, err
	}

	mov := movement.New(reg, input.Direction, input.Amount, before, after, input.Description)
	mov.Category = input.Category
	mov.CreatedByID = input.CreatedByID
	mov.CreatedByName = input.CreatedByName
	mov.CorrelationID = input.CorrelationID
	if !input.Date.IsZero() {
		mov.Date = input.Date
	}

	if err := s.bankMovs.Create(ctx, mov); err != nil {
		return nil, err
	}

	if err := s.bankRegs.UpdateBalance(ctx, reg.ID, after); err != nil {
		s.logger.Error("Failed to persist bank register balance after movement",
			"register_id", reg.ID.String(),
			"movement_id", mov.ID.String(),
			"error", err,
		)
		return nil, err
	}

	return mov, nil
}

// ReconcileUnattached binds the unattached movements dated within the
// register's month, oldest first. An expense that would overdraw the running
// balance is skipped and stays unattached; later movements may still apply.
func (s *BankCashServiceImpl) ReconcileUnattached(ctx context.Context, registerID uuid.UUID) (int, error) {
	reg, err := s.bankRegs.GetByID(ctx, registerID)
	if err != nil {
		return 0, err
	}
	if !reg.IsActive() {
		return 0, ErrRegisterArchived
	}

	monthStart := register.StartOfMonth(reg.PeriodStart)
	movs, err := s.bankMovs.FindUnattachedInRange(ctx, monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return 0, err
	}

	attached := 0
	for _, mov := range movs {
		before, after, err := reg.ApplyMovement(mov.Direction, mov.Amount)
		if err != nil {
			s.logger.Warn("Skipping unattached movement during reconcile",
				"movement_id", mov.ID.String(),
				"register_id", reg.ID.String(),
				"amount", mov.Amount,
				"error", err,
			)
			continue
		}

		if err := s.bankMovs.Attach(ctx, mov.ID, reg.ID, before, after); err != nil {
			// Roll the in-memory balance back so the final write stays
			// consistent with what was actually bound.
			reg.CurrentBalance = before
			s.logger.Error("Failed to attach movement during reconcile",
				"movement_id", mov.ID.String(),
				"register_id", reg.ID.String(),
				"error", err,
			)
			continue
		}
		attached++
	}

	if attached > 0 {
		if err := s.bankRegs.UpdateBalance(ctx, reg.ID, reg.CurrentBalance); err != nil {
			return attached, err
		}
	}

	s.logger.Info("Reconcile pass finished",
		"register_id", reg.ID.String(),
		"candidates", len(movs),
		"attached", attached,
	)

	return attached, nil
}

// CloseFullMonth closes every OPEN register of the month, then opens at most
// one successor for the following month inheriting the final balance. This is
// the canonical rollover; it runs on the scheduler tick and on demand.
func (s *BankCashServiceImpl) CloseFullMonth(ctx context.Context, year int, month time.Month) (*register.CashRegister, error) {
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return s.closeMonth(ctx, monthStart)
}

func (s *BankCashServiceImpl) closeMonth(ctx context.Context, monthStart time.Time) (*register.CashRegister, error) {
	open, err := s.bankRegs.FindOpenInMonth(ctx, monthStart)
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, nil
	}

	var last *register.CashRegister
	for _, reg := range open {
		if err := reg.Close(nil); err != nil {
			return nil, err
		}
		if err := s.bankRegs.Update(ctx, reg); err != nil {
			return nil, err
		}
		s.logger.Info("Bank register closed by rollover",
			"register_id", reg.ID.String(),
			"period_start", reg.PeriodStart,
			"final_balance", reg.CurrentBalance,
		)
		last = reg
	}

	// At most one successor: skip when the next month already has a register
	// in any state or lifecycle.
	nextMonth := monthStart.AddDate(0, 1, 0)
	existing, err := s.bankRegs.FindByPeriodStart(ctx, nextMonth)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, nil
	}

	successor, err := register.NewBankRegister(nextMonth, last.CurrentBalance, register.StateOpen, last.OwnerID, last.OwnerName, "")
	if err != nil {
		return nil, err
	}
	if err := s.bankRegs.Create(ctx, successor); err != nil {
		return nil, err
	}

	s.logger.Info("Bank register rollover successor opened",
		"register_id", successor.ID.String(),
		"period_start", successor.PeriodStart,
		"initial_balance", successor.InitialBalance,
	)

	return successor, nil
}

// CloseExpiredMonths sweeps every month before the current one that still has
// OPEN registers, running the rollover for each. Successors created for an
// expired month are themselves expired and get picked up on the next
// iteration, so a long-idle system rolls forward to the present in one call.
func (s *BankCashServiceImpl) CloseExpiredMonths(ctx context.Context) (int, error) {
	currentMonth := register.StartOfMonth(time.Now())
	closed := 0

	for i := 0; i < maxRolloverIterations; i++ {
		open, err := s.bankRegs.FindAllOpen(ctx)
		if err != nil {
			return closed, err
		}

		var earliest *register.CashRegister
		for _, reg := range open {
			if !reg.PeriodStart.Before(currentMonth) {
				continue
			}
			if earliest == nil || reg.PeriodStart.Before(earliest.PeriodStart) {
				earliest = reg
			}
		}
		if earliest == nil {
			break
		}

		if _, err := s.closeMonth(ctx, register.StartOfMonth(earliest.PeriodStart)); err != nil {
			return closed, err
		}
		closed++
	}

	return closed, nil
}

// VerifyBalance recomputes the register balance from its linked drawers:
// opening balance plus the closing balances of every ACTIVE, CLOSED petty
// register settled into it. Reports only; nothing is written.
func (s *BankCashServiceImpl) VerifyBalance(ctx context.Context, id uuid.UUID) (*BalanceReport, error) {
	reg, err := s.bankRegs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	linked, err := s.pettyRegs.FindClosedActiveByBankID(ctx, id)
	if err != nil {
		return nil, err
	}

	computed := reg.InitialBalance
	for _, p := range linked {
		computed += p.CurrentBalance
	}

	return &BalanceReport{
		RegisterID: id,
		Stored:     reg.CurrentBalance,
		Computed:   computed,
		Consistent: reg.CurrentBalance == computed,
	}, nil
}

// RepairBalance overwrites the stored balance with the recomputed one when
// they disagree. The overwrite is last-write-wins like every balance write.
func (s *BankCashServiceImpl) RepairBalance(ctx context.Context, id uuid.UUID) (*BalanceReport, error) {
	report, err := s.VerifyBalance(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Consistent {
		return report, nil
	}

	if err := s.bankRegs.UpdateBalance(ctx, id, report.Computed); err != nil {
		return nil, err
	}
	report.Repaired = true

	s.logger.Warn("Bank register balance repaired",
		"register_id", id.String(),
		"stored", report.Stored,
		"computed", report.Computed,
	)

	return report, nil
}

// List returns paginated active bank registers with the total active count
func (s *BankCashServiceImpl) List(ctx context.Context, page, perPage int) ([]*register.CashRegister, int64, error) {
	offset := (page - 1) * perPage

	regs, err := s.bankRegs.ListActive(ctx, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.bankRegs.CountActive(ctx)
	if err != nil {
		return nil, 0, err
	}

	return regs, total, nil
}

// Movements returns the paginated audit trail of a bank register
func (s *BankCashServiceImpl) Movements(ctx context.Context, registerID uuid.UUID, page, perPage int) ([]*movement.Movement, int64, error) {
	if _, err := s.bankRegs.GetByID(ctx, registerID); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage

	movs, err := s.bankMovs.GetByRegisterID(ctx, registerID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.bankMovs.CountByRegisterID(ctx, registerID)
	if err != nil {
		return nil, 0, err
	}

	return movs, total, nil
}
