package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/optica-backoffice/cash-ledger/internal/domain/movement"
	"github.com/optica-backoffice/cash-ledger/internal/domain/register"
	"github.com/optica-backoffice/cash-ledger/internal/domain/settlement"
	"github.com/optica-backoffice/cash-ledger/internal/domain/shared"
	"github.com/optica-backoffice/cash-ledger/internal/platform/messaging/producers"
)

var (
	// ErrRegisterStillOpen indicates a settlement attempt on an OPEN drawer
	ErrRegisterStillOpen = errors.New("register must be closed before settlement")
	// ErrRegisterArchived indicates a mutation attempt on an archived drawer
	ErrRegisterArchived = errors.New("register is archived")
)

// PettyCashServiceImpl implements the PettyCashService interface
type PettyCashServiceImpl struct {
	pettyRegs   register.Repository
	pettyMovs   movement.Repository
	bankRegs    register.Repository
	settlements settlement.Repository
	producer    producers.MessagePublisher
	cache       *OpenRegisterCache
	logger      *slog.Logger
}

// NewPettyCashService creates a new petty cash drawer service
func NewPettyCashService(
	logger *slog.Logger,
	pettyRegs register.Repository,
	pettyMovs movement.Repository,
	bankRegs register.Repository,
	settlements settlement.Repository,
	producer producers.MessagePublisher,
	cache *OpenRegisterCache,
) PettyCashService {
	return &PettyCashServiceImpl{
		pettyRegs:   pettyRegs,
		pettyMovs:   pettyMovs,
		bankRegs:    bankRegs,
		settlements: settlements,
		producer:    producer,
		cache:       cache,
		logger:      logger,
	}
}

// Open creates the drawer for the given day. A bank register must exist
// somewhere in the system first: the drawer's closing balance has to have a
// settlement destination eventually.
func (s *PettyCashServiceImpl) Open(ctx context.Context, date time.Time, initialBalance int64, ownerID, ownerName, note string) (*register.CashRegister, error) {
	bankCount, err := s.bankRegs.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check bank register precondition: %w", err)
	}
	if bankCount == 0 {
		return nil, register.ErrBankRegisterMissing
	}

	dayStart := register.StartOfDay(date)
	existing, err := s.pettyRegs.FindByPeriodStart(ctx, dayStart)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing register: %w", err)
	}
	if existing != nil {
		return nil, register.ErrDuplicateForPeriod{PeriodStart: dayStart}
	}

	reg, err := register.NewPettyRegister(date, initialBalance, ownerID, ownerName, note)
	if err != nil {
		return nil, err
	}

	// Soft link to the month's open bank register; absence only warns. The
	// settlement path resolves the target again at enqueue time.
	openBanks, err := s.bankRegs.FindOpenInMonth(ctx, register.StartOfMonth(date))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bank register for month: %w", err)
	}
	if len(openBanks) > 0 {
		reg.BankRegisterID = &openBanks[0].ID
	} else {
		s.logger.Warn("No open bank register for month, petty register left unlinked",
			"period_start", reg.PeriodStart,
		)
	}

	if err := s.pettyRegs.Create(ctx, reg); err != nil {
		return nil, err
	}

	s.cache.Set(reg.ID)

	s.logger.Info("Petty cash register opened",
		"register_id", reg.ID.String(),
		"period_start", reg.PeriodStart,
		"initial_balance", reg.InitialBalance,
		"owner_id", reg.OwnerID,
	)

	return reg, nil
}

// GetByID retrieves a drawer by id, archived included
func (s *PettyCashServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*register.CashRegister, error) {
	return s.pettyRegs.GetByID(ctx, id)
}

// RegisterMovement appends a movement to an OPEN drawer. The balance write is
// a separate step after the movement insert; movements are the source of
// truth, the stored balance is a recomputable projection.
func (s *PettyCashServiceImpl) RegisterMovement(ctx context.Context, registerID uuid.UUID, input MovementInput) (*movement.Movement, error) {
	reg, err := s.pettyRegs.GetByID(ctx, registerID)
	if err != nil {
		return nil, err
	}
	if !reg.IsActive() {
		return nil, ErrRegisterArchived
	}
	if !reg.IsOpen() {
		return nil, register.ErrRegisterNotOpen{RegisterID: registerID}
	}

	before, after, err := reg.ApplyMovement(input.Direction, input.Amount)
	if err != nil {
		return nil, err
	}

	mov := movement.New(reg, input.Direction, input.Amount, before, after, input.Description)
	mov.CreatedByID = input.CreatedByID
	mov.CreatedByName = input.CreatedByName
	mov.CorrelationID = input.CorrelationID
	if !input.Date.IsZero() {
		mov.Date = input.Date
	}

	if err := s.pettyMovs.Create(ctx, mov); err != nil {
		return nil, err
	}

	if err := s.pettyRegs.UpdateBalance(ctx, reg.ID, after); err != nil {
		s.logger.Error("Failed to persist petty register balance after movement",
			"register_id", reg.ID.String(),
			"movement_id", mov.ID.String(),
			"error", err,
		)
		return nil, err
	}

	return mov, nil
}

// Close transitions the drawer to CLOSED and triggers its settlement. The
// settlement journal row is durable, so an enqueue failure degrades to a
// retried task instead of a lost balance.
func (s *PettyCashServiceImpl) Close(ctx context.Context, id uuid.UUID, finalBalance *int64, correlationID string) (*register.CashRegister, error) {
	reg, err := s.pettyRegs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !reg.IsActive() {
		return nil, ErrRegisterArchived
	}

	if err := reg.Close(finalBalance); err != nil {
		return nil, err
	}
	if err := s.pettyRegs.Update(ctx, reg); err != nil {
		return nil, err
	}

	s.cache.ClearIf(reg.ID)

	s.logger.Info("Petty cash register closed",
		"register_id", reg.ID.String(),
		"final_balance", reg.CurrentBalance,
	)

	if _, err := s.Settle(ctx, reg.ID, correlationID); err != nil {
		s.logger.Error("Failed to enqueue settlement on close",
			"register_id", reg.ID.String(),
			"error", err,
		)
	}

	return reg, nil
}

// Settle records a settlement journal row for a CLOSED drawer and publishes
// the settlement request. Publish failures are not returned: the journal
// poller retries pending rows.
func (s *PettyCashServiceImpl) Settle(ctx context.Context, id uuid.UUID, correlationID string) (*settlement.Task, error) {
	reg, err := s.pettyRegs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.IsOpen() {
		return nil, ErrRegisterStillOpen
	}

	// A settle retry must not double-apply the drawer: when a settlement
	// already stands, pending or applied, return it instead of journaling a
	// second task.
	last, err := s.settlementStanding(ctx, reg.ID)
	if err != nil {
		return nil, err
	}
	if last != nil && last.Kind == shared.SettlementKindSettle {
		s.logger.Info("Settlement already standing, skipping enqueue",
			"register_id", reg.ID.String(),
			"task_id", last.ID,
			"status", string(last.Status),
		)
		return last, nil
	}

	bankID, err := s.resolveBankRegister(ctx, reg)
	if err != nil {
		return nil, err
	}

	return s.enqueue(ctx, shared.SettlementKindSettle, reg, bankID, correlationID)
}

// Archive soft-deletes the drawer. When the drawer was closed and its
// settlement stands unreversed, a compensating REVERSAL is enqueued so the
// bank register stops counting a drawer that no longer exists.
func (s *PettyCashServiceImpl) Archive(ctx context.Context, id uuid.UUID, correlationID string) error {
	reg, err := s.pettyRegs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !reg.IsActive() {
		return nil
	}

	reg.Archive()
	if err := s.pettyRegs.Update(ctx, reg); err != nil {
		return err
	}

	s.cache.ClearIf(reg.ID)

	s.logger.Info("Petty cash register archived", "register_id", reg.ID.String())

	if reg.State == register.StateClosed {
		last, err := s.settlementStanding(ctx, reg.ID)
		if err != nil {
			s.logger.Error("Failed to inspect settlement history on archive",
				"register_id", reg.ID.String(),
				"error", err,
			)
			return nil
		}
		if last != nil && last.Kind == shared.SettlementKindSettle {
			// Publish the reversal only once the settlement is applied. A
			// pending settlement still gets its compensating row journaled,
			// but over the poller so the worker never races the two: Kafka
			// keys them separately and could deliver the reversal first.
			if last.Status == shared.SettlementStatusApplied {
				if _, err := s.enqueue(ctx, shared.SettlementKindReverse, reg, last.BankRegisterID, correlationID); err != nil {
					s.logger.Error("Failed to enqueue settlement reversal on archive",
						"register_id", reg.ID.String(),
						"error", err,
					)
				}
			} else {
				if _, err := s.journalTask(ctx, shared.SettlementKindReverse, reg, last.BankRegisterID, correlationID); err != nil {
					s.logger.Error("Failed to journal settlement reversal on archive",
						"register_id", reg.ID.String(),
						"error", err,
					)
				}
			}
		}
	}

	return nil
}

// Restore reactivates an archived drawer. The bank register precondition is
// re-checked: the system may have changed since the drawer was archived. A
// closed drawer gets its settlement re-enqueued to undo the archive reversal.
func (s *PettyCashServiceImpl) Restore(ctx context.Context, id uuid.UUID, correlationID string) error {
	reg, err := s.pettyRegs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if reg.IsActive() {
		return nil
	}

	bankCount, err := s.bankRegs.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to check bank register precondition: %w", err)
	}
	if bankCount == 0 {
		return register.ErrBankRegisterMissing
	}

	reg.Restore()
	if err := s.pettyRegs.Update(ctx, reg); err != nil {
		return err
	}

	s.logger.Info("Petty cash register restored", "register_id", reg.ID.String())

	if reg.State == register.StateClosed {
		last, err := s.settlementStanding(ctx, reg.ID)
		if err != nil {
			s.logger.Error("Failed to inspect settlement history on restore",
				"register_id", reg.ID.String(),
				"error", err,
			)
			return nil
		}
		if last == nil || last.Kind == shared.SettlementKindReverse {
			bankID, err := s.resolveBankRegister(ctx, reg)
			if err != nil {
				s.logger.Error("Failed to resolve bank register for re-settlement on restore",
					"register_id", reg.ID.String(),
					"error", err,
				)
				return nil
			}
			if _, err := s.enqueue(ctx, shared.SettlementKindSettle, reg, bankID, correlationID); err != nil {
				s.logger.Error("Failed to re-enqueue settlement on restore",
					"register_id", reg.ID.String(),
					"error", err,
				)
			}
		}
	}

	return nil
}

// CurrentOpen returns the currently open drawer. The advisory cache is
// consulted first and revalidated against the store; a stale entry is cleared
// and the store answer wins.
func (s *PettyCashServiceImpl) CurrentOpen(ctx context.Context) (*register.CashRegister, error) {
	if id, ok := s.cache.Get(); ok {
		reg, err := s.pettyRegs.GetByID(ctx, id)
		if err == nil && reg.IsOpen() && reg.IsActive() {
			return reg, nil
		}
		if err != nil && !errors.Is(err, register.ErrRegisterNotFound{}) {
			return nil, err
		}
		s.cache.ClearIf(id)
	}

	open, err := s.pettyRegs.FindAllOpen(ctx)
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, nil
	}

	// Most recent period wins when the invariant was violated out of band.
	reg := open[len(open)-1]
	s.cache.Set(reg.ID)
	return reg, nil
}

// List returns paginated active drawers with the total active count
func (s *PettyCashServiceImpl) List(ctx context.Context, page, perPage int) ([]*register.CashRegister, int64, error) {
	offset := (page - 1) * perPage

	regs, err := s.pettyRegs.ListActive(ctx, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.pettyRegs.CountActive(ctx)
	if err != nil {
		return nil, 0, err
	}

	return regs, total, nil
}

// Movements returns the paginated audit trail of a drawer, archived included
func (s *PettyCashServiceImpl) Movements(ctx context.Context, registerID uuid.UUID, page, perPage int) ([]*movement.Movement, int64, error) {
	if _, err := s.pettyRegs.GetByID(ctx, registerID); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage

	movs, err := s.pettyMovs.GetByRegisterID(ctx, registerID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.pettyMovs.CountByRegisterID(ctx, registerID)
	if err != nil {
		return nil, 0, err
	}

	return movs, total, nil
}

// resolveBankRegister picks the settlement destination: the linked register
// when the link exists, otherwise the open bank register of the drawer's
// month.
func (s *PettyCashServiceImpl) resolveBankRegister(ctx context.Context, reg *register.CashRegister) (uuid.UUID, error) {
	if reg.BankRegisterID != nil {
		return *reg.BankRegisterID, nil
	}

	openBanks, err := s.bankRegs.FindOpenInMonth(ctx, register.StartOfMonth(reg.PeriodStart))
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to resolve bank register: %w", err)
	}
	if len(openBanks) == 0 {
		return uuid.Nil, register.ErrBankRegisterMissing
	}
	return openBanks[0].ID, nil
}

// settlementStanding returns the drawer's most recent non-failed journal task,
// or nil when no settlement activity stands. A SETTLE result means the drawer's
// balance is (or is about to be) counted by the bank register.
func (s *PettyCashServiceImpl) settlementStanding(ctx context.Context, pettyID uuid.UUID) (*settlement.Task, error) {
	tasks, err := s.settlements.GetByPettyRegisterID(ctx, pettyID)
	if err != nil {
		return nil, err
	}

	var last *settlement.Task
	for _, t := range tasks {
		if t.Status == shared.SettlementStatusFailed {
			continue
		}
		last = t
	}

	return last, nil
}

// journalTask writes the durable settlement journal row without publishing.
// The journal poller picks up unpublished rows after the grace interval.
func (s *PettyCashServiceImpl) journalTask(ctx context.Context, kind shared.SettlementKind, reg *register.CashRegister, bankID uuid.UUID, correlationID string) (*settlement.Task, error) {
	task := settlement.NewTask(kind, reg, bankID, correlationID)
	if err := s.settlements.Create(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("Settlement task enqueued",
		"task_id", task.ID,
		"kind", string(kind),
		"register_id", reg.ID.String(),
		"bank_register_id", bankID.String(),
		"amount", task.Amount,
	)

	return task, nil
}

// enqueue journals the task and publishes the settlement request as the fast
// path. The publish is best-effort; the poller is the repair loop.
func (s *PettyCashServiceImpl) enqueue(ctx context.Context, kind shared.SettlementKind, reg *register.CashRegister, bankID uuid.UUID, correlationID string) (*settlement.Task, error) {
	task, err := s.journalTask(ctx, kind, reg, bankID, correlationID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("settlement-task:%d", task.ID)
	if err := s.producer.Publish(ctx, key, task.Request()); err != nil {
		s.logger.Warn("Failed to publish settlement request, journal poller will retry",
			"task_id", task.ID,
			"register_id", reg.ID.String(),
			"error", err,
		)
	}

	return task, nil
}
