package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/optica-backoffice/cash-ledger/internal/domain/movement"
	"github.com/optica-backoffice/cash-ledger/internal/domain/register"
	"github.com/optica-backoffice/cash-ledger/internal/domain/settlement"
)

// MovementInput carries the caller-supplied fields of a new movement.
type MovementInput struct {
	Direction     register.Direction
	Category      movement.Category // Bank movements only
	Amount        int64
	Description   string
	Date          time.Time // Zero value means now
	CreatedByID   string
	CreatedByName string
	CorrelationID string
}

// BalanceReport is the result of a bank register balance verification.
type BalanceReport struct {
	RegisterID uuid.UUID `json:"register_id"`
	Stored     int64     `json:"stored_balance"`
	Computed   int64     `json:"computed_balance"`
	Consistent bool      `json:"consistent"`
	Repaired   bool      `json:"repaired"`
}

// PettyCashService defines the operations of the daily petty cash drawer
type PettyCashService interface {
	// Open creates the drawer for the given day.
	// Returns ErrBankRegisterMissing when no bank register exists at all, and
	// ErrDuplicateForPeriod when a drawer already exists for the day in any
	// state or lifecycle.
	Open(ctx context.Context, date time.Time, initialBalance int64, ownerID, ownerName, note string) (*register.CashRegister, error)

	// GetByID retrieves a drawer by id, archived included
	GetByID(ctx context.Context, id uuid.UUID) (*register.CashRegister, error)

	// RegisterMovement appends a movement to an OPEN drawer, snapshotting the
	// balance before and after. Expenses floor-clamp the drawer at zero.
	RegisterMovement(ctx context.Context, registerID uuid.UUID, input MovementInput) (*movement.Movement, error)

	// Close transitions the drawer to CLOSED, optionally overriding the final
	// balance with the counted amount, then triggers settlement. A settlement
	// enqueue failure is logged, not returned: the journal row is durable.
	Close(ctx context.Context, id uuid.UUID, finalBalance *int64, correlationID string) (*register.CashRegister, error)

	// Settle enqueues the cross-ledger settlement of a CLOSED drawer and
	// returns the journal task.
	Settle(ctx context.Context, id uuid.UUID, correlationID string) (*settlement.Task, error)

	// Archive soft-deletes the drawer. Archiving a closed, settled drawer
	// enqueues a compensating reversal against the bank register.
	Archive(ctx context.Context, id uuid.UUID, correlationID string) error

	// Restore reactivates an archived drawer, re-checking the bank register
	// precondition. Restoring a closed drawer re-enqueues its settlement.
	Restore(ctx context.Context, id uuid.UUID, correlationID string) error

	// CurrentOpen returns the currently open drawer, or nil, nil when none
	CurrentOpen(ctx context.Context) (*register.CashRegister, error)

	// List returns paginated active drawers with the total active count
	List(ctx context.Context, page, perPage int) ([]*register.CashRegister, int64, error)

	// Movements returns the paginated audit trail of a drawer, archived included
	Movements(ctx context.Context, registerID uuid.UUID, page, perPage int) ([]*movement.Movement, int64, error)
}

// BankCashService defines the operations of the monthly bank register
type BankCashService interface {
	// OpenOrUpdate creates the register for the month of the given date, or
	// updates it when one already exists (upsert keyed on the month). A nil
	// initialBalance inherits the previous month's closing balance, falling
	// back to zero.
	OpenOrUpdate(ctx context.Context, date time.Time, initialBalance *int64, state register.State, ownerID, ownerName, note string) (*register.CashRegister, error)

	// GetByID retrieves a bank register by id, archived included
	GetByID(ctx context.Context, id uuid.UUID) (*register.CashRegister, error)

	// RegisterMovement appends a movement. With a register id it requires the
	// register OPEN and rejects overdrafts; with nil it persists the movement
	// unattached, affecting no balance until reconciled.
	RegisterMovement(ctx context.Context, registerID *uuid.UUID, input MovementInput) (*movement.Movement, error)

	// ReconcileUnattached binds the register's month of unattached movements
	// in chronological order, skipping any expense that would overdraw.
	// Returns the number of movements attached.
	ReconcileUnattached(ctx context.Context, registerID uuid.UUID) (int, error)

	// CloseFullMonth closes every OPEN register of the month and opens at
	// most one successor for the following month inheriting the final
	// balance. Returns the successor, or nil when none was created.
	CloseFullMonth(ctx context.Context, year int, month time.Month) (*register.CashRegister, error)

	// CloseExpiredMonths runs the month-close rollover for every month before
	// the current one that still has OPEN registers. Idempotent; invoked by
	// the cron scheduler and exposed as an admin endpoint.
	CloseExpiredMonths(ctx context.Context) (int, error)

	// VerifyBalance recomputes the register balance from its linked petty
	// drawers and reports stored vs computed without writing anything.
	VerifyBalance(ctx context.Context, id uuid.UUID) (*BalanceReport, error)

	// RepairBalance is VerifyBalance plus an overwrite of the stored balance
	// when the two disagree.
	RepairBalance(ctx context.Context, id uuid.UUID) (*BalanceReport, error)

	// List returns paginated active bank registers with the total active count
	List(ctx context.Context, page, perPage int) ([]*register.CashRegister, int64, error)

	// Movements returns the paginated audit trail of a bank register
	Movements(ctx context.Context, registerID uuid.UUID, page, perPage int) ([]*movement.Movement, int64, error)
}
