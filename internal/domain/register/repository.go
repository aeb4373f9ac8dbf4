package register

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines register persistence operations. One instance is bound
// to one collection (petty registers or bank registers).
type Repository interface {
	Create(ctx context.Context, reg *CashRegister) error
	GetByID(ctx context.Context, id uuid.UUID) (*CashRegister, error)
	Update(ctx context.Context, reg *CashRegister) error

	// UpdateBalance overwrites the stored current balance. Last write wins:
	// there is no concurrency token on register documents (documented
	// weak-consistency mode of the balance read-modify-write path).
	UpdateBalance(ctx context.Context, id uuid.UUID, balance int64) error

	// FindByPeriodStart returns the register anchored exactly at the given
	// period start, regardless of state or lifecycle. Returns nil, nil when
	// none exists.
	FindByPeriodStart(ctx context.Context, periodStart time.Time) (*CashRegister, error)

	// FindOpenInMonth returns every OPEN, active register whose period start
	// falls within the month containing monthStart.
	FindOpenInMonth(ctx context.Context, monthStart time.Time) ([]*CashRegister, error)

	// FindAllOpen returns every OPEN, active register in the collection.
	FindAllOpen(ctx context.Context) ([]*CashRegister, error)

	// FindLatestClosedInMonth returns the most recently anchored CLOSED
	// register within the month containing monthStart, or nil, nil.
	FindLatestClosedInMonth(ctx context.Context, monthStart time.Time) (*CashRegister, error)

	// FindClosedActiveByBankID returns every CLOSED, active petty register
	// linked to the given bank register. Archived registers are excluded so
	// soft-deleted drawers never leak into a balance sum.
	FindClosedActiveByBankID(ctx context.Context, bankID uuid.UUID) ([]*CashRegister, error)

	// ListActive returns paginated active registers, newest period first.
	ListActive(ctx context.Context, limit, offset int) ([]*CashRegister, error)
	CountActive(ctx context.Context) (int64, error)

	// Count returns the total number of registers in the collection, in any
	// state or lifecycle. Used for the petty-open dependency precondition.
	Count(ctx context.Context) (int64, error)
}

// ErrRegisterNotFound indicates a missing register
type ErrRegisterNotFound struct {
	RegisterID uuid.UUID
}

func (e ErrRegisterNotFound) Error() string {
	return "cash register not found: " + e.RegisterID.String()
}

// Is matches any ErrRegisterNotFound when the target carries a nil id
func (e ErrRegisterNotFound) Is(target error) bool {
	t, ok := target.(ErrRegisterNotFound)
	if !ok {
		return false
	}
	if t.RegisterID == uuid.Nil {
		return true
	}
	return e.RegisterID == t.RegisterID
}

// ErrDuplicateForPeriod indicates a petty register already exists for the day,
// in any state or lifecycle.
type ErrDuplicateForPeriod struct {
	PeriodStart time.Time
}

func (e ErrDuplicateForPeriod) Error() string {
	return "a cash register already exists for " + e.PeriodStart.Format("2006-01-02")
}

// ErrRegisterNotOpen indicates a movement against a closed register
type ErrRegisterNotOpen struct {
	RegisterID uuid.UUID
}

func (e ErrRegisterNotOpen) Error() string {
	return "cash register is not open: " + e.RegisterID.String()
}
