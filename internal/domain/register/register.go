package register

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInsufficientFunds   = errors.New("insufficient funds on bank register")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrNegativeBalance     = errors.New("initial balance cannot be negative")
	ErrEmptyOwner          = errors.New("owner id cannot be empty")
	ErrBankRegisterMissing = errors.New("no bank register exists; create a bank register first")
	ErrAlreadyClosed       = errors.New("register is already closed")
)

// Kind distinguishes the two register variants
type Kind string

const (
	KindPetty Kind = "PETTY"
	KindBank  Kind = "BANK"
)

// State defines the register lifecycle; OPEN -> CLOSED is the only transition
type State string

const (
	StateOpen   State = "OPEN"
	StateClosed State = "CLOSED"
)

// Lifecycle marks whether a register participates in live listings and
// aggregation. Archived registers stay in storage for audit.
type Lifecycle string

const (
	LifecycleActive   Lifecycle = "ACTIVE"
	LifecycleArchived Lifecycle = "ARCHIVED"
)

// Direction defines the two movement directions
type Direction string

const (
	DirectionIncome  Direction = "INCOME"
	DirectionExpense Direction = "EXPENSE"
)

// CashRegister represents one period instance of a cash ledger: a daily petty
// cash drawer or a monthly bank register. PeriodStart is the start of the day
// for petty registers and the first of the month for bank registers.
type CashRegister struct {
	ID             uuid.UUID  `json:"id" bson:"_id"`
	Kind           Kind       `json:"kind" bson:"kind"`
	PeriodStart    time.Time  `json:"period_start" bson:"period_start"`
	InitialBalance int64      `json:"initial_balance" bson:"initial_balance"` // Stored in cents/minor units
	CurrentBalance int64      `json:"current_balance" bson:"current_balance"`
	State          State      `json:"state" bson:"state"`
	Lifecycle      Lifecycle  `json:"lifecycle" bson:"lifecycle"`
	OwnerID        string     `json:"owner_id" bson:"owner_id"`
	OwnerName      string     `json:"owner_name" bson:"owner_name"`
	Note           string     `json:"note,omitempty" bson:"note,omitempty"`
	BankRegisterID *uuid.UUID `json:"bank_register_id,omitempty" bson:"bank_register_id,omitempty"` // Petty only: settlement routing target
	CreatedAt      time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" bson:"updated_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty" bson:"closed_at,omitempty"`
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfMonth truncates t to the first of its month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// NewPettyRegister creates an open daily petty cash register anchored at the
// start of the given day.
func NewPettyRegister(date time.Time, initialBalance int64, ownerID, ownerName, note string) (*CashRegister, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwner
	}
	if initialBalance < 0 {
		return nil, ErrNegativeBalance
	}

	now := time.Now()
	return &CashRegister{
		ID:             uuid.New(),
		Kind:           KindPetty,
		PeriodStart:    StartOfDay(date),
		InitialBalance: initialBalance,
		CurrentBalance: initialBalance,
		State:          StateOpen,
		Lifecycle:      LifecycleActive,
		OwnerID:        ownerID,
		OwnerName:      ownerName,
		Note:           note,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// NewBankRegister creates a monthly bank register anchored at the first of the
// month of the given date.
func NewBankRegister(date time.Time, initialBalance int64, state State, ownerID, ownerName, note string) (*CashRegister, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwner
	}
	if initialBalance < 0 {
		return nil, ErrNegativeBalance
	}
	if state == "" {
		state = StateOpen
	}

	now := time.Now()
	return &CashRegister{
		ID:             uuid.New(),
		Kind:           KindBank,
		PeriodStart:    StartOfMonth(date),
		InitialBalance: initialBalance,
		CurrentBalance: initialBalance,
		State:          state,
		Lifecycle:      LifecycleActive,
		OwnerID:        ownerID,
		OwnerName:      ownerName,
		Note:           note,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ApplyMovement computes the balance snapshots for a movement against this
// register and mutates CurrentBalance. Petty registers floor-clamp at zero on
// overdraft; bank registers reject with ErrInsufficientFunds. The asymmetry is
// business policy: a petty drawer absorbs small counting errors, bank entries
// are authoritative accounting records.
func (r *CashRegister) ApplyMovement(direction Direction, amount int64) (before, after int64, err error) {
	if amount < 0 {
		return 0, 0, ErrInvalidAmount
	}

	before = r.CurrentBalance
	switch direction {
	case DirectionIncome:
		after = before + amount
	case DirectionExpense:
		after = before - amount
		if after < 0 {
			if r.Kind == KindBank {
				return 0, 0, ErrInsufficientFunds
			}
			after = 0
		}
	default:
		return 0, 0, ErrInvalidAmount
	}

	r.CurrentBalance = after
	r.UpdatedAt = time.Now()
	return before, after, nil
}

// Close transitions the register to CLOSED, optionally overriding the final
// balance with a counted amount.
func (r *CashRegister) Close(finalBalance *int64) error {
	if r.State == StateClosed {
		return ErrAlreadyClosed
	}
	if finalBalance != nil {
		if *finalBalance < 0 {
			return ErrNegativeBalance
		}
		r.CurrentBalance = *finalBalance
	}

	now := time.Now()
	r.State = StateClosed
	r.ClosedAt = &now
	r.UpdatedAt = now
	return nil
}

// Archive marks the register as soft-deleted. The record stays in storage.
func (r *CashRegister) Archive() {
	r.Lifecycle = LifecycleArchived
	r.UpdatedAt = time.Now()
}

// Restore reactivates an archived register.
func (r *CashRegister) Restore() {
	r.Lifecycle = LifecycleActive
	r.UpdatedAt = time.Now()
}

// IsOpen reports whether the register can accept regular movements.
func (r *CashRegister) IsOpen() bool {
	return r.State == StateOpen
}

// IsActive reports whether the register participates in live listings and
// balance aggregation.
func (r *CashRegister) IsActive() bool {
	return r.Lifecycle == LifecycleActive
}
