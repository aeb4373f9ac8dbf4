package movement

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/optica-backoffice/cash-ledger/internal/domain/register"
)

var (
	ErrMissingRegister = errors.New("petty movements require a register reference")
	ErrEmptyReference  = errors.New("reference cannot be empty")
)

// Category classifies bank movements. Petty movements carry no category.
type Category string

const (
	CategorySettlement         Category = "SETTLEMENT"          // closing balance pushed from a petty drawer
	CategorySettlementReversal Category = "SETTLEMENT_REVERSAL" // compensation for an archived settled drawer
	CategoryClientTransfer     Category = "CLIENT_TRANSFER"
	CategoryWorkerPayment      Category = "WORKER_PAYMENT"
	CategoryOther              Category = "OTHER"
)

// Movement is one append-only ledger entry against a register, with balance
// snapshots computed at insertion time. Bank movements may be recorded with no
// register reference (e.g. a transfer whose settlement date is ambiguous);
// those affect no balance until an operator reconciles them.
type Movement struct {
	ID            uuid.UUID          `json:"id" bson:"_id"`
	RegisterID    *uuid.UUID         `json:"register_id,omitempty" bson:"register_id,omitempty"`
	RegisterKind  register.Kind      `json:"register_kind" bson:"register_kind"`
	Date          time.Time          `json:"date" bson:"date"`
	Direction     register.Direction `json:"direction" bson:"direction"`
	Category      Category           `json:"category,omitempty" bson:"category,omitempty"`
	Description   string             `json:"description,omitempty" bson:"description,omitempty"`
	Amount        int64              `json:"amount" bson:"amount"` // Non-negative magnitude in cents/minor units
	BalanceBefore int64              `json:"balance_before" bson:"balance_before"`
	BalanceAfter  int64              `json:"balance_after" bson:"balance_after"`
	Reference     string             `json:"reference,omitempty" bson:"reference,omitempty"`
	CreatedByID   string             `json:"created_by_id" bson:"created_by_id"`
	CreatedByName string             `json:"created_by_name,omitempty" bson:"created_by_name,omitempty"`
	CorrelationID string             `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
}

// New builds a movement for a register with the given balance snapshots. The
// snapshots are computed by CashRegister.ApplyMovement before calling this.
func New(reg *register.CashRegister, direction register.Direction, amount, before, after int64, description string) *Movement {
	return &Movement{
		ID:            uuid.New(),
		RegisterID:    &reg.ID,
		RegisterKind:  reg.Kind,
		Date:          time.Now(),
		Direction:     direction,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Description:   description,
		CreatedAt:     time.Now(),
	}
}

// NewUnattached builds a bank movement with no register reference. Balance
// snapshots stay zero until the movement is bound to a register.
func NewUnattached(direction register.Direction, category Category, amount int64, description string) *Movement {
	return &Movement{
		ID:           uuid.New(),
		RegisterKind: register.KindBank,
		Date:         time.Now(),
		Direction:    direction,
		Category:     category,
		Amount:       amount,
		Description:  description,
		CreatedAt:    time.Now(),
	}
}

// Attached reports whether the movement is bound to a register.
func (m *Movement) Attached() bool {
	return m.RegisterID != nil
}
