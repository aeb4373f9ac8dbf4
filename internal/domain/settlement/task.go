package settlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/optica-backoffice/cash-ledger/internal/domain/register"
	"github.com/optica-backoffice/cash-ledger/internal/domain/shared"
)

// Task is one durable settlement journal row. It records that a petty
// drawer's balance must be applied to (or reversed from) a bank register, so
// a crash between closing the drawer and updating the bank ledger is
// detectable and repairable instead of lost to a log line.
type Task struct {
	ID              int64                   `json:"id"`
	Kind            shared.SettlementKind   `json:"kind"`
	Status          shared.SettlementStatus `json:"status"`
	PettyRegisterID uuid.UUID               `json:"petty_register_id"`
	BankRegisterID  uuid.UUID               `json:"bank_register_id"`
	Amount          int64                   `json:"amount"` // Stored in cents/minor units
	Attempts        int                     `json:"attempts"`
	FailureReason   string                  `json:"failure_reason,omitempty"`
	CorrelationID   string                  `json:"correlation_id,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	LastAttemptAt   *time.Time              `json:"last_attempt_at,omitempty"`
	AppliedAt       *time.Time              `json:"applied_at,omitempty"`
}

// NewTask builds a pending journal row for a closed petty register. The
// amount is captured at enqueue time: the drawer's closing balance.
func NewTask(kind shared.SettlementKind, petty *register.CashRegister, bankID uuid.UUID, correlationID string) *Task {
	return &Task{
		Kind:            kind,
		Status:          shared.SettlementStatusPending,
		PettyRegisterID: petty.ID,
		BankRegisterID:  bankID,
		Amount:          petty.CurrentBalance,
		Attempts:        0,
		CorrelationID:   correlationID,
		CreatedAt:       time.Now(),
	}
}

// Direction maps the task kind onto the bank movement direction it produces.
func (t *Task) Direction() register.Direction {
	if t.Kind == shared.SettlementKindReverse {
		return register.DirectionExpense
	}
	return register.DirectionIncome
}

func (t *Task) IncrementAttempts() {
	t.Attempts++
	now := time.Now()
	t.LastAttemptAt = &now
}

func (t *Task) MarkApplied() {
	t.Status = shared.SettlementStatusApplied
	now := time.Now()
	t.LastAttemptAt = &now
	t.AppliedAt = &now
}

func (t *Task) MarkFailed(reason string) {
	t.Status = shared.SettlementStatusFailed
	t.FailureReason = reason
	now := time.Now()
	t.LastAttemptAt = &now
}

// Request converts the task to its Kafka message form.
func (t *Task) Request() *shared.SettlementRequest {
	return &shared.SettlementRequest{
		TaskID:          t.ID,
		Kind:            t.Kind,
		PettyRegisterID: t.PettyRegisterID,
		BankRegisterID:  t.BankRegisterID,
		Amount:          t.Amount,
		CorrelationID:   t.CorrelationID,
		Timestamp:       t.CreatedAt,
	}
}
