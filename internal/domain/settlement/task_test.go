package settlement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/optica-backoffice/cash-ledger/internal/domain/register"
	"github.com/optica-backoffice/cash-ledger/internal/domain/shared"
)

func TestNewTask(t *testing.T) {
	petty, err := register.NewPettyRegister(time.Now(), 10000, "user-1", "Maria", "")
	assert.NoError(t, err)
	petty.CurrentBalance = 12500
	bankID := uuid.New()

	task := NewTask(shared.SettlementKindSettle, petty, bankID, "corr-1")

	assert.Equal(t, shared.SettlementStatusPending, task.Status)
	assert.Equal(t, shared.SettlementKindSettle, task.Kind)
	assert.Equal(t, petty.ID, task.PettyRegisterID)
	assert.Equal(t, bankID, task.BankRegisterID)
	// The amount is the drawer's balance at enqueue time, not the opening one
	assert.Equal(t, int64(12500), task.Amount)
	assert.Equal(t, 0, task.Attempts)
	assert.Equal(t, "corr-1", task.CorrelationID)
}

func TestTaskDirection(t *testing.T) {
	settle := &Task{Kind: shared.SettlementKindSettle}
	reverse := &Task{Kind: shared.SettlementKindReverse}

	assert.Equal(t, register.DirectionIncome, settle.Direction())
	assert.Equal(t, register.DirectionExpense, reverse.Direction())
}

func TestTaskStateTransitions(t *testing.T) {
	t.Run("IncrementAttempts", func(t *testing.T) {
		task := &Task{Status: shared.SettlementStatusPending}

		task.IncrementAttempts()
		task.IncrementAttempts()

		assert.Equal(t, 2, task.Attempts)
		assert.NotNil(t, task.LastAttemptAt)
	})

	t.Run("MarkApplied", func(t *testing.T) {
		task := &Task{Status: shared.SettlementStatusPending}

		task.MarkApplied()

		assert.Equal(t, shared.SettlementStatusApplied, task.Status)
		assert.NotNil(t, task.AppliedAt)
		assert.NotNil(t, task.LastAttemptAt)
	})

	t.Run("MarkFailed", func(t *testing.T) {
		task := &Task{Status: shared.SettlementStatusPending}

		task.MarkFailed(string(shared.FailureReasonInsufficientFunds))

		assert.Equal(t, shared.SettlementStatusFailed, task.Status)
		assert.Equal(t, "INSUFFICIENT_FUNDS", task.FailureReason)
		assert.Nil(t, task.AppliedAt)
	})
}

func TestTaskRequest(t *testing.T) {
	task := &Task{
		ID:              42,
		Kind:            shared.SettlementKindReverse,
		Status:          shared.SettlementStatusPending,
		PettyRegisterID: uuid.New(),
		BankRegisterID:  uuid.New(),
		Amount:          9900,
		CorrelationID:   "corr-2",
		CreatedAt:       time.Now(),
	}

	req := task.Request()

	assert.Equal(t, int64(42), req.TaskID)
	assert.Equal(t, shared.SettlementKindReverse, req.Kind)
	assert.Equal(t, task.PettyRegisterID, req.PettyRegisterID)
	assert.Equal(t, task.BankRegisterID, req.BankRegisterID)
	assert.Equal(t, int64(9900), req.Amount)
	assert.Equal(t, "corr-2", req.CorrelationID)
	assert.Equal(t, task.CreatedAt, req.Timestamp)
}
