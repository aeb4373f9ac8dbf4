package settlement

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/optica-backoffice/cash-ledger/internal/domain/shared"
)

// Repository manages settlement journal persistence
type Repository interface {
	Create(ctx context.Context, task *Task) error
	GetByID(ctx context.Context, id int64) (*Task, error)
	GetPending(ctx context.Context, limit int) ([]*Task, error)
	GetByPettyRegisterID(ctx context.Context, pettyID uuid.UUID) ([]*Task, error)
	UpdateStatus(ctx context.Context, id int64, status shared.SettlementStatus, reason string) error
	IncrementAttempts(ctx context.Context, id int64) error
	WithTx(tx pgx.Tx) Repository
}

// ErrTaskNotFound indicates a missing journal row
type ErrTaskNotFound struct {
	ID int64
}

func (e ErrTaskNotFound) Error() string {
	return "settlement task not found: " + strconv.FormatInt(e.ID, 10)
}
