package service

import (
	"context"
	"fmt"

	"github.com/optica-backoffice/cash-ledger/internal/domain/settlement"
	"github.com/optica-backoffice/cash-ledger/internal/domain/shared"
)

// ErrTerminalFailure marks settlement failures that retrying cannot fix. The
// processing service records the reason on the journal row and stops.
type ErrTerminalFailure struct {
	Reason shared.FailureReason
	Cause  error
}

func (e ErrTerminalFailure) Error() string {
	return fmt.Sprintf("terminal settlement failure (%s): %v", e.Reason, e.Cause)
}

func (e ErrTerminalFailure) Unwrap() error {
	return e.Cause
}

// ProcessingService defines the interface for processing settlement requests.
type ProcessingService interface {
	ProcessSettlement(ctx context.Context, request *shared.SettlementRequest) error
}

// SettlementApplier applies one journal task to its bank register: inserts
// the settlement movement and overwrites the balance. Implementations must be
// idempotent across retries via the task's movement reference.
type SettlementApplier interface {
	Apply(ctx context.Context, task *settlement.Task) error
}
