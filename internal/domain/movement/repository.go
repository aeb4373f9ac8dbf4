package movement

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository manages movement persistence. Movements are append-only: the only
// mutation is binding an unattached bank movement to a register. One instance
// is bound to one collection (petty movements or bank movements).
type Repository interface {
	Create(ctx context.Context, mov *Movement) error
	GetByID(ctx context.Context, id uuid.UUID) (*Movement, error)

	// GetByRegisterID returns paginated movements for a register, newest
	// first. Works for archived registers too; audit history is never hidden.
	GetByRegisterID(ctx context.Context, registerID uuid.UUID, limit, offset int) ([]*Movement, error)
	CountByRegisterID(ctx context.Context, registerID uuid.UUID) (int64, error)

	// GetByReference returns the movement carrying the given reference
	// string, or nil, nil. References are the idempotency handle of the
	// settlement bridge.
	GetByReference(ctx context.Context, reference string) (*Movement, error)

	// FindUnattachedInRange returns bank movements with no register reference
	// dated within [from, to), oldest first.
	FindUnattachedInRange(ctx context.Context, from, to time.Time) ([]*Movement, error)

	// Attach binds an unattached movement to a register and records the
	// balance snapshots computed at bind time.
	Attach(ctx context.Context, movementID, registerID uuid.UUID, before, after int64) error
}

// ErrMovementNotFound indicates a missing movement
type ErrMovementNotFound struct {
	MovementID uuid.UUID
}

func (e ErrMovementNotFound) Error() string {
	return "movement not found: " + e.MovementID.String()
}

// Is matches any ErrMovementNotFound when the target carries a nil id
func (e ErrMovementNotFound) Is(target error) bool {
	t, ok := target.(ErrMovementNotFound)
	if !ok {
		return false
	}
	if t.MovementID == uuid.Nil {
		return true
	}
	return e.MovementID == t.MovementID
}
