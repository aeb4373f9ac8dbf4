package shared

import (
	"time"

	"github.com/google/uuid"
)

// SettlementRequest defines a Kafka message asking the settlement worker to
// apply one journal task to a bank register. The journal row is the durable
// record; the message is only the fast path to it.
type SettlementRequest struct {
	TaskID          int64          `json:"task_id"`
	Kind            SettlementKind `json:"kind"`
	PettyRegisterID uuid.UUID      `json:"petty_register_id"`
	BankRegisterID  uuid.UUID      `json:"bank_register_id"`
	Amount          int64          `json:"amount"` // Stored in cents/minor units
	CorrelationID   string         `json:"correlation_id"`
	Timestamp       time.Time      `json:"timestamp"`
}
