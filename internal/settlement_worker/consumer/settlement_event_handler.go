package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/optica-backoffice/cash-ledger/internal/domain/shared"
	"github.com/optica-backoffice/cash-ledger/internal/platform/messaging/producers"
	"github.com/optica-backoffice/cash-ledger/internal/settlement_worker/service"
)

// SettlementEventHandler handles incoming settlement request messages from Kafka
type SettlementEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewSettlementEventHandler creates a new handler
func NewSettlementEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *SettlementEventHandler {
	return &SettlementEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *SettlementEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.SettlementRequest
	if err := json.Unmarshal(value, &request); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal settlement request from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
				// Return original error if DLQ fails
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	// Add correlation ID to logger
	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Received settlement request for processing",
		"task_id", request.TaskID,
		"kind", string(request.Kind),
		"bank_register_id", request.BankRegisterID.String(),
		"amount", request.Amount,
	)

	if err := h.processingService.ProcessSettlement(ctx, &request); err != nil {
		logger.Error("Failed to process settlement",
			"task_id", request.TaskID,
			"bank_register_id", request.BankRegisterID.String(),
			"error", err,
		)
		return fmt.Errorf("processing settlement task %d failed: %w", request.TaskID, err)
	}

	logger.Info("Successfully processed settlement", "task_id", request.TaskID)
	return nil // Success, commit offset
}
