// Package postgres provides the PostgreSQL implementation of the settlement
// journal repository. The journal is the durable record of cross-ledger
// settlements so a crash between closing a petty drawer and updating the bank
// register is detectable and repairable.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/optica-backoffice/cash-ledger/internal/domain/settlement"
	"github.com/optica-backoffice/cash-ledger/internal/domain/shared"
	"github.com/optica-backoffice/cash-ledger/internal/platform/persistence"
)

// SettlementRepository implements the settlement.Repository interface for PostgreSQL
type SettlementRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewSettlementRepository creates a new PostgreSQL settlement journal repository
func NewSettlementRepository(logger *slog.Logger, db *persistence.PostgresDB) settlement.Repository {
	return &SettlementRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations.
func (r *SettlementRepository) WithTx(tx pgx.Tx) settlement.Repository {
	return &SettlementRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new journal task in pending status. The task will be picked
// up by the Kafka fast path or, failing that, the journal poller.
func (r *SettlementRepository) Create(ctx context.Context, task *settlement.Task) error {
	query := `
		INSERT INTO settlement_journal (kind, status, petty_register_id, bank_register_id, amount, attempts, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.querier.QueryRow(ctx, query,
		task.Kind,
		task.Status,
		task.PettyRegisterID,
		task.BankRegisterID,
		task.Amount,
		task.Attempts,
		task.CorrelationID,
		task.CreatedAt,
	).Scan(&task.ID)

	if err != nil {
		r.logger.Error("Failed to create settlement task",
			"petty_register_id", task.PettyRegisterID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create settlement task: %w", err)
	}

	return nil
}

// GetByID retrieves a journal task by its id.
func (r *SettlementRepository) GetByID(ctx context.Context, id int64) (*settlement.Task, error) {
	query := `
		SELECT id, kind, status, petty_register_id, bank_register_id, amount, attempts, failure_reason, correlation_id, created_at, last_attempt_at, applied_at
		FROM settlement_journal
		WHERE id = $1
	`

	var task settlement.Task
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&task.ID,
		&task.Kind,
		&task.Status,
		&task.PettyRegisterID,
		&task.BankRegisterID,
		&task.Amount,
		&task.Attempts,
		&task.FailureReason,
		&task.CorrelationID,
		&task.CreatedAt,
		&task.LastAttemptAt,
		&task.AppliedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, settlement.ErrTaskNotFound{ID: id}
		}
		r.logger.Error("Failed to get settlement task", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get settlement task: %w", err)
	}

	return &task, nil
}

// GetPending retrieves a batch of pending journal tasks in FIFO order. This is
// the poller's repair loop over settlements the fast path lost.
func (r *SettlementRepository) GetPending(ctx context.Context, limit int) ([]*settlement.Task, error) {
	query := `
		SELECT id, kind, status, petty_register_id, bank_register_id, amount, attempts, failure_reason, correlation_id, created_at, last_attempt_at, applied_at
		FROM settlement_journal
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, shared.SettlementStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending settlement tasks", "error", err)
		return nil, fmt.Errorf("failed to get pending settlement tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*settlement.Task
	for rows.Next() {
		var task settlement.Task
		err := rows.Scan(
			&task.ID,
			&task.Kind,
			&task.Status,
			&task.PettyRegisterID,
			&task.BankRegisterID,
			&task.Amount,
			&task.Attempts,
			&task.FailureReason,
			&task.CorrelationID,
			&task.CreatedAt,
			&task.LastAttemptAt,
			&task.AppliedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan settlement task", "error", err)
			return nil, fmt.Errorf("failed to scan settlement task: %w", err)
		}
		tasks = append(tasks, &task)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over settlement tasks", "error", err)
		return nil, fmt.Errorf("error iterating over settlement tasks: %w", err)
	}

	return tasks, nil
}

// GetByPettyRegisterID retrieves every journal task recorded for a petty
// register, oldest first, for audit and compensation checks.
func (r *SettlementRepository) GetByPettyRegisterID(ctx context.Context, pettyID uuid.UUID) ([]*settlement.Task, error) {
	query := `
		SELECT id, kind, status, petty_register_id, bank_register_id, amount, attempts, failure_reason, correlation_id, created_at, last_attempt_at, applied_at
		FROM settlement_journal
		WHERE petty_register_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, pettyID)
	if err != nil {
		r.logger.Error("Failed to get settlement tasks by petty register", "petty_register_id", pettyID.String(), "error", err)
		return nil, fmt.Errorf("failed to get settlement tasks by petty register: %w", err)
	}
	defer rows.Close()

	var tasks []*settlement.Task
	for rows.Next() {
		var task settlement.Task
		err := rows.Scan(
			&task.ID,
			&task.Kind,
			&task.Status,
			&task.PettyRegisterID,
			&task.BankRegisterID,
			&task.Amount,
			&task.Attempts,
			&task.FailureReason,
			&task.CorrelationID,
			&task.CreatedAt,
			&task.LastAttemptAt,
			&task.AppliedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan settlement task", "error", err)
			return nil, fmt.Errorf("failed to scan settlement task: %w", err)
		}
		tasks = append(tasks, &task)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over settlement tasks", "error", err)
		return nil, fmt.Errorf("error iterating over settlement tasks: %w", err)
	}

	return tasks, nil
}

// UpdateStatus updates the task status, failure reason, and attempt
// timestamps. An APPLIED status also stamps applied_at.
func (r *SettlementRepository) UpdateStatus(ctx context.Context, id int64, status shared.SettlementStatus, reason string) error {
	query := `
		UPDATE settlement_journal
		SET status = $1, failure_reason = $2, last_attempt_at = $3,
		    applied_at = CASE WHEN $1 = 'APPLIED' THEN $3 ELSE applied_at END
		WHERE id = $4
	`

	result, err := r.querier.Exec(ctx, query, status, reason, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update settlement task status",
			"id", id,
			"status", string(status),
			"error", err,
		)
		return fmt.Errorf("failed to update settlement task status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return settlement.ErrTaskNotFound{ID: id}
	}

	return nil
}

// IncrementAttempts increments the retry counter and updates last attempt time.
func (r *SettlementRepository) IncrementAttempts(ctx context.Context, id int64) error {
	query := `
		UPDATE settlement_journal
		SET attempts = attempts + 1, last_attempt_at = $1
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to increment settlement task attempts",
			"id", id,
			"error", err,
		)
		return fmt.Errorf("failed to increment settlement task attempts: %w", err)
	}

	if result.RowsAffected() == 0 {
		return settlement.ErrTaskNotFound{ID: id}
	}

	return nil
}
