// Package mongo provides MongoDB implementations of the register and movement
// repositories. The document store exposes four collections: petty registers,
// petty movements, bank registers, bank movements.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/optica-backoffice/cash-ledger/internal/domain/register"
)

const (
	// PettyRegisterCollectionName holds daily petty cash registers
	PettyRegisterCollectionName = "petty_cash_registers"
	// BankRegisterCollectionName holds monthly bank registers
	BankRegisterCollectionName = "bank_cash_registers"
)

// RegisterRepository implements register.Repository for MongoDB, bound to a
// single collection.
type RegisterRepository struct {
	db         *mongo.Database
	collection string
	logger     *slog.Logger
}

// NewPettyRegisterRepository creates a repository over the petty register collection
func NewPettyRegisterRepository(logger *slog.Logger, db *mongo.Database) register.Repository {
	return &RegisterRepository{db: db, collection: PettyRegisterCollectionName, logger: logger}
}

// NewBankRegisterRepository creates a repository over the bank register collection
func NewBankRegisterRepository(logger *slog.Logger, db *mongo.Database) register.Repository {
	return &RegisterRepository{db: db, collection: BankRegisterCollectionName, logger: logger}
}

// Create stores a new register document.
func (r *RegisterRepository) Create(ctx context.Context, reg *register.CashRegister) error {
	collection := r.db.Collection(r.collection)

	_, err := collection.InsertOne(ctx, reg)
	if err != nil {
		r.logger.Error("Failed to create cash register",
			"register_id", reg.ID.String(),
			"kind", string(reg.Kind),
			"error", err)
		return fmt.Errorf("failed to create cash register: %w", err)
	}

	return nil
}

// GetByID retrieves a register by id. Returns ErrRegisterNotFound if no
// document exists, in any state or lifecycle.
func (r *RegisterRepository) GetByID(ctx context.Context, id uuid.UUID) (*register.CashRegister, error) {
	collection := r.db.Collection(r.collection)

	var reg register.CashRegister
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&reg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, register.ErrRegisterNotFound{RegisterID: id}
		}
		r.logger.Error("Failed to get cash register", "register_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get cash register: %w", err)
	}

	return &reg, nil
}

// Update overwrites the mutable fields of a register document.
func (r *RegisterRepository) Update(ctx context.Context, reg *register.CashRegister) error {
	collection := r.db.Collection(r.collection)

	update := bson.M{
		"$set": bson.M{
			"initial_balance": reg.InitialBalance,
			"current_balance": reg.CurrentBalance,
			"state":           reg.State,
			"lifecycle":       reg.Lifecycle,
			"note":            reg.Note,
			"bank_register_id": func() interface{} {
				if reg.BankRegisterID == nil {
					return nil
				}
				return *reg.BankRegisterID
			}(),
			"closed_at":  reg.ClosedAt,
			"updated_at": time.Now(),
		},
	}

	result, err := collection.UpdateOne(ctx, bson.M{"_id": reg.ID}, update)
	if err != nil {
		r.logger.Error("Failed to update cash register", "register_id", reg.ID.String(), "error", err)
		return fmt.Errorf("failed to update cash register: %w", err)
	}
	if result.MatchedCount == 0 {
		return register.ErrRegisterNotFound{RegisterID: reg.ID}
	}

	return nil
}

// UpdateBalance overwrites the stored current balance. Last write wins: the
// balance read-modify-write path carries no concurrency token, matching the
// documented weak-consistency mode of the engine.
func (r *RegisterRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance int64) error {
	collection := r.db.Collection(r.collection)

	update := bson.M{"$set": bson.M{"current_balance": balance, "updated_at": time.Now()}}
	result, err := collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		r.logger.Error("Failed to update register balance", "register_id", id.String(), "error", err)
		return fmt.Errorf("failed to update register balance: %w", err)
	}
	if result.MatchedCount == 0 {
		return register.ErrRegisterNotFound{RegisterID: id}
	}

	return nil
}

// FindByPeriodStart returns the register anchored within the day starting at
// periodStart, regardless of state or lifecycle. This is the existence check
// behind the one-register-per-period rule. Returns nil, nil when none exists.
func (r *RegisterRepository) FindByPeriodStart(ctx context.Context, periodStart time.Time) (*register.CashRegister, error) {
	collection := r.db.Collection(r.collection)

	dayStart := register.StartOfDay(periodStart)
	filter := bson.M{
		"period_start": bson.M{
			"$gte": dayStart,
			"$lt":  dayStart.AddDate(0, 0, 1),
		},
	}

	var reg register.CashRegister
	err := collection.FindOne(ctx, filter).Decode(&reg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to find register by period start", "period_start", dayStart, "error", err)
		return nil, fmt.Errorf("failed to find register by period start: %w", err)
	}

	return &reg, nil
}

// FindOpenInMonth returns every OPEN, active register anchored within the
// month containing monthStart.
func (r *RegisterRepository) FindOpenInMonth(ctx context.Context, monthStart time.Time) ([]*register.CashRegister, error) {
	collection := r.db.Collection(r.collection)

	start := register.StartOfMonth(monthStart)
	filter := bson.M{
		"period_start": bson.M{"$gte": start, "$lt": start.AddDate(0, 1, 0)},
		"state":        register.StateOpen,
		"lifecycle":    register.LifecycleActive,
	}

	return r.findAll(ctx, collection, filter, options.Find().SetSort(bson.M{"period_start": 1}))
}

// FindAllOpen returns every OPEN, active register in the collection.
func (r *RegisterRepository) FindAllOpen(ctx context.Context) ([]*register.CashRegister, error) {
	collection := r.db.Collection(r.collection)

	filter := bson.M{
		"state":     register.StateOpen,
		"lifecycle": register.LifecycleActive,
	}

	return r.findAll(ctx, collection, filter, options.Find().SetSort(bson.M{"period_start": 1}))
}

// FindLatestClosedInMonth returns the most recently anchored CLOSED register
// within the month containing monthStart. Used by the rollover fallback to
// inherit the prior month's closing balance. Returns nil, nil when none.
func (r *RegisterRepository) FindLatestClosedInMonth(ctx context.Context, monthStart time.Time) (*register.CashRegister, error) {
	collection := r.db.Collection(r.collection)

	start := register.StartOfMonth(monthStart)
	filter := bson.M{
		"period_start": bson.M{"$gte": start, "$lt": start.AddDate(0, 1, 0)},
		"state":        register.StateClosed,
	}
	opts := options.FindOne().SetSort(bson.M{"period_start": -1})

	var reg register.CashRegister
	err := collection.FindOne(ctx, filter, opts).Decode(&reg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to find latest closed register in month", "month_start", start, "error", err)
		return nil, fmt.Errorf("failed to find latest closed register in month: %w", err)
	}

	return &reg, nil
}

// FindClosedActiveByBankID returns every CLOSED, active petty register linked
// to the given bank register. Archived drawers are excluded so a soft-deleted
// register never leaks into a balance recomputation.
func (r *RegisterRepository) FindClosedActiveByBankID(ctx context.Context, bankID uuid.UUID) ([]*register.CashRegister, error) {
	collection := r.db.Collection(r.collection)

	filter := bson.M{
		"bank_register_id": bankID,
		"state":            register.StateClosed,
		"lifecycle":        register.LifecycleActive,
	}

	return r.findAll(ctx, collection, filter, options.Find().SetSort(bson.M{"period_start": 1}))
}

// ListActive returns paginated active registers, newest period first.
func (r *RegisterRepository) ListActive(ctx context.Context, limit, offset int) ([]*register.CashRegister, error) {
	collection := r.db.Collection(r.collection)

	filter := bson.M{"lifecycle": register.LifecycleActive}
	opts := options.Find().
		SetSort(bson.M{"period_start": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	return r.findAll(ctx, collection, filter, opts)
}

// CountActive counts active registers in the collection.
func (r *RegisterRepository) CountActive(ctx context.Context) (int64, error) {
	collection := r.db.Collection(r.collection)

	count, err := collection.CountDocuments(ctx, bson.M{"lifecycle": register.LifecycleActive})
	if err != nil {
		r.logger.Error("Failed to count active registers", "error", err)
		return 0, fmt.Errorf("failed to count active registers: %w", err)
	}

	return count, nil
}

// Count counts every register in the collection, in any state or lifecycle.
func (r *RegisterRepository) Count(ctx context.Context) (int64, error) {
	collection := r.db.Collection(r.collection)

	count, err := collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		r.logger.Error("Failed to count registers", "error", err)
		return 0, fmt.Errorf("failed to count registers: %w", err)
	}

	return count, nil
}

func (r *RegisterRepository) findAll(ctx context.Context, collection *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]*register.CashRegister, error) {
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to query registers", "error", err)
		return nil, fmt.Errorf("failed to query registers: %w", err)
	}
	defer cursor.Close(ctx)

	var regs []*register.CashRegister
	if err := cursor.All(ctx, &regs); err != nil {
		r.logger.Error("Failed to decode registers", "error", err)
		return nil, fmt.Errorf("failed to decode registers: %w", err)
	}

	return regs, nil
}
