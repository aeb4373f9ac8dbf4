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

	"github.com/optica-backoffice/cash-ledger/internal/domain/movement"
)

const (
	// PettyMovementCollectionName holds petty cash drawer movements
	PettyMovementCollectionName = "petty_cash_movements"
	// BankMovementCollectionName holds bank register movements
	BankMovementCollectionName = "bank_cash_movements"
)

// MovementRepository implements movement.Repository for MongoDB, bound to a
// single collection. Movements are append-only; the only mutation is binding
// an unattached bank movement to a register.
type MovementRepository struct {
	db         *mongo.Database
	collection string
	logger     *slog.Logger
}

// NewPettyMovementRepository creates a repository over the petty movement collection
func NewPettyMovementRepository(logger *slog.Logger, db *mongo.Database) movement.Repository {
	return &MovementRepository{db: db, collection: PettyMovementCollectionName, logger: logger}
}

// NewBankMovementRepository creates a repository over the bank movement collection
func NewBankMovementRepository(logger *slog.Logger, db *mongo.Database) movement.Repository {
	return &MovementRepository{db: db, collection: BankMovementCollectionName, logger: logger}
}

// Create appends a new movement document.
func (r *MovementRepository) Create(ctx context.Context, mov *movement.Movement) error {
	collection := r.db.Collection(r.collection)

	_, err := collection.InsertOne(ctx, mov)
	if err != nil {
		r.logger.Error("Failed to create movement",
			"movement_id", mov.ID.String(),
			"error", err)
		return fmt.Errorf("failed to create movement: %w", err)
	}

	return nil
}

// GetByID retrieves a movement by id.
func (r *MovementRepository) GetByID(ctx context.Context, id uuid.UUID) (*movement.Movement, error) {
	collection := r.db.Collection(r.collection)

	var mov movement.Movement
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&mov)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, movement.ErrMovementNotFound{MovementID: id}
		}
		r.logger.Error("Failed to get movement", "movement_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get movement: %w", err)
	}

	return &mov, nil
}

// GetByRegisterID retrieves paginated movements for a register, newest first.
// Archived registers keep their audit trail; no lifecycle filter applies here.
func (r *MovementRepository) GetByRegisterID(ctx context.Context, registerID uuid.UUID, limit, offset int) ([]*movement.Movement, error) {
	collection := r.db.Collection(r.collection)

	filter := bson.M{"register_id": registerID}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get movements", "register_id", registerID.String(), "error", err)
		return nil, fmt.Errorf("failed to get movements: %w", err)
	}
	defer cursor.Close(ctx)

	var movs []*movement.Movement
	if err := cursor.All(ctx, &movs); err != nil {
		r.logger.Error("Failed to decode movements", "register_id", registerID.String(), "error", err)
		return nil, fmt.Errorf("failed to decode movements: %w", err)
	}

	return movs, nil
}

// CountByRegisterID counts the movements of a register.
func (r *MovementRepository) CountByRegisterID(ctx context.Context, registerID uuid.UUID) (int64, error) {
	collection := r.db.Collection(r.collection)

	count, err := collection.CountDocuments(ctx, bson.M{"register_id": registerID})
	if err != nil {
		r.logger.Error("Failed to count movements", "register_id", registerID.String(), "error", err)
		return 0, fmt.Errorf("failed to count movements: %w", err)
	}

	return count, nil
}

// GetByReference retrieves the movement carrying the given reference string.
// Returns nil, nil when none exists, enabling idempotent settlement retries.
func (r *MovementRepository) GetByReference(ctx context.Context, reference string) (*movement.Movement, error) {
	if reference == "" {
		return nil, movement.ErrEmptyReference
	}

	collection := r.db.Collection(r.collection)

	var mov movement.Movement
	err := collection.FindOne(ctx, bson.M{"reference": reference}).Decode(&mov)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to get movement by reference", "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to get movement by reference: %w", err)
	}

	return &mov, nil
}

// FindUnattachedInRange returns bank movements with no register reference
// dated within [from, to), oldest first, for the operator reconcile pass.
func (r *MovementRepository) FindUnattachedInRange(ctx context.Context, from, to time.Time) ([]*movement.Movement, error) {
	collection := r.db.Collection(r.collection)

	filter := bson.M{
		"register_id": nil,
		"date": bson.M{
			"$gte": from,
			"$lt":  to,
		},
	}
	opts := options.Find().SetSort(bson.M{"date": 1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to find unattached movements", "from", from, "to", to, "error", err)
		return nil, fmt.Errorf("failed to find unattached movements: %w", err)
	}
	defer cursor.Close(ctx)

	var movs []*movement.Movement
	if err := cursor.All(ctx, &movs); err != nil {
		r.logger.Error("Failed to decode unattached movements", "from", from, "to", to, "error", err)
		return nil, fmt.Errorf("failed to decode unattached movements: %w", err)
	}

	return movs, nil
}

// Attach binds an unattached movement to a register, recording the balance
// snapshots computed at bind time.
func (r *MovementRepository) Attach(ctx context.Context, movementID, registerID uuid.UUID, before, after int64) error {
	collection := r.db.Collection(r.collection)

	filter := bson.M{"_id": movementID, "register_id": nil}
	update := bson.M{
		"$set": bson.M{
			"register_id":    registerID,
			"balance_before": before,
			"balance_after":  after,
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to attach movement",
			"movement_id", movementID.String(),
			"register_id", registerID.String(),
			"error", err)
		return fmt.Errorf("failed to attach movement: %w", err)
	}
	if result.MatchedCount == 0 {
		return movement.ErrMovementNotFound{MovementID: movementID}
	}

	return nil
}
