package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/commerce-platform/stock-ledger/internal/domain"
)

const ledgerEntryCollection = "ledger_entries"

// LedgerEntryRepository persists the append-only ledger
type LedgerEntryRepository struct {
	collection *mongo.Collection
}

// NewLedgerEntryRepository creates the repository
func NewLedgerEntryRepository(db *mongo.Database) *LedgerEntryRepository {
	return &LedgerEntryRepository{collection: db.Collection(ledgerEntryCollection)}
}

// FindByReference returns the entry recorded for (key, kind, reference),
// or (nil, nil) when the reference has not been seen. This is the
// idempotency lookup.
func (r *LedgerEntryRepository) FindByReference(ctx context.Context, key domain.RecordKey, kind domain.TransactionKind, referenceID string) (*domain.LedgerEntry, error) {
	filter := keyFilter(key)
	filter["kind"] = kind
	filter["reference.id"] = referenceID

	var entry domain.LedgerEntry
	err := r.collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find ledger entry by reference %s: %w", referenceID, err)
	}
	return &entry, nil
}

// ListByKey returns the ledger for a key, oldest first. A non-positive
// limit returns the full history.
func (r *LedgerEntryRepository) ListByKey(ctx context.Context, key domain.RecordKey, limit, offset int64) ([]*domain.LedgerEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "recordedAt", Value: 1}})
	if offset > 0 {
		opts.SetSkip(offset)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, keyFilter(key), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries for %s: %w", key, err)
	}
	defer cursor.Close(ctx)

	var entries []*domain.LedgerEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode ledger entries: %w", err)
	}
	return entries, nil
}

// insert appends an entry. A duplicate (key, kind, reference) means a
// concurrent writer won the idempotency race.
func (r *LedgerEntryRepository) insert(ctx context.Context, entry *domain.LedgerEntry) error {
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConcurrencyConflict
		}
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// EnsureIndexes creates the idempotency and history indexes. The unique
// reference index is partial so unreferenced entries do not collide.
func (r *LedgerEntryRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "key.productId", Value: 1},
				{Key: "key.variantId", Value: 1},
				{Key: "key.locationId", Value: 1},
				{Key: "kind", Value: 1},
				{Key: "reference.id", Value: 1},
			},
			Options: options.Index().
				SetName("idx_idempotent_reference").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"reference.id": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{
				{Key: "key.productId", Value: 1},
				{Key: "key.variantId", Value: 1},
				{Key: "key.locationId", Value: 1},
				{Key: "recordedAt", Value: 1},
			},
			Options: options.Index().SetName("idx_key_recordedAt"),
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create ledger entry indexes: %w", err)
	}
	return nil
}
