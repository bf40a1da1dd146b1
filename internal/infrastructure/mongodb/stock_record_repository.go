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

const stockRecordCollection = "stock_records"

// StockRecordRepository persists stock records
type StockRecordRepository struct {
	collection *mongo.Collection
}

// NewStockRecordRepository creates the repository
func NewStockRecordRepository(db *mongo.Database) *StockRecordRepository {
	return &StockRecordRepository{collection: db.Collection(stockRecordCollection)}
}

func keyFilter(key domain.RecordKey) bson.M {
	filter := bson.M{
		"key.productId":  key.ProductID,
		"key.locationId": key.LocationID,
	}
	if key.VariantID != "" {
		filter["key.variantId"] = key.VariantID
	} else {
		filter["key.variantId"] = bson.M{"$exists": false}
	}
	return filter
}

// FindByKey returns the record for a key, or (nil, nil) when absent
func (r *StockRecordRepository) FindByKey(ctx context.Context, key domain.RecordKey) (*domain.StockRecord, error) {
	var record domain.StockRecord
	err := r.collection.FindOne(ctx, keyFilter(key)).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find stock record %s: %w", key, err)
	}
	return &record, nil
}

// ListByProduct returns all records for a product, optionally scoped to
// one location.
func (r *StockRecordRepository) ListByProduct(ctx context.Context, productID, locationID string) ([]*domain.StockRecord, error) {
	filter := bson.M{"key.productId": productID}
	if locationID != "" {
		filter["key.locationId"] = locationID
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock records for %s: %w", productID, err)
	}
	defer cursor.Close(ctx)

	var records []*domain.StockRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode stock records: %w", err)
	}
	return records, nil
}

// FindBelowReorderPoint returns tracked records with on-hand at or below
// their reorder point, optionally scoped to one location.
func (r *StockRecordRepository) FindBelowReorderPoint(ctx context.Context, locationID string) ([]*domain.StockRecord, error) {
	filter := bson.M{
		"trackingEnabled": true,
		"$expr":           bson.M{"$lte": bson.A{"$onHand", "$reorderPoint"}},
	}
	if locationID != "" {
		filter["key.locationId"] = locationID
	}

	opts := options.Find().SetSort(bson.D{{Key: "onHand", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for low stock: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*domain.StockRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode stock records: %w", err)
	}
	return records, nil
}

// save writes a record with optimistic concurrency. Version 1 inserts a
// new document; higher versions replace the previous version or fail with
// ErrConcurrencyConflict.
func (r *StockRecordRepository) save(ctx context.Context, record *domain.StockRecord) error {
	if record.Version == 1 {
		if _, err := r.collection.InsertOne(ctx, record); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrConcurrencyConflict
			}
			return fmt.Errorf("failed to insert stock record %s: %w", record.Key, err)
		}
		return nil
	}

	filter := bson.M{"_id": record.ID, "version": record.Version - 1}
	result, err := r.collection.ReplaceOne(ctx, filter, record)
	if err != nil {
		return fmt.Errorf("failed to update stock record %s: %w", record.Key, err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrConcurrencyConflict
	}
	return nil
}

// EnsureIndexes creates the unique key index and query indexes
func (r *StockRecordRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "key.productId", Value: 1},
				{Key: "key.variantId", Value: 1},
				{Key: "key.locationId", Value: 1},
			},
			Options: options.Index().SetName("idx_record_key").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "key.locationId", Value: 1}},
			Options: options.Index().SetName("idx_location"),
		},
		{
			Keys: bson.D{
				{Key: "trackingEnabled", Value: 1},
				{Key: "onHand", Value: 1},
			},
			Options: options.Index().SetName("idx_reorder_scan"),
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create stock record indexes: %w", err)
	}
	return nil
}
