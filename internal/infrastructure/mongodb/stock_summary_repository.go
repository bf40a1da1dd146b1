package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/commerce-platform/stock-ledger/internal/infrastructure/projections"
)

const stockSummaryCollection = "stock_summaries"

// StockSummaryRepository persists the projected stock summaries
type StockSummaryRepository struct {
	collection *mongo.Collection
}

// NewStockSummaryRepository creates the repository
func NewStockSummaryRepository(db *mongo.Database) *StockSummaryRepository {
	return &StockSummaryRepository{collection: db.Collection(stockSummaryCollection)}
}

// Upsert writes a summary by its deterministic id
func (r *StockSummaryRepository) Upsert(ctx context.Context, summary *projections.StockSummary) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": summary.ID}, summary, opts); err != nil {
		return fmt.Errorf("failed to upsert stock summary %s: %w", summary.ID, err)
	}
	return nil
}

// FindByProduct returns the summaries for a product, optionally scoped to
// one location. Variant summaries sort after the product-level one.
func (r *StockSummaryRepository) FindByProduct(ctx context.Context, productID, locationID string) ([]*projections.StockSummary, error) {
	filter := bson.M{"productId": productID}
	if locationID != "" {
		filter["locationId"] = locationID
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "locationId", Value: 1},
		{Key: "variantId", Value: 1},
	})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock summaries for %s: %w", productID, err)
	}
	defer cursor.Close(ctx)

	var summaries []*projections.StockSummary
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("failed to decode stock summaries: %w", err)
	}
	return summaries, nil
}

// ListLowStock returns summaries currently flagged low, optionally scoped
// to one location.
func (r *StockSummaryRepository) ListLowStock(ctx context.Context, locationID string) ([]*projections.StockSummary, error) {
	filter := bson.M{"isLowStock": true}
	if locationID != "" {
		filter["locationId"] = locationID
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "available", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock summaries: %w", err)
	}
	defer cursor.Close(ctx)

	var summaries []*projections.StockSummary
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("failed to decode stock summaries: %w", err)
	}
	return summaries, nil
}

// EnsureIndexes creates the product and low-stock lookup indexes
func (r *StockSummaryRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "productId", Value: 1},
				{Key: "locationId", Value: 1},
			},
			Options: options.Index().SetName("idx_product_location"),
		},
		{
			Keys: bson.D{
				{Key: "isLowStock", Value: 1},
				{Key: "locationId", Value: 1},
			},
			Options: options.Index().SetName("idx_low_stock"),
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create stock summary indexes: %w", err)
	}
	return nil
}
