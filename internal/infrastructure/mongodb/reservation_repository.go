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

const reservationCollection = "reservations"

// ReservationRepository persists reservations
type ReservationRepository struct {
	collection *mongo.Collection
}

// NewReservationRepository creates the repository
func NewReservationRepository(db *mongo.Database) *ReservationRepository {
	return &ReservationRepository{collection: db.Collection(reservationCollection)}
}

// FindByID returns a reservation, or (nil, nil) when absent
func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*domain.Reservation, error) {
	var reservation domain.Reservation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&reservation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find reservation %s: %w", id, err)
	}
	return &reservation, nil
}

// ListActiveByKey returns the open reservations for a record
func (r *ReservationRepository) ListActiveByKey(ctx context.Context, key domain.RecordKey) ([]*domain.Reservation, error) {
	filter := keyFilter(key)
	filter["status"] = domain.ReservationActive

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations for %s: %w", key, err)
	}
	defer cursor.Close(ctx)

	var reservations []*domain.Reservation
	if err := cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}
	return reservations, nil
}

// save upserts a reservation by id
func (r *ReservationRepository) save(ctx context.Context, reservation *domain.Reservation) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": reservation.ID}, reservation, opts); err != nil {
		return fmt.Errorf("failed to save reservation %s: %w", reservation.ID, err)
	}
	return nil
}

// EnsureIndexes creates the lookup indexes
func (r *ReservationRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "key.productId", Value: 1},
				{Key: "key.variantId", Value: 1},
				{Key: "key.locationId", Value: 1},
				{Key: "status", Value: 1},
			},
			Options: options.Index().SetName("idx_key_status"),
		},
		{
			Keys:    bson.D{{Key: "reference.id", Value: 1}},
			Options: options.Index().SetName("idx_reference"),
		},
	}

	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create reservation indexes: %w", err)
	}
	return nil
}
