package projections

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commerce-platform/stock-ledger/internal/domain"
	"github.com/commerce-platform/stock-ledger/pkg/logging"
)

type fakeRecordSource struct {
	records []*domain.StockRecord
}

func (f *fakeRecordSource) ListByProduct(_ context.Context, productID, locationID string) ([]*domain.StockRecord, error) {
	var out []*domain.StockRecord
	for _, r := range f.records {
		if r.Key.ProductID != productID {
			continue
		}
		if locationID != "" && r.Key.LocationID != locationID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

type fakeSummaryStore struct {
	summaries map[string]*StockSummary
}

func newFakeSummaryStore() *fakeSummaryStore {
	return &fakeSummaryStore{summaries: make(map[string]*StockSummary)}
}

func (f *fakeSummaryStore) Upsert(_ context.Context, summary *StockSummary) error {
	copied := *summary
	f.summaries[summary.ID] = &copied
	return nil
}

func seedRecord(t *testing.T, productID, variantID, locationID string, onHand, allocated int) *domain.StockRecord {
	t.Helper()
	record, err := domain.NewStockRecord(domain.RecordKey{
		ProductID:  productID,
		VariantID:  variantID,
		LocationID: locationID,
	})
	require.NoError(t, err)
	record.OnHand = onHand
	record.Allocated = allocated
	return record
}

func TestStockProjector_VariantRecordsExcludedFromProductSummaryByDefault(t *testing.T) {
	source := &fakeRecordSource{records: []*domain.StockRecord{
		seedRecord(t, "prod-1", "", "WH-A", 40, 5),
		seedRecord(t, "prod-1", "var-red", "WH-A", 12, 2),
		seedRecord(t, "prod-1", "var-blue", "WH-A", 8, 0),
	}}
	store := newFakeSummaryStore()
	projector := NewStockProjector(source, store, testLogger())

	err := projector.Refresh(context.Background(), domain.RecordKey{
		ProductID: "prod-1", VariantID: "var-red", LocationID: "WH-A",
	})
	require.NoError(t, err)

	variant := store.summaries[SummaryID("prod-1", "var-red", "WH-A")]
	require.NotNil(t, variant)
	assert.Equal(t, 12, variant.OnHand)
	assert.Equal(t, 2, variant.Allocated)
	assert.Equal(t, 10, variant.Available)
	assert.Equal(t, 1, variant.RecordCount)

	// The product summary reflects only the base record: counting the
	// variants too would double the totals when both exist.
	product := store.summaries[SummaryID("prod-1", "", "WH-A")]
	require.NotNil(t, product)
	assert.Equal(t, 40, product.OnHand)
	assert.Equal(t, 5, product.Allocated)
	assert.Equal(t, 35, product.Available)
	assert.Equal(t, 1, product.RecordCount)
}

func TestStockProjector_IncludeVariantStockFoldsVariantsIntoProduct(t *testing.T) {
	source := &fakeRecordSource{records: []*domain.StockRecord{
		seedRecord(t, "prod-1", "var-red", "WH-A", 12, 2),
		seedRecord(t, "prod-1", "var-blue", "WH-A", 8, 0),
	}}
	store := newFakeSummaryStore()
	projector := NewStockProjector(source, store, testLogger(), WithVariantStockIncluded())

	err := projector.Refresh(context.Background(), domain.RecordKey{
		ProductID: "prod-1", VariantID: "var-blue", LocationID: "WH-A",
	})
	require.NoError(t, err)

	product := store.summaries[SummaryID("prod-1", "", "WH-A")]
	require.NotNil(t, product)
	assert.Equal(t, 20, product.OnHand)
	assert.Equal(t, 2, product.Allocated)
	assert.Equal(t, 18, product.Available)
	assert.Equal(t, 2, product.RecordCount)
}

func TestStockProjector_ScopesToLocation(t *testing.T) {
	source := &fakeRecordSource{records: []*domain.StockRecord{
		seedRecord(t, "prod-1", "", "WH-A", 40, 5),
		seedRecord(t, "prod-1", "", "WH-B", 7, 0),
	}}
	store := newFakeSummaryStore()
	projector := NewStockProjector(source, store, testLogger())

	err := projector.Refresh(context.Background(), domain.RecordKey{
		ProductID: "prod-1", LocationID: "WH-B",
	})
	require.NoError(t, err)

	summary := store.summaries[SummaryID("prod-1", "", "WH-B")]
	require.NotNil(t, summary)
	assert.Equal(t, 7, summary.OnHand)
	assert.Nil(t, store.summaries[SummaryID("prod-1", "", "WH-A")])
}

func TestStockProjector_FlagsLowAndOutOfStock(t *testing.T) {
	low := seedRecord(t, "prod-2", "", "WH-A", 3, 3) // at reorder point, nothing available
	source := &fakeRecordSource{records: []*domain.StockRecord{low}}
	store := newFakeSummaryStore()
	projector := NewStockProjector(source, store, testLogger())

	err := projector.Refresh(context.Background(), domain.RecordKey{
		ProductID: "prod-2", LocationID: "WH-A",
	})
	require.NoError(t, err)

	summary := store.summaries[SummaryID("prod-2", "", "WH-A")]
	require.NotNil(t, summary)
	assert.True(t, summary.IsLowStock)
	assert.True(t, summary.IsOutOfStock)
	assert.Equal(t, 0, summary.Available)
}

func TestStockProjector_HandleRefreshesFromEvent(t *testing.T) {
	source := &fakeRecordSource{records: []*domain.StockRecord{
		seedRecord(t, "prod-3", "", "WH-A", 15, 0),
	}}
	store := newFakeSummaryStore()
	projector := NewStockProjector(source, store, testLogger())

	event := domain.StockReceivedEvent{StockLevelChanged: domain.StockLevelChanged{
		Key:       domain.RecordKey{ProductID: "prod-3", LocationID: "WH-A"},
		Kind:      string(domain.KindReceipt),
		Quantity:  15,
		OnHand:    15,
		Available: 15,
		Timestamp: time.Now().UTC(),
	}}

	require.NoError(t, projector.Handle(context.Background(), event))

	summary := store.summaries[SummaryID("prod-3", "", "WH-A")]
	require.NotNil(t, summary)
	assert.Equal(t, 15, summary.OnHand)
}

func testLogger() *logging.Logger {
	return logging.New(logging.Config{Service: "test", Level: "error"})
}
