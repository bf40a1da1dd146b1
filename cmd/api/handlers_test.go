package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commerce-platform/stock-ledger/internal/infrastructure/projections"
	"github.com/commerce-platform/stock-ledger/pkg/logging"
)

type fakeSummaryReader struct {
	summaries []*projections.StockSummary
}

func (f *fakeSummaryReader) FindByProduct(_ context.Context, productID, locationID string) ([]*projections.StockSummary, error) {
	var out []*projections.StockSummary
	for _, s := range f.summaries {
		if s.ProductID != productID {
			continue
		}
		if locationID != "" && s.LocationID != locationID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSummaryReader) ListLowStock(_ context.Context, locationID string) ([]*projections.StockSummary, error) {
	var out []*projections.StockSummary
	for _, s := range f.summaries {
		if !s.IsLowStock {
			continue
		}
		if locationID != "" && s.LocationID != locationID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func newTestRouter(summaries summaryReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logging.New(logging.Config{Service: "stock-ledger-test", Level: "error"})
	router := gin.New()
	NewHandlers(nil, nil, nil, summaries, logger).RegisterRoutes(router)
	return router
}

func TestHandlers_ListLowStockSummaries(t *testing.T) {
	reader := &fakeSummaryReader{summaries: []*projections.StockSummary{
		{ID: projections.SummaryID("prod-1", "", "WH-A"), ProductID: "prod-1", LocationID: "WH-A", OnHand: 2, IsLowStock: true},
		{ID: projections.SummaryID("prod-2", "", "WH-A"), ProductID: "prod-2", LocationID: "WH-A", OnHand: 40},
		{ID: projections.SummaryID("prod-3", "", "WH-B"), ProductID: "prod-3", LocationID: "WH-B", OnHand: 1, IsLowStock: true},
	}}
	router := newTestRouter(reader)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/summaries/low-stock", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Summaries []*projections.StockSummary `json:"summaries"`
		Count     int                         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)

	// location filter narrows the listing
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/summaries/low-stock?locationId=WH-B", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "prod-3", body.Summaries[0].ProductID)
}

func TestHandlers_GetSummariesByProduct(t *testing.T) {
	reader := &fakeSummaryReader{summaries: []*projections.StockSummary{
		{ID: projections.SummaryID("prod-1", "", "WH-A"), ProductID: "prod-1", LocationID: "WH-A", OnHand: 12},
		{ID: projections.SummaryID("prod-1", "var-red", "WH-A"), ProductID: "prod-1", VariantID: "var-red", LocationID: "WH-A", OnHand: 4},
	}}
	router := newTestRouter(reader)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/summaries/prod-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Summaries []*projections.StockSummary `json:"summaries"`
		Count     int                         `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
}
