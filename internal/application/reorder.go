package application

import (
	"context"
	"fmt"

	"github.com/commerce-platform/stock-ledger/internal/domain"
	"github.com/commerce-platform/stock-ledger/pkg/logging"
)

type reorderMetrics interface {
	SetLowStockRecords(n float64)
}

// ReorderAdvice is one replenishment recommendation
type ReorderAdvice struct {
	Record            *domain.StockRecord `json:"record"`
	SuggestedQuantity int                 `json:"suggestedQuantity"`
}

// ReorderAdvisor surfaces records at or below their reorder point
type ReorderAdvisor struct {
	records stockRecordRepository
	metrics reorderMetrics
	logger  *logging.Logger
}

// NewReorderAdvisor creates an advisor. metrics may be nil.
func NewReorderAdvisor(records stockRecordRepository, metrics reorderMetrics, logger *logging.Logger) *ReorderAdvisor {
	return &ReorderAdvisor{
		records: records,
		metrics: metrics,
		logger:  logger.WithComponent("reorder-advisor"),
	}
}

// Advise lists replenishment recommendations, optionally scoped to one
// location. Records with no headroom under their max stock level are
// reported with a zero suggestion rather than dropped, so operators still
// see them flagged.
func (a *ReorderAdvisor) Advise(ctx context.Context, locationID string) ([]ReorderAdvice, error) {
	records, err := a.records.FindBelowReorderPoint(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to scan for low stock: %w", err)
	}

	advice := make([]ReorderAdvice, 0, len(records))
	for _, record := range records {
		advice = append(advice, ReorderAdvice{
			Record:            record,
			SuggestedQuantity: record.SuggestedReorderQuantity(),
		})
	}

	if a.metrics != nil && locationID == "" {
		a.metrics.SetLowStockRecords(float64(len(advice)))
	}

	return advice, nil
}
