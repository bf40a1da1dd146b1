package main

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/commerce-platform/stock-ledger/internal/application"
	"github.com/commerce-platform/stock-ledger/internal/domain"
	"github.com/commerce-platform/stock-ledger/internal/infrastructure/projections"
	apperrors "github.com/commerce-platform/stock-ledger/pkg/errors"
	"github.com/commerce-platform/stock-ledger/pkg/logging"
	"github.com/commerce-platform/stock-ledger/pkg/middleware"
)

type summaryReader interface {
	FindByProduct(ctx context.Context, productID, locationID string) ([]*projections.StockSummary, error)
	ListLowStock(ctx context.Context, locationID string) ([]*projections.StockSummary, error)
}

// Handlers holds the HTTP handlers for the stock ledger API
type Handlers struct {
	coordinator *application.ReservationCoordinator
	queries     *application.StockQueryService
	advisor     *application.ReorderAdvisor
	summaries   summaryReader
	logger      *logging.Logger
}

// NewHandlers creates the API handlers
func NewHandlers(
	coordinator *application.ReservationCoordinator,
	queries *application.StockQueryService,
	advisor *application.ReorderAdvisor,
	summaries summaryReader,
	logger *logging.Logger,
) *Handlers {
	return &Handlers{
		coordinator: coordinator,
		queries:     queries,
		advisor:     advisor,
		summaries:   summaries,
		logger:      logger.WithComponent("http-handlers"),
	}
}

// RegisterRoutes mounts the API on the router
func (h *Handlers) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")

	stock := v1.Group("/stock")
	stock.POST("/receipts", h.ReceiveStock)
	stock.POST("/adjustments", h.RecordAdjustment)
	stock.POST("/counts", h.RecordCount)
	stock.POST("/returns", h.ReturnStock)
	stock.POST("/transfers", h.TransferStock)
	stock.GET("/:productId", h.GetStock)
	stock.GET("/:productId/ledger", h.ListLedger)
	stock.GET("/:productId/verify", h.VerifyLedger)

	reservations := v1.Group("/reservations")
	reservations.POST("", h.AllocateStock)
	reservations.GET("", h.ListActiveReservations)
	reservations.GET("/:id", h.GetReservation)
	reservations.POST("/:id/fulfill", h.FulfillReservation)
	reservations.POST("/:id/release", h.ReleaseReservation)

	v1.GET("/summaries/low-stock", h.ListLowStockSummaries)
	v1.GET("/summaries/:productId", h.GetSummaries)
	v1.GET("/reorder/advice", h.GetReorderAdvice)
}

type movementResponse struct {
	Record      *domain.StockRecord `json:"record"`
	Entry       *domain.LedgerEntry `json:"entry,omitempty"`
	Reservation *domain.Reservation `json:"reservation,omitempty"`
	Replayed    bool                `json:"replayed"`
}

func (h *Handlers) respondMovement(c *gin.Context, result *application.StockMovementResult) {
	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, movementResponse{
		Record:      result.Record,
		Entry:       result.Entry,
		Reservation: result.Reservation,
		Replayed:    result.Replayed,
	})
}

func (h *Handlers) responder(c *gin.Context) *middleware.ErrorResponder {
	return middleware.NewErrorResponder(c, h.logger.Logger)
}

type receiveStockRequest struct {
	ProductID     string `json:"productId" binding:"required"`
	VariantID     string `json:"variantId"`
	LocationID    string `json:"locationId" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required,gt=0"`
	ReferenceID   string `json:"referenceId" binding:"required"`
	ReferenceType string `json:"referenceType"`
	Actor         string `json:"actor"`
	Note          string `json:"note"`
	BinLocation   string `json:"binLocation"`
}

// ReceiveStock books inbound stock
func (h *Handlers) ReceiveStock(c *gin.Context) {
	var req receiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondWithAppError(apperrors.ErrValidation(err.Error()))
		return
	}

	result, err := h.coordinator.ReceiveStock(c.Request.Context(), application.ReceiveStockCommand{
		ProductID:     req.ProductID,
		VariantID:     req.VariantID,
		LocationID:    req.LocationID,
		Quantity:      req.Quantity,
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
		Actor:         req.Actor,
		Note:          req.Note,
		BinLocation:   req.BinLocation,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	h.respondMovement(c, result)
}

type adjustStockRequest struct {
	ProductID     string `json:"productId" binding:"required"`
	VariantID     string `json:"variantId"`
	LocationID    string `json:"locationId" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required"`
	ReferenceID   string `json:"referenceId"`
	ReferenceType string `json:"referenceType"`
	Actor         string `json:"actor"`
	Note          string `json:"note" binding:"required"`
}

// RecordAdjustment books a signed manual correction
func (h *Handlers) RecordAdjustment(c *gin.Context) {
	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondWithAppError(apperrors.ErrValidation(err.Error()))
		return
	}

	result, err := h.coordinator.RecordAdjustment(c.Request.Context(), application.AdjustStockCommand{
		ProductID:     req.ProductID,
		VariantID:     req.VariantID,
		LocationID:    req.LocationID,
		Quantity:      req.Quantity,
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
		Actor:         req.Actor,
		Note:          req.Note,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	h.respondMovement(c, result)
}

type recordCountRequest struct {
	ProductID       string `json:"productId" binding:"required"`
	VariantID       string `json:"variantId"`
	LocationID      string `json:"locationId" binding:"required"`
	CountedQuantity int    `json:"countedQuantity" binding:"gte=0"`
	ReferenceID     string `json:"referenceId"`
	ReferenceType   string `json:"referenceType"`
	Actor           string `json:"actor"`
	Note            string `json:"note"`
}

// RecordCount books a physical count
func (h *Handlers) RecordCount(c *gin.Context) {
	var req recordCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondWithAppError(apperrors.ErrValidation(err.Error()))
		return
	}

	result, err := h.coordinator.RecordCount(c.Request.Context(), application.RecordCountCommand{
		ProductID:       req.ProductID,
		VariantID:       req.VariantID,
		LocationID:      req.LocationID,
		CountedQuantity: req.CountedQuantity,
		ReferenceID:     req.ReferenceID,
		ReferenceType:   req.ReferenceType,
		Actor:           req.Actor,
		Note:            req.Note,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	h.respondMovement(c, result)
}

type returnStockRequest struct {
	ProductID     string `json:"productId" binding:"required"`
	VariantID     string `json:"variantId"`
	LocationID    string `json:"locationId" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required,gt=0"`
	ReferenceID   string `json:"referenceId"`
	ReferenceType string `json:"referenceType"`
	Actor         string `json:"actor"`
	Note          string `json:"note"`
}

// ReturnStock books a customer return
func (h *Handlers) ReturnStock(c *gin.Context) {
	var req returnStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondWithAppError(apperrors.ErrValidation(err.Error()))
		return
	}

	result, err := h.coordinator.ReturnStock(c.Request.Context(), application.ReturnStockCommand{
		ProductID:     req.ProductID,
		VariantID:     req.VariantID,
		LocationID:    req.LocationID,
		Quantity:      req.Quantity,
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
		Actor:         req.Actor,
		Note:          req.Note,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	h.respondMovement(c, result)
}

type transferStockRequest struct {
	ProductID      string `json:"productId" binding:"required"`
	VariantID      string `json:"variantId"`
	FromLocationID string `json:"fromLocationId" binding:"required"`
	ToLocationID   string `json:"toLocationId" binding:"required"`
	Quantity       int    `json:"quantity" binding:"required,gt=0"`
	ReferenceID    string `json:"referenceId" binding:"required"`
	Actor          string `json:"actor"`
	Note           string `json:"note"`
}

type transferResponse struct {
	Outbound *movementResponse `json:"outbound"`
	Inbound  *movementResponse `json:"inbound"`
}

// TransferStock moves stock between two locations
func (h *Handlers) TransferStock(c *gin.Context) {
	var req transferStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondWithAppError(apperrors.ErrValidation(err.Error()))
		return
	}

	result, err := h.coordinator.TransferStock(c.Request.Context(), application.TransferStockCommand{
		ProductID:      req.ProductID,
		VariantID:      req.VariantID,
		FromLocationID: req.FromLocationID,
		ToLocationID:   req.ToLocationID,
		Quantity:       req.Quantity,
		ReferenceID:    req.ReferenceID,
		Actor:          req.Actor,
		Note:           req.Note,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	c.JSON(http.StatusCreated, transferResponse{
		Outbound: &movementResponse{
			Record:   result.Outbound.Record,
			Entry:    result.Outbound.Entry,
			Replayed: result.Outbound.Replayed,
		},
		Inbound: &movementResponse{
			Record:   result.Inbound.Record,
			Entry:    result.Inbound.Entry,
			Replayed: result.Inbound.Replayed,
		},
	})
}

type allocateStockRequest struct {
	ProductID     string `json:"productId" binding:"required"`
	VariantID     string `json:"variantId"`
	LocationID    string `json:"locationId" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required,gt=0"`
	ReferenceID   string `json:"referenceId" binding:"required"`
	ReferenceType string `json:"referenceType"`
	Actor         string `json:"actor"`
	Note          string `json:"note"`
}

// AllocateStock reserves stock for an order
func (h *Handlers) AllocateStock(c *gin.Context) {
	var req allocateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondWithAppError(apperrors.ErrValidation(err.Error()))
		return
	}

	result, err := h.coordinator.AllocateStock(c.Request.Context(), application.AllocateStockCommand{
		ProductID:     req.ProductID,
		VariantID:     req.VariantID,
		LocationID:    req.LocationID,
		Quantity:      req.Quantity,
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
		Actor:         req.Actor,
		Note:          req.Note,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	h.respondMovement(c, result)
}

type fulfillReservationRequest struct {
	Quantity      int    `json:"quantity" binding:"required,gt=0"`
	ReferenceID   string `json:"referenceId" binding:"required"`
	ReferenceType string `json:"referenceType"`
	Actor         string `json:"actor"`
	Note          string `json:"note"`
}

// FulfillReservation ships units against a reservation
func (h *Handlers) FulfillReservation(c *gin.Context) {
	var req fulfillReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responder(c).RespondWithAppError(apperrors.ErrValidation(err.Error()))
		return
	}

	result, err := h.coordinator.FulfillReservation(c.Request.Context(), application.FulfillReservationCommand{
		ReservationID: c.Param("id"),
		Quantity:      req.Quantity,
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
		Actor:         req.Actor,
		Note:          req.Note,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	h.respondMovement(c, result)
}

type releaseReservationRequest struct {
	Actor string `json:"actor"`
	Note  string `json:"note"`
}

// ReleaseReservation cancels the outstanding part of a reservation
func (h *Handlers) ReleaseReservation(c *gin.Context) {
	var req releaseReservationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.responder(c).RespondWithAppError(apperrors.ErrValidation(err.Error()))
			return
		}
	}

	result, err := h.coordinator.ReleaseReservation(c.Request.Context(), application.ReleaseReservationCommand{
		ReservationID: c.Param("id"),
		Actor:         req.Actor,
		Note:          req.Note,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	h.respondMovement(c, result)
}

// GetStock returns stock records for a product. With a locationId query
// it resolves one exact record; otherwise it lists all records for the
// product.
func (h *Handlers) GetStock(c *gin.Context) {
	productID := c.Param("productId")
	locationID := c.Query("locationId")

	if locationID != "" {
		record, err := h.queries.GetStockRecord(c.Request.Context(), domain.RecordKey{
			ProductID:  productID,
			VariantID:  c.Query("variantId"),
			LocationID: locationID,
		})
		if err != nil {
			h.responder(c).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"record": record})
		return
	}

	records, err := h.queries.ListStockRecords(c.Request.Context(), productID, "")
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// ListLedger returns a page of the ledger for a record, oldest first
func (h *Handlers) ListLedger(c *gin.Context) {
	key := domain.RecordKey{
		ProductID:  c.Param("productId"),
		VariantID:  c.Query("variantId"),
		LocationID: c.Query("locationId"),
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)
	offset, _ := strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 64)

	entries, err := h.queries.ListLedgerEntries(c.Request.Context(), key, limit, offset)
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// VerifyLedger refolds the record's ledger and reports whether it matches
// the live counters.
func (h *Handlers) VerifyLedger(c *gin.Context) {
	key := domain.RecordKey{
		ProductID:  c.Param("productId"),
		VariantID:  c.Query("variantId"),
		LocationID: c.Query("locationId"),
	}

	consistent, err := h.queries.VerifyLedger(c.Request.Context(), key)
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key.String(), "consistent": consistent})
}

// GetReservation returns a reservation by id
func (h *Handlers) GetReservation(c *gin.Context) {
	reservation, err := h.queries.GetReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservation": reservation})
}

// ListActiveReservations returns the open reservations for a record
func (h *Handlers) ListActiveReservations(c *gin.Context) {
	key := domain.RecordKey{
		ProductID:  c.Query("productId"),
		VariantID:  c.Query("variantId"),
		LocationID: c.Query("locationId"),
	}

	reservations, err := h.queries.ListActiveReservations(c.Request.Context(), key)
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": reservations, "count": len(reservations)})
}

// GetSummaries returns the projected summaries for a product
func (h *Handlers) GetSummaries(c *gin.Context) {
	summaries, err := h.summaries.FindByProduct(c.Request.Context(), c.Param("productId"), c.Query("locationId"))
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summaries": summaries, "count": len(summaries)})
}

// ListLowStockSummaries returns the summaries currently flagged low
func (h *Handlers) ListLowStockSummaries(c *gin.Context) {
	summaries, err := h.summaries.ListLowStock(c.Request.Context(), c.Query("locationId"))
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summaries": summaries, "count": len(summaries)})
}

// GetReorderAdvice lists replenishment recommendations
func (h *Handlers) GetReorderAdvice(c *gin.Context) {
	advice, err := h.advisor.Advise(c.Request.Context(), c.Query("locationId"))
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"advice": advice, "count": len(advice)})
}
