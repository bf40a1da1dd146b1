package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/commerce-platform/stock-ledger/internal/application"
	infra "github.com/commerce-platform/stock-ledger/internal/infrastructure/mongodb"
	"github.com/commerce-platform/stock-ledger/internal/infrastructure/projections"
	"github.com/commerce-platform/stock-ledger/pkg/kafka"
	"github.com/commerce-platform/stock-ledger/pkg/logging"
	"github.com/commerce-platform/stock-ledger/pkg/metrics"
	"github.com/commerce-platform/stock-ledger/pkg/middleware"
	"github.com/commerce-platform/stock-ledger/pkg/mongodb"
	"github.com/commerce-platform/stock-ledger/pkg/outbox"
	outboxmongo "github.com/commerce-platform/stock-ledger/pkg/outbox/mongodb"
	"github.com/commerce-platform/stock-ledger/pkg/tracing"
)

func main() {
	// .env is for local development; absence is fine
	_ = godotenv.Load()

	cfg := LoadConfig()

	logger := logging.New(logging.Config{
		Service: serviceName,
		Level:   cfg.LogLevel,
		Version: cfg.Version,
	})

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("service terminated")
		os.Exit(1)
	}
}

func run(cfg *Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracerProvider, err := tracing.Initialize(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer shutdownTracing(tracerProvider, logger)

	mongoClient, err := mongodb.NewClient(ctx, cfg.Mongo)
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			logger.WithError(err).Warn("mongodb disconnect failed")
		}
	}()

	db := mongoClient.Database(cfg.Mongo.Database)

	recordRepo := infra.NewStockRecordRepository(db)
	entryRepo := infra.NewLedgerEntryRepository(db)
	reservationRepo := infra.NewReservationRepository(db)
	summaryRepo := infra.NewStockSummaryRepository(db)
	outboxRepo := outboxmongo.NewRepository(db)

	if err := ensureIndexes(ctx, recordRepo, entryRepo, reservationRepo, summaryRepo, outboxRepo); err != nil {
		return err
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))

	producer := kafka.NewProducer(cfg.Kafka)
	breaker := kafka.NewBreakerProducer(producer, logger)
	defer func() {
		if err := breaker.Close(); err != nil {
			logger.WithError(err).Warn("kafka producer close failed")
		}
	}()

	publisher := outbox.NewPublisher(outboxRepo, breaker, m, logger, cfg.Outbox)
	publisher.Start(ctx)
	defer publisher.Stop()

	projector := projections.NewStockProjector(recordRepo, summaryRepo, logger,
		projections.WithProjectorMetrics(m),
	)

	uow := infra.NewUnitOfWork(mongoClient, recordRepo, entryRepo, reservationRepo, outboxRepo)

	coordinator := application.NewReservationCoordinator(
		recordRepo, entryRepo, reservationRepo, uow, logger,
		application.WithProjections(projector),
		application.WithMetrics(m),
	)
	queries := application.NewStockQueryService(recordRepo, recordRepo, entryRepo, reservationRepo, logger)
	advisor := application.NewReorderAdvisor(recordRepo, m, logger)

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	middleware.Setup(router, logger.Logger)
	router.Use(middleware.MetricsMiddleware(m))

	router.GET("/health", middleware.HealthCheck(serviceName, cfg.Version))
	router.GET("/ready", middleware.ReadinessCheck(map[string]func() error{
		"mongodb": func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return mongoClient.Ping(pingCtx, readpref.Primary())
		},
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	NewHandlers(coordinator, queries, advisor, summaryRepo, logger).RegisterRoutes(router)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return nil
}

type indexEnsurer interface {
	EnsureIndexes(ctx context.Context) error
}

func ensureIndexes(ctx context.Context, ensurers ...indexEnsurer) error {
	for _, e := range ensurers {
		if err := e.EnsureIndexes(ctx); err != nil {
			return err
		}
	}
	return nil
}

func shutdownTracing(tp *tracing.TracerProvider, logger *logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tp.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("tracer shutdown failed")
	}
}
