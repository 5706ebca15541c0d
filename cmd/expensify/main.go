package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aequasi/expensify-to-excel/internal/archive"
	"github.com/aequasi/expensify-to-excel/internal/config"
	"github.com/aequasi/expensify-to-excel/internal/domain"
	"github.com/aequasi/expensify-to-excel/internal/handler"
	"github.com/aequasi/expensify-to-excel/internal/infra/cache"
	"github.com/aequasi/expensify-to-excel/internal/infra/client"
	"github.com/aequasi/expensify-to-excel/internal/infra/observability"
	"github.com/aequasi/expensify-to-excel/internal/infra/resilience"
	"github.com/aequasi/expensify-to-excel/internal/report"
	"github.com/aequasi/expensify-to-excel/internal/service"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("receipt_storage_url", cfg.ReceiptStorageURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("batch_timeout", cfg.BatchTimeout),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Int("row_concurrency", cfg.RowConcurrency),
		zap.Duration("cache_ttl", cfg.CacheTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "expensify-to-excel")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Cache ---
	descriptorCache := cache.New[*domain.TransactionDescriptor](cfg.CacheTTL)
	defer descriptorCache.Close()

	// --- Resilience ---
	pagesCB := resilience.NewCircuitBreaker("receipt-pages")
	storageCB := resilience.NewCircuitBreaker("receipt-storage")
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	resolver := client.NewReceiptPageClient(httpClient, pagesCB, client.Extractor{
		Marker:     cfg.ReceiptMarker,
		Terminator: cfg.ReceiptTerminator,
	})
	fetcher := client.NewReceiptStorageClient(httpClient, storageCB, client.StorageOptions{
		BaseURL:  cfg.ReceiptStorageURL,
		TempDir:  cfg.TempDir,
		MaxBytes: cfg.MaxReceiptBytes,
	}, logger)

	// --- Report assets ---
	logo, err := report.LoadLogo(cfg.LogoPath)
	if err != nil {
		logger.Fatal("failed to load logo", zap.String("path", cfg.LogoPath), zap.Error(err))
	}

	// --- Services ---
	acquisition := service.NewAcquisition(
		resolver,
		fetcher,
		descriptorCache,
		bulkhead,
		service.AcquisitionOptions{
			RowConcurrency: cfg.RowConcurrency,
			BatchTimeout:   cfg.BatchTimeout,
		},
		metrics,
		logger,
	)
	reportSvc := service.NewReportService(acquisition, archive.NewAssembler(logger), logo, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(reportSvc, metrics, handler.Options{
		MaxUploadBytes: cfg.MaxUploadBytes,
		Breakers:       []*gobreaker.CircuitBreaker{pagesCB, storageCB},
	}, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.BatchTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.BatchTimeout+15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
