package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wolfman30/chart-console/cmd/mainconfig"
	"github.com/wolfman30/chart-console/internal/api/router"
	"github.com/wolfman30/chart-console/internal/app/bootstrap"
	appconfig "github.com/wolfman30/chart-console/internal/config"
	"github.com/wolfman30/chart-console/internal/http/handlers"
	"github.com/wolfman30/chart-console/internal/observability/metrics"
	"github.com/wolfman30/chart-console/pkg/logging"
)

func main() {
	// Load .env when present; real environment variables win.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting chart-console API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	metricsHandler, chartMetrics := setupMetrics()

	summarizer, err := bootstrap.BuildSummarizer(ctx, cfg, mainconfig.LoadAWSConfig, logger)
	if err != nil {
		logger.Error("failed to configure summarizer", "error", err)
		os.Exit(1)
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	chart, err := bootstrap.BuildChart(cfg, bootstrap.ChartDeps{
		Summarizer: summarizer,
		Narratives: bootstrap.BuildNarrativeStore(redisClient, cfg, logger),
		Metrics:    chartMetrics,
	}, logger)
	if err != nil {
		logger.Error("failed to build chart session", "error", err)
		os.Exit(1)
	}

	// Initialize handlers
	routerCfg := &router.Config{
		Logger: logger,
		Records: handlers.NewRecordsHandler(handlers.RecordsConfig{
			Store:       chart.FHIR,
			SearchCount: cfg.FHIRSearchCount,
			Logger:      logger,
		}),
		Chart: handlers.NewChartHandler(handlers.ChartConfig{
			Store:       chart.Store,
			Browser:     chart.Browser,
			Coordinator: chart.Coordinator,
			Summary:     chart.Pipeline,
			Logger:      logger,
		}),
		Summary: handlers.NewSummaryHandler(handlers.SummaryConfig{
			Summarizer: summarizer,
			Logger:     logger,
		}),
		MetricsHandler:       metricsHandler,
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		OperatorJWTSecret:    cfg.OperatorJWTSecret,
		SummaryRatePerMinute: cfg.SummaryRatePerMinute,
	}
	if cfg.OperatorJWTSecret == "" {
		logger.Warn("OPERATOR_JWT_SECRET not set; console routes are unauthenticated")
	}
	r := router.New(routerCfg)

	// Create HTTP server. Summary waits can outlast a short write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	// Section loads run to completion; let them land before exiting.
	chart.Store.Drain()

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics registers chart metrics on a dedicated registry alongside the
// Go runtime and process collectors.
func setupMetrics() (http.Handler, *metrics.ChartMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewChartMetrics(reg)
}
