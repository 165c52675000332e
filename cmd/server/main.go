package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tracklytics/internal/delivery"
	"tracklytics/internal/infrastructure"
	"tracklytics/internal/usecase"
	"tracklytics/pkg/config"
	"tracklytics/pkg/logger"
	"tracklytics/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
	log.Info("Starting tracklytics server")

	m := metrics.New()

	tracker := infrastructure.NewTrackerClient(infrastructure.TrackerClientOptions{
		BaseURL:     cfg.Tracker.BaseURL,
		APIKey:      cfg.Tracker.APIKey,
		Timeout:     cfg.Tracker.RequestTimeout,
		RateLimit:   cfg.Tracker.RateLimitPerSecond,
		PageSize:    cfg.Tracker.PageSize,
		Concurrency: cfg.Tracker.FetchConcurrency,
		MaxRetries:  cfg.Tracker.MaxRetries,
		Backoff:     cfg.Tracker.RetryBackoff,
	}, log, m)

	catalogCache := infrastructure.NewCatalogCache(tracker, cfg.Report.CatalogTTL, log)

	reportService := usecase.NewReportService(
		tracker,
		tracker,
		catalogCache,
		usecase.NewWindowResolver(cfg.Report.LocalUTCOffset),
		usecase.NewSourceClassifier(cfg.Report.GoogleSourceIDs),
		log,
		m,
	)

	handlers := delivery.NewHTTPHandlers(reportService, log, m)
	router := delivery.NewHTTPRouter(handlers, log, m, cfg.Tracker.RequestTimeout*2)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router.SetupRoutes(),
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Forced shutdown")
	}

	log.Info("Server stopped")
}
