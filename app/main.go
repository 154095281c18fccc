package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/productsafe/recallwatch/app/api"
	"github.com/productsafe/recallwatch/app/cfg"
	"github.com/productsafe/recallwatch/app/database"
	"github.com/productsafe/recallwatch/app/matching"
	"github.com/productsafe/recallwatch/app/notify"
	"github.com/productsafe/recallwatch/app/pipeline"
	"github.com/productsafe/recallwatch/app/scheduler"
	"github.com/productsafe/recallwatch/app/sources"
)

func main() {
	appConfig, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appConfig == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appConfig.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting RecallWatch", "version", appConfig.Version)

	db, err := database.NewConnection(appConfig.DBPath)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	slog.Info("Database ready", "path", appConfig.DBPath, "schema_version", version, "dirty", dirty)

	recallRepo := database.NewRecallRepository(db)
	productRepo := database.NewProductRepository(db)
	matchRepo := database.NewMatchRepository(db)
	notificationRepo := database.NewNotificationRepository(db)

	configCache := sources.NewConfigCache(appConfig.SourcesDir)
	if err := configCache.Run(); err != nil {
		log.Fatal("Failed to load source configurations:", err)
	}
	slog.Info("Source configurations loaded", "count", configCache.GetConfigCount())

	httpClient := &http.Client{Timeout: 60 * time.Second}

	adapters, err := sources.BuildAdapters(configCache, httpClient, appConfig.UserAgent)
	if err != nil {
		log.Fatal("Failed to build source adapters:", err)
	}

	var sink notify.Sink
	if appConfig.SinkURL != "" {
		sink = notify.NewWebhookSink(appConfig.SinkURL, httpClient, appConfig.UserAgent,
			time.Duration(appConfig.SinkTimeout)*time.Second)
		slog.Info("Delivery sink configured", "kind", "webhook")
	} else {
		sink = notify.NewLogSink()
		slog.Info("Delivery sink configured", "kind", "log")
	}

	engine := matching.NewEngine(recallRepo, productRepo, matchRepo, appConfig.MatchWindowDays)
	batcher := notify.NewBatcher(matchRepo, notificationRepo, sink, appConfig.NotifyWindowHours)
	runner := pipeline.NewRunner(adapters, recallRepo, engine, batcher, appConfig.WorkerCount)

	pipelineScheduler := scheduler.NewScheduler(runner,
		time.Duration(appConfig.SyncInterval)*time.Minute)
	pipelineScheduler.Start()
	defer pipelineScheduler.Stop()

	handler := api.NewHandler(runner, configCache, recallRepo, productRepo, matchRepo, notificationRepo)
	server := api.NewServer(handler, appConfig.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appConfig.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // a triggered sync responds with the full run summary
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appConfig.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer, cancelling any in-flight run
	slog.Info("Shutdown complete")
}
