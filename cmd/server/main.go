package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pep299/research-blog-pipeline/internal/config"
	"github.com/pep299/research-blog-pipeline/internal/di"
	"github.com/pep299/research-blog-pipeline/internal/handlers"
	"github.com/pep299/research-blog-pipeline/internal/logging"
	"github.com/pep299/research-blog-pipeline/internal/scheduler"
	"github.com/pep299/research-blog-pipeline/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Verbose)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := di.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}
	defer container.Close()

	// Setup routes
	router := handlers.NewServer(container).SetupRoutes()

	// Pipeline runs take several model calls, so writes get a longer deadline
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Scheduled runs
	sched := scheduler.New(logger.Named("scheduler"))
	if cfg.ScheduleCron != "" {
		n, err := sched.Schedule(ctx, cfg.ScheduleCron, cfg.ScheduledTopics, func(ctx context.Context, topic string) error {
			_, err := container.Runner.Run(ctx, topic, service.Options{Notify: true, Archive: true})
			return err
		})
		if err != nil {
			logger.Fatal("Failed to schedule runs", zap.Error(err))
		}
		logger.Info("Scheduler configured", zap.Int("jobs", n))
	}
	sched.Start()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server
	go func() {
		logger.Info("Starting server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	logger.Info("Shutting down server...")

	// Cancel scheduled runs
	cancel()
	<-sched.Stop().Done()

	// Shutdown HTTP server
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}
