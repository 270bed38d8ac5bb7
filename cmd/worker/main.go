package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jdramirez/servipro/internal/database"
	"github.com/jdramirez/servipro/internal/tasks"
	"github.com/jdramirez/servipro/pkg/config"
	"github.com/jdramirez/servipro/pkg/queue"
	"github.com/jdramirez/servipro/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting ServiPro worker")

	// Connect to database. The worker persists audit entries, so running
	// without a store makes no sense here.
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if db == nil {
		logger.Error("worker requires a persistent store, set DATABASE_DRIVER")
		os.Exit(1)
	}

	// Create Asynq server
	srv := queue.NewServer(&cfg.Redis, 10)

	// Create task handler
	handler := tasks.NewHandler(db, logger)

	// Register handlers
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Schedule the nightly audit prune
	scheduler := queue.NewScheduler(&cfg.Redis)
	pruneTask, err := tasks.NewAuditPruneTask(cfg.Audit.RetentionDays)
	if err != nil {
		logger.Error("failed to build prune task", "error", err)
		os.Exit(1)
	}
	if _, err := scheduler.Register("0 3 * * *", pruneTask, asynq.Queue("low")); err != nil {
		logger.Error("failed to register prune schedule", "error", err)
		os.Exit(1)
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error("scheduler error", "error", err)
		}
	}()

	// Handle shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		scheduler.Shutdown()
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	// Start the server
	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	// Wait for context cancellation
	<-ctx.Done()

	// Close database connection
	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
