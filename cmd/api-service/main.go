package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuongbtq/report-service/internal/api/handler"
	"github.com/cuongbtq/report-service/internal/api/router"
	"github.com/cuongbtq/report-service/internal/bootstrap"
	"github.com/cuongbtq/report-service/internal/config"
	"github.com/cuongbtq/report-service/internal/queue"
	"github.com/cuongbtq/report-service/internal/report"
	"github.com/cuongbtq/report-service/internal/scheduler"
	"github.com/cuongbtq/report-service/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.InitLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger = appLogger.WithAttrs(slog.String("service", cfg.App.Name))
	appLogger.Info("Starting API service",
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("queue_driver", cfg.Queue.Driver),
		slog.String("storage_backend", cfg.Storage.Backend),
	)

	location, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}

	// Cleanup functions run in reverse order of registration
	var cleanups []func()
	defer func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}()

	dbClient, err := bootstrap.InitPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	cleanups = append(cleanups, func() { dbClient.Close() })
	appLogger.Info("Database connection established")

	jobs := storage.NewStorage(dbClient.GetDB(), appLogger.Logger)

	artifacts, artifactCloser, err := bootstrap.InitArtifactStore(cfg, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize artifact storage: %w", err)
	}
	cleanups = append(cleanups, func() { artifactCloser.Close() })

	var enqueuer report.Enqueuer
	switch cfg.Queue.Driver {
	case config.QueueDriverMemory:
		pool := scheduler.NewPool(scheduler.PoolConfig{
			Logger:      appLogger.Logger,
			Runner:      bootstrap.NewJobRunner(cfg, jobs, artifacts, appLogger.Logger),
			Concurrency: cfg.Worker.Concurrency,
			QueueSize:   cfg.Worker.QueueSize,
			EnqueueWait: cfg.Queue.EnqueueTimeout,
		})
		pool.Start(context.Background())
		cleanups = append(cleanups, pool.Stop)
		enqueuer = pool
		appLogger.Info("In-process job pool started",
			slog.Int("concurrency", cfg.Worker.Concurrency),
		)

		// no worker service runs in this mode, so stale jobs are resubmitted here
		reconcileCtx, stopReconciler := context.WithCancel(context.Background())
		cleanups = append(cleanups, stopReconciler)
		go bootstrap.NewReconciler(cfg, jobs, pool, appLogger.Logger).Run(reconcileCtx)

	default:
		rabbitClient, err := bootstrap.InitRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		cleanups = append(cleanups, func() { rabbitClient.Close() })
		enqueuer = queue.NewRabbitEnqueuer(rabbitClient, appLogger.Logger)
		appLogger.Info("RabbitMQ connection established")
	}

	service := report.NewService(report.ServiceOptions{
		Jobs:           jobs,
		Queue:          enqueuer,
		Logger:         appLogger.Logger,
		Location:       location,
		EnqueueTimeout: cfg.Queue.EnqueueTimeout,
	})

	r := initRouter(cfg, appLogger.Logger, &handler.Dependencies{
		Logger:      appLogger.Logger,
		ServiceName: cfg.App.Name,
		Reports:     service,
		Artifacts:   artifacts,
		Health:      dbClient,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		appLogger.Error("Server failed", slog.Any("error", err))
		return err
	case sig := <-quit:
		appLogger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initRouter sets the gin mode for the environment and builds the router
func initRouter(cfg *config.Config, logger *slog.Logger, deps *handler.Dependencies) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	logger.Debug("Registering routes", slog.String("base_path", handler.ReportsPath))
	return router.SetupRouter(deps)
}
