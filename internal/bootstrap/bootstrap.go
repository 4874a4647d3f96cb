// Package bootstrap builds the runtime dependencies shared by the API and
// worker binaries from the loaded configuration.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cuongbtq/report-service/internal/artifact"
	"github.com/cuongbtq/report-service/internal/config"
	"github.com/cuongbtq/report-service/internal/domain"
	"github.com/cuongbtq/report-service/internal/gateway"
	"github.com/cuongbtq/report-service/internal/migrate"
	"github.com/cuongbtq/report-service/internal/render"
	"github.com/cuongbtq/report-service/internal/report"
	"github.com/cuongbtq/report-service/internal/scheduler"
	"github.com/cuongbtq/report-service/shared/logger"
	"github.com/cuongbtq/report-service/shared/postgresql"
	"github.com/cuongbtq/report-service/shared/rabbitmq"
)

// InitLogger initializes and configures the application logger
func InitLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// InitPostgreSQL connects to PostgreSQL and applies pending migrations when enabled
func InitPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	client, err := postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if cfg.RunMigrations {
		if err := migrate.Up(client.GetDB().DB, logger); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return client, nil
}

// InitRabbitMQ initializes the RabbitMQ client
func InitRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	return rabbitmq.NewClient(&rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}, logger)
}

// InitArtifactStore builds the configured artifact backend. The returned
// closer releases backend connections and is never nil.
func InitArtifactStore(cfg *config.Config, logger *slog.Logger) (artifact.Store, io.Closer, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:       cfg.Redis.Addrs,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		logger.Info("Using Redis artifact storage",
			slog.Any("addrs", cfg.Redis.Addrs),
			slog.Duration("ttl", cfg.Storage.RedisTTL),
		)
		return artifact.NewRedisStore(client, cfg.Storage.RedisKeyPrefix, cfg.Storage.RedisTTL, logger), client, nil

	case config.StorageBackendLocal, "":
		store, err := artifact.NewLocalStore(cfg.Storage.LocalDir, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using local artifact storage",
			slog.String("dir", cfg.Storage.LocalDir),
		)
		return store, io.NopCloser(nil), nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %q", cfg.Storage.Backend)
	}
}

// RetryPolicy converts the configured retry settings
func RetryPolicy(cfg *config.RetryConfig) scheduler.RetryPolicy {
	return scheduler.RetryPolicy{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		Multiplier:      cfg.Multiplier,
	}
}

// NewJobRunner wires the orchestrator to its collaborators and wraps it in the
// retrying runner.
func NewJobRunner(cfg *config.Config, jobs report.JobRepository, store artifact.Store, logger *slog.Logger) *scheduler.Runner {
	fetcher := gateway.NewCentralBankClient(gateway.Config{
		URL:       cfg.Gateway.URL,
		Timeout:   cfg.Gateway.Timeout,
		RateLimit: cfg.Gateway.RateLimit,
		Burst:     cfg.Gateway.Burst,
	}, nil, logger)

	orchestrator := report.NewOrchestrator(report.OrchestratorOptions{
		Jobs:     jobs,
		Fetcher:  fetcher,
		Renderer: render.NewPDFRenderer(),
		Store:    store,
		Logger:   logger,
	})

	runner := scheduler.NewRunner(orchestrator, RetryPolicy(&cfg.Worker.Retry), logger,
		scheduler.WithPermanentErrors(domain.IsPermanent),
	)

	policy := runner.Policy()
	logger.Info("Job runner configured",
		slog.Int("max_attempts", policy.MaxAttempts),
		slog.Duration("initial_interval", policy.InitialInterval),
		slog.Duration("max_interval", policy.MaxInterval),
	)

	return runner
}

// NewReconciler builds the resubmission loop for jobs left Pending
func NewReconciler(cfg *config.Config, jobs report.JobRepository, queue report.Enqueuer, logger *slog.Logger) *report.Reconciler {
	return report.NewReconciler(report.ReconcilerOptions{
		Jobs:           jobs,
		Queue:          queue,
		Logger:         logger,
		Interval:       cfg.Queue.Reconcile.Interval,
		GracePeriod:    cfg.Queue.Reconcile.GracePeriod,
		BatchSize:      cfg.Queue.Reconcile.BatchSize,
		EnqueueTimeout: cfg.Queue.EnqueueTimeout,
	})
}
