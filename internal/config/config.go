package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	// report timezones resolve without a system zoneinfo database
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535

	// EnvPrefix prefixes every environment override, e.g. REPORT_DATABASE_PASSWORD
	EnvPrefix = "REPORT_"
)

// Queue drivers
const (
	QueueDriverRabbitMQ = "rabbitmq"
	QueueDriverMemory   = "memory"
)

// Artifact storage backends
const (
	StorageBackendLocal = "local"
	StorageBackendRedis = "redis"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq" envPrefix:"RABBITMQ_"`
	Redis    RedisConfig    `yaml:"redis" envPrefix:"REDIS_"`
	Logging  LoggingConfig  `yaml:"logging" envPrefix:"LOG_"`
	App      AppConfig      `yaml:"app" envPrefix:"APP_"`
	Worker   WorkerConfig   `yaml:"worker" envPrefix:"WORKER_"`
	Queue    JobQueueConfig `yaml:"queue" envPrefix:"QUEUE_"`
	Storage  StorageConfig  `yaml:"storage" envPrefix:"STORAGE_"`
	Gateway  GatewayConfig  `yaml:"gateway" envPrefix:"GATEWAY_"`
	Report   ReportConfig   `yaml:"report"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" env:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	User            string        `yaml:"user" env:"USER"`
	Password        string        `yaml:"password" env:"PASSWORD"`
	Database        string        `yaml:"database" env:"NAME"`
	SSLMode         string        `yaml:"sslmode" env:"SSLMODE"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	RunMigrations   bool          `yaml:"run_migrations" env:"RUN_MIGRATIONS"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host" env:"HOST"`
	Port       int              `yaml:"port" env:"PORT"`
	User       string           `yaml:"user" env:"USER"`
	Password   string           `yaml:"password" env:"PASSWORD"`
	VHost      string           `yaml:"vhost" env:"VHOST"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int `yaml:"prefetch_count"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addrs       []string      `yaml:"addrs" env:"ADDRS"`
	Password    string        `yaml:"password" env:"PASSWORD"`
	DB          int           `yaml:"db" env:"DB"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level" env:"LEVEL"`
	Format       string `yaml:"format" env:"FORMAT"`
	Output       string `yaml:"output" env:"OUTPUT"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment" env:"ENVIRONMENT"`
}

// WorkerConfig holds job execution settings shared by the worker service
// and the in-process pool
type WorkerConfig struct {
	ID              string        `yaml:"id" env:"ID"`
	Concurrency     int           `yaml:"concurrency" env:"CONCURRENCY"`
	QueueSize       int           `yaml:"queue_size"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Retry           RetryConfig   `yaml:"retry" envPrefix:"RETRY_"`
}

// RetryConfig holds the per-job retry policy
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	InitialInterval time.Duration `yaml:"initial_interval" env:"INITIAL_INTERVAL"`
	MaxInterval     time.Duration `yaml:"max_interval" env:"MAX_INTERVAL"`
	Multiplier      float64       `yaml:"multiplier"`
}

// JobQueueConfig selects how accepted jobs reach a worker
type JobQueueConfig struct {
	Driver         string          `yaml:"driver" env:"DRIVER"`
	EnqueueTimeout time.Duration   `yaml:"enqueue_timeout"`
	Reconcile      ReconcileConfig `yaml:"reconcile" envPrefix:"RECONCILE_"`
}

// ReconcileConfig controls the resubmission of jobs left Pending
type ReconcileConfig struct {
	Interval    time.Duration `yaml:"interval" env:"INTERVAL"`
	GracePeriod time.Duration `yaml:"grace_period" env:"GRACE_PERIOD"`
	BatchSize   int           `yaml:"batch_size"`
}

// StorageConfig holds artifact storage configuration
type StorageConfig struct {
	Backend        string        `yaml:"backend" env:"BACKEND"`
	LocalDir       string        `yaml:"local_dir" env:"LOCAL_DIR"`
	RedisKeyPrefix string        `yaml:"redis_key_prefix"`
	RedisTTL       time.Duration `yaml:"redis_ttl"`
}

// GatewayConfig holds rate feed client configuration
type GatewayConfig struct {
	URL       string        `yaml:"url" env:"URL"`
	Timeout   time.Duration `yaml:"timeout" env:"TIMEOUT"`
	RateLimit float64       `yaml:"rate_limit"`
	Burst     int           `yaml:"burst"`
}

// ReportConfig holds report generation settings
type ReportConfig struct {
	Timezone string `yaml:"timezone" env:"TIMEZONE"`
}

// Load reads and parses the configuration file, then applies environment overrides
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := env.ParseWithOptions(&config, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Queue.Driver == "" {
		c.Queue.Driver = QueueDriverRabbitMQ
	}
	if c.Queue.EnqueueTimeout <= 0 {
		c.Queue.EnqueueTimeout = 2 * time.Second
	}
	if c.Queue.Reconcile.Interval <= 0 {
		c.Queue.Reconcile.Interval = 30 * time.Second
	}
	if c.Queue.Reconcile.GracePeriod <= 0 {
		c.Queue.Reconcile.GracePeriod = 2 * time.Minute
	}
	if c.Queue.Reconcile.BatchSize <= 0 {
		c.Queue.Reconcile.BatchSize = 100
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageBackendLocal
	}
	if c.Report.Timezone == "" {
		c.Report.Timezone = "UTC"
	}
	if c.Worker.Concurrency <= 0 {
		c.Worker.Concurrency = 1
	}
	if c.Worker.ShutdownTimeout <= 0 {
		c.Worker.ShutdownTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
}

// Location resolves the report timezone
func (c *Config) Location() (*time.Location, error) {
	name := c.Report.Timezone
	if name == "" {
		name = "UTC"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid report timezone %q: %w", name, err)
	}
	return loc, nil
}

// Validate checks the settings both services depend on
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return errors.New("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return errors.New("database name is required")
	}

	switch c.Storage.Backend {
	case StorageBackendLocal:
		if c.Storage.LocalDir == "" {
			return errors.New("storage local_dir is required for the local backend")
		}
	case StorageBackendRedis:
		if len(c.Redis.Addrs) == 0 {
			return errors.New("redis addrs are required for the redis storage backend")
		}
	default:
		return fmt.Errorf("unknown storage backend: %q", c.Storage.Backend)
	}

	if c.Worker.Retry.MaxAttempts < 0 {
		return fmt.Errorf("worker retry max_attempts must not be negative: %d", c.Worker.Retry.MaxAttempts)
	}

	// a job must not be resubmitted while its first submission may still be in flight
	if c.Queue.Reconcile.GracePeriod < c.Queue.EnqueueTimeout {
		return fmt.Errorf("queue reconcile grace_period (%s) must not be shorter than enqueue_timeout (%s)",
			c.Queue.Reconcile.GracePeriod, c.Queue.EnqueueTimeout)
	}

	if c.Gateway.RateLimit < 0 {
		return fmt.Errorf("gateway rate_limit must not be negative: %v", c.Gateway.RateLimit)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	return nil
}

// ValidateAPIConfig checks the settings the API service needs
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.Validate(); err != nil {
		return err
	}

	switch c.Queue.Driver {
	case QueueDriverRabbitMQ:
		return c.validateRabbitMQ()
	case QueueDriverMemory:
		return nil
	default:
		return fmt.Errorf("unknown queue driver: %q", c.Queue.Driver)
	}
}

// ValidateWorkerConfig checks the settings the worker service needs
func (c *Config) ValidateWorkerConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Queue.Driver != QueueDriverRabbitMQ {
		return fmt.Errorf("worker service requires the %q queue driver, got %q", QueueDriverRabbitMQ, c.Queue.Driver)
	}

	if err := c.validateRabbitMQ(); err != nil {
		return err
	}

	if c.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be greater than 0")
	}

	if c.RabbitMQ.Consumer.PrefetchCount < 0 {
		return fmt.Errorf("rabbitmq prefetch_count must not be negative: %d", c.RabbitMQ.Consumer.PrefetchCount)
	}

	return nil
}

func (c *Config) validateRabbitMQ() error {
	if c.RabbitMQ.Host == "" {
		return errors.New("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return errors.New("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return errors.New("rabbitmq queue name is required")
	}

	return nil
}
