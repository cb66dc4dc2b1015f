// Package config loads process configuration from the environment. Business
// thresholds (policy) and the indicator catalog live in YAML files the
// config points at.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration.
type Config struct {
	Server    Server
	Log       Log
	Postgres  Postgres
	Redis     RedisConfig
	Kafka     Kafka
	Catalog   Catalog
	Scheduler Scheduler
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"SGLGB_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SGLGB_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	RequestTimeout  time.Duration `env:"SGLGB_REQUEST_TIMEOUT" envDefault:"30s"`
	// TxTimeout bounds a single assessment transaction.
	TxTimeout time.Duration `env:"SGLGB_TX_TIMEOUT" envDefault:"5s"`
}

type Log struct {
	Level  string `env:"SGLGB_LOG_LEVEL" envDefault:"info"`
	Format string `env:"SGLGB_LOG_FORMAT" envDefault:"json"`
}

// Postgres is optional; without a DSN the service runs on in-memory stores.
type Postgres struct {
	DSN             string        `env:"SGLGB_DATABASE_URL"`
	MaxOpenConns    int           `env:"SGLGB_DB_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"SGLGB_DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"SGLGB_DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	Migrate         bool          `env:"SGLGB_DB_MIGRATE" envDefault:"true"`
}

// RedisConfig enables the distributed per-assessment lock when URL is set.
type RedisConfig struct {
	URL          string        `env:"SGLGB_REDIS_URL"`
	PoolSize     int           `env:"SGLGB_REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"SGLGB_REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"SGLGB_REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"SGLGB_REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"SGLGB_REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	LockTTL      time.Duration `env:"SGLGB_LOCK_TTL" envDefault:"10s"`
}

// Kafka enables the event dispatcher when Brokers is non-empty.
type Kafka struct {
	Brokers           []string `env:"SGLGB_KAFKA_BROKERS" envSeparator:","`
	Topic             string   `env:"SGLGB_KAFKA_TOPIC" envDefault:"sglgb.assessment-events"`
	Partitions        int32    `env:"SGLGB_KAFKA_PARTITIONS" envDefault:"3"`
	ReplicationFactor int16    `env:"SGLGB_KAFKA_REPLICATION_FACTOR" envDefault:"1"`
	EnsureTopic       bool     `env:"SGLGB_KAFKA_ENSURE_TOPIC" envDefault:"true"`
}

// Catalog points at the YAML business data.
type Catalog struct {
	Dir          string        `env:"SGLGB_CATALOG_DIR" envDefault:"configs/catalog"`
	PolicyFile   string        `env:"SGLGB_POLICY_FILE" envDefault:"configs/policy.yaml"`
	ReloadPeriod time.Duration `env:"SGLGB_POLICY_RELOAD" envDefault:"30s"`
}

type Scheduler struct {
	Enabled          bool          `env:"SGLGB_SCHEDULER_ENABLED" envDefault:"true"`
	ReminderInterval time.Duration `env:"SGLGB_REMINDER_INTERVAL" envDefault:"6h"`
	AutoSubmitEvery  time.Duration `env:"SGLGB_AUTOSUBMIT_INTERVAL" envDefault:"15m"`
	Concurrency      int           `env:"SGLGB_SCAN_CONCURRENCY" envDefault:"8"`
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Scheduler.Concurrency < 1 {
		return errors.New("SGLGB_SCAN_CONCURRENCY must be at least 1")
	}
	if c.Scheduler.ReminderInterval <= 0 || c.Scheduler.AutoSubmitEvery <= 0 {
		return errors.New("scheduler intervals must be positive")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("SGLGB_KAFKA_TOPIC is required when brokers are set")
	}
	return nil
}
