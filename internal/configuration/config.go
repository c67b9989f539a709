// Package configuration holds runtime settings for the adhere CLI and worker.
//
// Settings come from DefaultConfig, overridden by environment variables
// (optionally loaded from a .env file). Scoring configuration records are not
// part of this package; they live in configstore.
package configuration

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ahrav/go-adhere/internal/batch"
	"github.com/ahrav/go-adhere/internal/domain"
	"github.com/ahrav/go-adhere/internal/metricsource"
	"github.com/ahrav/go-adhere/internal/sink"
)

// Config holds every runtime setting.
type Config struct {
	Log      LogConfig      `json:"log"`
	Batch    BatchConfig    `json:"batch"`
	Cache    CacheConfig    `json:"cache"`
	Database DatabaseConfig `json:"database"`
	Kafka    KafkaConfig    `json:"kafka"`
	Temporal TemporalConfig `json:"temporal"`
	Server   ServerConfig   `json:"server"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text or json
}

// BatchConfig tunes the batch runner and the workflow fan-out.
type BatchConfig struct {
	Concurrency   int                      `json:"concurrency"`
	RatePerSecond float64                  `json:"rate_per_second"` // 0 disables throttling
	Burst         int                      `json:"burst"`
	ChunkSize     int                      `json:"chunk_size"`
	Summary       domain.AggregationPolicy `json:"summary"`
}

// CacheConfig selects the per-run score cache.
type CacheConfig struct {
	Backend       string        `json:"backend"` // none, memory, redis
	TTL           time.Duration `json:"ttl"`
	RedisAddr     string        `json:"redis_addr"`
	RedisPassword string        `json:"-"`
	RedisDB       int           `json:"redis_db"`
}

// DatabaseConfig configures the SQL metric source.
type DatabaseConfig struct {
	DSN             string        `json:"-"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	QueryTimeout    time.Duration `json:"query_timeout"`
}

// KafkaConfig configures the Kafka result sink.
type KafkaConfig struct {
	Brokers          []string      `json:"brokers"`
	Topic            string        `json:"topic"`
	WriteTimeout     time.Duration `json:"write_timeout"`
	FailureThreshold uint32        `json:"failure_threshold"`
	OpenTimeout      time.Duration `json:"open_timeout"`
}

// TemporalConfig locates the Temporal frontend.
type TemporalConfig struct {
	HostPort  string `json:"host_port"`
	Namespace string `json:"namespace"`
	TaskQueue string `json:"task_queue"`
}

// ServerConfig configures the worker's HTTP endpoints.
type ServerConfig struct {
	MetricsAddr string `json:"metrics_addr"`
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format must be text or json, got %q", c.Log.Format))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	if c.Batch.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("batch concurrency must be >= 0"))
	}
	if c.Batch.RatePerSecond < 0 {
		errs = append(errs, fmt.Errorf("batch rate must be >= 0"))
	}
	if c.Batch.ChunkSize < 0 {
		errs = append(errs, fmt.Errorf("batch chunk size must be >= 0"))
	}
	if err := c.Batch.Summary.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("summary policy: %w", err))
	}

	switch c.Cache.Backend {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			errs = append(errs, fmt.Errorf("redis cache requires an address"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}

	if c.Temporal.TaskQueue == "" {
		errs = append(errs, fmt.Errorf("temporal task queue is required"))
	}
	return errors.Join(errs...)
}

// SQL converts the database settings for metricsource.
func (c *Config) SQL() metricsource.SQLConfig {
	return metricsource.SQLConfig{
		DSN:             c.Database.DSN,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		QueryTimeout:    c.Database.QueryTimeout,
	}
}

// KafkaSink converts the Kafka settings for sink.
func (c *Config) KafkaSink() sink.KafkaConfig {
	return sink.KafkaConfig{
		Brokers:          c.Kafka.Brokers,
		Topic:            c.Kafka.Topic,
		WriteTimeout:     c.Kafka.WriteTimeout,
		FailureThreshold: c.Kafka.FailureThreshold,
		OpenTimeout:      c.Kafka.OpenTimeout,
	}
}

// RunnerOptions converts the batch settings for batch.NewRunner. Metrics
// and logger are left to the caller.
func (c *Config) RunnerOptions() batch.Options {
	return batch.Options{
		Concurrency:   c.Batch.Concurrency,
		RatePerSecond: c.Batch.RatePerSecond,
		Burst:         c.Batch.Burst,
	}
}
