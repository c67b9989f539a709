package configuration

import (
	"time"

	"github.com/ahrav/go-adhere/internal/domain"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Batch constants.
const (
	DefaultChunkSize = 500
	DefaultBurst     = 50
)

// Connection constants.
const (
	DefaultMaxOpenConns    = 10
	DefaultMaxIdleConns    = 5
	DefaultConnMaxLifetime = 30 * time.Minute
	DefaultQueryTimeout    = 10 * time.Second
	DefaultCacheTTL        = 6 * time.Hour
)

// Kafka constants.
const (
	DefaultKafkaTopic        = "adherence.results"
	DefaultKafkaWriteTimeout = 5 * time.Second
	DefaultFailureThreshold  = 3
	DefaultOpenTimeout       = 30 * time.Second
)

// Temporal constants.
const (
	DefaultTemporalHostPort = "localhost:7233"
	DefaultNamespace        = "default"
	DefaultTaskQueue        = "adherence-scoring"
	DefaultMetricsAddr      = ":9090"
)

// DefaultConfig returns settings for a single-machine run: in-memory cache,
// concurrency bounded by GOMAXPROCS, no throttling.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Batch: BatchConfig{
			ChunkSize: DefaultChunkSize,
			Burst:     DefaultBurst,
			Summary:   domain.DefaultAggregationPolicy(),
		},
		Cache: CacheConfig{
			Backend:   CacheMemory,
			TTL:       DefaultCacheTTL,
			RedisAddr: "localhost:6379",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    DefaultMaxOpenConns,
			MaxIdleConns:    DefaultMaxIdleConns,
			ConnMaxLifetime: DefaultConnMaxLifetime,
			QueryTimeout:    DefaultQueryTimeout,
		},
		Kafka: KafkaConfig{
			Topic:            DefaultKafkaTopic,
			WriteTimeout:     DefaultKafkaWriteTimeout,
			FailureThreshold: DefaultFailureThreshold,
			OpenTimeout:      DefaultOpenTimeout,
		},
		Temporal: TemporalConfig{
			HostPort:  DefaultTemporalHostPort,
			Namespace: DefaultNamespace,
			TaskQueue: DefaultTaskQueue,
		},
		Server: ServerConfig{MetricsAddr: DefaultMetricsAddr},
	}
}
