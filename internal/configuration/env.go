package configuration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ahrav/go-adhere/internal/domain"
)

// Load builds a Config from DefaultConfig and the environment. Explicit env
// files must exist; with none given, a .env in the working directory is read
// if present. Variables already set in the process win over file values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("load env files: %w", err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg.Log.Level = getEnv("ADHERE_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("ADHERE_LOG_FORMAT", cfg.Log.Format)

	var err error
	cfg.Batch.Concurrency, err = getEnvInt("ADHERE_CONCURRENCY", cfg.Batch.Concurrency)
	collect(err)
	cfg.Batch.RatePerSecond, err = getEnvFloat("ADHERE_RATE_PER_SECOND", cfg.Batch.RatePerSecond)
	collect(err)
	cfg.Batch.Burst, err = getEnvInt("ADHERE_BURST", cfg.Batch.Burst)
	collect(err)
	cfg.Batch.ChunkSize, err = getEnvInt("ADHERE_CHUNK_SIZE", cfg.Batch.ChunkSize)
	collect(err)
	cfg.Batch.Summary.Method = domain.AggregationMethod(getEnv("ADHERE_SUMMARY_METHOD", string(cfg.Batch.Summary.Method)))
	cfg.Batch.Summary.TrimFraction, err = getEnvFloat("ADHERE_SUMMARY_TRIM", cfg.Batch.Summary.TrimFraction)
	collect(err)

	cfg.Cache.Backend = strings.ToLower(getEnv("ADHERE_CACHE", cfg.Cache.Backend))
	cfg.Cache.TTL, err = getEnvDuration("ADHERE_CACHE_TTL", cfg.Cache.TTL)
	collect(err)
	cfg.Cache.RedisAddr = getEnv("REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = getEnv("REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB, err = getEnvInt("REDIS_DB", cfg.Cache.RedisDB)
	collect(err)

	cfg.Database.DSN = getEnv("PG_DSN", cfg.Database.DSN)
	cfg.Database.MaxOpenConns, err = getEnvInt("PG_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	collect(err)
	cfg.Database.QueryTimeout, err = getEnvDuration("PG_QUERY_TIMEOUT", cfg.Database.QueryTimeout)
	collect(err)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)

	cfg.Temporal.HostPort = getEnv("TEMPORAL_HOST_PORT", cfg.Temporal.HostPort)
	cfg.Temporal.Namespace = getEnv("TEMPORAL_NAMESPACE", cfg.Temporal.Namespace)
	cfg.Temporal.TaskQueue = getEnv("TEMPORAL_TASK_QUEUE", cfg.Temporal.TaskQueue)
	cfg.Server.MetricsAddr = getEnv("ADHERE_METRICS_ADDR", cfg.Server.MetricsAddr)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
