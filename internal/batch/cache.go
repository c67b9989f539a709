package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-adhere/internal/domain"
)

// Cache memoizes score results within one batch run. A Runner receives its
// cache per run; nothing is shared between runs unless the caller passes the
// same instance twice.
type Cache interface {
	Get(ctx context.Context, key string) (domain.ScoreResult, bool, error)
	Set(ctx context.Context, key string, res domain.ScoreResult) error
}

// CacheKey derives a deterministic key from the configuration and the
// evaluation input. Two units with the same configuration and identical data
// share a key regardless of patient or window index.
func CacheKey(cfg *domain.AlgorithmConfig, in domain.EvaluationInput) (string, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("hash config %s: %w", cfg.ConfigID, err)
	}
	inJSON, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("hash input: %w", err)
	}
	h := sha256.New()
	h.Write(cfgJSON)
	h.Write([]byte{0})
	h.Write(inJSON)
	return cfg.ConfigID + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]domain.ScoreResult
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]domain.ScoreResult)}
}

// Get implements Cache.
func (m *MemoryCache) Get(_ context.Context, key string) (domain.ScoreResult, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.entries[key]
	return res, ok, nil
}

// Set implements Cache.
func (m *MemoryCache) Set(_ context.Context, key string, res domain.ScoreResult) error {
	m.mu.Lock()
	m.entries[key] = res
	m.mu.Unlock()
	return nil
}

// Len returns the number of cached results.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

const defaultCacheTTL = 6 * time.Hour

// RedisCache stores results in Redis under "adhere:{runID}:{key}" so retries
// of the same run on another worker reuse earlier evaluations.
type RedisCache struct {
	client *redis.Client
	runID  string
	ttl    time.Duration
}

// NewRedisCache scopes a Redis-backed cache to runID. A zero ttl uses the default.
func NewRedisCache(client *redis.Client, runID string, ttl time.Duration) (*RedisCache, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if runID == "" {
		return nil, errors.New("run id is required")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCache{client: client, runID: runID, ttl: ttl}, nil
}

func (c *RedisCache) key(k string) string { return "adhere:" + c.runID + ":" + k }

// Get implements Cache. A missing key is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, key string) (domain.ScoreResult, bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.ScoreResult{}, false, nil
	}
	if err != nil {
		return domain.ScoreResult{}, false, fmt.Errorf("cache get: %w", err)
	}
	var res domain.ScoreResult
	if err := json.Unmarshal(raw, &res); err != nil {
		// Corrupt entries are dropped and treated as a miss.
		c.client.Del(ctx, c.key(key))
		return domain.ScoreResult{}, false, nil
	}
	return res, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, res domain.ScoreResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
