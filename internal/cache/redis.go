package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis configuration
type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Cache wraps Redis client with additional functionality
type Cache struct {
	client *redis.Client
	config Config
}

// NewCacheFromURL connects using a redis:// URL (as used for BROKER_URL)
// instead of the discrete Host/Port/Password fields of Config.
func NewCacheFromURL(rawURL string) (*Cache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: rdb}, nil
}

// NewCache creates a new Redis cache client with optimized settings
func NewCache(config Config) (*Cache, error) {
	// Set default values if not provided
	if config.PoolSize == 0 {
		config.PoolSize = 10
	}
	if config.MinIdleConns == 0 {
		config.MinIdleConns = 2
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 5 * time.Second
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 3 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 3 * time.Second
	}

	// Create Redis client
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("Redis cache connection established with pool size %d", config.PoolSize)

	return &Cache{
		client: rdb,
		config: config,
	}, nil
}

// Set stores a value in cache with expiration
func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}

	return nil
}

// Get retrieves a value from cache
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get cache key %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return nil
}

// Delete removes a key from cache
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}

	return nil
}

// IncrementWithExpiry atomically increments a counter with expiration
func (c *Cache) IncrementWithExpiry(ctx context.Context, key string, expiration time.Duration) (int64, error) {
	pipe := c.client.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiration)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment cache key %s with expiry: %w", key, err)
	}

	return incrCmd.Val(), nil
}

// HealthCheck performs a health check on Redis
func (c *Cache) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis health check failed: %w", err)
	}

	return nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	log.Println("Closing Redis cache connection")
	return c.client.Close()
}

// Client exposes the underlying Redis client for callers that need raw
// list/stream commands (the job broker's BRPOP/LPUSH) rather than the
// JSON get/set helpers above.
func (c *Cache) Client() *redis.Client {
	return c.client
}

// CacheKey generates a cache key with prefix
func CacheKey(prefix string, parts ...string) string {
	key := prefix
	for _, part := range parts {
		key += ":" + part
	}
	return key
}

// Common cache key prefixes
const (
	FlowStatsPrefix = "flow_stats"
	RateLimitPrefix = "rate_limit"
)

// Common cache durations
const (
	ShortTTL  = 5 * time.Minute
	MediumTTL = 30 * time.Minute
	LongTTL   = 2 * time.Hour
	DayTTL    = 24 * time.Hour
)

// ErrCacheMiss is returned when a cache key is not found
var ErrCacheMiss = fmt.Errorf("cache miss")

// CacheManager provides high-level caching operations on top of Cache,
// scoped to the two things worth memoising across job runs: a recently
// computed flow result, and per-client submission rate limits.
type CacheManager struct {
	cache *Cache
}

// NewCacheManager creates a new cache manager
func NewCacheManager(cache *Cache) *CacheManager {
	return &CacheManager{cache: cache}
}

// CacheFlowStats stores a calculation's per-destination result under
// (origin, sim_group), so an identical recompute request arriving before
// the TTL expires can be served without rerunning the Monte Carlo walk.
func (cm *CacheManager) CacheFlowStats(ctx context.Context, origin, simGroup string, stats interface{}) error {
	key := CacheKey(FlowStatsPrefix, origin, simGroup)
	return cm.cache.Set(ctx, key, stats, MediumTTL)
}

// GetFlowStats retrieves a previously cached flow result, returning
// ErrCacheMiss if none is cached or it has expired.
func (cm *CacheManager) GetFlowStats(ctx context.Context, origin, simGroup string, dest interface{}) error {
	key := CacheKey(FlowStatsPrefix, origin, simGroup)
	return cm.cache.Get(ctx, key, dest)
}

// InvalidateFlowStats drops a cached flow result by exact key. The job
// handlers do not call it; after SaveFlows they overwrite the entry with
// CacheFlowStats instead.
func (cm *CacheManager) InvalidateFlowStats(ctx context.Context, origin, simGroup string) error {
	key := CacheKey(FlowStatsPrefix, origin, simGroup)
	return cm.cache.Delete(ctx, key)
}

// RateLimitCheck checks and updates rate limit counter
func (cm *CacheManager) RateLimitCheck(ctx context.Context, identifier string, limit int64, window time.Duration) (bool, error) {
	key := CacheKey(RateLimitPrefix, identifier)

	count, err := cm.cache.IncrementWithExpiry(ctx, key, window)
	if err != nil {
		return false, err
	}

	return count <= limit, nil
}

// HealthCheck pings the underlying Redis connection, for the submission
// API's /health endpoint.
func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	return cm.cache.HealthCheck(ctx)
}
