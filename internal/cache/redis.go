package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// StatsCache keeps a Redis-backed rolling window of recent masking
// operations plus lifetime counters for the dashboard.
type StatsCache struct {
	client *redis.Client
	config *Config
	logger *zap.Logger
}

// New creates a new Redis-backed stats cache
func New(config *Config, logger *zap.Logger) (*StatsCache, error) {
	// Parse Redis URL
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Configure connection pool
	opts.PoolSize = config.MaxConnections
	opts.MinIdleConns = config.MinIdleConns

	client := redis.NewClient(opts)

	cache := &StatsCache{
		client: client,
		config: config,
		logger: logger,
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Stats cache initialized successfully",
		zap.String("redis_url", maskRedisURL(config.RedisURL)),
		zap.Int("max_connections", config.MaxConnections),
		zap.Duration("default_ttl", config.DefaultTTL))

	return cache, nil
}

func (c *StatsCache) key(parts ...string) string {
	return c.config.KeyPrefix + ":" + strings.Join(parts, ":")
}

// RecordOperation pushes one operation summary onto the recent list and bumps
// the lifetime counters.
func (c *StatsCache) RecordOperation(ctx context.Context, record *OperationRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal operation record: %w", err)
	}

	recentKey := c.key("recent")
	pipe := c.client.Pipeline()
	pipe.LPush(ctx, recentKey, data)
	pipe.LTrim(ctx, recentKey, 0, int64(c.config.RecentLimit-1))
	if c.config.DefaultTTL > 0 {
		pipe.Expire(ctx, recentKey, c.config.DefaultTTL)
	}
	pipe.Incr(ctx, c.key("count", record.Operation))
	if record.SmartMatches > 0 {
		pipe.IncrBy(ctx, c.key("count", "smart_matches"), int64(record.SmartMatches))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record operation: %w", err)
	}

	c.logger.Debug("operation recorded",
		zap.String("operation", record.Operation),
		zap.Int("smart_matches", record.SmartMatches))
	return nil
}

// RecentOperations returns the newest operation summaries, newest first.
func (c *StatsCache) RecentOperations(ctx context.Context) ([]OperationRecord, error) {
	entries, err := c.client.LRange(ctx, c.key("recent"), 0, int64(c.config.RecentLimit-1)).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("read recent operations: %w", err)
	}

	records := make([]OperationRecord, 0, len(entries))
	for _, entry := range entries {
		var record OperationRecord
		if err := json.Unmarshal([]byte(entry), &record); err != nil {
			c.logger.Warn("dropping corrupted cache entry", zap.Error(err))
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// GetCounters reads the lifetime operation counters.
func (c *StatsCache) GetCounters(ctx context.Context) (*Counters, error) {
	counters := &Counters{}
	fields := []struct {
		name string
		dest *int64
	}{
		{"mask_text", &counters.MaskText},
		{"mask_document", &counters.MaskDocument},
		{"restore", &counters.Restore},
		{"smart_matches", &counters.SmartMatches},
	}
	for _, field := range fields {
		value, err := c.client.Get(ctx, c.key("count", field.name)).Int64()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read counter %s: %w", field.name, err)
		}
		*field.dest = value
	}
	return counters, nil
}

// Close releases the Redis connection pool.
func (c *StatsCache) Close() error {
	return c.client.Close()
}

// maskRedisURL hides credentials in the Redis URL for logging
func maskRedisURL(url string) string {
	if at := strings.LastIndex(url, "@"); at != -1 {
		if scheme := strings.Index(url, "://"); scheme != -1 {
			return url[:scheme+3] + "***" + url[at:]
		}
	}
	return url
}
