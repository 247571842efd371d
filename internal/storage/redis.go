package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chess-tracker/internal/config"
)

// RedisCache wraps the redis client used for read-path caching
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache connection
func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.MaxConnections,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("unable to ping redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// NewRedisCacheFromClient wraps an existing client, used in tests
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Close closes the redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping checks if redis is reachable
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func recentGamesKey(username string) string {
	return fmt.Sprintf("games:recent:%s", username)
}

func dailyStatsKey(username string) string {
	return fmt.Sprintf("stats:daily:%s", username)
}

// GetJSON reads a cached value into dest. Returns false on a miss.
func (c *RedisCache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cache key %s: %w", key, err)
	}
	return true, nil
}

// SetJSON writes a value under key with the given TTL
func (c *RedisCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache key %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

// GetRecentGames reads the cached recent games payload for a user
func (c *RedisCache) GetRecentGames(ctx context.Context, username string, dest interface{}) (bool, error) {
	return c.GetJSON(ctx, recentGamesKey(username), dest)
}

// SetRecentGames caches the recent games payload for a user
func (c *RedisCache) SetRecentGames(ctx context.Context, username string, value interface{}, ttl time.Duration) error {
	return c.SetJSON(ctx, recentGamesKey(username), value, ttl)
}

// GetDailyStats reads the cached daily summary payload for a user
func (c *RedisCache) GetDailyStats(ctx context.Context, username string, dest interface{}) (bool, error) {
	return c.GetJSON(ctx, dailyStatsKey(username), dest)
}

// SetDailyStats caches the daily summary payload for a user
func (c *RedisCache) SetDailyStats(ctx context.Context, username string, value interface{}, ttl time.Duration) error {
	return c.SetJSON(ctx, dailyStatsKey(username), value, ttl)
}

// InvalidateUser drops all cached payloads for a user. Called after
// every ingestion batch so reads never serve stale data.
func (c *RedisCache) InvalidateUser(ctx context.Context, username string) error {
	if err := c.client.Del(ctx, recentGamesKey(username), dailyStatsKey(username)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache for %s: %w", username, err)
	}
	return nil
}
