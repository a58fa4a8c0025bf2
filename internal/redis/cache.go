package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/council-rankings/internal/config"
	"github.com/council-rankings/internal/domain"
)

// Cache provides Redis-backed storage for computed ranking lists.
// Entries expire after the configured TTL and are invalidated on any
// event or winner write.
type Cache struct {
	client *redis.Client
	cfg    *config.CacheConfig
	logger *slog.Logger
}

// NewCache creates a new ranking cache
func NewCache(redisCfg *config.RedisConfig, cacheCfg *config.CacheConfig, logger *slog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         redisCfg.Addr,
		Password:     redisCfg.Password,
		DB:           redisCfg.DB,
		PoolSize:     redisCfg.PoolSize,
		MinIdleConns: redisCfg.MinIdleConns,
		DialTimeout:  redisCfg.DialTimeout,
		ReadTimeout:  redisCfg.ReadTimeout,
		WriteTimeout: redisCfg.WriteTimeout,
	})

	// Test connection
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Cache{
		client: client,
		cfg:    cacheCfg,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client
func (c *Cache) Client() *redis.Client {
	return c.client
}

// key returns the cache key for a filter combination
func (c *Cache) key(opts domain.FilterOptions) string {
	category := opts.Category
	if category == "" {
		category = domain.FilterAll
	}
	year := opts.Year
	if year == "" {
		year = domain.FilterAll
	}
	return fmt.Sprintf("%s:%s:%s", c.cfg.KeyPrefix, category, year)
}

// GetRankings returns the cached ranking list for the filter
// combination, or nil on a cache miss.
func (c *Cache) GetRankings(ctx context.Context, opts domain.FilterOptions) ([]domain.StudentRanking, error) {
	data, err := c.client.Get(ctx, c.key(opts)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("getting cached rankings: %w", err)
	}

	var rankings []domain.StudentRanking
	if err := json.Unmarshal(data, &rankings); err != nil {
		return nil, fmt.Errorf("unmarshaling cached rankings: %w", err)
	}
	return rankings, nil
}

// SetRankings stores a computed ranking list under the filter key.
// An empty list is cached too so repeated lookups of an empty board
// don't hit the database.
func (c *Cache) SetRankings(ctx context.Context, opts domain.FilterOptions, rankings []domain.StudentRanking) error {
	if rankings == nil {
		rankings = []domain.StudentRanking{}
	}
	data, err := json.Marshal(rankings)
	if err != nil {
		return fmt.Errorf("marshaling rankings: %w", err)
	}

	if err := c.client.Set(ctx, c.key(opts), data, c.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("setting cached rankings: %w", err)
	}
	return nil
}

// Invalidate removes every cached ranking list. Called after any write
// that can change the board.
func (c *Cache) Invalidate(ctx context.Context) error {
	pattern := c.cfg.KeyPrefix + ":*"
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning cache keys: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting cache keys: %w", err)
	}

	c.logger.Debug("ranking cache invalidated", "keys", len(keys))
	return nil
}
