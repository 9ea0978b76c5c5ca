package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/stock-signal-service/internal/models"
)

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix namespaces every key.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithTTL expires records after ttl. Zero keeps them until deleted.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// RedisStore keeps cache records as JSON values in Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(symbol string, interval models.Interval) string {
	return fmt.Sprintf("%sseries:%s:%s", s.prefix, symbol, interval)
}

func (s *RedisStore) LoadSeries(ctx context.Context, symbol string, interval models.Interval) (*models.CacheRecord, error) {
	data, err := s.client.Get(ctx, s.key(symbol, interval)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached series: %w", err)
	}

	var rec models.CacheRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode cached series: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) StoreSeries(ctx context.Context, rec *models.CacheRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode series: %w", err)
	}
	if err := s.client.Set(ctx, s.key(rec.Symbol, rec.Interval), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cached series: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteSeries(ctx context.Context, symbol string) error {
	keys := make([]string, 0, len(models.CachedIntervals))
	for _, interval := range models.CachedIntervals {
		keys = append(keys, s.key(symbol, interval))
	}
	if err := s.client.Unlink(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to unlink cached series: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
