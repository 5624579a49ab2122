package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/sweetpotato0/ai-autopilot/config"
	"github.com/sweetpotato0/ai-autopilot/pkg/logging"
)

// RedisLog stores records as JSON strings in one Redis list.
type RedisLog[T any] struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

// NewRedisLog connects to Redis and verifies the connection.
func NewRedisLog[T any](ctx context.Context, cfg config.RedisConfig) (*RedisLog[T], error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return newRedisLog[T](client, cfg.Key), nil
}

func newRedisLog[T any](client *redis.Client, key string) *RedisLog[T] {
	return &RedisLog[T]{
		client: client,
		key:    key,
		logger: logging.WithComponent("store").With("backend", "redis", "key", key),
	}
}

// Append pushes rec to the tail of the list.
func (l *RedisLog[T]) Append(ctx context.Context, rec T) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := l.client.RPush(ctx, l.key, data).Err(); err != nil {
		return fmt.Errorf("failed to append record to Redis: %w", err)
	}
	return nil
}

// ReadAll returns the whole list.
func (l *RedisLog[T]) ReadAll(ctx context.Context) ([]T, error) {
	items, err := l.client.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read records from Redis: %w", err)
	}
	out := make([]T, 0, len(items))
	for i, item := range items {
		var rec T
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			l.logger.Warn("skipping unparsable record", "index", i, "error", err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Rewrite replaces the list in a single transaction.
func (l *RedisLog[T]) Rewrite(ctx context.Context, recs []T) error {
	values := make([]any, 0, len(recs))
	for _, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		values = append(values, data)
	}

	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, l.key)
		if len(values) > 0 {
			pipe.RPush(ctx, l.key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to rewrite Redis records: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (l *RedisLog[T]) Close() error {
	return l.client.Close()
}
