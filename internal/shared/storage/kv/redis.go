package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"resumaid/internal/shared/util"
)

const (
	redisScanCount = 100
	redisMGetBatch = 100
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	URL    string
	Prefix string
}

// RedisGateway stores namespaces as key prefixes in one Redis database.
type RedisGateway struct {
	client *redis.Client
	prefix string
}

// NewRedisGateway connects to Redis and verifies the connection.
func NewRedisGateway(ctx context.Context, cfg RedisConfig) (*RedisGateway, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisGatewayFromClient(client, cfg.Prefix), nil
}

// NewRedisGatewayFromClient wraps an existing client.
func NewRedisGatewayFromClient(client *redis.Client, prefix string) *RedisGateway {
	if prefix == "" {
		prefix = "resumaid:"
	}
	return &RedisGateway{client: client, prefix: prefix}
}

// Namespace returns the store for ns. Namespaces are hashed so user IDs never
// leak glob metacharacters into SCAN patterns.
func (g *RedisGateway) Namespace(ns string) Store {
	return &redisStore{client: g.client, prefix: g.prefix + util.NamespaceKey(ns) + ":"}
}

// Ping checks connectivity.
func (g *RedisGateway) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (g *RedisGateway) Close() error {
	return g.client.Close()
}

type redisStore struct {
	client *redis.Client
	prefix string
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *redisStore) List(ctx context.Context, pattern string, withValues bool) ([]Entry, error) {
	keys, err := s.scan(ctx, s.prefix+redisPattern(pattern))
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	out := make([]Entry, 0, len(keys))
	for start := 0; start < len(keys); start += redisMGetBatch {
		end := start + redisMGetBatch
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]

		var values []interface{}
		if withValues {
			values, err = s.client.MGet(ctx, batch...).Result()
			if err != nil {
				return nil, fmt.Errorf("redis mget: %w", err)
			}
		}
		for i, full := range batch {
			entry := Entry{Key: strings.TrimPrefix(full, s.prefix)}
			if withValues {
				str, ok := values[i].(string)
				if !ok {
					// deleted between SCAN and MGET
					continue
				}
				entry.Value = str
			}
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *redisStore) Flush(ctx context.Context) error {
	keys, err := s.scan(ctx, s.prefix+"*")
	if err != nil {
		return err
	}
	for start := 0; start < len(keys); start += redisMGetBatch {
		end := start + redisMGetBatch
		if end > len(keys) {
			end = len(keys)
		}
		if err := s.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("redis flush: %w", err)
		}
	}
	return nil
}

func (s *redisStore) scan(ctx context.Context, match string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, match, redisScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}

var _ Gateway = (*RedisGateway)(nil)
