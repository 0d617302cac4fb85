package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"DialogueRuntime/internal/dialogue"
)

// RedisStore keeps each ledger as a Redis hash of node id to "1" or "0".
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to redisURL and checks the connection.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "revisits:"}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore) Load(ctx context.Context, key string) (map[dialogue.NodeID]bool, error) {
	fields, err := s.client.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("load ledger %s: %w", key, err)
	}
	out := make(map[dialogue.NodeID]bool, len(fields))
	for id, v := range fields {
		out[dialogue.NodeID(id)] = v == "1"
	}
	return out, nil
}

// Save replaces the stored hash atomically.
func (s *RedisStore) Save(ctx context.Context, key string, entries map[dialogue.NodeID]bool) error {
	k := s.key(key)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		if len(entries) == 0 {
			return nil
		}
		values := make(map[string]any, len(entries))
		for id, v := range entries {
			if v {
				values[string(id)] = "1"
			} else {
				values[string(id)] = "0"
			}
		}
		pipe.HSet(ctx, k, values)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save ledger %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("reset ledger %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
