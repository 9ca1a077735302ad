package swarmstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend implements Transactional on top of go-redis.
// It is thread-safe and can be shared by several Store instances.
type RedisBackend struct {
	rdb redis.UniversalClient
}

var _ Transactional = (*RedisBackend)(nil)

// NewRedisBackend connects a backend using the given connection options.
// Use redis.ParseURL to build options from a REDIS_URL.
func NewRedisBackend(redisOpts *redis.Options) *RedisBackend {
	return &RedisBackend{rdb: redis.NewClient(redisOpts)}
}

// NewRedisBackendFromClient wraps an existing client (single node or cluster).
// Closing the backend closes the client.
func NewRedisBackendFromClient(rdb redis.UniversalClient) *RedisBackend {
	return &RedisBackend{rdb: rdb}
}

// RedisClient exposes the underlying client for callers that need raw access.
func (b *RedisBackend) RedisClient() redis.UniversalClient {
	return b.rdb
}

// Close closes the Redis connection. Implements io.Closer.
func (b *RedisBackend) Close() error {
	return b.rdb.Close()
}

// Ping verifies Redis connectivity.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

// Get implements Backend.
func (b *RedisBackend) Get(ctx context.Context, key string) (string, error) {
	val, err := b.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("key %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// SMembers implements Backend.
func (b *RedisBackend) SMembers(ctx context.Context, key string) ([]string, error) {
	return b.rdb.SMembers(ctx, key).Result()
}

// Set implements Writer.
func (b *RedisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return b.rdb.Set(ctx, key, value, ttl).Err()
}

// Expire implements Writer.
func (b *RedisBackend) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return b.rdb.Expire(ctx, key, ttl).Err()
}

// Del implements Writer.
func (b *RedisBackend) Del(ctx context.Context, key string) error {
	return b.rdb.Del(ctx, key).Err()
}

// SAdd implements Writer.
func (b *RedisBackend) SAdd(ctx context.Context, key, member string) error {
	return b.rdb.SAdd(ctx, key, member).Err()
}

// SRem implements Writer.
func (b *RedisBackend) SRem(ctx context.Context, key, member string) error {
	return b.rdb.SRem(ctx, key, member).Err()
}

// Atomically queues the writes issued by fn and sends them as one MULTI/EXEC.
// Nothing is sent if fn returns an error.
func (b *RedisBackend) Atomically(ctx context.Context, fn func(tx Writer) error) error {
	_, err := b.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return fn(pipeWriter{pipe: pipe})
	})
	return err
}

// pipeWriter queues commands on a transaction pipeline. Errors surface from Exec.
type pipeWriter struct {
	pipe redis.Pipeliner
}

func (p pipeWriter) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	p.pipe.Set(ctx, key, value, ttl)
	return nil
}

func (p pipeWriter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	p.pipe.Expire(ctx, key, ttl)
	return nil
}

func (p pipeWriter) Del(ctx context.Context, key string) error {
	p.pipe.Del(ctx, key)
	return nil
}

func (p pipeWriter) SAdd(ctx context.Context, key, member string) error {
	p.pipe.SAdd(ctx, key, member)
	return nil
}

func (p pipeWriter) SRem(ctx context.Context, key, member string) error {
	p.pipe.SRem(ctx, key, member)
	return nil
}
