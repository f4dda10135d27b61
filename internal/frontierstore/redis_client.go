package frontierstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by RedisClient methods that model a
// single-value lookup (LPop, BLPop) when Redis reports no such key —
// the Go-idiomatic stand-in for the source's exception-on-missing-key
// control flow (Design Notes).
var ErrNotFound = errors.New("frontierstore: not found")

// RedisClient is the subset of Redis commands the frontier store
// needs. Keeping it as a narrow interface (rather than depending on
// *redis.Client directly) lets tests substitute an in-memory fake
// without a live server or a mocking framework — matching how the
// teacher tests its own Storage type, by direct construction.
type RedisClient interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, values map[string]string) error
	HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error)
	RPush(ctx context.Context, key string, values ...string) error
	LPop(ctx context.Context, key string) (string, error)
	SAdd(ctx context.Context, key, member string) error
	SRem(ctx context.Context, key, member string) error
	SIsMember(ctx context.Context, key, member string) (bool, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (int64, error)
	BLPop(ctx context.Context, timeoutSeconds int64, keys ...string) ([]string, error)
	Close() error
}

// GoRedisClient adapts *redis.Client (go-redis/v9) to RedisClient.
//
// Grounded on amankumarsingh77-searchyfy's frontier.go and
// uzzalhcse-CrawlPilot, both of which talk to Redis through
// github.com/redis/go-redis/v9.
type GoRedisClient struct {
	rdb     *redis.Client
	timeout time.Duration // per-command deadline, §7 "Redis command: 5 seconds"
}

// NewGoRedisClient dials Redis at addr/db. timeout is applied as a
// per-command deadline on every call below; 0 falls back to the
// spec's 5-second default so a forgotten zero value doesn't turn into
// an unbounded wait.
func NewGoRedisClient(addr string, db int, timeout time.Duration) *GoRedisClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GoRedisClient{
		rdb: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
		timeout: timeout,
	}
}

func (c *GoRedisClient) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.rdb.HGetAll(ctx, key).Result()
}

func (c *GoRedisClient) HSet(ctx context.Context, key string, values map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	args := make([]interface{}, 0, len(values)*2)
	for k, v := range values {
		args = append(args, k, v)
	}
	return c.rdb.HSet(ctx, key, args...).Err()
}

func (c *GoRedisClient) HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.rdb.HIncrBy(ctx, key, field, incr).Result()
}

func (c *GoRedisClient) RPush(ctx context.Context, key string, values ...string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return c.rdb.RPush(ctx, key, args...).Err()
}

func (c *GoRedisClient) LPop(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	val, err := c.rdb.LPop(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

func (c *GoRedisClient) SAdd(ctx context.Context, key, member string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.rdb.SAdd(ctx, key, member).Err()
}

func (c *GoRedisClient) SRem(ctx context.Context, key, member string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.rdb.SRem(ctx, key, member).Err()
}

func (c *GoRedisClient) SIsMember(ctx context.Context, key, member string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.rdb.SIsMember(ctx, key, member).Result()
}

func (c *GoRedisClient) Del(ctx context.Context, keys ...string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *GoRedisClient) Exists(ctx context.Context, keys ...string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.rdb.Exists(ctx, keys...).Result()
}

// BLPop's timeoutSeconds is the intended Redis-level blocking
// duration, not a slow-command symptom — the per-command deadline
// above would truncate a legitimate long poll, so it's added on top
// of the blocking duration instead of replacing it: the call still
// fails fast if the connection itself stalls, without cutting short
// an empty-queue wait that is supposed to take timeoutSeconds.
func (c *GoRedisClient) BLPop(ctx context.Context, timeoutSeconds int64, keys ...string) ([]string, error) {
	blockFor := time.Duration(timeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(ctx, blockFor+c.timeout)
	defer cancel()
	vals, err := c.rdb.BLPop(ctx, blockFor, keys...).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return vals, err
}

func (c *GoRedisClient) Close() error {
	return c.rdb.Close()
}
