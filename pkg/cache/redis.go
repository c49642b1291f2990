package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultDialTimeout = 5 * time.Second
	redisPrefix        = "glimpse:"
)

// releaseLeaseScript deletes the lease only if it still belongs to the caller,
// so a holder whose lease expired cannot release someone else's.
var releaseLeaseScript = goredis.NewScript(`
if redis.call('get', KEYS[1]) == ARGV[1] then
  return redis.call('del', KEYS[1])
else
  return 0
end
`)

// renewLeaseScript extends the lease only if it still belongs to the caller.
var renewLeaseScript = goredis.NewScript(`
if redis.call('get', KEYS[1]) == ARGV[1] then
  return redis.call('pexpire', KEYS[1], ARGV[2])
else
  return 0
end
`)

// RedisStore shares entries and leases between every process using the
// same redis server.
type RedisStore struct {
	client goredis.UniversalClient
}

func NewRedisStore(client goredis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisStoreFromURL connects to a redis:// URL and checks the connection.
func NewRedisStoreFromURL(ctx context.Context, redisURL string) (*RedisStore, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = defaultDialTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = defaultDialTimeout
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(client), nil
}

func entryKey(key string) string { return redisPrefix + key }
func leaseKey(key string) string { return redisPrefix + "lock:" + key }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, entryKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, entryKey(key), value, ttl).Err()
}

func (s *RedisStore) TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, leaseKey(key), owner, ttl).Result()
}

func (s *RedisStore) Renew(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	n, err := renewLeaseScript.Run(ctx, s.client, []string{leaseKey(key)}, owner, ttl.Milliseconds()).Int64()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisStore) Unlock(ctx context.Context, key, owner string) error {
	err := releaseLeaseScript.Run(ctx, s.client, []string{leaseKey(key)}, owner).Err()
	if errors.Is(err, goredis.Nil) {
		return nil
	}
	return err
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
