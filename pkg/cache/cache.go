// Package cache memoizes the network calls of providers.
//
// Results are stored JSON encoded and zstd compressed in a Store shared by
// every process of a deployment (redis), by the processes of one host
// (sqlite) or by a single process (memory). Each entry expires a fixed TTL
// after it was written; reads never extend it.
//
// A miss takes a per-key lease in the store before calling upstream, so a
// stampede of identical queries results in one upstream call while the
// other callers wait for the entry to appear. Identical calls within one
// process are also collapsed with singleflight before reaching the store.
// Different keys never wait on each other.
//
// Errors are never cached.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/singleflight"

	"github.com/rubiojr/glimpse/pkg/log"
	"github.com/rubiojr/glimpse/pkg/metrics"
)

const (
	DefaultTTL      = 72 * time.Hour
	DefaultLockTTL  = 30 * time.Second
	DefaultLockPoll = 100 * time.Millisecond
)

// Store is the shared key value store behind a Cache.
type Store interface {
	// Get returns the value of key and whether it exists and has not expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set writes value with a time to live.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// TryLock takes the lease of key for owner unless someone else holds an
	// unexpired one. It never blocks.
	TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// Renew extends the lease of key to ttl from now if owner still holds
	// it, and reports whether it did.
	Renew(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// Unlock releases the lease of key if owner still holds it.
	Unlock(ctx context.Context, key, owner string) error

	Close() error
}

// Options tunes a Cache. Zero values select the defaults.
type Options struct {
	// TTL is the lifetime of an entry from the moment it is written.
	TTL time.Duration

	// LockTTL bounds how long a lease survives a crashed holder. A live
	// holder renews its lease every LockTTL/3 until its call returns.
	LockTTL time.Duration

	// LockPoll is how often waiters check for the entry.
	LockPoll time.Duration
}

// Cache is a memoizing layer over a Store. A nil *Cache is valid and
// memoizes nothing.
type Cache struct {
	store  Store
	opts   Options
	group  singleflight.Group
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	logger *log.Logger
}

// New returns a cache over store.
func New(store Store, opts Options) (*Cache, error) {
	if store == nil {
		return nil, errors.New("cache store is required")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = DefaultLockTTL
	}
	if opts.LockPoll <= 0 {
		opts.LockPoll = DefaultLockPoll
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &Cache{
		store:  store,
		opts:   opts,
		enc:    enc,
		dec:    dec,
		logger: log.ForService("cache"),
	}, nil
}

// Close releases the codec and the store.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	_ = c.enc.Close()
	c.dec.Close()
	return c.store.Close()
}

// Fetch returns the cached result of key or computes it with fn, stores it
// and returns it. fn is called at most once at a time per key across every
// process sharing the store.
//
// Callers of one process share a single computation, which runs detached
// from any one caller's context: a caller that gives up gets ctx.Err() while
// the others keep waiting for the result.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if c == nil {
		return fn(ctx)
	}

	k := key.String()
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(k, func() (any, error) {
		return c.load(shared, k, func(ctx context.Context) ([]byte, error) {
			res, err := fn(ctx)
			if err != nil {
				return nil, err
			}
			return json.Marshal(res)
		})
	})

	var r singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r = <-ch:
	}
	if r.Err != nil {
		return zero, r.Err
	}

	var res T
	if err := json.Unmarshal(r.Val.([]byte), &res); err != nil {
		return zero, fmt.Errorf("decoding cached value for %s: %w", k, err)
	}
	return res, nil
}

// load returns the JSON payload of key, computing it under the key's lease
// on a miss.
func (c *Cache) load(ctx context.Context, key string, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	if data, ok := c.get(ctx, key); ok {
		metrics.ObserveCache(metrics.CacheHit)
		c.logger.Debugf("hit %s", key)
		return data, nil
	}

	owner := uuid.NewString()
	waited := false
	for {
		acquired, err := c.store.TryLock(ctx, key, owner, c.opts.LockTTL)
		if err != nil {
			metrics.ObserveCache(metrics.CacheError)
			return nil, fmt.Errorf("locking cache key %s: %w", key, err)
		}
		if acquired {
			break
		}
		if !waited {
			metrics.ObserveCache(metrics.CacheWait)
			c.logger.Debugf("waiting for %s", key)
			waited = true
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.opts.LockPoll):
		}

		if data, ok := c.get(ctx, key); ok {
			metrics.ObserveCache(metrics.CacheHit)
			return data, nil
		}
	}
	defer func() {
		if err := c.store.Unlock(context.WithoutCancel(ctx), key, owner); err != nil {
			c.logger.Warnf("releasing lock of %s: %v", key, err)
		}
	}()

	// The previous holder may have written the entry just before we got the lease.
	if data, ok := c.get(ctx, key); ok {
		metrics.ObserveCache(metrics.CacheHit)
		return data, nil
	}

	metrics.ObserveCache(metrics.CacheMiss)
	c.logger.Debugf("miss %s", key)

	stop := c.keepLease(ctx, key, owner)
	data, err := compute(ctx)
	stop()
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, c.enc.EncodeAll(data, nil), c.opts.TTL); err != nil {
		c.logger.Warnf("storing %s: %v", key, err)
	}
	return data, nil
}

// keepLease renews the lease of key every LockTTL/3 until the returned
// function is called. The returned function waits for the renewer to exit.
func (c *Cache) keepLease(ctx context.Context, key, owner string) func() {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		ticker := time.NewTicker(max(c.opts.LockTTL/3, time.Millisecond))
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				held, err := c.store.Renew(ctx, key, owner, c.opts.LockTTL)
				if err != nil {
					c.logger.Warnf("renewing lock of %s: %v", key, err)
					continue
				}
				if !held {
					c.logger.Warnf("lost lock of %s", key)
					return
				}
			}
		}
	}()
	return func() {
		close(done)
		<-exited
	}
}

// get treats store failures and undecodable entries as misses.
func (c *Cache) get(ctx context.Context, key string) ([]byte, bool) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warnf("reading %s: %v", key, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	data, err := c.dec.DecodeAll(raw, nil)
	if err != nil {
		c.logger.Warnf("decoding %s: %v", key, err)
		return nil, false
	}
	return data, true
}
