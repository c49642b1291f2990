package config

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rubiojr/glimpse/pkg/cache"
	"github.com/rubiojr/glimpse/pkg/core"
)

// OpenCache builds the cache configured in [cache]. The none backend
// returns a nil cache, which providers treat as no memoization.
func (c *Config) OpenCache(ctx context.Context) (*cache.Cache, error) {
	var store cache.Store
	switch c.Cache.Backend {
	case CacheNone:
		return nil, nil
	case CacheMemory:
		store = cache.NewMemoryStore()
	case CacheRedis:
		s, err := cache.NewRedisStoreFromURL(ctx, c.Cache.RedisURL)
		if err != nil {
			return nil, err
		}
		store = s
	case CacheSQLite:
		path := c.Cache.SQLitePath
		if path == "" {
			var err error
			if path, err = GetDefaultCachePath(); err != nil {
				return nil, err
			}
		}
		s, err := cache.NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	return cache.New(store, cache.Options{
		TTL:     c.Cache.TTL.Duration,
		LockTTL: c.Cache.LockTimeout.Duration,
	})
}

// ProviderConfig returns the construction config of a provider pair.
func (c *Config) ProviderConfig(platform core.Platform, source core.Source, shared *cache.Cache, httpClient *http.Client) core.ProviderConfig {
	cfg := core.ProviderConfig{Cache: shared, HTTPClient: httpClient}
	switch core.ProviderName(platform, source) {
	case core.ProviderName(core.PlatformOnlineNews, core.SourceMediaCloud):
		cfg.APIKey = c.Credentials.MediaCloudAPIKey
		cfg.BaseURL = c.Endpoints.MediaCloud
	case core.ProviderName(core.PlatformOnlineNews, core.SourceWayback):
		cfg.BaseURL = c.Endpoints.Wayback
	case core.ProviderName(core.PlatformTwitter, core.SourceTwitter):
		cfg.APIKey = c.Credentials.TwitterBearerToken
		cfg.BaseURL = c.Endpoints.Twitter
	case core.ProviderName(core.PlatformTwitter, core.SourcePushshift):
		cfg.BaseURL = c.Endpoints.TwitterPushshift
	case core.ProviderName(core.PlatformReddit, core.SourcePushshift):
		cfg.BaseURL = c.Endpoints.RedditPushshift
	}
	return cfg
}

// Configure applies the config to every provider of registry.
func (c *Config) Configure(registry *core.Registry, shared *cache.Cache) {
	registry.ConfigureAll(func(platform core.Platform, source core.Source) core.ProviderConfig {
		return c.ProviderConfig(platform, source, shared, nil)
	})
}
