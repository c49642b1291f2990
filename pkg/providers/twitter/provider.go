// Package twitter adapts the Twitter v2 full archive search API to the
// twitter/twitter provider.
package twitter

import (
	"context"
	"net/http"
	"net/url"
	"sort"

	"golang.org/x/oauth2"

	"github.com/rubiojr/glimpse/pkg/cache"
	"github.com/rubiojr/glimpse/pkg/core"
	"github.com/rubiojr/glimpse/pkg/log"
	"github.com/rubiojr/glimpse/pkg/pagination"
	"github.com/rubiojr/glimpse/pkg/query"
	"github.com/rubiojr/glimpse/pkg/upstream"
)

func init() {
	core.RegisterProviderFactory(core.PlatformTwitter, core.SourceTwitter, func(cfg core.ProviderConfig) (core.Provider, error) {
		return New(cfg), nil
	})
}

const (
	DefaultBaseURL = "https://api.twitter.com/2/"

	pkgPath     = "github.com/rubiojr/glimpse/pkg/providers/twitter"
	granularity = "day"

	searchPath = "tweets/search/all"
	countsPath = "tweets/counts/all"
)

var name = core.ProviderName(core.PlatformTwitter, core.SourceTwitter)

// Provider searches the full tweet archive.
type Provider struct {
	core.Unsupported
	client *upstream.Client
	cache  *cache.Cache
	logger *log.Logger
}

// New returns a provider authenticating with cfg.APIKey as bearer token.
func New(cfg core.ProviderConfig) *Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Provider{
		Unsupported: core.Unsupported{Name: name},
		client:      upstream.New(name, baseURL, bearerClient(cfg.HTTPClient, cfg.APIKey)),
		cache:       cfg.Cache,
		logger:      log.ForService(name),
	}
}

// bearerClient wraps base so every request carries the token. base keeps
// its transport and timeout.
func bearerClient(base *http.Client, token string) *http.Client {
	if base == nil {
		base = &http.Client{Timeout: upstream.DefaultTimeout}
	}
	if token == "" {
		return base
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := oauth2.NewClient(ctx, ts)
	client.Timeout = base.Timeout
	return client
}

func (p *Provider) Platform() core.Platform { return core.PlatformTwitter }
func (p *Provider) Source() core.Source     { return core.SourceTwitter }

func (p *Provider) Sample(ctx context.Context, q core.Query, limit int) ([]core.Row, error) {
	params := query.TwitterSearchParams(q.Terms, q.StartDate, q.EndDate, limit)
	res, err := get[searchResponse](ctx, p, searchPath, params)
	if err != nil {
		return nil, err
	}
	rows := toRows(res.Data, res.Includes)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// Count is the total of CountOverTime, the tweet_count of every daily
// bucket across all pages. meta.total_tweet_count only covers one page.
func (p *Provider) Count(ctx context.Context, q core.Query) (int64, error) {
	counts, err := p.CountOverTime(ctx, q)
	if err != nil {
		return 0, err
	}
	return counts.Total, nil
}

// CountOverTime follows next_token across every page of daily counts. Pages
// come newest first, so the buckets are sorted once all are collected.
func (p *Provider) CountOverTime(ctx context.Context, q core.Query) (*core.CountOverTime, error) {
	w := pagination.New(func(ctx context.Context, cursor string) ([]core.Bucket, string, error) {
		params := query.TwitterCountParams(q.Terms, q.StartDate, q.EndDate, granularity)
		if cursor != "" {
			params.Set("next_token", cursor)
		}
		res, err := get[countsResponse](ctx, p, countsPath, params)
		if err != nil {
			return nil, "", err
		}
		buckets := make([]core.Bucket, 0, len(res.Data))
		for _, d := range res.Data {
			start, err := core.ParseDate(d.Start)
			if err != nil {
				return nil, "", &core.UpstreamError{Provider: name, Err: err}
			}
			buckets = append(buckets, core.NewBucket(start, d.TweetCount))
		}
		return buckets, res.Meta.NextToken, nil
	})

	buckets, err := pagination.Collect(ctx, w)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(buckets, func(i, j int) bool { return buckets[i].Date.Before(buckets[j].Date) })
	return core.NewCountOverTime(buckets), nil
}

func (p *Provider) Item(ctx context.Context, id string) (*core.Row, error) {
	key := cache.NewKey(cache.Namespace(pkgPath, "lookup"), id)
	res, err := cache.Fetch(ctx, p.cache, key, func(ctx context.Context) (lookupResponse, error) {
		var res lookupResponse
		_, err := p.client.GetJSON(ctx, "tweets/"+url.PathEscape(id), query.TwitterLookupParams(), &res)
		if upstream.HasStatus(err, http.StatusNotFound) || upstream.HasStatus(err, http.StatusBadRequest) {
			return res, core.NotFoundError(name, id)
		}
		if err != nil {
			return res, err
		}
		if res.Data == nil {
			for _, e := range res.Errors {
				p.logger.Debugf("lookup %s: %s", id, e.Detail)
			}
			return res, core.NotFoundError(name, id)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	row := toRows([]tweet{*res.Data}, res.Includes)[0]
	return &row, nil
}

// AllItems pages through the search results with the maximum page size,
// following next_token.
func (p *Provider) AllItems(q core.Query) (*pagination.Walker[core.Row], error) {
	return pagination.New(func(ctx context.Context, cursor string) ([]core.Row, string, error) {
		params := query.TwitterSearchParams(q.Terms, q.StartDate, q.EndDate, query.TwitterMaxResults)
		if cursor != "" {
			params.Set("next_token", cursor)
		}
		res, err := get[searchResponse](ctx, p, searchPath, params)
		if err != nil {
			return nil, "", err
		}
		return toRows(res.Data, res.Includes), res.Meta.NextToken, nil
	}), nil
}

// get runs a cached GET of path. The key holds the endpoint and every
// parameter, the page token included.
func get[T any](ctx context.Context, p *Provider, path string, params url.Values) (T, error) {
	key := cache.NewKey(cache.Namespace(pkgPath, "query"), path, params)
	return cache.Fetch(ctx, p.cache, key, func(ctx context.Context) (T, error) {
		var res T
		if _, err := p.client.GetJSON(ctx, path, params, &res); err != nil {
			return res, err
		}
		return res, nil
	})
}
