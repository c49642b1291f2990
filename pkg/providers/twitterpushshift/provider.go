// Package twitterpushshift adapts the Elasticsearch mirror of verified
// accounts' tweets to the twitter/pushshift provider.
package twitterpushshift

import (
	"context"
	"net/http"
	"time"

	"github.com/rubiojr/glimpse/pkg/cache"
	"github.com/rubiojr/glimpse/pkg/core"
	"github.com/rubiojr/glimpse/pkg/log"
	"github.com/rubiojr/glimpse/pkg/query"
	"github.com/rubiojr/glimpse/pkg/upstream"
)

func init() {
	core.RegisterProviderFactory(core.PlatformTwitter, core.SourcePushshift, func(cfg core.ProviderConfig) (core.Provider, error) {
		return New(cfg), nil
	})
}

const (
	DefaultBaseURL = "https://twitter-es.pushshift.io/twitter_verified/_search"

	pkgPath           = "github.com/rubiojr/glimpse/pkg/providers/twitterpushshift"
	defaultSampleSize = 20
)

var name = core.ProviderName(core.PlatformTwitter, core.SourcePushshift)

// Provider searches tweets of verified accounts. The index is public.
type Provider struct {
	core.Unsupported
	client *upstream.Client
	cache  *cache.Cache
	logger *log.Logger
}

func New(cfg core.ProviderConfig) *Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Provider{
		Unsupported: core.Unsupported{Name: name},
		client:      upstream.New(name, baseURL, cfg.HTTPClient),
		cache:       cfg.Cache,
		logger:      log.ForService(name),
	}
}

func (p *Provider) Platform() core.Platform { return core.PlatformTwitter }
func (p *Provider) Source() core.Source     { return core.SourcePushshift }

// Sample returns the newest matching tweets.
func (p *Provider) Sample(ctx context.Context, q core.Query, limit int) ([]core.Row, error) {
	if limit <= 0 {
		limit = defaultSampleSize
	}
	key := p.key(q).With("limit", limit).With("sort", "desc")
	res, err := p.search(ctx, key, query.ElasticDocument(q.Terms, q.StartDate, q.EndDate).WithSize(limit).WithSort("desc"))
	if err != nil {
		return nil, err
	}
	rows := make([]core.Row, 0, len(res.Hits.Hits))
	for _, h := range res.Hits.Hits {
		rows = append(rows, h.Source.toRow())
	}
	return rows, nil
}

// Count sums a yearly histogram of the matches.
func (p *Provider) Count(ctx context.Context, q core.Query) (int64, error) {
	counts, err := p.histogram(ctx, q, "year")
	if err != nil {
		return 0, err
	}
	return counts.Total, nil
}

func (p *Provider) CountOverTime(ctx context.Context, q core.Query) (*core.CountOverTime, error) {
	return p.histogram(ctx, q, "day")
}

func (p *Provider) histogram(ctx context.Context, q core.Query, interval string) (*core.CountOverTime, error) {
	key := p.key(q).With("aggs", interval)
	res, err := p.search(ctx, key, query.ElasticDocument(q.Terms, q.StartDate, q.EndDate).WithHistogram(interval))
	if err != nil {
		return nil, err
	}
	buckets := make([]core.Bucket, 0, len(res.Aggregations.Time.Buckets))
	for _, b := range res.Aggregations.Time.Buckets {
		// keys are epoch milliseconds
		buckets = append(buckets, core.NewBucket(time.Unix(b.Key/1000, 0), b.DocCount))
	}
	return core.NewCountOverTime(buckets), nil
}

func (p *Provider) key(q core.Query) cache.Key {
	return cache.NewKey(cache.Namespace(pkgPath, "search"), q.Terms, q.StartDate, q.EndDate)
}

// search sends body as the JSON payload of a GET, the way the index expects it.
func (p *Provider) search(ctx context.Context, key cache.Key, body *query.ElasticSearch) (searchResponse, error) {
	return cache.Fetch(ctx, p.cache, key, func(ctx context.Context) (searchResponse, error) {
		var res searchResponse
		resp, err := p.client.Do(ctx, upstream.Request{Method: http.MethodGet, Body: body})
		if err != nil {
			return res, err
		}
		if err := p.client.Decode(resp, &res); err != nil {
			return res, err
		}
		return res, nil
	})
}
