// Package redditpushshift adapts the Pushshift submission search to the
// reddit/pushshift provider.
package redditpushshift

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rubiojr/glimpse/pkg/cache"
	"github.com/rubiojr/glimpse/pkg/core"
	"github.com/rubiojr/glimpse/pkg/log"
	"github.com/rubiojr/glimpse/pkg/pagination"
	"github.com/rubiojr/glimpse/pkg/query"
	"github.com/rubiojr/glimpse/pkg/upstream"
)

func init() {
	core.RegisterProviderFactory(core.PlatformReddit, core.SourcePushshift, func(cfg core.ProviderConfig) (core.Provider, error) {
		return New(cfg), nil
	})
}

const (
	DefaultBaseURL = "https://api.pushshift.io/reddit/search/submission/"

	pkgPath           = "github.com/rubiojr/glimpse/pkg/providers/redditpushshift"
	defaultSampleSize = 20
	pageSize          = 100
	createdAgg        = "created_utc"
	subredditAgg      = "subreddit"
)

var name = core.ProviderName(core.PlatformReddit, core.SourcePushshift)

// Provider searches reddit submissions. The API is public.
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

func (p *Provider) Platform() core.Platform { return core.PlatformReddit }
func (p *Provider) Source() core.Source     { return core.SourcePushshift }

// Sample returns the top scoring submissions.
func (p *Provider) Sample(ctx context.Context, q core.Query, limit int) ([]core.Row, error) {
	if limit <= 0 {
		limit = defaultSampleSize
	}
	params := query.Pushshift(q)
	params.Set("sort", "desc")
	params.Set("sort_type", "score")
	params.Set("size", strconv.Itoa(limit))

	res, err := p.search(ctx, params)
	if err != nil {
		return nil, err
	}
	subs := res.Data
	if len(subs) > limit {
		subs = subs[:limit]
	}
	return toRows(subs), nil
}

// Count sums a yearly aggregation of the matches.
func (p *Provider) Count(ctx context.Context, q core.Query) (int64, error) {
	counts, err := p.aggregate(ctx, q, "1y")
	if err != nil {
		return 0, err
	}
	return counts.Total, nil
}

func (p *Provider) CountOverTime(ctx context.Context, q core.Query) (*core.CountOverTime, error) {
	return p.aggregate(ctx, q, query.PushshiftFrequency(q.Options.Period))
}

// NormalizedCountOverTime uses the count of every submission in the same
// subreddits and dates, an empty q, as the baseline.
func (p *Provider) NormalizedCountOverTime(ctx context.Context, q core.Query) (*core.NormalizedCountOverTime, error) {
	counts, err := p.CountOverTime(ctx, q)
	if err != nil {
		return nil, err
	}
	baseline, err := p.Count(ctx, q.WithTerms(""))
	if err != nil {
		return nil, fmt.Errorf("counting baseline: %w", err)
	}
	return core.Normalize(counts, baseline), nil
}

func (p *Provider) Item(ctx context.Context, id string) (*core.Row, error) {
	params := url.Values{}
	params.Set("ids", id)
	res, err := p.search(ctx, params)
	if err != nil {
		return nil, err
	}
	for _, s := range res.Data {
		if s.ID == id {
			row := s.toRow()
			return &row, nil
		}
	}
	return nil, core.NotFoundError(name, id)
}

// AllItems walks the submissions oldest first. Pushshift's after filter is
// exclusive and several submissions can share the last second of a page, so
// each page resumes one second earlier and drops the ids it already returned
// for that second.
func (p *Provider) AllItems(q core.Query) (*pagination.Walker[core.Row], error) {
	return pagination.New(func(ctx context.Context, cursor string) ([]core.Row, string, error) {
		boundary, seen, err := parseCursor(cursor)
		if err != nil {
			return nil, "", err
		}

		params := query.Pushshift(q)
		params.Set("sort", "asc")
		params.Set("sort_type", createdAgg)
		params.Set("size", strconv.Itoa(pageSize))
		if cursor != "" {
			params.Set("after", strconv.FormatInt(boundary-1, 10))
		}

		res, err := p.search(ctx, params)
		if err != nil {
			return nil, "", err
		}

		page := make([]submission, 0, len(res.Data))
		for _, s := range res.Data {
			if s.CreatedUTC == boundary && seen[s.ID] {
				continue
			}
			page = append(page, s)
		}
		if len(res.Data) < pageSize {
			return toRows(page), "", nil
		}
		return toRows(page), nextCursor(res.Data), nil
	}), nil
}

// nextCursor is "<created_utc>:<id>,<id>..." listing every submission of the
// page created in its last second.
func nextCursor(subs []submission) string {
	last := subs[len(subs)-1].CreatedUTC
	var ids []string
	for _, s := range subs {
		if s.CreatedUTC == last {
			ids = append(ids, s.ID)
		}
	}
	return strconv.FormatInt(last, 10) + ":" + strings.Join(ids, ",")
}

func parseCursor(cursor string) (int64, map[string]bool, error) {
	if cursor == "" {
		return 0, nil, nil
	}
	ts, ids, _ := strings.Cut(cursor, ":")
	boundary, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("invalid page cursor %q: %w", cursor, err)
	}
	seen := make(map[string]bool)
	for _, id := range strings.Split(ids, ",") {
		if id != "" {
			seen[id] = true
		}
	}
	return boundary, seen, nil
}

// URLSubmissionsBySub counts the submissions of a link per subreddit. The
// query string of link is ignored.
func (p *Provider) URLSubmissionsBySub(ctx context.Context, link string) ([]SubredditCount, error) {
	link, _, _ = strings.Cut(link, "?")
	params := url.Values{}
	params.Set("url", link)
	params.Set("aggs", subredditAgg)
	params.Set("size", "0")

	res, err := p.search(ctx, params)
	if err != nil {
		return nil, err
	}
	out := make([]SubredditCount, 0, len(res.Aggs.Subreddit))
	for _, b := range res.Aggs.Subreddit {
		out = append(out, SubredditCount{Name: b.Key, Value: b.DocCount})
	}
	return out, nil
}

func (p *Provider) aggregate(ctx context.Context, q core.Query, frequency string) (*core.CountOverTime, error) {
	params := query.Pushshift(q)
	params.Set("aggs", createdAgg)
	params.Set("frequency", frequency)
	params.Set("size", "0")

	res, err := p.search(ctx, params)
	if err != nil {
		return nil, err
	}
	buckets := make([]core.Bucket, 0, len(res.Aggs.CreatedUTC))
	for _, b := range res.Aggs.CreatedUTC {
		buckets = append(buckets, core.NewBucket(time.Unix(b.Key, 0), b.DocCount))
	}
	return core.NewCountOverTime(buckets), nil
}

func (p *Provider) search(ctx context.Context, params url.Values) (searchResponse, error) {
	key := cache.NewKey(cache.Namespace(pkgPath, "submissionSearch"), params)
	return cache.Fetch(ctx, p.cache, key, func(ctx context.Context) (searchResponse, error) {
		var res searchResponse
		if _, err := p.client.GetJSON(ctx, "", params, &res); err != nil {
			return res, err
		}
		return res, nil
	})
}
