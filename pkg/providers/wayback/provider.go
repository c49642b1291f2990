// Package wayback adapts the Internet Archive news search API to the
// online_news/wayback provider.
package wayback

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/rubiojr/glimpse/pkg/cache"
	"github.com/rubiojr/glimpse/pkg/core"
	"github.com/rubiojr/glimpse/pkg/log"
	"github.com/rubiojr/glimpse/pkg/pagination"
	"github.com/rubiojr/glimpse/pkg/query"
	"github.com/rubiojr/glimpse/pkg/upstream"
)

func init() {
	core.RegisterProviderFactory(core.PlatformOnlineNews, core.SourceWayback, func(cfg core.ProviderConfig) (core.Provider, error) {
		return New(cfg), nil
	})
}

const (
	DefaultBaseURL = "http://mcapi.sawood-dev.us.archive.org:8000/v1/"

	pkgPath     = "github.com/rubiojr/glimpse/pkg/providers/wayback"
	resumeParam = "resume"
)

var name = core.ProviderName(core.PlatformOnlineNews, core.SourceWayback)

// Provider searches archived news articles. The backend needs no credentials.
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

func (p *Provider) Platform() core.Platform { return core.PlatformOnlineNews }
func (p *Provider) Source() core.Source     { return core.SourceWayback }

// Sample returns the matches of the overview, which the backend caps on its own.
func (p *Provider) Sample(ctx context.Context, q core.Query, limit int) ([]core.Row, error) {
	ov, err := p.overview(ctx, q)
	if err != nil {
		return nil, err
	}
	matches := ov.Matches
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return toRows(matches), nil
}

func (p *Provider) Count(ctx context.Context, q core.Query) (int64, error) {
	ov, err := p.overview(ctx, q)
	if err != nil {
		return 0, err
	}
	return ov.Total, nil
}

func (p *Provider) CountOverTime(ctx context.Context, q core.Query) (*core.CountOverTime, error) {
	ov, err := p.overview(ctx, q)
	if err != nil {
		return nil, err
	}

	buckets := make([]core.Bucket, 0, len(ov.DailyCounts))
	for day, count := range ov.DailyCounts {
		t, err := core.ParseDate(day)
		if err != nil {
			return nil, &core.UpstreamError{Provider: name, Err: fmt.Errorf("daily count date: %w", err)}
		}
		buckets = append(buckets, core.NewBucket(t, count))
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Date.Before(buckets[j].Date) })
	return core.NewCountOverTime(buckets), nil
}

func (p *Provider) Item(ctx context.Context, id string) (*core.Row, error) {
	key := cache.NewKey(cache.Namespace(pkgPath, "article"), id)
	m, err := cache.Fetch(ctx, p.cache, key, func(ctx context.Context) (*match, error) {
		resp, err := p.client.Do(ctx, upstream.Request{Path: "article/" + url.PathEscape(id)})
		if err != nil {
			var upErr *core.UpstreamError
			if errors.As(err, &upErr) && (upErr.StatusCode == http.StatusNotFound || isNoResults([]byte(upErr.Body))) {
				return nil, core.NotFoundError(name, id)
			}
			return nil, err
		}
		if isNoResults(resp.Body) {
			return nil, core.NotFoundError(name, id)
		}
		var m match
		if err := p.client.Decode(resp, &m); err != nil {
			return nil, err
		}
		return &m, nil
	})
	if err != nil {
		return nil, err
	}
	row := m.toRow()
	if row.ID == "" {
		row.ID = id
	}
	return &row, nil
}

// AllItems walks search/result, following the resume token of the rel="next"
// Link header.
func (p *Provider) AllItems(q core.Query) (*pagination.Walker[core.Row], error) {
	terms := query.WaybackQuery(q.Terms, q.StartDate, q.EndDate)
	return pagination.New(func(ctx context.Context, cursor string) ([]core.Row, string, error) {
		params := url.Values{}
		params.Set("q", terms)
		if cursor != "" {
			params.Set(resumeParam, cursor)
		}

		resp, err := p.client.Do(ctx, upstream.Request{Path: "search/result", Params: params})
		if err != nil {
			if p.noResults(err) {
				return nil, "", nil
			}
			return nil, "", err
		}
		if isNoResults(resp.Body) {
			p.logger.Warnf("no results for %q", terms)
			return nil, "", nil
		}

		var matches []match
		if err := p.client.Decode(resp, &matches); err != nil {
			return nil, "", err
		}
		return toRows(matches), pagination.NextLinkParam(resp.Header, resumeParam), nil
	}), nil
}

// overview runs search/overview, which answers sample, count and
// count_over_time at once.
func (p *Provider) overview(ctx context.Context, q core.Query) (overview, error) {
	terms := query.WaybackQuery(q.Terms, q.StartDate, q.EndDate)
	key := cache.NewKey(cache.Namespace(pkgPath, "query"), "search/overview").With("q", terms)
	return cache.Fetch(ctx, p.cache, key, func(ctx context.Context) (overview, error) {
		params := url.Values{}
		params.Set("q", terms)

		resp, err := p.client.Do(ctx, upstream.Request{Path: "search/overview", Params: params})
		if err != nil {
			if p.noResults(err) {
				return overview{}, nil
			}
			return overview{}, err
		}
		if isNoResults(resp.Body) {
			p.logger.Warnf("no results for %q", terms)
			return overview{}, nil
		}

		var ov overview
		if err := p.client.Decode(resp, &ov); err != nil {
			return overview{}, err
		}
		return ov, nil
	})
}

// noResults reports whether err is the sentinel sent with an error status.
func (p *Provider) noResults(err error) bool {
	var upErr *core.UpstreamError
	if errors.As(err, &upErr) && isNoResults([]byte(upErr.Body)) {
		p.logger.Warnf("no results from %s", upErr.URL)
		return true
	}
	return false
}
