// Package mediacloud adapts the Media Cloud v2 story search API to the
// online_news/mediacloud provider.
package mediacloud

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rubiojr/glimpse/pkg/cache"
	"github.com/rubiojr/glimpse/pkg/core"
	"github.com/rubiojr/glimpse/pkg/log"
	"github.com/rubiojr/glimpse/pkg/pagination"
	"github.com/rubiojr/glimpse/pkg/query"
	"github.com/rubiojr/glimpse/pkg/upstream"
)

func init() {
	core.RegisterProviderFactory(core.PlatformOnlineNews, core.SourceMediaCloud, func(cfg core.ProviderConfig) (core.Provider, error) {
		return New(cfg), nil
	})
}

const (
	DefaultBaseURL = "https://api.mediacloud.org/api/v2/"

	pkgPath           = "github.com/rubiojr/glimpse/pkg/providers/mediacloud"
	defaultSampleSize = 20
	pageSize          = 1000
	baselineTerms     = "*"
)

var name = core.ProviderName(core.PlatformOnlineNews, core.SourceMediaCloud)

// Provider searches news stories indexed by Media Cloud.
type Provider struct {
	core.Unsupported
	client *upstream.Client
	cache  *cache.Cache
	logger *log.Logger
}

// New returns a provider authenticating with cfg.APIKey.
func New(cfg core.ProviderConfig) *Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := upstream.New(name, baseURL, cfg.HTTPClient)
	if cfg.APIKey != "" {
		client.Params.Set("key", cfg.APIKey)
	}
	return &Provider{
		Unsupported: core.Unsupported{Name: name},
		client:      client,
		cache:       cfg.Cache,
		logger:      log.ForService(name),
	}
}

func (p *Provider) Platform() core.Platform { return core.PlatformOnlineNews }
func (p *Provider) Source() core.Source     { return core.SourceMediaCloud }

func (p *Provider) Sample(ctx context.Context, q core.Query, limit int) ([]core.Row, error) {
	if limit <= 0 {
		limit = defaultSampleSize
	}
	main, fq := query.Solr(q)
	stories, err := p.storyList(ctx, main, fq, limit, 0)
	if err != nil {
		return nil, err
	}
	return toRows(stories), nil
}

func (p *Provider) Count(ctx context.Context, q core.Query) (int64, error) {
	main, fq := query.Solr(q)
	res, err := p.storyCount(ctx, main, fq, false, "")
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

func (p *Provider) CountOverTime(ctx context.Context, q core.Query) (*core.CountOverTime, error) {
	main, fq := query.Solr(q)
	res, err := p.storyCount(ctx, main, fq, true, q.Options.Period.OrDefault())
	if err != nil {
		return nil, err
	}

	buckets := make([]core.Bucket, 0, len(res.Counts))
	for _, c := range res.Counts {
		t, err := core.ParseDate(c.Date)
		if err != nil {
			return nil, &core.UpstreamError{Provider: name, Err: fmt.Errorf("bucket date: %w", err)}
		}
		buckets = append(buckets, core.NewBucket(t, c.Count))
	}
	return core.NewCountOverTime(buckets), nil
}

// NormalizedCountOverTime uses the count of every story ("*") with the same
// filters and dates as the baseline.
func (p *Provider) NormalizedCountOverTime(ctx context.Context, q core.Query) (*core.NormalizedCountOverTime, error) {
	counts, err := p.CountOverTime(ctx, q)
	if err != nil {
		return nil, err
	}
	baseline, err := p.Count(ctx, q.WithTerms(baselineTerms))
	if err != nil {
		return nil, fmt.Errorf("counting baseline: %w", err)
	}
	return core.Normalize(counts, baseline), nil
}

func (p *Provider) Item(ctx context.Context, id string) (*core.Row, error) {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return nil, core.NotFoundError(name, id)
	}

	var stories []story
	_, err := p.client.GetJSON(ctx, "stories_public/single/"+id, nil, &stories)
	if upstream.HasStatus(err, http.StatusNotFound) {
		return nil, core.NotFoundError(name, id)
	}
	if err != nil {
		return nil, err
	}
	if len(stories) == 0 {
		return nil, core.NotFoundError(name, id)
	}
	row := stories[0].toRow()
	return &row, nil
}

func (p *Provider) Words(ctx context.Context, q core.Query, limit int) ([]core.WordCount, error) {
	main, fq := query.Solr(q)
	words, err := p.wordCount(ctx, main, fq, q.Options.SampleSize)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(words) > limit {
		words = words[:limit]
	}
	out := make([]core.WordCount, 0, len(words))
	for _, w := range words {
		out = append(out, core.WordCount{Term: w.Term, Stem: w.Stem, Count: w.Count})
	}
	return out, nil
}

func (p *Provider) Tags(ctx context.Context, q core.Query, limit int) ([]core.TagCount, error) {
	main, fq := query.Solr(q)
	tags, err := p.tagCount(ctx, main, fq, q.Options.TagSetsID, q.Options.SampleSize)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(tags) > limit {
		tags = tags[:limit]
	}
	out := make([]core.TagCount, 0, len(tags))
	for _, t := range tags {
		out = append(out, core.TagCount{TagsID: t.TagsID, Tag: t.Tag, Label: t.Label, TagSetsID: t.TagSetsID, Count: t.Count})
	}
	return out, nil
}

// AllItems pages through stories_public/list, resuming after the last
// processed story id of each page.
func (p *Provider) AllItems(q core.Query) (*pagination.Walker[core.Row], error) {
	main, fq := query.Solr(q)
	return pagination.New(func(ctx context.Context, cursor string) ([]core.Row, string, error) {
		var last int64
		if cursor != "" {
			var err error
			if last, err = strconv.ParseInt(cursor, 10, 64); err != nil {
				return nil, "", fmt.Errorf("invalid cursor %q: %w", cursor, err)
			}
		}
		stories, err := p.storyList(ctx, main, fq, pageSize, last)
		if err != nil {
			return nil, "", err
		}
		if len(stories) == 0 {
			return nil, "", nil
		}
		next := strconv.FormatInt(stories[len(stories)-1].ProcessedStoriesID, 10)
		return toRows(stories), next, nil
	}), nil
}

func (p *Provider) storyList(ctx context.Context, q, fq string, rows int, lastProcessed int64) ([]story, error) {
	key := cache.NewKey(cache.Namespace(pkgPath, "storyList"), q, fq, rows).
		With("last_processed_stories_id", lastProcessed)
	return cache.Fetch(ctx, p.cache, key, func(ctx context.Context) ([]story, error) {
		params := url.Values{}
		params.Set("q", q)
		params.Set("fq", fq)
		params.Set("rows", strconv.Itoa(rows))
		if lastProcessed > 0 {
			params.Set("last_processed_stories_id", strconv.FormatInt(lastProcessed, 10))
		}
		var stories []story
		if _, err := p.client.GetJSON(ctx, "stories_public/list", params, &stories); err != nil {
			return nil, err
		}
		return stories, nil
	})
}

func (p *Provider) storyCount(ctx context.Context, q, fq string, split bool, period core.Period) (countResponse, error) {
	key := cache.NewKey(cache.Namespace(pkgPath, "storyCount"), q, fq)
	if split {
		key = key.With("split", true).With("split_period", period)
	}
	return cache.Fetch(ctx, p.cache, key, func(ctx context.Context) (countResponse, error) {
		params := url.Values{}
		params.Set("q", q)
		params.Set("fq", fq)
		if split {
			params.Set("split", "1")
			params.Set("split_period", string(period))
		}
		var res countResponse
		if _, err := p.client.GetJSON(ctx, "stories_public/count", params, &res); err != nil {
			return countResponse{}, err
		}
		return res, nil
	})
}

func (p *Provider) wordCount(ctx context.Context, q, fq string, sampleSize int) ([]wordCount, error) {
	key := cache.NewKey(cache.Namespace(pkgPath, "wordCount"), q, fq).With("sample_size", sampleSize)
	return cache.Fetch(ctx, p.cache, key, func(ctx context.Context) ([]wordCount, error) {
		params := url.Values{}
		params.Set("q", q)
		params.Set("fq", fq)
		if sampleSize > 0 {
			params.Set("sample_size", strconv.Itoa(sampleSize))
		}
		var words []wordCount
		if _, err := p.client.GetJSON(ctx, "wc/list", params, &words); err != nil {
			return nil, err
		}
		return words, nil
	})
}

func (p *Provider) tagCount(ctx context.Context, q, fq string, tagSetsID int64, limit int) ([]tagCount, error) {
	key := cache.NewKey(cache.Namespace(pkgPath, "tagCount"), q, fq).
		With("tag_sets_id", tagSetsID).
		With("limit", limit)
	return cache.Fetch(ctx, p.cache, key, func(ctx context.Context) ([]tagCount, error) {
		params := url.Values{}
		params.Set("q", q)
		params.Set("fq", fq)
		if tagSetsID > 0 {
			params.Set("tag_sets_id", strconv.FormatInt(tagSetsID, 10))
		}
		if limit > 0 {
			params.Set("limit", strconv.Itoa(limit))
		}
		var tags []tagCount
		if _, err := p.client.GetJSON(ctx, "stories_public/tag_count", params, &tags); err != nil {
			return nil, err
		}
		return tags, nil
	})
}
