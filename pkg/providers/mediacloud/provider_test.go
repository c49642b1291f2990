package mediacloud

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rubiojr/glimpse/pkg/cache"
	"github.com/rubiojr/glimpse/pkg/core"
	"github.com/rubiojr/glimpse/pkg/pagination"
)

type recorder struct {
	mu       sync.Mutex
	requests []*url.URL
}

func (r *recorder) add(u *url.URL) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, u)
}

func (r *recorder) count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.requests {
		if u.Path == path {
			n++
		}
	}
	return n
}

func (r *recorder) last() *url.URL {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[len(r.requests)-1]
}

func newTestServer(t *testing.T, rec *recorder) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/stories_public/list", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("last_processed_stories_id") {
		case "":
			_, _ = w.Write([]byte(`[
				{"stories_id": 1, "processed_stories_id": 101, "media_name": "NYT", "media_url": "https://nytimes.com", "title": "One", "url": "https://nytimes.com/1", "publish_date": "2019-01-02 10:00:00", "language": "en"},
				{"stories_id": 2, "processed_stories_id": 102, "media_name": "WaPo", "media_url": "https://washingtonpost.com", "title": "Two", "url": "https://washingtonpost.com/2", "publish_date": "2019-01-03 11:30:00.123456", "language": "en"}
			]`))
		case "102":
			_, _ = w.Write([]byte(`[{"stories_id": 3, "processed_stories_id": 103, "media_name": "BBC", "media_url": "https://bbc.co.uk", "title": "Three", "url": "https://bbc.co.uk/3", "publish_date": "2019-01-04 00:00:00", "language": "en"}]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	})
	mux.HandleFunc("GET /api/v2/stories_public/count", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("split") == "1":
			_, _ = w.Write([]byte(`{"counts": [{"date": "2019-01-01 00:00:00", "count": 3}, {"date": "2019-01-02 00:00:00", "count": 7}], "gap": "+1DAY"}`))
		case strings.HasPrefix(q.Get("q"), "(*)"):
			_, _ = w.Write([]byte(`{"count": 1000}`))
		default:
			_, _ = w.Write([]byte(`{"count": 10}`))
		}
	})
	mux.HandleFunc("GET /api/v2/stories_public/single/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "1" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{"stories_id": 1, "media_name": "NYT", "media_url": "https://nytimes.com", "title": "One", "url": "https://nytimes.com/1", "publish_date": "2019-01-02 10:00:00", "language": "en"}]`))
	})
	mux.HandleFunc("GET /api/v2/wc/list", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"term": "trump", "stem": "trump", "count": 50}, {"term": "wall", "stem": "wall", "count": 20}, {"term": "border", "stem": "border", "count": 10}]`))
	})
	mux.HandleFunc("GET /api/v2/stories_public/tag_count", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"tags_id": 9, "tag": "geonames_1", "label": "USA", "tag_sets_id": 1011, "count": 12}]`))
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.URL)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestProvider(t *testing.T, c *cache.Cache) (*Provider, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := newTestServer(t, rec)
	return New(core.ProviderConfig{
		APIKey:     "secret",
		BaseURL:    srv.URL + "/api/v2/",
		HTTPClient: srv.Client(),
		Cache:      c,
	}), rec
}

func testQuery() core.Query {
	q := core.NewQuery("trump", time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2019, 2, 1, 0, 0, 0, 0, time.UTC))
	q.Options.Sources = []int64{1, 2}
	return q
}

func TestSample(t *testing.T) {
	p, rec := newTestProvider(t, nil)

	rows, err := p.Sample(context.Background(), testQuery(), 2)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].ID != "1" || rows[0].MediaName != "NYT" || rows[0].Title != "One" {
		t.Errorf("unexpected row %+v", rows[0])
	}
	if !rows[0].PublishDate.Equal(time.Date(2019, 1, 2, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("PublishDate = %v", rows[0].PublishDate)
	}

	params := rec.last().Query()
	if params.Get("key") != "secret" {
		t.Errorf("missing api key: %v", params)
	}
	if params.Get("q") != "(trump) AND (media_id:(1 2))" {
		t.Errorf("q = %q", params.Get("q"))
	}
	if params.Get("fq") != "publish_day:[2019-01-01T00:00:00Z TO 2019-02-01T00:00:00Z]" {
		t.Errorf("fq = %q", params.Get("fq"))
	}
	if params.Get("rows") != "2" {
		t.Errorf("rows = %q", params.Get("rows"))
	}
}

func TestCountMatchesCountOverTime(t *testing.T) {
	p, _ := newTestProvider(t, nil)
	ctx := context.Background()

	total, err := p.Count(ctx, testQuery())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	counts, err := p.CountOverTime(ctx, testQuery())
	if err != nil {
		t.Fatalf("CountOverTime: %v", err)
	}
	if total != counts.Total {
		t.Errorf("Count = %d, CountOverTime total = %d", total, counts.Total)
	}
	if len(counts.Counts) != 2 || counts.Counts[1].Count != 7 {
		t.Errorf("unexpected buckets %+v", counts.Counts)
	}
	if counts.Counts[0].Timestamp != time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC).Unix() {
		t.Errorf("Timestamp = %d", counts.Counts[0].Timestamp)
	}
}

func TestNormalizedCountOverTime(t *testing.T) {
	p, rec := newTestProvider(t, nil)

	n, err := p.NormalizedCountOverTime(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("NormalizedCountOverTime: %v", err)
	}
	if n.Total != 10 || n.NormalizedTotal != 0.01 {
		t.Errorf("Total = %d, NormalizedTotal = %v", n.Total, n.NormalizedTotal)
	}
	if got := rec.last().Query().Get("q"); got != "(*) AND (media_id:(1 2))" {
		t.Errorf("baseline q = %q", got)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c, err := cache.New(cache.NewMemoryStore(), cache.Options{})
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	p, rec := newTestProvider(t, c)
	ctx := context.Background()

	q := testQuery()
	for i := 0; i < 2; i++ {
		if _, err := p.CountOverTime(ctx, q); err != nil {
			t.Fatalf("CountOverTime: %v", err)
		}
	}
	if n := rec.count("/api/v2/stories_public/count"); n != 1 {
		t.Fatalf("identical calls hit upstream %d times, want 1", n)
	}

	q.Options.Period = core.PeriodWeek
	if _, err := p.CountOverTime(ctx, q); err != nil {
		t.Fatalf("CountOverTime: %v", err)
	}
	if n := rec.count("/api/v2/stories_public/count"); n != 2 {
		t.Errorf("different period hit upstream %d times in total, want 2", n)
	}
	if got := rec.last().Query().Get("split_period"); got != "week" {
		t.Errorf("split_period = %q", got)
	}
}

func TestItem(t *testing.T) {
	p, _ := newTestProvider(t, nil)
	ctx := context.Background()

	row, err := p.Item(ctx, "1")
	if err != nil {
		t.Fatalf("Item: %v", err)
	}
	if row.Title != "One" {
		t.Errorf("Title = %q", row.Title)
	}

	for _, id := range []string{"2", "not-a-number"} {
		if _, err := p.Item(ctx, id); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Item(%q): expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestWordsAndTags(t *testing.T) {
	p, rec := newTestProvider(t, nil)
	ctx := context.Background()

	q := testQuery()
	q.Options.SampleSize = 500
	words, err := p.Words(ctx, q, 2)
	if err != nil {
		t.Fatalf("Words: %v", err)
	}
	if len(words) != 2 || words[0].Term != "trump" {
		t.Errorf("unexpected words %+v", words)
	}
	if got := rec.last().Query().Get("sample_size"); got != "500" {
		t.Errorf("sample_size = %q", got)
	}

	q.Options.TagSetsID = 1011
	tags, err := p.Tags(ctx, q, 10)
	if err != nil {
		t.Fatalf("Tags: %v", err)
	}
	if len(tags) != 1 || tags[0].Label != "USA" {
		t.Errorf("unexpected tags %+v", tags)
	}
	if got := rec.last().Query().Get("tag_sets_id"); got != "1011" {
		t.Errorf("tag_sets_id = %q", got)
	}
}

func TestAllItems(t *testing.T) {
	p, rec := newTestProvider(t, nil)

	w, err := p.AllItems(testQuery())
	if err != nil {
		t.Fatalf("AllItems: %v", err)
	}
	rows, err := pagination.Collect(context.Background(), w)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(rows) != 3 || rows[2].ID != "3" {
		t.Errorf("unexpected rows %+v", rows)
	}
	if w.Pages() != 2 {
		t.Errorf("Pages = %d, want 2", w.Pages())
	}
	if got := rec.last().Query().Get("last_processed_stories_id"); got != "103" {
		t.Errorf("last cursor = %q, want 103", got)
	}
}

func TestPlatformSource(t *testing.T) {
	var p core.Provider = New(core.ProviderConfig{})
	if p.Platform() != core.PlatformOnlineNews || p.Source() != core.SourceMediaCloud {
		t.Errorf("unexpected pair %s/%s", p.Platform(), p.Source())
	}
}

func TestRegistered(t *testing.T) {
	if _, err := core.GetGlobalRegistry().Provider(core.PlatformOnlineNews, core.SourceMediaCloud); err != nil {
		t.Fatalf("provider not registered: %v", err)
	}
}
