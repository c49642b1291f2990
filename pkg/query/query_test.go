package query

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rubiojr/glimpse/pkg/core"
)

var (
	jan1 = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	feb1 = time.Date(2019, 2, 1, 0, 0, 0, 0, time.UTC)
)

func TestSolrQuery(t *testing.T) {
	tests := []struct {
		name        string
		terms       string
		sources     []int64
		collections []int64
		want        string
	}{
		{"no filters", "X", nil, nil, "(X)"},
		{"empty lists", "X", []int64{}, []int64{}, "(X)"},
		{"sources only", "X", []int64{1, 2}, []int64{}, "(X) AND (media_id:(1 2))"},
		{"collections only", "X", nil, []int64{3, 4}, "(X) AND (tags_id_media:(3 4))"},
		{"both", "X", []int64{1, 2}, []int64{3, 4}, "(X) AND (media_id:(1 2) OR tags_id_media:(3 4))"},
		{"empty terms", "", []int64{9}, nil, "() AND (media_id:(9))"},
		{"boolean terms", "trump OR biden", nil, nil, "(trump OR biden)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SolrQuery(tt.terms, tt.sources, tt.collections); got != tt.want {
				t.Errorf("SolrQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSolr(t *testing.T) {
	q := core.NewQuery("X", jan1, feb1.Add(13*time.Hour))
	main, fq := Solr(q)
	if main != "(X)" {
		t.Errorf("q = %q, want (X)", main)
	}
	if fq != "publish_day:[2019-01-01T00:00:00Z TO 2019-02-01T00:00:00Z]" {
		t.Errorf("fq = %q", fq)
	}
}

func TestElasticDocument(t *testing.T) {
	doc := ElasticDocument("trump", jan1, feb1).WithSort("desc").WithSize(20)
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"sort":{"created_at":"desc"},"size":20,"query":{"bool":{"must":[{"range":{"created_at":{"gte":1546300800,"lte":1548979200}}},{"match":{"text":"trump"}}]}}}`
	if string(b) != want {
		t.Errorf("document =\n%s\nwant\n%s", b, want)
	}
}

func TestElasticDocumentWithoutDates(t *testing.T) {
	b, _ := json.Marshal(ElasticDocument("trump", time.Time{}, time.Time{}))
	if string(b) != `{"query":{"match":{"text":"trump"}}}` {
		t.Errorf("document = %s", b)
	}
}

func TestElasticHistogram(t *testing.T) {
	b, _ := json.Marshal(ElasticDocument("x", jan1, feb1).WithSize(0).WithHistogram("year"))
	want := `{"size":0,"query":{"bool":{"must":[{"range":{"created_at":{"gte":1546300800,"lte":1548979200}}},{"match":{"text":"x"}}]}},"aggs":{"time":{"date_histogram":{"field":"created_at","interval":"year"}}}}`
	if string(b) != want {
		t.Errorf("document =\n%s\nwant\n%s", b, want)
	}
}

func TestPushshiftParams(t *testing.T) {
	// 2019-01-01 00:30 in UTC-5 is already 05:30 UTC of the same day, while
	// 23:30 UTC-5 is the next UTC day.
	est := time.FixedZone("EST", -5*3600)
	start := time.Date(2019, 1, 1, 0, 30, 0, 0, est)
	end := time.Date(2019, 1, 31, 23, 30, 0, 0, est)

	p := PushshiftParams("trump", []string{"politics", "news"}, start, end)
	if p.Get("q") != "trump" || p.Get("subreddit") != "politics,news" {
		t.Errorf("params = %v", p)
	}
	if p.Get("after") != "2019-01-01" || p.Get("before") != "2019-02-01" {
		t.Errorf("after/before = %s/%s", p.Get("after"), p.Get("before"))
	}

	p = PushshiftParams("", nil, time.Time{}, time.Time{})
	if _, ok := p["q"]; !ok {
		t.Error("empty terms must be passed through")
	}
	for _, k := range []string{"subreddit", "after", "before"} {
		if _, ok := p[k]; ok {
			t.Errorf("unexpected %s parameter", k)
		}
	}
}

func TestPushshiftFrequency(t *testing.T) {
	tests := map[core.Period]string{
		"":               "1d",
		core.PeriodDay:   "1d",
		core.PeriodWeek:  "1w",
		core.PeriodMonth: "1M",
		core.PeriodYear:  "1y",
	}
	for p, want := range tests {
		if got := PushshiftFrequency(p); got != want {
			t.Errorf("PushshiftFrequency(%q) = %q, want %q", p, got, want)
		}
	}
}

func TestTwitterParams(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	start := time.Date(2019, 1, 1, 1, 0, 0, 0, cet)

	p := TwitterCountParams("trump", start, feb1, "day")
	if p.Get("start_time") != "2019-01-01T00:00:00Z" || p.Get("end_time") != "2019-02-01T00:00:00Z" {
		t.Errorf("times = %s / %s", p.Get("start_time"), p.Get("end_time"))
	}
	if p.Get("granularity") != "day" {
		t.Errorf("granularity = %q", p.Get("granularity"))
	}
	if _, ok := TwitterCountParams("x", jan1, feb1, "")["granularity"]; ok {
		t.Error("empty granularity must not be sent")
	}

	s := TwitterSearchParams("trump", jan1, feb1, 3)
	if s.Get("max_results") != "10" {
		t.Errorf("max_results = %q, want clamped to 10", s.Get("max_results"))
	}
	if s.Get("expansions") != "author_id" || s.Get("tweet.fields") != "author_id,created_at,public_metrics" {
		t.Errorf("params = %v", s)
	}
	if got := TwitterSearchParams("x", jan1, feb1, 5000).Get("max_results"); got != "500" {
		t.Errorf("max_results = %q, want clamped to 500", got)
	}
}

func TestWaybackQuery(t *testing.T) {
	got := WaybackQuery("climate", jan1, feb1)
	if got != "climate AND publication_date:[2019-01-01 TO 2019-02-01]" {
		t.Errorf("WaybackQuery() = %q", got)
	}
}
