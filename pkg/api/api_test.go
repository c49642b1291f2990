package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rubiojr/glimpse/pkg/core"
	"github.com/rubiojr/glimpse/pkg/pagination"
)

// mockProvider answers from fixed data and records the last query.
type mockProvider struct {
	core.Unsupported
	lastQuery core.Query
	lastLimit int
	pages     [][]core.Row
	failAt    int
	failErr   error
}

func (p *mockProvider) Platform() core.Platform { return core.PlatformTwitter }
func (p *mockProvider) Source() core.Source     { return core.SourceTwitter }

func (p *mockProvider) Count(ctx context.Context, q core.Query) (int64, error) {
	p.lastQuery = q
	if q.Terms == "upstream-failure" {
		return 0, &core.UpstreamError{Provider: p.Name, URL: "https://example.test", StatusCode: 500}
	}
	return 42, nil
}

func (p *mockProvider) CountOverTime(ctx context.Context, q core.Query) (*core.CountOverTime, error) {
	p.lastQuery = q
	return core.NewCountOverTime([]core.Bucket{
		core.NewBucket(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), 2),
		core.NewBucket(time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC), 3),
	}), nil
}

func (p *mockProvider) Sample(ctx context.Context, q core.Query, limit int) ([]core.Row, error) {
	p.lastQuery = q
	p.lastLimit = limit
	return []core.Row{testRow("1"), testRow("2")}, nil
}

func (p *mockProvider) Item(ctx context.Context, id string) (*core.Row, error) {
	if id != "1" {
		return nil, core.NotFoundError(p.Name, id)
	}
	row := testRow(id)
	return &row, nil
}

func (p *mockProvider) AllItems(q core.Query) (*pagination.Walker[core.Row], error) {
	p.lastQuery = q
	return pagination.New(func(ctx context.Context, cursor string) ([]core.Row, string, error) {
		i, _ := strconv.Atoi(cursor)
		if p.failErr != nil && i == p.failAt {
			return nil, "", p.failErr
		}
		next := ""
		if i+1 < len(p.pages) {
			next = fmt.Sprint(i + 1)
		}
		return p.pages[i], next, nil
	}), nil
}

func testRow(id string) core.Row {
	return core.Row{
		MediaName:    "Twitter",
		MediaURL:     "https://twitter.com/someone",
		ID:           id,
		Content:      "tweet " + id,
		PublishDate:  time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC),
		URL:          "https://twitter.com/someone/status/" + id,
		RetweetCount: core.Int64(3),
	}
}

func setupTestAPIServer(t *testing.T) (*httptest.Server, *mockProvider) {
	t.Helper()
	mock := &mockProvider{
		Unsupported: core.Unsupported{Name: "twitter/twitter"},
		pages:       [][]core.Row{{testRow("1"), testRow("2")}, {testRow("3")}},
	}
	registry := core.NewRegistry()
	if err := registry.RegisterFactory(core.PlatformTwitter, core.SourceTwitter, func(cfg core.ProviderConfig) (core.Provider, error) {
		return mock, nil
	}); err != nil {
		t.Fatalf("RegisterFactory: %v", err)
	}

	mux := http.NewServeMux()
	NewServer(registry).RegisterRoutes(mux)
	ts := httptest.NewServer(CorsMiddleware(mux))
	t.Cleanup(ts.Close)
	return ts, mock
}

func post(t *testing.T, ts *httptest.Server, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

const validBody = `{"platform": "twitter / twitter", "terms": "vaccine", "startDate": "2021-01-01", "endDate": "2021-01-31"}`

func TestIndexListsPlatforms(t *testing.T) {
	ts, _ := setupTestAPIServer(t)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	var body PlatformsResponse
	decode(t, resp, &body)
	if body.Count != 1 || body.Platforms[0] != "twitter / twitter" {
		t.Errorf("unexpected platforms %+v", body)
	}
}

func TestCountOverTimeEndpoint(t *testing.T) {
	ts, mock := setupTestAPIServer(t)

	resp := post(t, ts, "/api/count-over-time.json", validBody)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body core.CountOverTime
	decode(t, resp, &body)
	if body.Total != 5 || len(body.Counts) != 2 {
		t.Errorf("unexpected body %+v", body)
	}
	if mock.lastQuery.Terms != "vaccine" || !mock.lastQuery.StartDate.Equal(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected query %+v", mock.lastQuery)
	}
}

func TestCountAndSampleEndpoints(t *testing.T) {
	ts, mock := setupTestAPIServer(t)

	var count CountResponse
	decode(t, post(t, ts, "/api/count.json", validBody), &count)
	if count.Count != 42 {
		t.Errorf("Count = %d", count.Count)
	}

	body := `{"platform": "twitter/twitter", "terms": "vaccine", "startDate": "2021-01-01T00:00:00Z", "endDate": "2021-01-31", "limit": 7}`
	var rows RowsResponse
	decode(t, post(t, ts, "/api/sample.json", body), &rows)
	if rows.Count != 2 || rows.Rows[0].ID != "1" {
		t.Errorf("unexpected rows %+v", rows)
	}
	if mock.lastLimit != 7 {
		t.Errorf("limit = %d", mock.lastLimit)
	}
}

func TestErrorStatuses(t *testing.T) {
	ts, _ := setupTestAPIServer(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"malformed body", "/api/count.json", `{`, http.StatusBadRequest},
		{"unknown provider", "/api/count.json", `{"platform": "myspace / myspace", "terms": "x", "startDate": "2021-01-01", "endDate": "2021-01-02"}`, http.StatusBadRequest},
		{"bad date", "/api/count.json", `{"platform": "twitter / twitter", "terms": "x", "startDate": "yesterday", "endDate": "2021-01-02"}`, http.StatusBadRequest},
		{"reversed dates", "/api/count.json", `{"platform": "twitter / twitter", "terms": "x", "startDate": "2021-02-01", "endDate": "2021-01-02"}`, http.StatusBadRequest},
		{"bad period", "/api/count-over-time.json", `{"platform": "twitter / twitter", "terms": "x", "startDate": "2021-01-01", "endDate": "2021-01-02", "period": "hour"}`, http.StatusBadRequest},
		{"unsupported", "/api/words.json", validBody, http.StatusNotImplemented},
		{"unsupported normalized", "/api/normalized-count-over-time.json", validBody, http.StatusNotImplemented},
		{"upstream", "/api/count.json", `{"platform": "twitter / twitter", "terms": "upstream-failure", "startDate": "2021-01-01", "endDate": "2021-01-02"}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts, tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body ErrorResponse
			decode(t, resp, &body)
			if body.StatusCode != tt.status || body.Message == "" {
				t.Errorf("unexpected error body %+v", body)
			}
		})
	}
}

func TestItemEndpoint(t *testing.T) {
	ts, _ := setupTestAPIServer(t)

	resp, err := http.Get(ts.URL + "/api/item/twitter/twitter/1")
	if err != nil {
		t.Fatalf("GET item: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var row core.Row
	decode(t, resp, &row)
	if row.ID != "1" {
		t.Errorf("ID = %q", row.ID)
	}

	missing, err := http.Get(ts.URL + "/api/item/twitter/twitter/2")
	if err != nil {
		t.Fatalf("GET item: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", missing.StatusCode)
	}
}

func TestDownloadCSV(t *testing.T) {
	ts, _ := setupTestAPIServer(t)

	resp := post(t, ts, "/api/download.csv", validBody)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "twitter_twitter-") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	records, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatalf("reading csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want header + 3 rows", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(CSVColumns, ",") {
		t.Errorf("header = %v", records[0])
	}
	if records[3][0] != "3" || records[1][1] != "2021-01-01T12:00:00Z" || records[1][11] != "3" {
		t.Errorf("unexpected records %v", records)
	}
}

func TestDownloadCSVFirstPageFailure(t *testing.T) {
	ts, mock := setupTestAPIServer(t)
	mock.failErr = &core.UpstreamError{Provider: "twitter/twitter", StatusCode: 503}

	resp := post(t, ts, "/api/download.csv", validBody)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	ts, _ := setupTestAPIServer(t)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	var health HealthResponse
	decode(t, resp, &health)
	if health.Status != "ok" || health.Version == "" {
		t.Errorf("unexpected health %+v", health)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := setupTestAPIServer(t)
	post(t, ts, "/api/count.json", validBody)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading metrics: %v", err)
	}
	if !strings.Contains(string(data), `glimpse_api_requests_total{route="count",status="200"}`) {
		t.Errorf("api request not counted")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{badRequest(errors.New("x")), http.StatusBadRequest},
		{&core.UnknownProviderError{Platform: "a", Source: "b"}, http.StatusBadRequest},
		{core.NotFoundError("p", "1"), http.StatusNotFound},
		{&core.UnsupportedOperationError{Provider: "p", Operation: "words"}, http.StatusNotImplemented},
		{fmt.Errorf("wrapped: %w", &core.UpstreamError{Provider: "p"}), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.status {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.status)
		}
	}
}
