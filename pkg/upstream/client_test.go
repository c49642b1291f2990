package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rubiojr/glimpse/pkg/core"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestDoBuildsRequest(t *testing.T) {
	var got *http.Request
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Link", `<http://example.test/?resume=X>; rel="next"`)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New("test/mock", srv.URL+"/api/v2/", srv.Client())
	c.Params.Set("key", "secret")
	c.Header.Set("User-Agent", "glimpse-test")

	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "stories_public/list",
		Params: url.Values{"q": {"(trump)"}, "rows": {"20"}},
		Body:   map[string]int{"size": 0},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	if got.URL.Path != "/api/v2/stories_public/list" {
		t.Errorf("path = %q", got.URL.Path)
	}
	q := got.URL.Query()
	if q.Get("key") != "secret" || q.Get("q") != "(trump)" || q.Get("rows") != "20" {
		t.Errorf("query = %v", q)
	}
	if got.Header.Get("User-Agent") != "glimpse-test" {
		t.Errorf("missing shared header")
	}
	if got.Header.Get("Content-Type") != "application/json" || gotBody != `{"size":0}` {
		t.Errorf("unexpected body %q (%s)", gotBody, got.Header.Get("Content-Type"))
	}
	if strings.Contains(resp.URL, "secret") {
		t.Errorf("response URL leaks credentials: %s", resp.URL)
	}
	if resp.Header.Get("Link") == "" {
		t.Error("expected response headers to be kept")
	}
}

func TestDoEmptyPathTargetsBaseURL(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New("test/mock", srv.URL+"/twitter_verified/_search", srv.Client())
	if _, err := c.Do(context.Background(), Request{}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if path != "/twitter_verified/_search" {
		t.Errorf("path = %q", path)
	}
}

func TestDoNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"title":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("twitter/twitter", srv.URL, srv.Client())
	_, err := c.Do(context.Background(), Request{Path: "tweets/search/all"})

	var upErr *core.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upErr.StatusCode != http.StatusUnauthorized || upErr.Provider != "twitter/twitter" {
		t.Errorf("unexpected error fields: %+v", upErr)
	}
	if !strings.Contains(upErr.Body, "Unauthorized") {
		t.Errorf("expected body to be kept, got %q", upErr.Body)
	}
	if !HasStatus(err, http.StatusUnauthorized) || HasStatus(err, http.StatusNotFound) {
		t.Error("HasStatus mismatch")
	}
}

func TestDoTransportError(t *testing.T) {
	cause := errors.New("connection reset")
	httpClient := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, cause
	})}

	c := New("reddit/pushshift", "https://api.pushshift.io/reddit/search/submission/", httpClient)
	_, err := c.Do(context.Background(), Request{})

	var upErr *core.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected error to wrap the transport failure, got %v", err)
	}
}

func TestGetJSONMalformed(t *testing.T) {
	httpClient := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader(`<html>maintenance</html>`)),
		}, nil
	})}

	c := New("online_news/wayback", "http://example.test/v1/", httpClient)
	var out map[string]any
	_, err := c.GetJSON(context.Background(), "search/overview", nil, &out)

	var upErr *core.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if !strings.Contains(err.Error(), "malformed response") {
		t.Errorf("unexpected message: %v", err)
	}
}
