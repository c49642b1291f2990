// Package upstream executes the HTTP requests providers send to their
// backends and turns failures into *core.UpstreamError values.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rubiojr/glimpse/pkg/core"
	"github.com/rubiojr/glimpse/pkg/log"
	"github.com/rubiojr/glimpse/pkg/metrics"
)

// DefaultTimeout applies to clients created without an *http.Client.
const DefaultTimeout = 60 * time.Second

// Client sends requests relative to a backend base URL.
type Client struct {
	// Provider names the backend in errors, logs and metrics.
	Provider string
	BaseURL  string
	HTTP     *http.Client

	// Header and Params are added to every request.
	Header http.Header
	Params url.Values

	logger *log.Logger
}

// New returns a client for provider. A nil httpClient selects one with
// DefaultTimeout.
func New(provider, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		Provider: provider,
		BaseURL:  baseURL,
		HTTP:     httpClient,
		Header:   http.Header{},
		Params:   url.Values{},
		logger:   log.ForService(provider),
	}
}

// Request describes one call. Path is relative to the client's BaseURL; an
// empty Path targets BaseURL itself.
type Request struct {
	Method string
	Path   string
	Params url.Values

	// Body is sent JSON encoded when not nil, whatever the method.
	Body any
}

// Response is a fully read 2xx response.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (c *Client) resolve(path string, params url.Values) (*url.URL, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", c.BaseURL, err)
	}
	if path != "" {
		u = u.JoinPath(strings.Split(path, "/")...)
	}

	q := u.Query()
	for k, vs := range c.Params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u, nil
}

// Do sends req and reads the whole response. Transport failures and non-2xx
// statuses are returned as *core.UpstreamError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	u, err := c.resolve(req.Path, req.Params)
	if err != nil {
		return nil, err
	}
	// Never log credentials carried in the shared params.
	display := u.Scheme + "://" + u.Host + u.Path
	if len(req.Params) > 0 {
		display += "?" + req.Params.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	for k, vs := range c.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debugf("%s %s", method, display)
	start := time.Now()
	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		metrics.ObserveUpstream(c.Provider, 0, time.Since(start))
		return nil, &core.UpstreamError{Provider: c.Provider, URL: display, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warnf("failed to close response body: %v", err)
		}
	}()
	metrics.ObserveUpstream(c.Provider, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.UpstreamError{Provider: c.Provider, URL: display, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &core.UpstreamError{
			Provider:   c.Provider,
			URL:        display,
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	return &Response{URL: display, StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// Decode unmarshals a response body. A malformed payload is an upstream
// failure, not a caller error.
func (c *Client) Decode(resp *Response, out any) error {
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &core.UpstreamError{
			Provider:   c.Provider,
			URL:        resp.URL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("malformed response: %w", err),
		}
	}
	return nil
}

// GetJSON sends a GET request and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, params url.Values, out any) (*Response, error) {
	resp, err := c.Do(ctx, Request{Path: path, Params: params})
	if err != nil {
		return nil, err
	}
	return resp, c.Decode(resp, out)
}

// HasStatus reports whether err is an upstream failure with the given HTTP
// status.
func HasStatus(err error, status int) bool {
	var upErr *core.UpstreamError
	return errors.As(err, &upErr) && upErr.StatusCode == status
}
