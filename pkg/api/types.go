package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rubiojr/glimpse/pkg/core"
)

// QueryRequest is the body of every POST query endpoint. Platform is a
// "platform / source" pair as listed by the index.
type QueryRequest struct {
	Platform    string   `json:"platform"`
	Terms       string   `json:"terms"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	Sources     []int64  `json:"sources,omitempty"`
	Collections []int64  `json:"collections,omitempty"`
	Subreddits  []string `json:"subreddits,omitempty"`
	Period      string   `json:"period,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	TagSetsID   int64    `json:"tagSetsId,omitempty"`
	SampleSize  int      `json:"sampleSize,omitempty"`
}

// Query validates the request and builds the normalized query.
func (r QueryRequest) Query() (core.Query, error) {
	if strings.TrimSpace(r.Platform) == "" {
		return core.Query{}, badRequest(fmt.Errorf("platform is required"))
	}
	start, err := core.ParseDate(r.StartDate)
	if err != nil {
		return core.Query{}, badRequest(fmt.Errorf("startDate: %w", err))
	}
	end, err := core.ParseDate(r.EndDate)
	if err != nil {
		return core.Query{}, badRequest(fmt.Errorf("endDate: %w", err))
	}

	q := core.NewQuery(r.Terms, start, end)
	q.Options = core.Options{
		Sources:     r.Sources,
		Collections: r.Collections,
		Subreddits:  r.Subreddits,
		Period:      core.Period(r.Period),
		TagSetsID:   r.TagSetsID,
		SampleSize:  r.SampleSize,
	}
	if err := q.Validate(); err != nil {
		return core.Query{}, badRequest(err)
	}
	return q, nil
}

// queryRequestFromValues reads a request from URL parameters. Lists are
// comma separated.
func queryRequestFromValues(v url.Values) (QueryRequest, error) {
	req := QueryRequest{
		Platform:   v.Get("platform"),
		Terms:      v.Get("terms"),
		StartDate:  v.Get("startDate"),
		EndDate:    v.Get("endDate"),
		Period:     v.Get("period"),
		Subreddits: splitList(v.Get("subreddits")),
	}
	var err error
	if req.Sources, err = parseIDs(v.Get("sources")); err != nil {
		return req, badRequest(fmt.Errorf("sources: %w", err))
	}
	if req.Collections, err = parseIDs(v.Get("collections")); err != nil {
		return req, badRequest(fmt.Errorf("collections: %w", err))
	}
	return req, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range splitList(s) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type PlatformsResponse struct {
	Platforms []string `json:"platforms"`
	Count     int      `json:"count"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type RowsResponse struct {
	Rows  []core.Row `json:"rows"`
	Count int        `json:"count"`
}

type WordsResponse struct {
	Words []core.WordCount `json:"words"`
}

type TagsResponse struct {
	Tags []core.TagCount `json:"tags"`
}

// ErrorResponse mirrors the status code in the body for clients that only
// look at the payload.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// StreamMessage is sent over the page stream websocket.
type StreamMessage struct {
	Type    string     `json:"type"`
	Page    int        `json:"page,omitempty"`
	Rows    []core.Row `json:"rows,omitempty"`
	Message string     `json:"message,omitempty"`
}

const (
	streamInit  = "init"
	streamPage  = "page"
	streamDone  = "done"
	streamError = "error"

	// streamNext is what clients send to ask for the next page.
	streamNext = "next"
)
