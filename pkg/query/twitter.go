package query

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// Limits of max_results on the full archive search endpoint.
	TwitterMinResults = 10
	TwitterMaxResults = 500
)

// TwitterTime renders t in UTC with a literal Z suffix, e.g. 2019-01-01T00:00:00Z.
func TwitterTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05") + "Z"
}

// TwitterCountParams builds a counts request. granularity is left out when
// empty, letting the backend apply its default.
func TwitterCountParams(terms string, start, end time.Time, granularity string) url.Values {
	params := url.Values{}
	params.Set("query", terms)
	params.Set("start_time", TwitterTime(start))
	params.Set("end_time", TwitterTime(end))
	if granularity != "" {
		params.Set("granularity", granularity)
	}
	return params
}

// TwitterSearchParams builds a full archive search request returning up to
// limit tweets with their public metrics and authors. limit is clamped to
// the range the backend accepts.
func TwitterSearchParams(terms string, start, end time.Time, limit int) url.Values {
	limit = max(TwitterMinResults, min(limit, TwitterMaxResults))

	params := url.Values{}
	params.Set("query", terms)
	params.Set("max_results", strconv.Itoa(limit))
	params.Set("start_time", TwitterTime(start))
	params.Set("end_time", TwitterTime(end))
	params.Set("tweet.fields", strings.Join([]string{"author_id", "created_at", "public_metrics"}, ","))
	params.Set("expansions", "author_id")
	return params
}

// TwitterLookupParams requests the same fields as a search for single tweet lookups.
func TwitterLookupParams() url.Values {
	params := url.Values{}
	params.Set("tweet.fields", "author_id,created_at,public_metrics")
	params.Set("expansions", "author_id")
	return params
}
