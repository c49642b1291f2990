package query

import (
	"net/url"
	"strings"
	"time"

	"github.com/rubiojr/glimpse/pkg/core"
)

const pushshiftDateFormat = "2006-01-02"

// PushshiftDate renders t the way the historical search backend expects
// after/before. The date is computed from the unix timestamp in UTC so the
// caller's location never shifts the day.
func PushshiftDate(t time.Time) string {
	return time.Unix(t.Unix(), 0).UTC().Format(pushshiftDateFormat)
}

// PushshiftParams builds the query string of a submission search. The
// subreddit filter is only sent when the list is not empty; after and before
// only when both dates are set.
func PushshiftParams(terms string, subreddits []string, start, end time.Time) url.Values {
	params := url.Values{}
	params.Set("q", terms)
	if len(subreddits) > 0 {
		params.Set("subreddit", strings.Join(subreddits, ","))
	}
	if !start.IsZero() && !end.IsZero() {
		params.Set("after", PushshiftDate(start))
		params.Set("before", PushshiftDate(end))
	}
	return params
}

// Pushshift builds the search parameters of q.
func Pushshift(q core.Query) url.Values {
	return PushshiftParams(q.Terms, q.Options.Subreddits, q.StartDate, q.EndDate)
}

// PushshiftFrequency maps a bucket period to the aggregation frequency of
// the historical search backend. The empty period means a day.
func PushshiftFrequency(p core.Period) string {
	switch p.OrDefault() {
	case core.PeriodWeek:
		return "1w"
	case core.PeriodMonth:
		return "1M"
	case core.PeriodYear:
		return "1y"
	default:
		return "1d"
	}
}
