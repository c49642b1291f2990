package core

import (
	"fmt"
	"time"
)

// Period is the width of a count-over-time bucket.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Validate accepts the known periods and the empty period (meaning day).
func (p Period) Validate() error {
	switch p {
	case "", PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return nil
	}
	return fmt.Errorf("invalid period %q: must be one of day, week, month, year", string(p))
}

// OrDefault returns PeriodDay for the empty period.
func (p Period) OrDefault() Period {
	if p == "" {
		return PeriodDay
	}
	return p
}

// Options holds the optional filters of a query. Each backend reads only the
// fields it understands; an empty list is the same as no filter.
type Options struct {
	// Sources are media source ids (news backends).
	Sources []int64 `json:"sources,omitempty"`

	// Collections are collection (media tag) ids (news backends).
	Collections []int64 `json:"collections,omitempty"`

	// Subreddits restrict reddit searches.
	Subreddits []string `json:"subreddits,omitempty"`

	// Period overrides the bucket width of count-over-time where supported.
	Period Period `json:"period,omitempty"`

	// TagSetsID restricts tag aggregations to a single tag set.
	TagSetsID int64 `json:"tag_sets_id,omitempty"`

	// SampleSize is how many items word and tag aggregations look at.
	SampleSize int `json:"sample_size,omitempty"`
}

// Validate checks the enumerated option values.
func (o Options) Validate() error {
	return o.Period.Validate()
}

// Query is one normalized request: free text terms, a date range and filters.
// Terms are passed to the backend untouched apart from the translation
// wrapping of each dialect.
type Query struct {
	Terms     string    `json:"terms"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Options   Options   `json:"options"`
}

// NewQuery builds a query with no filters.
func NewQuery(terms string, start, end time.Time) Query {
	return Query{Terms: terms, StartDate: start, EndDate: end}
}

// Validate is meant for the boundary (HTTP front end, CLI). Adapters assume
// a validated query.
func (q Query) Validate() error {
	if q.StartDate.IsZero() || q.EndDate.IsZero() {
		return fmt.Errorf("start and end dates are required")
	}
	if q.StartDate.After(q.EndDate) {
		return fmt.Errorf("start date %s is after end date %s",
			q.StartDate.Format(time.DateOnly), q.EndDate.Format(time.DateOnly))
	}
	return q.Options.Validate()
}

// WithTerms returns a copy of the query with different terms.
func (q Query) WithTerms(terms string) Query {
	q.Terms = terms
	return q
}
