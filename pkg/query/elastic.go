package query

import (
	"time"
)

const (
	// ElasticTimeField holds the creation time of indexed tweets, in epoch seconds.
	ElasticTimeField = "created_at"
	elasticTextField = "text"

	// HistogramAgg names the date histogram aggregation in requests and responses.
	HistogramAgg = "time"
)

// ElasticSearch is a search request body of the structured-document backend.
type ElasticSearch struct {
	Sort  map[string]string `json:"sort,omitempty"`
	Size  *int              `json:"size,omitempty"`
	Query map[string]any    `json:"query"`
	Aggs  map[string]any    `json:"aggs,omitempty"`
}

// ElasticDocument builds a search request for terms in [start, end]. When
// either date is zero the match clause is used alone:
//
//	{"query": {"bool": {"must": [
//	    {"range": {"created_at": {"gte": 1546300800, "lte": 1548979200}}},
//	    {"match": {"text": "terms"}}]}}}
func ElasticDocument(terms string, start, end time.Time) *ElasticSearch {
	match := map[string]any{"match": map[string]any{elasticTextField: terms}}

	if start.IsZero() || end.IsZero() {
		return &ElasticSearch{Query: match}
	}

	rng := map[string]any{"range": map[string]any{
		ElasticTimeField: map[string]int64{
			"gte": start.Unix(),
			"lte": end.Unix(),
		},
	}}
	return &ElasticSearch{Query: map[string]any{
		"bool": map[string]any{"must": []any{rng, match}},
	}}
}

// WithSize limits the number of returned hits.
func (s *ElasticSearch) WithSize(n int) *ElasticSearch {
	s.Size = &n
	return s
}

// WithSort orders hits by creation time, "asc" or "desc".
func (s *ElasticSearch) WithSort(order string) *ElasticSearch {
	s.Sort = map[string]string{ElasticTimeField: order}
	return s
}

// WithHistogram adds a date histogram over the creation time with the given
// interval ("day", "year"...).
func (s *ElasticSearch) WithHistogram(interval string) *ElasticSearch {
	s.Aggs = DateHistogram(interval)
	return s
}

// DateHistogram is the aggregation bucketing hits by creation time.
func DateHistogram(interval string) map[string]any {
	return map[string]any{
		HistogramAgg: map[string]any{
			"date_histogram": map[string]string{
				"field":    ElasticTimeField,
				"interval": interval,
			},
		},
	}
}
