// Package query translates a core.Query into the native query language of
// each backend. Every translator is a pure function: the same query always
// yields the same output.
//
// Shared conventions: terms are passed through untouched (the backend
// decides what an empty string means), empty filter lists emit no clause,
// and numeric ids are rendered as plain decimals.
package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/rubiojr/glimpse/pkg/core"
)

const solrDayFormat = "2006-01-02T00:00:00Z"

// SolrQuery builds the main query string of the boolean/field backend:
//
//	(terms) AND (media_id:(1 2) OR tags_id_media:(3 4))
//
// Each non empty filter list contributes one clause; the clauses are OR'ed
// together and AND'ed onto the wrapped terms. With no filters the result is
// just "(terms)".
func SolrQuery(terms string, sources, collections []int64) string {
	q := "(" + terms + ")"

	var clauses []string
	if len(sources) > 0 {
		clauses = append(clauses, "media_id:("+joinIDs(sources)+")")
	}
	if len(collections) > 0 {
		clauses = append(clauses, "tags_id_media:("+joinIDs(collections)+")")
	}
	if len(clauses) > 0 {
		q += " AND (" + strings.Join(clauses, " OR ") + ")"
	}
	return q
}

// SolrDateClause is the filter query restricting results to a range of
// publication days. Both ends are truncated to the day.
func SolrDateClause(start, end time.Time) string {
	return "publish_day:[" + start.UTC().Format(solrDayFormat) + " TO " + end.UTC().Format(solrDayFormat) + "]"
}

// Solr returns the q and fq parameters for q.
func Solr(q core.Query) (string, string) {
	return SolrQuery(q.Terms, q.Options.Sources, q.Options.Collections), SolrDateClause(q.StartDate, q.EndDate)
}

func joinIDs(ids []int64) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(s, " ")
}
