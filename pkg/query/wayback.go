package query

import "time"

// WaybackQuery appends the publication date range to terms:
//
//	terms AND publication_date:[2019-01-01 TO 2019-02-01]
func WaybackQuery(terms string, start, end time.Time) string {
	return terms + " AND publication_date:[" + start.UTC().Format(time.DateOnly) + " TO " + end.UTC().Format(time.DateOnly) + "]"
}
