package api

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/rubiojr/glimpse/pkg/core"
)

// CSVColumns is the header of row exports.
var CSVColumns = []string{
	"stories_id", "publish_date", "title", "content", "url", "media_name", "media_url",
	"language", "author", "subreddit", "score", "retweet_count", "like_count",
}

// CSVWriter writes rows in the CSVColumns layout.
type CSVWriter struct {
	w *csv.Writer
}

func NewCSVWriter(out io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(out)}
}

func (c *CSVWriter) WriteHeader() error {
	return c.w.Write(CSVColumns)
}

func (c *CSVWriter) WriteRows(rows []core.Row) error {
	for _, row := range rows {
		if err := c.w.Write(csvRecord(row)); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes buffered rows and reports any earlier write error.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

func csvRecord(row core.Row) []string {
	var published string
	if !row.PublishDate.IsZero() {
		published = row.PublishDate.UTC().Format(time.RFC3339)
	}
	return []string{
		row.ID,
		published,
		row.Title,
		row.Content,
		row.URL,
		row.MediaName,
		row.MediaURL,
		row.Language,
		row.Author,
		row.Subreddit,
		optional(row.Score),
		optional(row.RetweetCount),
		optional(row.LikeCount),
	}
}

func optional(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
