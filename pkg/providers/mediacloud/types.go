package mediacloud

import (
	"strconv"

	"github.com/rubiojr/glimpse/pkg/core"
)

// story is a record of stories_public/list and stories_public/single.
type story struct {
	StoriesID          int64  `json:"stories_id"`
	ProcessedStoriesID int64  `json:"processed_stories_id"`
	MediaID            int64  `json:"media_id"`
	MediaName          string `json:"media_name"`
	MediaURL           string `json:"media_url"`
	Title              string `json:"title"`
	URL                string `json:"url"`
	PublishDate        string `json:"publish_date"`
	Language           string `json:"language"`
}

func (s story) toRow() core.Row {
	row := core.Row{
		MediaName: s.MediaName,
		MediaURL:  s.MediaURL,
		ID:        strconv.FormatInt(s.StoriesID, 10),
		Title:     s.Title,
		URL:       s.URL,
		Language:  s.Language,
	}
	if t, err := core.ParseDate(s.PublishDate); err == nil {
		row.PublishDate = t
	}
	return row
}

func toRows(stories []story) []core.Row {
	rows := make([]core.Row, 0, len(stories))
	for _, s := range stories {
		rows = append(rows, s.toRow())
	}
	return rows
}

// countResponse is the answer of stories_public/count. Counts is only
// filled for split requests.
type countResponse struct {
	Count  int64        `json:"count"`
	Counts []splitCount `json:"counts"`
}

type splitCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type wordCount struct {
	Term  string `json:"term"`
	Stem  string `json:"stem"`
	Count int64  `json:"count"`
}

type tagCount struct {
	TagsID    int64  `json:"tags_id"`
	Tag       string `json:"tag"`
	Label     string `json:"label"`
	TagSetsID int64  `json:"tag_sets_id"`
	Count     int64  `json:"count"`
}
