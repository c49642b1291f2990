package redditpushshift

import (
	"time"

	"github.com/rubiojr/glimpse/pkg/core"
)

// searchResponse is the answer of the submission search. Aggs holds the
// aggregation named in the request.
type searchResponse struct {
	Data []submission `json:"data"`
	Aggs struct {
		CreatedUTC []timeBucket      `json:"created_utc"`
		Subreddit  []subredditBucket `json:"subreddit"`
	} `json:"aggs"`
}

type timeBucket struct {
	Key      int64 `json:"key"`
	DocCount int64 `json:"doc_count"`
}

type subredditBucket struct {
	Key      string `json:"key"`
	DocCount int64  `json:"doc_count"`
}

type submission struct {
	ID         string `json:"id"`
	Subreddit  string `json:"subreddit"`
	FullLink   string `json:"full_link"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Author     string `json:"author"`
	Score      int64  `json:"score"`
	CreatedUTC int64  `json:"created_utc"`
	UpdatedUTC *int64 `json:"updated_utc"`
}

func (s submission) toRow() core.Row {
	row := core.Row{
		MediaName:   "/r/" + s.Subreddit,
		MediaURL:    s.FullLink,
		ID:          s.ID,
		Title:       s.Title,
		PublishDate: time.Unix(s.CreatedUTC, 0).UTC(),
		URL:         s.URL,
		Author:      s.Author,
		Subreddit:   s.Subreddit,
		FullLink:    s.FullLink,
		Score:       core.Int64(s.Score),
	}
	if s.UpdatedUTC != nil {
		updated := time.Unix(*s.UpdatedUTC, 0).UTC()
		row.LastUpdated = &updated
	}
	return row
}

func toRows(subs []submission) []core.Row {
	rows := make([]core.Row, 0, len(subs))
	for _, s := range subs {
		rows = append(rows, s.toRow())
	}
	return rows
}

// SubredditCount is the number of submissions of a URL in one subreddit.
type SubredditCount struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}
