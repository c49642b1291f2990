package core

import (
	"time"
)

// Row is the common shape every adapter maps its backend records into.
// MediaName, MediaURL, ID, one of Title or Content, PublishDate and URL are
// always set; everything else is optional and backend specific.
type Row struct {
	MediaName   string    `json:"media_name"`
	MediaURL    string    `json:"media_url"`
	ID          string    `json:"stories_id"`
	Title       string    `json:"title,omitempty"`
	Content     string    `json:"content,omitempty"`
	PublishDate time.Time `json:"publish_date"`
	URL         string    `json:"url"`
	Language    string    `json:"language,omitempty"`

	Author      string     `json:"author,omitempty"`
	Subreddit   string     `json:"subreddit,omitempty"`
	FullLink    string     `json:"full_link,omitempty"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`

	Score         *int64 `json:"score,omitempty"`
	RetweetCount  *int64 `json:"retweet_count,omitempty"`
	ReplyCount    *int64 `json:"reply_count,omitempty"`
	LikeCount     *int64 `json:"like_count,omitempty"`
	QuoteCount    *int64 `json:"quote_count,omitempty"`
	FavoriteCount *int64 `json:"favorite_count,omitempty"`
}

// Text returns the title, or the content for backends without titles.
func (r Row) Text() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Content
}

// Int64 is a helper for the optional numeric fields of Row.
func Int64(v int64) *int64 {
	return &v
}

// Bucket is the count of one period.
type Bucket struct {
	Date      time.Time `json:"date"`
	Timestamp int64     `json:"timestamp"`
	Count     int64     `json:"count"`
}

// NewBucket builds a bucket starting at t.
func NewBucket(t time.Time, count int64) Bucket {
	return Bucket{Date: t.UTC(), Timestamp: t.Unix(), Count: count}
}

// CountOverTime is a list of buckets and their sum.
type CountOverTime struct {
	Counts []Bucket `json:"counts"`
	Total  int64    `json:"total"`
}

// NewCountOverTime totals the buckets. A nil list becomes an empty one so
// the JSON form is always an array.
func NewCountOverTime(buckets []Bucket) *CountOverTime {
	if buckets == nil {
		buckets = []Bucket{}
	}
	var total int64
	for _, b := range buckets {
		total += b.Count
	}
	return &CountOverTime{Counts: buckets, Total: total}
}

// NormalizedCountOverTime adds the ratio of the query total to the volume
// baseline of the same range.
type NormalizedCountOverTime struct {
	Counts          []Bucket `json:"counts"`
	Total           int64    `json:"total"`
	NormalizedTotal float64  `json:"normalized_total"`
}

// Normalize divides the total by baseline. A zero baseline means nothing
// was published in the range, so the ratio is zero.
func Normalize(counts *CountOverTime, baseline int64) *NormalizedCountOverTime {
	n := &NormalizedCountOverTime{Counts: counts.Counts, Total: counts.Total}
	if baseline > 0 {
		n.NormalizedTotal = float64(counts.Total) / float64(baseline)
	}
	return n
}

// WordCount is one entry of a top words aggregation.
type WordCount struct {
	Term  string `json:"term"`
	Stem  string `json:"stem,omitempty"`
	Count int64  `json:"count"`
}

// TagCount is one entry of a top tags aggregation.
type TagCount struct {
	TagsID    int64  `json:"tags_id"`
	Tag       string `json:"tag"`
	Label     string `json:"label,omitempty"`
	TagSetsID int64  `json:"tag_sets_id"`
	Count     int64  `json:"count"`
}
