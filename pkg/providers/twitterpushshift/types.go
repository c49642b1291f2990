package twitterpushshift

import (
	"strconv"
	"time"

	"github.com/rubiojr/glimpse/pkg/core"
)

const webURL = "https://twitter.com/"

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source tweet `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations struct {
		Time struct {
			Buckets []histogramBucket `json:"buckets"`
		} `json:"time"`
	} `json:"aggregations"`
}

type histogramBucket struct {
	Key      int64 `json:"key"`
	DocCount int64 `json:"doc_count"`
}

type tweet struct {
	ID            int64  `json:"id"`
	IDStr         string `json:"id_str"`
	ScreenName    string `json:"screen_name"`
	Text          string `json:"text"`
	CreatedAt     string `json:"created_at"`
	UpdatedUTC    *int64 `json:"updated_utc"`
	Lang          string `json:"lang"`
	RetweetCount  int64  `json:"retweet_count"`
	FavoriteCount int64  `json:"favorite_count"`
}

func (t tweet) toRow() core.Row {
	id := t.IDStr
	if id == "" {
		id = strconv.FormatInt(t.ID, 10)
	}
	link := webURL + t.ScreenName + "/status/" + id
	row := core.Row{
		MediaName:     "Twitter",
		MediaURL:      webURL + t.ScreenName,
		ID:            id,
		Title:         t.Text,
		URL:           link,
		FullLink:      link,
		Author:        t.ScreenName,
		Language:      t.Lang,
		RetweetCount:  core.Int64(t.RetweetCount),
		FavoriteCount: core.Int64(t.FavoriteCount),
	}
	// created_at is in the "Mon Jan 02 15:04:05 -0700 2006" form
	if created, err := core.ParseDate(t.CreatedAt); err == nil {
		row.PublishDate = created
	}
	if t.UpdatedUTC != nil {
		updated := time.Unix(*t.UpdatedUTC, 0).UTC()
		row.LastUpdated = &updated
	}
	return row
}
