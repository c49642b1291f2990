package twitter

import (
	"github.com/rubiojr/glimpse/pkg/core"
)

const (
	mediaName = "Twitter"
	webURL    = "https://twitter.com/"
)

type tweet struct {
	ID            string        `json:"id"`
	Text          string        `json:"text"`
	AuthorID      string        `json:"author_id"`
	CreatedAt     string        `json:"created_at"`
	Lang          string        `json:"lang"`
	PublicMetrics publicMetrics `json:"public_metrics"`
}

type publicMetrics struct {
	RetweetCount int64 `json:"retweet_count"`
	ReplyCount   int64 `json:"reply_count"`
	LikeCount    int64 `json:"like_count"`
	QuoteCount   int64 `json:"quote_count"`
}

type user struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type includes struct {
	Users []user `json:"users"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// searchResponse is the answer of tweets/search/all.
type searchResponse struct {
	Data     []tweet  `json:"data"`
	Includes includes `json:"includes"`
	Meta     struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

// lookupResponse is the answer of tweets/{id}. Unknown ids come back with a
// 200 status, no data and an errors list.
type lookupResponse struct {
	Data     *tweet     `json:"data"`
	Includes includes   `json:"includes"`
	Errors   []apiError `json:"errors"`
}

// countsResponse is the answer of tweets/counts/all.
type countsResponse struct {
	Data []struct {
		Start      string `json:"start"`
		End        string `json:"end"`
		TweetCount int64  `json:"tweet_count"`
	} `json:"data"`
	Meta struct {
		NextToken string `json:"next_token"`
	} `json:"meta"`
}

func (t tweet) toRow(author *user) core.Row {
	row := core.Row{
		MediaName:     mediaName,
		MediaURL:      webURL,
		ID:            t.ID,
		Content:       t.Text,
		URL:           webURL + "i/web/status/" + t.ID,
		Language:      t.Lang,
		RetweetCount:  core.Int64(t.PublicMetrics.RetweetCount),
		ReplyCount:    core.Int64(t.PublicMetrics.ReplyCount),
		LikeCount:     core.Int64(t.PublicMetrics.LikeCount),
		QuoteCount:    core.Int64(t.PublicMetrics.QuoteCount),
	}
	if author != nil {
		row.MediaURL = webURL + author.Username
		row.URL = webURL + author.Username + "/status/" + t.ID
		row.Author = author.Name
	}
	if created, err := core.ParseDate(t.CreatedAt); err == nil {
		row.PublishDate = created
		row.LastUpdated = &created
	}
	return row
}

// toRows joins each tweet with its author from the expansion. Tweets whose
// author was not expanded keep the anonymous status url.
func toRows(tweets []tweet, inc includes) []core.Row {
	authors := make(map[string]*user, len(inc.Users))
	for i := range inc.Users {
		authors[inc.Users[i].ID] = &inc.Users[i]
	}
	rows := make([]core.Row, 0, len(tweets))
	for _, t := range tweets {
		rows = append(rows, t.toRow(authors[t.AuthorID]))
	}
	return rows
}
