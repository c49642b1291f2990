package wayback

import (
	"encoding/json"
	"strings"

	"github.com/rubiojr/glimpse/pkg/core"
)

const noResultsDetail = "No results found!"

// isNoResults recognizes the sentinel the backend answers with instead of an
// empty result set.
func isNoResults(body []byte) bool {
	var d struct {
		Detail string `json:"detail"`
	}
	return json.Unmarshal(body, &d) == nil && d.Detail == noResultsDetail
}

type overview struct {
	Total       int64            `json:"total"`
	Matches     []match          `json:"matches"`
	DailyCounts map[string]int64 `json:"dailycounts"`
}

type match struct {
	ArticleTitle    string `json:"article_title"`
	ArticleURL      string `json:"article_url"`
	CanonicalDomain string `json:"canonical_domain"`
	OriginalURL     string `json:"original_url"`
	PublicationDate string `json:"publication_date"`
	Language        string `json:"language"`
	TextContent     string `json:"text_content,omitempty"`
}

// id is the last path element of the article url.
func (m match) id() string {
	parts := strings.Split(strings.TrimRight(m.ArticleURL, "/"), "/")
	return parts[len(parts)-1]
}

func (m match) toRow() core.Row {
	row := core.Row{
		MediaName: m.CanonicalDomain,
		MediaURL:  "http://" + m.CanonicalDomain,
		ID:        m.id(),
		Title:     m.ArticleTitle,
		Content:   m.TextContent,
		URL:       m.OriginalURL,
		Language:  m.Language,
	}
	if t, err := core.ParseDate(m.PublicationDate); err == nil {
		row.PublishDate = t
	}
	return row
}

func toRows(matches []match) []core.Row {
	rows := make([]core.Row, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, m.toRow())
	}
	return rows
}
