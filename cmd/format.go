package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rubiojr/glimpse/pkg/core"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	rowStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Margin(0, 0, 0, 2)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	summaryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("32")).
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("32")).
			Padding(0, 1)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	barStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	urlStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
)

const maxBarWidth = 40

// formatNumber formats a number with K/M suffixes for readability
func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	} else if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	} else {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
}

// formatTime formats a time relative to now or as an absolute date
func formatTime(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	if diff >= 0 && diff < 24*time.Hour {
		if diff < time.Hour {
			minutes := int(diff.Minutes())
			if minutes < 1 {
				return "just now"
			}
			return fmt.Sprintf("%d minutes ago", minutes)
		}
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	}

	if diff >= 0 && diff < 7*24*time.Hour {
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	}

	if t.Year() == now.Year() {
		return t.Format("Jan 2, 15:04")
	}
	return t.Format("Jan 2, 2006")
}

// platformTitle turns "online_news / mediacloud" into "Online News / Mediacloud".
func platformTitle(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderTitle(provider core.Provider, q core.Query) string {
	title := fmt.Sprintf("%s: %q %s to %s",
		platformTitle(core.ProviderName(provider.Platform(), provider.Source())),
		q.Terms,
		q.StartDate.Format(time.DateOnly),
		q.EndDate.Format(time.DateOnly))
	return titleStyle.Render(title)
}

func renderCount(n int64) string {
	return summaryStyle.Render(fmt.Sprintf("%s matching items", formatNumber(n)))
}

// renderCounts draws one bar per bucket, scaled to the largest bucket.
func renderCounts(counts []core.Bucket, total int64) string {
	if len(counts) == 0 {
		return noDataStyle.Render("No matches in this range")
	}

	var peak int64
	for _, b := range counts {
		peak = max(peak, b.Count)
	}

	var out strings.Builder
	for _, b := range counts {
		width := 0
		if peak > 0 {
			width = int(b.Count * maxBarWidth / peak)
		}
		fmt.Fprintf(&out, "%s %s %s\n",
			b.Date.Format(time.DateOnly),
			barStyle.Render(strings.Repeat("█", width)),
			formatNumber(b.Count))
	}
	out.WriteString(renderCount(total))
	return out.String()
}

func renderRow(row core.Row) string {
	var content strings.Builder
	content.WriteString(headerStyle.Render(truncate(row.Text(), 100)))
	if row.URL != "" {
		content.WriteString("\n" + urlStyle.Render(row.URL))
	}

	meta := []string{row.MediaName, formatTime(row.PublishDate)}
	if row.Author != "" {
		meta = append(meta, "by "+row.Author)
	}
	if row.Subreddit != "" {
		meta = append(meta, "r/"+row.Subreddit)
	}
	if row.Score != nil {
		meta = append(meta, fmt.Sprintf("score %d", *row.Score))
	}
	if row.LikeCount != nil {
		meta = append(meta, fmt.Sprintf("%d likes", *row.LikeCount))
	}
	content.WriteString("\n" + metaStyle.Render(strings.Join(meta, " • ")))
	return rowStyle.Render(content.String())
}

func renderRows(rows []core.Row) string {
	if len(rows) == 0 {
		return noDataStyle.Render("No matching items")
	}
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		parts = append(parts, renderRow(row))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderWords(words []core.WordCount) string {
	if len(words) == 0 {
		return noDataStyle.Render("No words")
	}
	var out strings.Builder
	for _, w := range words {
		fmt.Fprintf(&out, "%8s  %s\n", formatNumber(w.Count), w.Term)
	}
	return out.String()
}

func renderTags(tags []core.TagCount) string {
	if len(tags) == 0 {
		return noDataStyle.Render("No tags")
	}
	var out strings.Builder
	for _, t := range tags {
		label := t.Tag
		if t.Label != "" {
			label = t.Label
		}
		fmt.Fprintf(&out, "%8s  %s %s\n", formatNumber(t.Count), label,
			metaStyle.Render(fmt.Sprintf("(tag %d, set %d)", t.TagsID, t.TagSetsID)))
	}
	return out.String()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
