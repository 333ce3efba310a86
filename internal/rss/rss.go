package rss

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Item is one feed entry offered to the user as a candidate URL.
type Item struct {
	Title string
	Link  string
}

type Reader struct {
	parser  *gofeed.Parser
	timeout time.Duration
}

// NewReader bounds every feed fetch by timeout, whatever the caller's context.
func NewReader(timeout time.Duration) *Reader {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	return &Reader{parser: parser, timeout: timeout}
}

// Latest downloads the feed and returns at most n entries that carry a link,
// in feed order.
func (r *Reader) Latest(ctx context.Context, feedURL string, n int) ([]Item, error) {
	if feedURL == "" {
		return nil, fmt.Errorf("feed URL is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("error parsing RSS %s: %w", feedURL, err)
	}

	items := make([]Item, 0, n)
	for _, it := range feed.Items {
		if len(items) >= n {
			break
		}
		link := strings.TrimSpace(it.Link)
		if link == "" {
			continue
		}
		title := strings.TrimSpace(it.Title)
		if title == "" {
			title = link
		}
		items = append(items, Item{Title: title, Link: link})
	}
	return items, nil
}

// Format renders items as a numbered plain-text list.
func Format(items []Item) string {
	var b strings.Builder
	for i, it := range items {
		b.WriteString(fmt.Sprintf("%d. %s\n%s\n\n", i+1, it.Title, it.Link))
	}
	return strings.TrimSpace(b.String())
}
