package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/lowfloat/catalystrun/internal/model"
)

// RSSFetcher polls a generic RSS feed, parsed permissively: unknown or
// malformed child elements are skipped rather than failing the fetch.
// Canonical ID is the feed-provided GUID, falling back to the
// normalized item URL.
type RSSFetcher struct {
	httpClient *http.Client
	feedURL    string
	sourceID   string
}

// NewRSSFetcher builds a generic RSS fetcher for a named source.
func NewRSSFetcher(sourceID, feedURL string, timeout time.Duration) *RSSFetcher {
	return &RSSFetcher{httpClient: &http.Client{Timeout: timeout}, feedURL: feedURL, sourceID: sourceID}
}

func (f *RSSFetcher) Name() string { return f.sourceID }

func (f *RSSFetcher) Fetch(ctx context.Context, sinceTS time.Time) ([]model.RawItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.feedURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d", f.sourceID, resp.StatusCode)
	}

	var feed rssFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("%s: decode rss feed: %w", f.sourceID, err)
	}

	observed := time.Now().UTC()
	items := make([]model.RawItem, 0, len(feed.Channel.Items))
	for _, it := range feed.Channel.Items {
		published, ok := parseRSSDate(it.PubDate)
		if !ok || published.Before(sinceTS) {
			continue
		}

		link := NormalizeLink(it.Link)
		canonicalID := it.GUID
		if canonicalID == "" {
			canonicalID = link
		}

		items = append(items, model.RawItem{
			SourceID:    f.sourceID,
			CanonicalID: canonicalID,
			TSPublished: published,
			TSObserved:  observed,
			Title:       NormalizeTitle(it.Title),
			BodySnippet: it.Desc,
			Link:        link,
		})
	}
	return items, nil
}
