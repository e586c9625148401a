package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lowfloat/catalystrun/internal/model"
)

// SECFetcher polls SEC EDGAR's company-filing Atom feed. Canonical ID is
// the filing's accession number, extracted from the entry's id/link.
type SECFetcher struct {
	httpClient *http.Client
	feedURL    string // e.g. https://www.sec.gov/cgi-bin/browse-edgar?action=getcompany&type=8-K&output=atom
	userAgent  string
}

// NewSECFetcher builds a fetcher against feedURL, authenticated with the
// mandatory SEC User-Agent.
func NewSECFetcher(feedURL, userAgent string, timeout time.Duration) *SECFetcher {
	return &SECFetcher{httpClient: &http.Client{Timeout: timeout}, feedURL: feedURL, userAgent: userAgent}
}

func (f *SECFetcher) Name() string { return "sec_edgar" }

type atomFeed struct {
	XMLName xml.Name   `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string `xml:"title"`
	ID        string `xml:"id"`
	Link      atomLink `xml:"link"`
	Updated   string `xml:"updated"`
	Summary   string `xml:"summary"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
}

func (f *SECFetcher) Fetch(ctx context.Context, sinceTS time.Time) ([]model.RawItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sec_edgar: status %d", resp.StatusCode)
	}

	var feed atomFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("sec_edgar: decode atom feed: %w", err)
	}

	observed := time.Now().UTC()
	items := make([]model.RawItem, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		published, err := time.Parse(time.RFC3339, e.Updated)
		if err != nil {
			continue
		}
		if published.Before(sinceTS) {
			continue
		}

		items = append(items, model.RawItem{
			SourceID:    f.Name(),
			CanonicalID: accessionNumberFromID(e.ID, e.Link.Href),
			TSPublished: published.UTC(),
			TSObserved:  observed,
			Title:       NormalizeTitle(e.Title),
			BodySnippet: e.Summary,
			Link:        NormalizeLink(e.Link.Href),
		})
	}
	return items, nil
}

// accessionNumberFromID extracts the filing accession number (e.g.
// 0001193125-26-123456) from an EDGAR entry's id or link URL.
func accessionNumberFromID(id, link string) string {
	for _, candidate := range []string{id, link} {
		idx := strings.Index(candidate, "accession-number=")
		if idx >= 0 {
			rest := candidate[idx+len("accession-number="):]
			if end := strings.IndexAny(rest, "&\"'"); end >= 0 {
				return rest[:end]
			}
			return rest
		}
	}
	// Fall back to the last URL path segment, which is typically the
	// accession-number-derived filename for EDGAR filing index pages.
	if idx := strings.LastIndex(link, "/"); idx >= 0 && idx+1 < len(link) {
		return link[idx+1:]
	}
	return id
}
