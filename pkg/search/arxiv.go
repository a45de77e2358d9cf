package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// ArxivEntry struct to hold arXiv entry data
type ArxivEntry struct {
	Title     string      `xml:"title"`
	Summary   string      `xml:"summary"`
	Published string      `xml:"published"`
	Link      []ArxivLink `xml:"link"`
}

// ArxivLink struct to hold arXiv link data
type ArxivLink struct {
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
}

// ArxivFeed struct to hold the entire arXiv feed
type ArxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entry   []ArxivEntry `xml:"entry"`
}

const arxivEndpoint = "https://export.arxiv.org/api/query?"

// Arxiv searches the arXiv API. It is an alternative research provider for
// academic topics; paper abstracts stand in for raw page content.
type Arxiv struct {
	client   *http.Client
	endpoint string
}

// NewArxiv constructs an arXiv search provider. No API key is needed.
func NewArxiv() *Arxiv {
	return &Arxiv{client: &http.Client{}, endpoint: arxivEndpoint}
}

// Search queries the arXiv API and maps its Atom feed onto search results.
func (a *Arxiv) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	params := url.Values{}
	params.Add("search_query", query)
	params.Add("max_results", strconv.Itoa(maxResults))
	params.Add("start", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned non-200 status code: %d, body: %s", resp.StatusCode, string(body))
	}

	var feed ArxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal XML: %w", err)
	}

	results := make([]Result, 0, len(feed.Entry))
	for _, entry := range feed.Entry {
		r := Result{
			Title:      entry.Title,
			Content:    entry.Summary,
			RawContent: entry.Summary,
		}
		for _, link := range entry.Link {
			if link.Type == "application/pdf" {
				r.URL = link.Href
				break
			}
		}
		results = append(results, r)
	}

	return results, nil
}
