package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Result is a single web search hit.
type Result struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Content    string `json:"content"`
	RawContent string `json:"raw_content,omitempty"`
}

// Options bounds a search request.
type Options struct {
	// MaxResults caps the number of results returned by the provider.
	MaxResults int
	// IncludeRawContent asks the provider for the full page text, not
	// just a snippet.
	IncludeRawContent bool
}

// Client is the web search dependency of the research engine.
type Client interface {
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
}

const tavilyEndpoint = "https://api.tavily.com/search"

// Tavily calls the Tavily search API.
type Tavily struct {
	APIKey string
	// Depth controls Tavily's search_depth parameter (basic or advanced).
	Depth string

	client   *http.Client
	endpoint string
}

// NewTavily constructs a Tavily search provider.
func NewTavily(apiKey string, depth string) *Tavily {
	return NewTavilyWithClient(apiKey, depth, &http.Client{})
}

// NewTavilyWithClient constructs a Tavily search provider using the
// supplied HTTP client, useful for setting a timeout.
func NewTavilyWithClient(apiKey string, depth string, client *http.Client) *Tavily {
	if depth == "" {
		depth = "basic"
	}
	return &Tavily{APIKey: apiKey, Depth: depth, client: client, endpoint: tavilyEndpoint}
}

type tavilyResponse struct {
	Results []Result `json:"results"`
}

// Search posts a query to Tavily. A single attempt, no retries; failures
// propagate to the caller.
func (t *Tavily) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	if strings.TrimSpace(t.APIKey) == "" {
		return nil, fmt.Errorf("tavily: API key is missing")
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 1
	}

	body := map[string]any{
		"api_key":             t.APIKey,
		"query":               query,
		"search_depth":        t.Depth,
		"include_raw_content": opts.IncludeRawContent,
		"max_results":         opts.MaxResults,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tavily http %d: %s", resp.StatusCode, string(b))
	}

	var response tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("tavily: failed to decode response: %w", err)
	}

	results := response.Results
	if len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	return results, nil
}
