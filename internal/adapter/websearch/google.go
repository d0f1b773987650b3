// Package websearch implements the web ports: Google Programmable Search for
// queries and a plain HTTP fetcher that reduces pages to readable text.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/doclens/doclens/internal/port/web"
)

const searchEndpoint = "https://www.googleapis.com/customsearch/v1"

// GoogleSearcher implements web.Searcher against the Programmable Search API.
type GoogleSearcher struct {
	apiKey string
	cseID  string
	client *http.Client
}

// NewGoogleSearcher creates a searcher. httpClient may be nil.
func NewGoogleSearcher(apiKey, cseID string, httpClient *http.Client) *GoogleSearcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &GoogleSearcher{apiKey: apiKey, cseID: cseID, client: httpClient}
}

type googleResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

// Search runs one query and returns the top hits.
func (s *GoogleSearcher) Search(ctx context.Context, query string) ([]web.SearchResult, error) {
	q := url.Values{}
	q.Set("key", s.apiKey)
	q.Set("cx", s.cseID)
	q.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request: unexpected status %d", resp.StatusCode)
	}

	var body googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]web.SearchResult, 0, len(body.Items))
	for _, item := range body.Items {
		results = append(results, web.SearchResult{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
		})
	}
	return results, nil
}
