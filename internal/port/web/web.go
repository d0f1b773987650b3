// Package web defines the ports for internet research collaborators.
package web

import "context"

// SearchResult is one hit returned by a Searcher.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher runs a web search query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// Fetcher retrieves the readable text content of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}
