package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// maxFetchBody caps how much of a response body is read, pre-extraction.
const maxFetchBody = 4 << 20

// PageFetcher implements web.Fetcher: it downloads a page and reduces HTML
// to its visible text. Non-HTML responses are returned as-is.
type PageFetcher struct {
	client *http.Client
}

// NewPageFetcher creates a fetcher. httpClient may be nil.
func NewPageFetcher(httpClient *http.Client) *PageFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &PageFetcher{client: httpClient}
}

// Fetch retrieves the readable text content of a URL.
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build fetch request: %w", err)
	}
	req.Header.Set("User-Agent", "doclens/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, maxFetchBody)
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		data, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", rawURL, err)
		}
		return string(data), nil
	}

	text, err := extractText(body)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return text, nil
}

// extractText walks the HTML tree and collects text nodes, skipping script,
// style, and other non-content elements.
func extractText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head", "svg":
				return
			}
		}
		if n.Type == html.TextNode {
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				sb.WriteString(trimmed)
				sb.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimRight(sb.String(), "\n"), nil
}
