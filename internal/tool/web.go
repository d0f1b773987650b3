package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/doclens/doclens/internal/domain/approval"
	"github.com/doclens/doclens/internal/port/cache"
	"github.com/doclens/doclens/internal/port/web"
)

const (
	searchTTL = 15 * time.Minute
	fetchTTL  = 15 * time.Minute
)

// InternetSearch runs a web search through the configured Searcher.
type InternetSearch struct {
	Searcher web.Searcher
	Cache    cache.Cache
}

type searchArgs struct {
	Query string `json:"query"`
}

func (t *InternetSearch) Name() string { return "internet_search" }

func (t *InternetSearch) Description() string {
	return "Search the internet for information. Input: a search query string. " +
		"Returns titles, URLs, and snippets of matching pages."
}

func (t *InternetSearch) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Search query"}
		},
		"required": ["query"]
	}`)
}

func (t *InternetSearch) GatedCategory() (approval.Category, bool) {
	return approval.CategoryInternetSearch, true
}

func (t *InternetSearch) Execute(ctx context.Context, args json.RawMessage) Result {
	var in searchArgs
	if err := json.Unmarshal(args, &in); err != nil || strings.TrimSpace(in.Query) == "" {
		return Errf(KindInvalidArgs, "query is required")
	}

	key := "search:" + in.Query
	if t.Cache != nil {
		if data, ok, _ := t.Cache.Get(ctx, key); ok {
			return OK(string(data))
		}
	}

	results, err := t.Searcher.Search(ctx, in.Query)
	if err != nil {
		return Errf(KindUnreachable, "search failed: %v", err)
	}
	if len(results) == 0 {
		return OK("No results found for: " + in.Query)
	}

	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n\n", i+1, r.Title, r.URL, r.Snippet)
	}
	out := strings.TrimRight(b.String(), "\n")
	if t.Cache != nil {
		_ = t.Cache.Set(ctx, key, []byte(out), searchTTL)
	}
	return OK(out)
}

// URLContent fetches the readable text of a page, truncated to MaxLen runes.
type URLContent struct {
	Fetcher web.Fetcher
	Cache   cache.Cache
	MaxLen  int
}

type fetchArgs struct {
	URL string `json:"url"`
}

func (t *URLContent) Name() string { return "url_content" }

func (t *URLContent) Description() string {
	return "Fetch the text content of a web page. Input: a URL. " +
		"Returns the page text with HTML markup stripped, truncated if very long."
}

func (t *URLContent) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"url": {"type": "string", "description": "URL to fetch"}
		},
		"required": ["url"]
	}`)
}

func (t *URLContent) GatedCategory() (approval.Category, bool) {
	return approval.CategoryURLFetch, true
}

func (t *URLContent) Execute(ctx context.Context, args json.RawMessage) Result {
	var in fetchArgs
	if err := json.Unmarshal(args, &in); err != nil || strings.TrimSpace(in.URL) == "" {
		return Errf(KindInvalidArgs, "url is required")
	}
	if !strings.HasPrefix(in.URL, "http://") && !strings.HasPrefix(in.URL, "https://") {
		return Errf(KindInvalidArgs, "url must start with http:// or https://")
	}

	key := "fetch:" + in.URL
	if t.Cache != nil {
		if data, ok, _ := t.Cache.Get(ctx, key); ok {
			return OK(string(data))
		}
	}

	text, err := t.Fetcher.Fetch(ctx, in.URL)
	if err != nil {
		return Errf(KindUnreachable, "fetch %s: %v", in.URL, err)
	}

	if t.MaxLen > 0 {
		if runes := []rune(text); len(runes) > t.MaxLen {
			text = string(runes[:t.MaxLen]) + "\n\n[content truncated]"
		}
	}
	if t.Cache != nil {
		_ = t.Cache.Set(ctx, key, []byte(text), fetchTTL)
	}
	return OK(text)
}
