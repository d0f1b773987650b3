package tool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/doclens/doclens/internal/port/web"
)

type fakeSearcher struct {
	results []web.SearchResult
	err     error
	calls   int
}

func (s *fakeSearcher) Search(_ context.Context, _ string) ([]web.SearchResult, error) {
	s.calls++
	return s.results, s.err
}

type fakeFetcher struct {
	text string
	err  error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (string, error) {
	return f.text, f.err
}

func TestInternetSearch(t *testing.T) {
	searcher := &fakeSearcher{results: []web.SearchResult{
		{Title: "Indemnification clauses", URL: "https://example.com/indemnity", Snippet: "An overview"},
	}}
	tool := &InternetSearch{Searcher: searcher}

	res := tool.Execute(context.Background(), json.RawMessage(`{"query":"indemnification"}`))
	if res.IsErr() {
		t.Fatalf("execute failed: %s", res.Text())
	}
	if !strings.Contains(res.Content, "https://example.com/indemnity") {
		t.Errorf("content missing result URL: %s", res.Content)
	}
}

func TestInternetSearchCached(t *testing.T) {
	searcher := &fakeSearcher{results: []web.SearchResult{
		{Title: "t", URL: "https://example.com", Snippet: "s"},
	}}
	tool := &InternetSearch{Searcher: searcher, Cache: newFakeCache()}
	args := json.RawMessage(`{"query":"same query"}`)
	ctx := context.Background()

	tool.Execute(ctx, args)
	tool.Execute(ctx, args)
	if searcher.calls != 1 {
		t.Errorf("searcher called %d times, want 1", searcher.calls)
	}
}

func TestInternetSearchUnreachable(t *testing.T) {
	tool := &InternetSearch{Searcher: &fakeSearcher{err: errors.New("quota exceeded")}}

	res := tool.Execute(context.Background(), json.RawMessage(`{"query":"q"}`))
	if res.Kind != KindUnreachable {
		t.Errorf("kind = %q, want %q", res.Kind, KindUnreachable)
	}
}

func TestURLContentTruncation(t *testing.T) {
	tool := &URLContent{
		Fetcher: &fakeFetcher{text: strings.Repeat("a", 100)},
		MaxLen:  10,
	}

	res := tool.Execute(context.Background(), json.RawMessage(`{"url":"https://example.com"}`))
	if res.IsErr() {
		t.Fatalf("execute failed: %s", res.Text())
	}
	if !strings.HasPrefix(res.Content, strings.Repeat("a", 10)) {
		t.Errorf("content not truncated at limit: %q", res.Content)
	}
	if !strings.Contains(res.Content, "[content truncated]") {
		t.Errorf("content missing truncation marker: %q", res.Content)
	}
}

func TestURLContentRejectsNonHTTP(t *testing.T) {
	tool := &URLContent{Fetcher: &fakeFetcher{text: "x"}}

	res := tool.Execute(context.Background(), json.RawMessage(`{"url":"file:///etc/passwd"}`))
	if res.Kind != KindInvalidArgs {
		t.Errorf("kind = %q, want %q", res.Kind, KindInvalidArgs)
	}
}
