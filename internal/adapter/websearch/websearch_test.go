package websearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGoogleSearcherParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "liability cap" {
			t.Errorf("query = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"title":"Caps","link":"https://example.com/caps","snippet":"about caps"}]}`))
	}))
	defer srv.Close()

	s := NewGoogleSearcher("key", "cse", srv.Client())
	// Point the request at the test server by rewriting through its transport.
	s.client = &http.Client{Transport: rewriteTransport{target: srv.URL}}

	results, err := s.Search(context.Background(), "liability cap")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].URL != "https://example.com/caps" {
		t.Errorf("results = %+v", results)
	}
}

// rewriteTransport redirects every request to the test server.
type rewriteTransport struct {
	target string
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	redirected := *req
	u := *req.URL
	u.Scheme = "http"
	u.Host = strings.TrimPrefix(rt.target, "http://")
	redirected.URL = &u
	return http.DefaultTransport.RoundTrip(&redirected)
}

func TestPageFetcherStripsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>t</title><style>p{}</style></head>
			<body><script>var x;</script><h1>Heading</h1><p>Body text.</p></body></html>`))
	}))
	defer srv.Close()

	f := NewPageFetcher(srv.Client())
	text, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(text, "Heading") || !strings.Contains(text, "Body text.") {
		t.Errorf("text = %q", text)
	}
	if strings.Contains(text, "var x") || strings.Contains(text, "p{}") {
		t.Errorf("script/style leaked into text: %q", text)
	}
}

func TestPageFetcherPassesThroughPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("raw content"))
	}))
	defer srv.Close()

	f := NewPageFetcher(srv.Client())
	text, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if text != "raw content" {
		t.Errorf("text = %q", text)
	}
}

func TestPageFetcherErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewPageFetcher(srv.Client())
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Error("expected error for 403 response")
	}
}
