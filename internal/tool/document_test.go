package tool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/doclens/doclens/internal/domain"
	"github.com/doclens/doclens/internal/domain/document"
)

type fakeStore struct {
	docs  []document.Document
	pages map[int64][]document.Page
}

func (s *fakeStore) ListDocuments(context.Context) ([]document.Document, error) {
	return s.docs, nil
}

func (s *fakeStore) GetDocument(_ context.Context, id int64) (*document.Document, error) {
	for _, d := range s.docs {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *fakeStore) GetDocuments(_ context.Context, ids []int64) ([]document.Document, error) {
	var out []document.Document
	for _, d := range s.docs {
		for _, id := range ids {
			if d.ID == id {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func (s *fakeStore) ListPages(_ context.Context, docID int64) ([]document.Page, error) {
	out := make([]document.Page, 0, len(s.pages[docID]))
	for _, p := range s.pages[docID] {
		p.Text = ""
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeStore) GetPages(_ context.Context, docID int64, pageNums []int) ([]document.Page, error) {
	var out []document.Page
	for _, p := range s.pages[docID] {
		for _, n := range pageNums {
			if p.PageNum == n {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

type fakeCache struct {
	data map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func contractStore() *fakeStore {
	return &fakeStore{
		docs: []document.Document{
			{ID: 1, Filename: "master-services.pdf", Summary: "Master services agreement", PageCount: 2},
			{ID: 2, Filename: "nda.pdf", Summary: "Mutual NDA", PageCount: 1},
		},
		pages: map[int64][]document.Page{
			1: {
				{ID: 10, DocumentID: 1, PageNum: 1, Summary: "Parties and term", Text: "This agreement is made between..."},
				{ID: 11, DocumentID: 1, PageNum: 2, Summary: "Liability cap", Text: "Liability shall not exceed..."},
			},
		},
	}
}

func TestListDocuments(t *testing.T) {
	tool := &ListDocuments{Store: contractStore()}

	res := tool.Execute(context.Background(), nil)
	if res.IsErr() {
		t.Fatalf("execute failed: %s", res.Text())
	}
	if !strings.Contains(res.Content, "master-services.pdf") || !strings.Contains(res.Content, "nda.pdf") {
		t.Errorf("content missing documents: %s", res.Content)
	}
}

func TestListDocumentsEmpty(t *testing.T) {
	tool := &ListDocuments{Store: &fakeStore{}}

	res := tool.Execute(context.Background(), nil)
	if res.IsErr() {
		t.Fatalf("execute failed: %s", res.Text())
	}
	if !strings.Contains(res.Content, "No documents") {
		t.Errorf("content = %q, want empty-corpus message", res.Content)
	}
}

func TestGetDocumentsUnknownID(t *testing.T) {
	tool := &GetDocuments{Store: contractStore()}

	res := tool.Execute(context.Background(), json.RawMessage(`{"doc_ids":[99]}`))
	if res.Kind != KindNotFound {
		t.Errorf("kind = %q, want %q", res.Kind, KindNotFound)
	}
}

func TestGetPageText(t *testing.T) {
	tool := &GetPageText{Store: contractStore(), Cache: newFakeCache()}

	res := tool.Execute(context.Background(), json.RawMessage(`{"doc_id":1,"page_nums":[2]}`))
	if res.IsErr() {
		t.Fatalf("execute failed: %s", res.Text())
	}
	if !strings.Contains(res.Content, "Liability shall not exceed") {
		t.Errorf("content missing page text: %s", res.Content)
	}
}

func TestGetPageTextCached(t *testing.T) {
	cache := newFakeCache()
	tool := &GetPageText{Store: contractStore(), Cache: cache}
	args := json.RawMessage(`{"doc_id":1,"page_nums":[1]}`)
	ctx := context.Background()

	first := tool.Execute(ctx, args)
	if first.IsErr() {
		t.Fatalf("first execute failed: %s", first.Text())
	}

	// Second call must serve from cache even if the store goes away.
	tool.Store = &fakeStore{}
	second := tool.Execute(ctx, args)
	if second.IsErr() {
		t.Fatalf("second execute failed: %s", second.Text())
	}
	if first.Content != second.Content {
		t.Error("cached content differs from original")
	}
}

func TestGetPageTextMissingPages(t *testing.T) {
	tool := &GetPageText{Store: contractStore()}

	res := tool.Execute(context.Background(), json.RawMessage(`{"doc_id":1,"page_nums":[9]}`))
	if res.Kind != KindNotFound {
		t.Errorf("kind = %q, want %q", res.Kind, KindNotFound)
	}
}

func TestGetPageTextInvalidArgs(t *testing.T) {
	tool := &GetPageText{Store: contractStore()}

	res := tool.Execute(context.Background(), json.RawMessage(`{"doc_id":1}`))
	if res.Kind != KindInvalidArgs {
		t.Errorf("kind = %q, want %q", res.Kind, KindInvalidArgs)
	}
}
