package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doclens/doclens/internal/adapter/postgres"
	"github.com/doclens/doclens/internal/domain"
	"github.com/doclens/doclens/internal/domain/document"
)

// setupStore creates a pgxpool connection, runs all migrations, and returns a
// ready-to-use Store. The pool is closed via t.Cleanup.
func setupStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return postgres.NewStore(pool)
}

func seedDocument(t *testing.T, store *postgres.Store) *document.Document {
	t.Helper()
	ctx := context.Background()

	doc := &document.Document{Filename: "lease.pdf", Summary: "Office lease", PageCount: 2}
	if err := store.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("create document: %v", err)
	}
	for i := 1; i <= 2; i++ {
		p := &document.Page{
			DocumentID: doc.ID,
			PageNum:    i,
			Summary:    "page summary",
			Text:       "page text",
		}
		if err := store.CreatePage(ctx, p); err != nil {
			t.Fatalf("create page %d: %v", i, err)
		}
	}
	return doc
}

func TestStoreDocumentRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	doc := seedDocument(t, store)

	got, err := store.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if got.Filename != "lease.pdf" || got.PageCount != 2 {
		t.Errorf("got %+v", got)
	}

	docs, err := store.GetDocuments(ctx, []int64{doc.ID})
	if err != nil {
		t.Fatalf("get documents: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("got %d documents, want 1", len(docs))
	}
}

func TestStoreGetDocumentNotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.GetDocument(context.Background(), -1)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStoreListPagesOmitsText(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	doc := seedDocument(t, store)

	pages, err := store.ListPages(ctx, doc.ID)
	if err != nil {
		t.Fatalf("list pages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	for _, p := range pages {
		if p.Text != "" {
			t.Errorf("page %d carries text in summary listing", p.PageNum)
		}
	}
}

func TestStoreGetPages(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	doc := seedDocument(t, store)

	pages, err := store.GetPages(ctx, doc.ID, []int{2})
	if err != nil {
		t.Fatalf("get pages: %v", err)
	}
	if len(pages) != 1 || pages[0].PageNum != 2 || pages[0].Text != "page text" {
		t.Errorf("got %+v", pages)
	}

	if _, err := store.GetPages(ctx, doc.ID, []int{99}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for absent pages", err)
	}
}
