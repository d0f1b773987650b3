// Package docstore defines the port for the analyzed-document corpus.
// Ingestion (PDF parsing, rasterization) happens outside this service;
// DocLens only reads what the ingest pipeline stored.
package docstore

import (
	"context"

	"github.com/doclens/doclens/internal/domain/document"
)

// Store provides read access to documents and pages.
// Absent entities are reported with domain.ErrNotFound.
type Store interface {
	ListDocuments(ctx context.Context) ([]document.Document, error)
	GetDocument(ctx context.Context, id int64) (*document.Document, error)
	GetDocuments(ctx context.Context, ids []int64) ([]document.Document, error)
	// ListPages returns page summaries (no text) for one document, ordered by page number.
	ListPages(ctx context.Context, docID int64) ([]document.Page, error)
	// GetPages returns full pages (text included) for the given page numbers.
	GetPages(ctx context.Context, docID int64, pageNums []int) ([]document.Page, error)
}
