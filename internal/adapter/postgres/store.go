package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/doclens/doclens/internal/domain"
	"github.com/doclens/doclens/internal/domain/document"
)

// Store implements docstore.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// scannable abstracts pgx.Row and pgx.Rows for shared scan helpers.
type scannable interface {
	Scan(dest ...any) error
}

func scanDocument(row scannable) (document.Document, error) {
	var d document.Document
	err := row.Scan(&d.ID, &d.Filename, &d.Summary, &d.PageCount, &d.CreatedAt)
	return d, err
}

func (s *Store) ListDocuments(ctx context.Context) ([]document.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, filename, summary, page_count, created_at
		 FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *Store) GetDocument(ctx context.Context, id int64) (*document.Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, filename, summary, page_count, created_at
		 FROM documents WHERE id = $1`, id)

	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get document %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document %d: %w", id, err)
	}
	return &d, nil
}

func (s *Store) GetDocuments(ctx context.Context, ids []int64) ([]document.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, filename, summary, page_count, created_at
		 FROM documents WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("get documents: %w", err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *Store) ListPages(ctx context.Context, docID int64) ([]document.Page, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, page_num, summary, image_path
		 FROM pages WHERE document_id = $1 ORDER BY page_num`, docID)
	if err != nil {
		return nil, fmt.Errorf("list pages for document %d: %w", docID, err)
	}
	defer rows.Close()

	var pages []document.Page
	for rows.Next() {
		var p document.Page
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.PageNum, &p.Summary, &p.ImagePath); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

func (s *Store) GetPages(ctx context.Context, docID int64, pageNums []int) ([]document.Page, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, page_num, summary, content, image_path
		 FROM pages WHERE document_id = $1 AND page_num = ANY($2) ORDER BY page_num`,
		docID, pageNums)
	if err != nil {
		return nil, fmt.Errorf("get pages for document %d: %w", docID, err)
	}
	defer rows.Close()

	var pages []document.Page
	for rows.Next() {
		var p document.Page
		if err := rows.Scan(&p.ID, &p.DocumentID, &p.PageNum, &p.Summary, &p.Text, &p.ImagePath); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("get pages for document %d: %w", docID, domain.ErrNotFound)
	}
	return pages, nil
}

// CreateDocument inserts a document row. Used by the ingest CLI and tests.
func (s *Store) CreateDocument(ctx context.Context, d *document.Document) error {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO documents (filename, summary, page_count)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		d.Filename, d.Summary, d.PageCount)
	if err := row.Scan(&d.ID, &d.CreatedAt); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// CreatePage inserts a page row. Used by the ingest CLI and tests.
func (s *Store) CreatePage(ctx context.Context, p *document.Page) error {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO pages (document_id, page_num, summary, content, image_path)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		p.DocumentID, p.PageNum, p.Summary, p.Text, p.ImagePath)
	if err := row.Scan(&p.ID); err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	return nil
}
