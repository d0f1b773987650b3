package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/doclens/doclens/internal/adapter/postgres"
	"github.com/doclens/doclens/internal/config"
	"github.com/doclens/doclens/internal/domain/document"
)

// manifestDocument is one entry in an ingest manifest: a pre-extracted
// document with its per-page text, summaries, and rendered page images.
// Extraction and summarization happen upstream; this command only loads
// the results into the store.
type manifestDocument struct {
	Filename string `json:"filename"`
	Summary  string `json:"summary"`
	Pages    []struct {
		Summary   string `json:"summary"`
		Text      string `json:"text"`
		ImagePath string `json:"image_path"`
	} `json:"pages"`
}

// runIngest loads a JSON manifest of extracted documents into PostgreSQL.
func runIngest(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	manifest := fs.String("manifest", "", "path to the ingest manifest (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *manifest == "" {
		return fmt.Errorf("--manifest is required")
	}

	data, err := os.ReadFile(*manifest)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	var docs []manifestDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("manifest holds no documents")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	store := postgres.NewStore(pool)
	for _, md := range docs {
		doc := &document.Document{
			Filename:  md.Filename,
			Summary:   md.Summary,
			PageCount: len(md.Pages),
		}
		if err := store.CreateDocument(ctx, doc); err != nil {
			return fmt.Errorf("create document %s: %w", md.Filename, err)
		}
		for i, p := range md.Pages {
			page := &document.Page{
				DocumentID: doc.ID,
				PageNum:    i + 1,
				Summary:    p.Summary,
				Text:       p.Text,
				ImagePath:  p.ImagePath,
			}
			if err := store.CreatePage(ctx, page); err != nil {
				return fmt.Errorf("create page %d of %s: %w", i+1, md.Filename, err)
			}
		}
		slog.Info("document ingested", "filename", md.Filename, "pages", len(md.Pages))
	}

	fmt.Fprintf(os.Stderr, "Ingested %d documents.\n", len(docs))
	return nil
}
