// Package document defines the analyzed-corpus entities served to agents and operators.
package document

import "time"

// Document is one ingested file in the corpus with its generated summary.
type Document struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Summary   string    `json:"summary"`
	PageCount int       `json:"page_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Page is one page of a document with its extracted text and rendered image.
type Page struct {
	ID         int64  `json:"id"`
	DocumentID int64  `json:"document_id"`
	PageNum    int    `json:"page_num"` // 1-indexed
	Summary    string `json:"summary"`
	Text       string `json:"text,omitempty"`
	ImagePath  string `json:"image_path,omitempty"`
}
