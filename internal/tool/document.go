package tool

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/doclens/doclens/internal/domain"
	"github.com/doclens/doclens/internal/domain/approval"
	"github.com/doclens/doclens/internal/domain/document"
	"github.com/doclens/doclens/internal/port/cache"
	"github.com/doclens/doclens/internal/port/docstore"
)

// pageTextTTL bounds how long page text stays in the in-process cache.
const pageTextTTL = 15 * time.Minute

// ListDocuments lists the corpus with per-document summaries. Not gated:
// the overview carries no page content.
type ListDocuments struct {
	Store docstore.Store
}

func (t *ListDocuments) Name() string { return "list_documents" }

func (t *ListDocuments) Description() string {
	return "List all documents in the corpus with their ID, summary, and page count. " +
		"Use this to get an overview of available documents."
}

func (t *ListDocuments) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}

func (t *ListDocuments) GatedCategory() (approval.Category, bool) { return "", false }

func (t *ListDocuments) Execute(ctx context.Context, _ json.RawMessage) Result {
	docs, err := t.Store.ListDocuments(ctx)
	if err != nil {
		return Errf(KindUnreachable, "list documents: %v", err)
	}
	if len(docs) == 0 {
		return OK("No documents found in the corpus.")
	}
	return jsonResult(docs)
}

// GetDocuments returns document details with all page summaries.
type GetDocuments struct {
	Store docstore.Store
}

type getDocumentsArgs struct {
	DocIDs []int64 `json:"doc_ids"`
}

func (t *GetDocuments) Name() string { return "get_documents" }

func (t *GetDocuments) Description() string {
	return "Get detailed information about specific documents including all page summaries. " +
		"Input: list of document IDs."
}

func (t *GetDocuments) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"doc_ids": {"type": "array", "items": {"type": "integer"}, "description": "Document IDs to retrieve"}
		},
		"required": ["doc_ids"]
	}`)
}

func (t *GetDocuments) GatedCategory() (approval.Category, bool) {
	return approval.CategoryDocumentRead, true
}

func (t *GetDocuments) Highlights(args json.RawMessage) json.RawMessage {
	return args
}

func (t *GetDocuments) Execute(ctx context.Context, args json.RawMessage) Result {
	var in getDocumentsArgs
	if err := json.Unmarshal(args, &in); err != nil || len(in.DocIDs) == 0 {
		return Errf(KindInvalidArgs, "doc_ids is required")
	}

	docs, err := t.Store.GetDocuments(ctx, in.DocIDs)
	if err != nil {
		return Errf(KindUnreachable, "get documents: %v", err)
	}
	if len(docs) == 0 {
		return Errf(KindNotFound, "no documents found with the provided IDs")
	}

	type docDetail struct {
		document.Document
		Pages []document.Page `json:"pages"`
	}
	details := make([]docDetail, 0, len(docs))
	for _, d := range docs {
		pages, err := t.Store.ListPages(ctx, d.ID)
		if err != nil {
			return Errf(KindUnreachable, "list pages for document %d: %v", d.ID, err)
		}
		details = append(details, docDetail{Document: d, Pages: pages})
	}
	return jsonResult(details)
}

// GetPageText returns the full text of specific pages, cached in-process.
type GetPageText struct {
	Store docstore.Store
	Cache cache.Cache
}

type pageArgs struct {
	DocID    int64 `json:"doc_id"`
	PageNums []int `json:"page_nums"`
}

func (t *GetPageText) Name() string { return "get_page_text" }

func (t *GetPageText) Description() string {
	return "Get the full text content of specific pages from a document. " +
		"Input: document ID and list of page numbers (1-indexed)."
}

func (t *GetPageText) InputSchema() json.RawMessage {
	return pageArgsSchema
}

func (t *GetPageText) GatedCategory() (approval.Category, bool) {
	return approval.CategoryPageTextRead, true
}

func (t *GetPageText) Highlights(args json.RawMessage) json.RawMessage {
	return args
}

func (t *GetPageText) Execute(ctx context.Context, args json.RawMessage) Result {
	var in pageArgs
	if err := json.Unmarshal(args, &in); err != nil || in.DocID == 0 || len(in.PageNums) == 0 {
		return Errf(KindInvalidArgs, "doc_id and page_nums are required")
	}

	key := fmt.Sprintf("pagetext:%d:%v", in.DocID, in.PageNums)
	if t.Cache != nil {
		if data, ok, _ := t.Cache.Get(ctx, key); ok {
			return OK(string(data))
		}
	}

	pages, err := t.Store.GetPages(ctx, in.DocID, in.PageNums)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Errf(KindNotFound, "no pages found for document %d with the provided page numbers", in.DocID)
		}
		return Errf(KindUnreachable, "get pages: %v", err)
	}
	if len(pages) == 0 {
		return Errf(KindNotFound, "no pages found for document %d with the provided page numbers", in.DocID)
	}

	res := jsonResult(pages)
	if !res.IsErr() && t.Cache != nil {
		_ = t.Cache.Set(ctx, key, []byte(res.Content), pageTextTTL)
	}
	return res
}

// GetPageImage returns base64-encoded page images. Resource intensive, so the
// description steers the model toward sparing use, and the category is gated.
type GetPageImage struct {
	Store docstore.Store
}

func (t *GetPageImage) Name() string { return "get_page_image" }

func (t *GetPageImage) Description() string {
	return "Get images of specific pages from a document. USE SPARINGLY - resource intensive. " +
		"Only use when you need to inspect layout, tables, or signatures. " +
		"Input: document ID and list of page numbers (1-indexed)."
}

func (t *GetPageImage) InputSchema() json.RawMessage {
	return pageArgsSchema
}

func (t *GetPageImage) GatedCategory() (approval.Category, bool) {
	return approval.CategoryPageImageRead, true
}

func (t *GetPageImage) Highlights(args json.RawMessage) json.RawMessage {
	return args
}

func (t *GetPageImage) Execute(ctx context.Context, args json.RawMessage) Result {
	var in pageArgs
	if err := json.Unmarshal(args, &in); err != nil || in.DocID == 0 || len(in.PageNums) == 0 {
		return Errf(KindInvalidArgs, "doc_id and page_nums are required")
	}

	pages, err := t.Store.GetPages(ctx, in.DocID, in.PageNums)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Errf(KindNotFound, "no pages found for document %d with the provided page numbers", in.DocID)
		}
		return Errf(KindUnreachable, "get pages: %v", err)
	}
	if len(pages) == 0 {
		return Errf(KindNotFound, "no pages found for document %d with the provided page numbers", in.DocID)
	}

	type pageImage struct {
		PageNum     int    `json:"page_num"`
		Summary     string `json:"summary"`
		ImageBase64 string `json:"image_base64"`
	}
	images := make([]pageImage, 0, len(pages))
	for _, p := range pages {
		if p.ImagePath == "" {
			return Errf(KindNotFound, "page %d of document %d has no rendered image", p.PageNum, in.DocID)
		}
		data, err := os.ReadFile(p.ImagePath)
		if err != nil {
			return Errf(KindNotFound, "read image for page %d: %v", p.PageNum, err)
		}
		images = append(images, pageImage{
			PageNum:     p.PageNum,
			Summary:     p.Summary,
			ImageBase64: base64.StdEncoding.EncodeToString(data),
		})
	}
	return jsonResult(images)
}

var pageArgsSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"doc_id": {"type": "integer", "description": "Document ID"},
		"page_nums": {"type": "array", "items": {"type": "integer"}, "description": "Page numbers (1-indexed)"}
	},
	"required": ["doc_id", "page_nums"]
}`)

// jsonResult marshals v as indented JSON content.
func jsonResult(v any) Result {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Errf(KindInternal, "marshal result: %v", err)
	}
	return OK(string(data))
}
