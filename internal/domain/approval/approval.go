// Package approval defines the human-in-the-loop approval request entity.
package approval

import (
	"encoding/json"
	"errors"
	"time"
)

// Category classifies the kind of agent action awaiting approval.
type Category string

const (
	CategoryTodoUpdate         Category = "todo-update"
	CategorySubagentDelegation Category = "subagent-delegation"
	CategoryDocumentRead       Category = "document-metadata-read"
	CategoryPageTextRead       Category = "page-text-read"
	CategoryPageImageRead      Category = "page-image-read"
	CategoryFileWrite          Category = "file-write"
	CategoryFileEdit           Category = "file-edit"
	CategoryInternetSearch     Category = "internet-search"
	CategoryURLFetch           Category = "url-fetch"
)

// ValidCategory reports whether c is a known approval category.
func ValidCategory(c string) bool {
	switch Category(c) {
	case CategoryTodoUpdate, CategorySubagentDelegation, CategoryDocumentRead,
		CategoryPageTextRead, CategoryPageImageRead, CategoryFileWrite,
		CategoryFileEdit, CategoryInternetSearch, CategoryURLFetch:
		return true
	}
	return false
}

// descriptions maps each category to the verb phrase used when building
// the human-readable request description.
var descriptions = map[Category]string{
	CategoryTodoUpdate:         "wants to update the todo list",
	CategorySubagentDelegation: "wants to delegate a task",
	CategoryDocumentRead:       "wants to retrieve document details",
	CategoryPageTextRead:       "wants to read page text",
	CategoryPageImageRead:      "wants to view page images",
	CategoryFileWrite:          "wants to write a file",
	CategoryFileEdit:           "wants to edit a file",
	CategoryInternetSearch:     "wants to search the internet",
	CategoryURLFetch:           "wants to fetch a URL",
}

// Describe builds the request description for actor performing a category action.
// An optional detail (file path, query, subagent name) is appended for context.
func Describe(actor string, c Category, detail string) string {
	phrase, ok := descriptions[c]
	if !ok {
		phrase = "wants to perform an action"
	}
	if detail == "" {
		return actor + " " + phrase
	}
	return actor + " " + phrase + ": " + detail
}

// Status represents the lifecycle state of an approval request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusEdited    Status = "edited"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// IsTerminal returns true once the request has received a disposition.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusEdited || s == StatusRejected || s == StatusCancelled
}

// Request is one proposed agent action suspended pending a human disposition.
// The payload describes the action; it has NOT happened when the request is created.
type Request struct {
	ID          string          `json:"id"`
	Category    Category        `json:"category"`
	Payload     json.RawMessage `json:"payload"`
	Actor       string          `json:"actor"`
	Description string          `json:"description"`
	Highlights  json.RawMessage `json:"highlights,omitempty"`
	Status      Status          `json:"status"`
	Feedback    string          `json:"feedback,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	ResolvedAt  time.Time       `json:"resolved_at,omitzero"`
}

// RespondRequest holds the operator's disposition for a pending request.
type RespondRequest struct {
	Status   Status          `json:"status"`
	Payload  json.RawMessage `json:"payload,omitempty"` // replacement payload, EDITED only
	Feedback string          `json:"feedback,omitempty"`
}

// Validate checks that a RespondRequest carries a usable disposition.
func (r *RespondRequest) Validate() error {
	switch r.Status {
	case StatusApproved, StatusRejected:
		return nil
	case StatusEdited:
		if len(r.Payload) == 0 {
			return errors.New("edited disposition requires a replacement payload")
		}
		return nil
	case StatusPending, StatusCancelled:
		return errors.New("disposition must be approved, edited, or rejected")
	default:
		return errors.New("unknown disposition: " + string(r.Status))
	}
}
