// Package tool defines the capability interface agents call through, and the
// registry the execution loop dispatches on. Tool failures are data: they are
// returned as tagged results the loop feeds back into model context, never as
// loop-terminating faults.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/doclens/doclens/internal/domain/approval"
	"github.com/doclens/doclens/internal/port/model"
)

// ErrKind classifies a tool failure so callers can branch without string matching.
type ErrKind string

const (
	KindInvalidArgs ErrKind = "invalid_args"
	KindNotFound    ErrKind = "not_found"
	KindUnreachable ErrKind = "unreachable"
	KindRejected    ErrKind = "rejected"
	KindInternal    ErrKind = "internal"
)

// Result is the tagged outcome of a tool execution: either content or a
// classified error. A zero Kind means success.
type Result struct {
	Content string  `json:"content,omitempty"`
	Kind    ErrKind `json:"error_kind,omitempty"`
	Message string  `json:"error,omitempty"`
}

// OK returns a successful result.
func OK(content string) Result {
	return Result{Content: content}
}

// Errf returns a failed result with the given kind.
func Errf(kind ErrKind, format string, args ...any) Result {
	return Result{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsErr reports whether the result is a failure.
func (r Result) IsErr() bool {
	return r.Kind != ""
}

// Text renders the result as the string fed back into model context.
func (r Result) Text() string {
	if r.IsErr() {
		return fmt.Sprintf("error (%s): %s", r.Kind, r.Message)
	}
	return r.Content
}

// Tool is one callable capability. GatedCategory reports the approval
// category this tool's actions fall under; ok=false means never gated.
type Tool interface {
	Name() string
	Description() string
	InputSchema() json.RawMessage
	GatedCategory() (approval.Category, bool)
	Execute(ctx context.Context, args json.RawMessage) Result
}

// Highlighter is implemented by tools that attach structured highlight
// metadata (implicated document/page) to their approval requests.
type Highlighter interface {
	Highlights(args json.RawMessage) json.RawMessage
}

// Registry is a named set of tools; the execution loop resolves model tool
// calls against it by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a registry holding the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

// Add registers a tool, replacing any previous tool of the same name.
func (r *Registry) Add(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Specs returns the model-facing declarations of all tools, sorted by name
// for deterministic prompt construction.
func (r *Registry) Specs() []model.ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]model.ToolSpec, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		specs = append(specs, model.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Schema:      t.InputSchema(),
		})
	}
	return specs
}

// DetailFromArgs extracts a short human-readable detail from tool arguments
// for approval descriptions: the first present of path, url, query, subagent,
// or task.
func DetailFromArgs(args json.RawMessage) string {
	var m map[string]any
	if err := json.Unmarshal(args, &m); err != nil {
		return ""
	}
	for _, key := range []string{"path", "url", "query", "subagent", "task"} {
		if v, ok := m[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
