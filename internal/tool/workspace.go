package tool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/doclens/doclens/internal/domain"
	"github.com/doclens/doclens/internal/domain/approval"
)

// WorkspaceFS is the sandboxed file surface the file tools operate on. Paths
// are relative to the workspace root; implementations reject escapes.
type WorkspaceFS interface {
	ReadFile(path string) (string, error)
	WriteFile(path, content string) error
	EditFile(path, oldStr, newStr string) error
	ListFiles() ([]string, error)
}

func classifyFSErr(err error, format string, args ...any) Result {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return Errf(KindNotFound, format, args...)
	case errors.Is(err, domain.ErrSandboxViolation):
		return Errf(KindInvalidArgs, format, args...)
	default:
		return Errf(KindInternal, format, args...)
	}
}

// ReadFile reads a workspace file. Not gated: the workspace only holds
// content the agents themselves produced.
type ReadFile struct {
	FS WorkspaceFS
}

type readFileArgs struct {
	Path string `json:"path"`
}

func (t *ReadFile) Name() string { return "read_file" }

func (t *ReadFile) Description() string {
	return "Read the contents of a file in the workspace. Input: relative file path."
}

func (t *ReadFile) InputSchema() json.RawMessage {
	return pathSchema
}

func (t *ReadFile) GatedCategory() (approval.Category, bool) { return "", false }

func (t *ReadFile) Execute(_ context.Context, args json.RawMessage) Result {
	var in readFileArgs
	if err := json.Unmarshal(args, &in); err != nil || strings.TrimSpace(in.Path) == "" {
		return Errf(KindInvalidArgs, "path is required")
	}
	content, err := t.FS.ReadFile(in.Path)
	if err != nil {
		return classifyFSErr(err, "read %s: %v", in.Path, err)
	}
	return OK(content)
}

// ListFiles lists every file in the workspace. Not gated.
type ListFiles struct {
	FS WorkspaceFS
}

func (t *ListFiles) Name() string { return "list_files" }

func (t *ListFiles) Description() string {
	return "List all files in the workspace."
}

func (t *ListFiles) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}

func (t *ListFiles) GatedCategory() (approval.Category, bool) { return "", false }

func (t *ListFiles) Execute(_ context.Context, _ json.RawMessage) Result {
	files, err := t.FS.ListFiles()
	if err != nil {
		return Errf(KindInternal, "list files: %v", err)
	}
	if len(files) == 0 {
		return OK("The workspace is empty.")
	}
	return OK(strings.Join(files, "\n"))
}

// WriteFile creates or overwrites a workspace file.
type WriteFile struct {
	FS WorkspaceFS
}

type writeFileArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (t *WriteFile) Name() string { return "write_file" }

func (t *WriteFile) Description() string {
	return "Write content to a file in the workspace, creating it if needed and " +
		"overwriting it otherwise. Input: relative file path and full content."
}

func (t *WriteFile) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "Relative file path"},
			"content": {"type": "string", "description": "Full file content"}
		},
		"required": ["path", "content"]
	}`)
}

func (t *WriteFile) GatedCategory() (approval.Category, bool) {
	return approval.CategoryFileWrite, true
}

func (t *WriteFile) Highlights(args json.RawMessage) json.RawMessage {
	var in writeFileArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return args
	}
	h, _ := json.Marshal(map[string]string{"path": in.Path, "content": in.Content})
	return h
}

func (t *WriteFile) Execute(_ context.Context, args json.RawMessage) Result {
	var in writeFileArgs
	if err := json.Unmarshal(args, &in); err != nil || strings.TrimSpace(in.Path) == "" {
		return Errf(KindInvalidArgs, "path and content are required")
	}
	if err := t.FS.WriteFile(in.Path, in.Content); err != nil {
		return classifyFSErr(err, "write %s: %v", in.Path, err)
	}
	return OK("Wrote " + in.Path)
}

// EditFile replaces an exact substring in a workspace file.
type EditFile struct {
	FS WorkspaceFS
}

type editFileArgs struct {
	Path   string `json:"path"`
	OldStr string `json:"old_str"`
	NewStr string `json:"new_str"`
}

func (t *EditFile) Name() string { return "edit_file" }

func (t *EditFile) Description() string {
	return "Edit a file in the workspace by replacing an exact substring. " +
		"Input: relative file path, the exact text to replace, and its replacement. " +
		"The old text must appear exactly once in the file."
}

func (t *EditFile) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "Relative file path"},
			"old_str": {"type": "string", "description": "Exact text to replace"},
			"new_str": {"type": "string", "description": "Replacement text"}
		},
		"required": ["path", "old_str", "new_str"]
	}`)
}

func (t *EditFile) GatedCategory() (approval.Category, bool) {
	return approval.CategoryFileEdit, true
}

func (t *EditFile) Highlights(args json.RawMessage) json.RawMessage {
	var in editFileArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return args
	}
	h, _ := json.Marshal(map[string]string{
		"path":    in.Path,
		"old_str": in.OldStr,
		"new_str": in.NewStr,
	})
	return h
}

func (t *EditFile) Execute(_ context.Context, args json.RawMessage) Result {
	var in editFileArgs
	if err := json.Unmarshal(args, &in); err != nil || strings.TrimSpace(in.Path) == "" || in.OldStr == "" {
		return Errf(KindInvalidArgs, "path and old_str are required")
	}
	if err := t.FS.EditFile(in.Path, in.OldStr, in.NewStr); err != nil {
		return classifyFSErr(err, "edit %s: %v", in.Path, err)
	}
	return OK("Edited " + in.Path)
}

var pathSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {"type": "string", "description": "Relative file path"}
	},
	"required": ["path"]
}`)
