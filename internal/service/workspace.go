package service

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/doclens/doclens/internal/domain"
)

// Workspace is a per-session scratch directory the report agent drafts into.
// All paths are relative to the root; anything resolving outside it is
// rejected with domain.ErrSandboxViolation.
type Workspace struct {
	root string
}

// NewWorkspace creates the workspace directory for a session under baseDir.
func NewWorkspace(baseDir, sessionID string) (*Workspace, error) {
	root := filepath.Join(baseDir, sessionID)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", root, err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace %s: %w", root, err)
	}
	return &Workspace{root: abs}, nil
}

// Root returns the absolute workspace root directory.
func (w *Workspace) Root() string { return w.root }

// resolve maps a relative path into the workspace, rejecting escapes.
func (w *Workspace) resolve(path string) (string, error) {
	path = filepath.FromSlash(strings.TrimSpace(path))
	if path == "" || filepath.IsAbs(path) || !filepath.IsLocal(path) {
		return "", fmt.Errorf("resolve %q: %w", path, domain.ErrSandboxViolation)
	}
	return filepath.Join(w.root, path), nil
}

// ReadFile returns the content of a workspace file.
func (w *Workspace) ReadFile(path string) (string, error) {
	full, err := w.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read %s: %w", path, domain.ErrNotFound)
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// WriteFile creates or replaces a workspace file. The write goes through a
// temp file and a rename so readers never observe a partial file.
func (w *Workspace) WriteFile(path, content string) error {
	full, err := w.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".doclens-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// EditFile replaces one exact occurrence of oldStr in a workspace file.
// Zero or multiple occurrences are errors so edits stay unambiguous.
func (w *Workspace) EditFile(path, oldStr, newStr string) error {
	content, err := w.ReadFile(path)
	if err != nil {
		return err
	}
	switch n := strings.Count(content, oldStr); {
	case n == 0:
		return fmt.Errorf("edit %s: old text not found: %w", path, domain.ErrNotFound)
	case n > 1:
		return fmt.Errorf("edit %s: old text appears %d times, must be unique", path, n)
	}
	return w.WriteFile(path, strings.Replace(content, oldStr, newStr, 1))
}

// ListFiles returns every file under the root as slash-separated relative
// paths, sorted lexicographically.
func (w *Workspace) ListFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(w.root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list workspace files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
