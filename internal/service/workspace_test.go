package service

import (
	"errors"
	"testing"

	"github.com/doclens/doclens/internal/domain"
)

func testWorkspace(t *testing.T) *Workspace {
	t.Helper()
	w, err := NewWorkspace(t.TempDir(), "session-1")
	if err != nil {
		t.Fatalf("new workspace: %v", err)
	}
	return w
}

func TestWorkspaceWriteRead(t *testing.T) {
	w := testWorkspace(t)

	if err := w.WriteFile("report/draft.md", "# Findings"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, err := w.ReadFile("report/draft.md")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got != "# Findings" {
		t.Errorf("content = %q, want %q", got, "# Findings")
	}
}

func TestWorkspaceOverwrite(t *testing.T) {
	w := testWorkspace(t)

	if err := w.WriteFile("a.md", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFile("a.md", "v2"); err != nil {
		t.Fatal(err)
	}
	got, _ := w.ReadFile("a.md")
	if got != "v2" {
		t.Errorf("content = %q, want v2", got)
	}
}

func TestWorkspaceReadMissing(t *testing.T) {
	w := testWorkspace(t)

	_, err := w.ReadFile("absent.md")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestWorkspaceRejectsEscapes(t *testing.T) {
	w := testWorkspace(t)

	paths := []string{
		"../outside.md",
		"a/../../outside.md",
		"/etc/passwd",
		"",
	}
	for _, p := range paths {
		if err := w.WriteFile(p, "x"); !errors.Is(err, domain.ErrSandboxViolation) {
			t.Errorf("WriteFile(%q) err = %v, want ErrSandboxViolation", p, err)
		}
		if _, err := w.ReadFile(p); !errors.Is(err, domain.ErrSandboxViolation) {
			t.Errorf("ReadFile(%q) err = %v, want ErrSandboxViolation", p, err)
		}
	}
}

func TestWorkspaceEditFile(t *testing.T) {
	w := testWorkspace(t)
	if err := w.WriteFile("a.md", "alpha beta gamma"); err != nil {
		t.Fatal(err)
	}

	if err := w.EditFile("a.md", "beta", "BETA"); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	got, _ := w.ReadFile("a.md")
	if got != "alpha BETA gamma" {
		t.Errorf("content = %q", got)
	}
}

func TestWorkspaceEditRequiresUniqueMatch(t *testing.T) {
	w := testWorkspace(t)
	if err := w.WriteFile("a.md", "dup dup"); err != nil {
		t.Fatal(err)
	}

	if err := w.EditFile("a.md", "dup", "x"); err == nil {
		t.Error("expected error for ambiguous match")
	}
	if err := w.EditFile("a.md", "missing", "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for absent text", err)
	}
}

func TestWorkspaceListFilesSorted(t *testing.T) {
	w := testWorkspace(t)
	for _, p := range []string{"z.md", "a/b.md", "a/a.md", "m.md"} {
		if err := w.WriteFile(p, "x"); err != nil {
			t.Fatal(err)
		}
	}

	files, err := w.ListFiles()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	want := []string{"a/a.md", "a/b.md", "m.md", "z.md"}
	if len(files) != len(want) {
		t.Fatalf("got %d files, want %d: %v", len(files), len(want), files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestWorkspaceListEmpty(t *testing.T) {
	w := testWorkspace(t)

	files, err := w.ListFiles()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("got %d files, want 0", len(files))
	}
}
