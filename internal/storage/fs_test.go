package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/taskvault/internal/models"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("a/b/c.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("del.md", []byte("bye"))
	if err := s.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.md"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestMove(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("old.md", []byte("data"))
	if err := s.Move("old.md", "sub/new.md"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	got, err := s.Read("sub/new.md")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
	if _, err := s.Read("old.md"); err == nil {
		t.Error("old path should not exist")
	}
}

func TestList(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.md", []byte("b"))
	_ = s.Write("readme.txt", []byte("not md"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoCorruption(t *testing.T) {
	// Verify that if we read during a write the old content is intact
	// (the rename is atomic on POSIX).
	s := tempVault(t)
	original := []byte("original content")
	_ = s.Write("atomic.md", original)

	// Overwrite with new content.
	updated := []byte("updated content")
	if err := s.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	// Confirm no leftover temp files.
	matches, _ := filepath.Glob(filepath.Join(s.root, ".taskvault-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/kenaz-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "kenaz-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestProcessFrontmatterPreservesFieldOrder(t *testing.T) {
	s := tempVault(t)
	original := "---\nb: 1\na: 2\nc: 3\n---\nbody text\n"
	_ = s.Write("note.md", []byte(original))

	err := s.ProcessFrontmatter("note.md", func(fm models.Frontmatter) (models.Frontmatter, error) {
		fm["a"] = 99
		fm["new_field"] = "added"
		return fm, nil
	})
	if err != nil {
		t.Fatalf("ProcessFrontmatter: %v", err)
	}

	got, _ := s.Read("note.md")
	want := "---\nb: 1\na: 99\nc: 3\nnew_field: added\n---\n\nbody text\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestProcessFrontmatterStripsLegacyKeyOnCanonicalWrite(t *testing.T) {
	s := tempVault(t)
	original := "---\ntitle: Old Title\ntodoist_id: \"A1\"\n---\nbody\n"
	_ = s.Write("note.md", []byte(original))

	err := s.ProcessFrontmatter("note.md", func(fm models.Frontmatter) (models.Frontmatter, error) {
		fm["task_title"] = "New Title"
		fm["remote_task_id"] = "A1"
		return fm, nil
	})
	if err != nil {
		t.Fatalf("ProcessFrontmatter: %v", err)
	}

	fm, err := s.Frontmatter("note.md")
	if err != nil {
		t.Fatalf("Frontmatter: %v", err)
	}
	if _, ok := fm["title"]; ok {
		t.Error("expected legacy key 'title' to be removed once 'task_title' was written")
	}
	if _, ok := fm["todoist_id"]; ok {
		t.Error("expected legacy key 'todoist_id' to be removed once 'remote_task_id' was written")
	}
	if fm["task_title"] != "New Title" {
		t.Errorf("task_title = %v, want New Title", fm["task_title"])
	}
}

func TestListActiveTaskPathsExcludesConfiguredDirs(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFS(dir, "Completed")
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	_ = s.Write("Tasks/a.md", []byte("a"))
	_ = s.Write("Completed/b.md", []byte("b"))

	paths, err := s.ListActiveTaskPaths()
	if err != nil {
		t.Fatalf("ListActiveTaskPaths: %v", err)
	}
	if len(paths) != 1 || paths[0] != "Tasks/a.md" {
		t.Errorf("paths = %v, want [Tasks/a.md]", paths)
	}

	all, err := s.ListAllPaths()
	if err != nil {
		t.Fatalf("ListAllPaths: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListAllPaths = %v, want 2 entries", all)
	}
}

func TestMoveToTrash(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("gone.md", []byte("x"))
	if err := s.MoveToTrash("gone.md"); err != nil {
		t.Fatalf("MoveToTrash: %v", err)
	}
	if s.Exists("gone.md") {
		t.Error("expected gone.md to no longer exist at its original path")
	}
	if !s.Exists(".trash/gone.md") {
		t.Error("expected gone.md to be recoverable under .trash")
	}
}
