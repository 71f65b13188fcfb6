package backfill

import (
	"errors"
	"testing"

	"github.com/starford/taskvault/internal/frontmatter"
	"github.com/starford/taskvault/internal/models"
)

type fakeStore struct {
	files map[string]models.Frontmatter
	fail  map[string]bool
}

func (f *fakeStore) ManagedPaths() ([]string, error) {
	paths := make([]string, 0, len(f.files))
	for p := range f.files {
		paths = append(paths, p)
	}
	return paths, nil
}

func (f *fakeStore) ProcessFrontmatter(path string, fn func(models.Frontmatter) (models.Frontmatter, error)) error {
	if f.fail[path] {
		return errors.New("boom")
	}
	fm, err := fn(f.files[path])
	if err != nil {
		return err
	}
	f.files[path] = fm
	return nil
}

func TestRun_AssignsUUIDOnlyToManagedFilesLackingOne(t *testing.T) {
	store := &fakeStore{files: map[string]models.Frontmatter{
		"Tasks/a.md":      {"remote_task_id": "A1"},
		"Tasks/b.md":      {"remote_task_id": "A2", "vault_uuid": "existing"},
		"Notes/random.md": {"title": "just a note"},
	}}
	res, err := Run(store, frontmatter.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Assigned != 1 {
		t.Errorf("Assigned = %d, want 1", res.Assigned)
	}
	if frontmatter.GetString(store.files["Tasks/a.md"], "vault_uuid") == "" {
		t.Error("expected a.md to receive a vault_uuid")
	}
	if frontmatter.GetString(store.files["Tasks/b.md"], "vault_uuid") != "existing" {
		t.Error("b.md's existing uuid must never be overwritten")
	}
	if frontmatter.GetString(store.files["Notes/random.md"], "vault_uuid") != "" {
		t.Error("unmanaged file should not receive a uuid")
	}
}

func TestRun_SkipsFailingFilesButContinues(t *testing.T) {
	store := &fakeStore{
		files: map[string]models.Frontmatter{
			"Tasks/a.md": {"remote_task_id": "A1"},
			"Tasks/b.md": {"remote_task_id": "A2"},
		},
		fail: map[string]bool{"Tasks/a.md": true},
	}
	res, err := Run(store, frontmatter.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Assigned != 1 {
		t.Errorf("Assigned = %d, want 1", res.Assigned)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != "Tasks/a.md" {
		t.Errorf("Skipped = %v", res.Skipped)
	}
}

func TestNewUUID_ProducesNonEmptyDistinctValues(t *testing.T) {
	a := NewUUID()
	b := NewUUID()
	if a == "" || b == "" {
		t.Fatal("expected non-empty UUIDs")
	}
	if a == b {
		t.Error("expected distinct UUIDs across calls")
	}
}
