package reconciler

import "github.com/starford/taskvault/internal/models"

// dryRunStore wraps a Store so every write is computed (fn still runs, so
// Summary counts reflect what would have happened) but never persisted.
// Backs the CLI's `sync --dry-run` flag.
type dryRunStore struct {
	Store
}

// NewDryRunStore returns a Store that reads through to underlying but
// discards every mutation, for operator confidence before enabling writes.
func NewDryRunStore(underlying Store) Store {
	return &dryRunStore{Store: underlying}
}

func (d *dryRunStore) WriteFile(path string, data []byte) error { return nil }

func (d *dryRunStore) CreateFile(path string, data []byte) error { return nil }

func (d *dryRunStore) ProcessFrontmatter(path string, fn func(models.Frontmatter) (models.Frontmatter, error)) error {
	fm, err := d.Store.Frontmatter(path)
	if err != nil {
		return err
	}
	if fm == nil {
		fm = models.Frontmatter{}
	}
	_, err = fn(fm)
	return err
}

func (d *dryRunStore) Move(oldPath, newPath string) error { return nil }

func (d *dryRunStore) MoveFolder(oldDir, newDir string) error { return nil }

func (d *dryRunStore) EnsureFolder(dir string) error { return nil }

func (d *dryRunStore) MoveToTrash(path string) error { return nil }
