// Package backfill assigns a stable vault_uuid to every managed note that
// lacks one. It never overwrites an existing UUID.
package backfill

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/taskvault/internal/frontmatter"
	"github.com/starford/taskvault/internal/models"
)

// Store is the minimal vault primitive Run needs: enumerate managed paths
// and read-modify-write each one's frontmatter.
type Store interface {
	ManagedPaths() ([]string, error)
	ProcessFrontmatter(path string, fn func(models.Frontmatter) (models.Frontmatter, error)) error
}

// Result summarizes one backfill pass.
type Result struct {
	Assigned int
	Skipped  []string // paths that failed to process; the run continues
}

// Run assigns a fresh UUID to every managed file whose frontmatter lacks
// names.VaultUUID. "Managed" is any file carrying remote_task_id,
// remote_project_id, or remote_section_id.
func Run(store Store, names frontmatter.PropNames) (Result, error) {
	var res Result

	paths, err := store.ManagedPaths()
	if err != nil {
		return res, fmt.Errorf("backfill: list managed paths: %w", err)
	}

	for _, path := range paths {
		assigned := false
		err := store.ProcessFrontmatter(path, func(fm models.Frontmatter) (models.Frontmatter, error) {
			if fm == nil {
				return fm, nil
			}
			if !frontmatter.IsManaged(fm, names) {
				return fm, nil
			}
			if frontmatter.GetString(fm, names.VaultUUID) != "" {
				return fm, nil
			}
			fm[names.VaultUUID] = NewUUID()
			assigned = true
			return fm, nil
		})
		if err != nil {
			res.Skipped = append(res.Skipped, path)
			continue
		}
		if assigned {
			res.Assigned++
		}
	}

	return res, nil
}

// NewUUID returns a fresh v4 UUID string, falling back to a time-and-
// randomness mix if the platform generator is unavailable.
func NewUUID() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	var b [10]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("fallback-%x-%x", time.Now().UnixNano(), b)
}
