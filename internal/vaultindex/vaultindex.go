// Package vaultindex builds the in-memory lookup structure the reconciler
// uses to find managed files by persistent ID rather than by path.
package vaultindex

import (
	"sort"

	"github.com/starford/taskvault/internal/frontmatter"
	"github.com/starford/taskvault/internal/models"
)

// Index is the result of one single-pass scan of the vault.
type Index struct {
	// TasksByRemoteID holds the first-seen file for each remote_task_id.
	TasksByRemoteID map[string]string
	// ProjectsByRemoteID holds the file for each remote_project_id.
	ProjectsByRemoteID map[string]string
	// SectionsByRemoteID holds the file for each remote_section_id.
	SectionsByRemoteID map[string]string
	// ByUUID holds every managed or unmanaged file that carries a vault_uuid.
	ByUUID map[string]string
	// DuplicateTaskIDs maps a remote_task_id to every path beyond the
	// first-seen one that also claims it.
	DuplicateTaskIDs map[string][]string
}

func newIndex() *Index {
	return &Index{
		TasksByRemoteID:    map[string]string{},
		ProjectsByRemoteID: map[string]string{},
		SectionsByRemoteID: map[string]string{},
		ByUUID:             map[string]string{},
		DuplicateTaskIDs:   map[string][]string{},
	}
}

// FileReader abstracts the vault primitive needed to build the index: given
// a relative path, return its parsed frontmatter.
type FileReader interface {
	Frontmatter(path string) (models.Frontmatter, error)
}

// Build performs a single pass over paths, reading each file's frontmatter
// through reader. A read error for an individual file is a schema error:
// the file is skipped and scanning continues.
func Build(paths []string, reader FileReader, names frontmatter.PropNames) (*Index, []error) {
	idx := newIndex()
	var errs []error

	for _, path := range paths {
		fm, err := reader.Frontmatter(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if fm == nil {
			continue
		}

		taskID := frontmatter.GetIDString(fm, names.RemoteTaskID)
		sectionID := frontmatter.GetIDString(fm, names.RemoteSectionID)
		projectID := frontmatter.GetIDString(fm, names.RemoteProjectID)

		switch {
		case taskID != "":
			if existing, ok := idx.TasksByRemoteID[taskID]; ok && existing != path {
				idx.DuplicateTaskIDs[taskID] = append(idx.DuplicateTaskIDs[taskID], path)
			} else if !ok {
				idx.TasksByRemoteID[taskID] = path
			}
		case sectionID != "":
			if _, ok := idx.SectionsByRemoteID[sectionID]; !ok {
				idx.SectionsByRemoteID[sectionID] = path
			}
		case projectID != "":
			if _, ok := idx.ProjectsByRemoteID[projectID]; !ok {
				idx.ProjectsByRemoteID[projectID] = path
			}
		}

		if uuid := frontmatter.GetString(fm, names.VaultUUID); uuid != "" {
			if _, ok := idx.ByUUID[uuid]; !ok {
				idx.ByUUID[uuid] = path
			}
		}
	}

	return idx, errs
}

// DuplicateIDsSorted returns the duplicate task IDs in sorted order, for a
// deterministic single user-visible warning per run.
func (idx *Index) DuplicateIDsSorted() []string {
	ids := make([]string, 0, len(idx.DuplicateTaskIDs))
	for id := range idx.DuplicateTaskIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
