package reconciler

import (
	"path"
	"strings"

	"github.com/starford/taskvault/internal/archivemover"
	"github.com/starford/taskvault/internal/models"
	"github.com/starford/taskvault/internal/pathpolicy"
)

// applyArchiveTransitions relocates projects and sections whose remote
// archived state changed, run last because it depends on the freshly
// rebuilt indexes from the pull phase.
func (r *run) applyArchiveTransitions(snap models.RemoteSnapshot) error {
	nameByID := map[string]string{}
	parentByID := map[string]string{}
	archivedByID := map[string]bool{}
	for _, p := range snap.Projects {
		nameByID[p.ID] = p.Name
		parentByID[p.ID] = p.ParentID
		archivedByID[p.ID] = p.IsArchived
	}

	for id, currentPath := range r.idx.ProjectsByRemoteID {
		fm, err := r.store.Frontmatter(currentPath)
		if err != nil || fm == nil {
			continue
		}
		isArchived := archivedByID[id]

		inArchiveFolder := r.cfg.ProjectArchiveFolder != "" && underFolder(currentPath, r.cfg.ProjectArchiveFolder)

		if isArchived && !inArchiveFolder {
			newPath, err := archivemover.MoveToArchive(r.store, currentPath, r.cfg.ProjectArchiveFolder, r.cfg.ProjectArchiveFolder, true)
			if err != nil {
				r.sum.warn("archive project %s: %v", id, err)
				continue
			}
			r.idx.ProjectsByRemoteID[id] = newPath
			r.retargetTasksUnderMovedProjectFolder(path.Dir(currentPath), path.Dir(newPath))
			continue
		}

		if !isArchived && inArchiveFolder {
			order := pathpolicy.TopologicalOrder(keysOf(nameByID), parentByID)
			segments, _ := pathpolicy.DisambiguatedProjectFolderSegments(id, nameByID, parentByID, order)
			activeDir := path.Join(append([]string{r.cfg.TaskFiles.BaseFolder}, segments...)...)
			activePath := path.Join(activeDir, path.Base(currentPath))
			// folderMode=true: archiving moved the whole project folder
			// (every adopted task file under it), so unarchiving must
			// restore the whole subtree, not just the index note.
			newPath, err := archivemover.MoveToActive(r.store, currentPath, activePath, true)
			if err != nil {
				r.sum.warn("unarchive project %s: %v", id, err)
				continue
			}
			r.idx.ProjectsByRemoteID[id] = newPath
			r.retargetTasksUnderMovedProjectFolder(path.Dir(currentPath), path.Dir(newPath))
		}
	}

	sectionArchivedByID := map[string]bool{}
	sectionProjectByID := map[string]string{}
	for _, s := range snap.Sections {
		sectionArchivedByID[s.ID] = s.IsArchived
		sectionProjectByID[s.ID] = s.ProjectID
	}

	for id, currentPath := range r.idx.SectionsByRemoteID {
		isArchived := sectionArchivedByID[id]
		inArchiveFolder := r.cfg.SectionArchiveFolder != "" && underFolder(currentPath, r.cfg.SectionArchiveFolder)

		if isArchived && !inArchiveFolder {
			newPath, err := archivemover.MoveToArchive(r.store, currentPath, r.cfg.SectionArchiveFolder, r.cfg.ProjectArchiveFolder, false)
			if err != nil {
				r.sum.warn("archive section %s: %v", id, err)
				continue
			}
			r.idx.SectionsByRemoteID[id] = newPath
			continue
		}

		if !isArchived && inArchiveFolder {
			projectPath := r.idx.ProjectsByRemoteID[sectionProjectByID[id]]
			activePath := path.Join(path.Dir(projectPath), path.Base(currentPath))
			newPath, err := archivemover.MoveToActive(r.store, currentPath, activePath, false)
			if err != nil {
				r.sum.warn("unarchive section %s: %v", id, err)
				continue
			}
			r.idx.SectionsByRemoteID[id] = newPath
		}
	}

	return nil
}

func underFolder(p, folder string) bool {
	if folder == "" {
		return false
	}
	clean := path.Clean(folder)
	return p == clean || len(p) > len(clean) && p[:len(clean)+1] == clean+"/"
}

func keysOf(m map[string]string) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	return ids
}

// retargetTasksUnderMovedProjectFolder keeps the vault index in sync after a
// project's whole folder is relocated by MoveToActive(folderMode=true):
// every task whose cached path lived under oldDir now lives under newDir.
func (r *run) retargetTasksUnderMovedProjectFolder(oldDir, newDir string) {
	if oldDir == newDir {
		return
	}
	prefix := oldDir + "/"
	for id, p := range r.idx.TasksByRemoteID {
		if p == oldDir {
			r.idx.TasksByRemoteID[id] = newDir
			continue
		}
		if strings.HasPrefix(p, prefix) {
			r.idx.TasksByRemoteID[id] = newDir + p[len(oldDir):]
		}
	}
}
