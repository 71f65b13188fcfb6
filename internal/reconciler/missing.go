package reconciler

import (
	"path"

	"github.com/starford/taskvault/internal/archivemover"
	"github.com/starford/taskvault/internal/models"
)

// handleMissingRemote classifies any TaskNote in the index whose ID is
// absent from the active snapshot as completed or deleted, and handles it
// per the configured policy table.
func (r *run) handleMissingRemote(snap models.RemoteSnapshot) error {
	present := make(map[string]bool, len(snap.Items))
	for _, it := range snap.Items {
		present[it.ID] = true
	}

	deletedIDs, err := r.client.FetchRecentlyDeletedIDs(r.ctx, r.cfg.RecentlyDeletedLimit)
	if err != nil {
		r.sum.warn("fetch recently deleted ids: %v", err)
		deletedIDs = map[string]struct{}{}
	}

	for remoteID, taskPath := range r.idx.TasksByRemoteID {
		if present[remoteID] {
			continue
		}

		if _, isDeleted := deletedIDs[remoteID]; isDeleted {
			if err := r.applyDeletedPolicy(taskPath, remoteID); err != nil {
				r.sum.Errored++
				r.sum.warn("apply deleted policy for %s: %v", taskPath, err)
				continue
			}
		} else {
			if err := r.applyCompletedPolicy(taskPath); err != nil {
				r.sum.Errored++
				r.sum.warn("apply completed policy for %s: %v", taskPath, err)
				continue
			}
		}
		r.sum.MissingHandled++
	}
	return nil
}

func (r *run) applyCompletedPolicy(taskPath string) error {
	names := r.cfg.Names
	if err := r.store.ProcessFrontmatter(taskPath, func(fm models.Frontmatter) (models.Frontmatter, error) {
		fm[names.TaskStatus] = string(models.TaskDone)
		fm[names.TaskDone] = true
		fm[names.SyncStatus] = string(models.StatusArchivedRemote)
		return fm, nil
	}); err != nil {
		return err
	}
	if r.cfg.CompletedMode == ModeMoveToFolder && r.cfg.CompletedFolder != "" {
		newPath := path.Join(r.cfg.CompletedFolder, path.Base(taskPath))
		newPath = archivemover.NextFreePath(newPath, r.store.Exists)
		if err := r.store.EnsureFolder(path.Dir(newPath)); err != nil {
			return err
		}
		if err := r.store.Move(taskPath, newPath); err != nil {
			return err
		}
		r.retargetTaskPath(taskPath, newPath)
	}
	return nil
}

func (r *run) applyDeletedPolicy(taskPath, remoteID string) error {
	names := r.cfg.Names
	if err := r.store.ProcessFrontmatter(taskPath, func(fm models.Frontmatter) (models.Frontmatter, error) {
		fm[names.SyncStatus] = string(models.StatusDeletedRemote)
		fm[names.IsDeleted] = true
		if r.cfg.DeletedMode == ModeStopSyncing {
			// Same as keep-in-place, plus remove remote_task_id: the note
			// stops being reconciled against any remote row at all, but it
			// still carries the record that its task was deleted remotely.
			fm[names.RemoteTaskID] = ""
		}
		return fm, nil
	}); err != nil {
		return err
	}
	if r.cfg.DeletedMode == ModeStopSyncing {
		delete(r.idx.TasksByRemoteID, remoteID)
		return nil
	}
	if r.cfg.DeletedMode == ModeMoveToFolder && r.cfg.DeletedFolder != "" {
		newPath := path.Join(r.cfg.DeletedFolder, path.Base(taskPath))
		newPath = archivemover.NextFreePath(newPath, r.store.Exists)
		if err := r.store.EnsureFolder(path.Dir(newPath)); err != nil {
			return err
		}
		if err := r.store.Move(taskPath, newPath); err != nil {
			return err
		}
		r.retargetTaskPath(taskPath, newPath)
	}
	return nil
}

func (r *run) retargetTaskPath(oldPath, newPath string) {
	for id, p := range r.idx.TasksByRemoteID {
		if p == oldPath {
			r.idx.TasksByRemoteID[id] = newPath
		}
	}
}
