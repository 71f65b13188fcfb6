package reconciler

import (
	"strconv"

	"github.com/starford/taskvault/internal/fingerprint"
	"github.com/starford/taskvault/internal/frontmatter"
	"github.com/starford/taskvault/internal/models"
)

// dispatchPendingLocalCreates pushes every task note flagged as a pending
// local create. Creates are dispatched strictly before updates within a run.
func (r *run) dispatchPendingLocalCreates() {
	names := r.cfg.Names
	paths, err := r.store.ListActiveTaskPaths()
	if err != nil {
		r.sum.warn("list active task paths for pending creates: %v", err)
		return
	}

	for _, path := range paths {
		fm, err := r.store.Frontmatter(path)
		if err != nil || fm == nil {
			continue
		}
		if !frontmatter.GetBool(fm, names.SyncFlag) {
			continue
		}
		if frontmatter.GetIDString(fm, names.RemoteTaskID) != "" {
			continue
		}
		if frontmatter.GetString(fm, names.PendingRemoteID) != "" {
			continue
		}
		title := frontmatter.GetString(fm, names.TaskTitle)
		if title == "" {
			continue
		}

		tn := taskNoteFromFrontmatter(fm, names)
		tn.RemoteProjectID = r.projectIDByName[tn.ProjectName]
		tn.RemoteSectionID = r.sectionIDByName[tn.SectionName]

		payload := models.CreateTaskPayload{
			Content:     tn.Title,
			Description: tn.Description,
			ProjectID:   tn.RemoteProjectID,
			SectionID:   tn.RemoteSectionID,
			Priority:    tn.Priority,
			DueString:   tn.Due.String,
			Labels:      tn.Labels,
		}

		newID, err := r.client.CreateTask(r.ctx, payload)
		if err != nil {
			r.sum.Errored++
			continue
		}

		// Idempotency mark: written immediately, before anything else, so a
		// crash here still lets the next run's pull assimilate the row.
		if err := r.store.ProcessFrontmatter(path, func(fm models.Frontmatter) (models.Frontmatter, error) {
			fm[names.PendingRemoteID] = newID
			return fm, nil
		}); err != nil {
			r.sum.Errored++
			continue
		}

		if tn.Done {
			doneVal := true
			_ = r.client.UpdateTask(r.ctx, models.UpdateTaskPatch{TaskID: newID, IsDone: &doneVal})
		}

		fp := fingerprint.LocalSync(&tn)
		now := r.cfg.now()
		if err := r.store.ProcessFrontmatter(path, func(fm models.Frontmatter) (models.Frontmatter, error) {
			fm[names.RemoteTaskID] = newID
			fm[names.SyncStatus] = string(models.StatusSynced)
			fm[names.LastSyncedFingerprint] = fp
			fm[names.PendingRemoteID] = ""
			fm[names.LastImportedAt] = now.Format(timeLayout)
			fm[names.ExternalURL] = externalTaskURL(newID)
			return fm, nil
		}); err != nil {
			r.sum.warn("failed to finalize created task %s (remote id %s): %v", path, newID, err)
			continue
		}

		// The vault index was built once, before push. A pull later in this
		// same run will fetch a snapshot that already includes newID (push
		// runs strictly before pull), so upsertTask must find this file by
		// remote ID rather than falling through to createTaskFromRemote and
		// writing a second file for it.
		r.idx.TasksByRemoteID[newID] = path

		r.sum.Created++
	}
}

// dispatchPendingLocalUpdates pushes every task note flagged as a pending
// local update.
func (r *run) dispatchPendingLocalUpdates() {
	names := r.cfg.Names
	paths, err := r.store.ListActiveTaskPaths()
	if err != nil {
		r.sum.warn("list active task paths for pending updates: %v", err)
		return
	}

	for _, path := range paths {
		fm, err := r.store.Frontmatter(path)
		if err != nil || fm == nil {
			continue
		}
		if frontmatter.GetString(fm, names.SyncStatus) != string(models.StatusDirtyLocal) {
			continue
		}
		remoteID := frontmatter.GetIDString(fm, names.RemoteTaskID)
		if remoteID == "" {
			continue
		}

		tn := taskNoteFromFrontmatter(fm, names)
		fp := fingerprint.LocalSync(&tn)

		if fp == frontmatter.GetString(fm, names.LastSyncedFingerprint) {
			// Stale dirty mark: nothing actually changed.
			_ = r.store.ProcessFrontmatter(path, func(fm models.Frontmatter) (models.Frontmatter, error) {
				fm[names.SyncStatus] = string(models.StatusSynced)
				return fm, nil
			})
			continue
		}

		patch := models.UpdateTaskPatch{
			TaskID:      remoteID,
			Content:     models.FieldClear{Provided: true, Value: tn.Title},
			Description: models.FieldClear{Provided: true, Value: tn.Description},
			Priority:    models.FieldClear{Provided: true, Value: strconv.Itoa(tn.Priority)},
			DueString:   models.FieldClear{Provided: true, Value: tn.Due.String, Cleared: tn.Due.String == ""},
		}
		isDone := tn.Done
		patch.IsDone = &isDone

		if err := r.client.UpdateTask(r.ctx, patch); err != nil {
			r.sum.Errored++
			continue
		}

		recurringCompletion := tn.Done && tn.Due.IsRecurring && tn.Due.Date != ""

		if err := r.store.ProcessFrontmatter(path, func(fm models.Frontmatter) (models.Frontmatter, error) {
			fm[names.SyncStatus] = string(models.StatusSynced)
			fm[names.LastSyncedFingerprint] = fp
			if recurringCompletion {
				instances := frontmatter.GetStringSlice(fm, names.CompleteInstances)
				instances = append(instances, tn.Due.Date)
				fm[names.CompleteInstances] = instances
			}
			return fm, nil
		}); err != nil {
			r.sum.warn("failed to finalize updated task %s: %v", path, err)
			continue
		}

		r.sum.Updated++
	}
}

const timeLayout = "2006-01-02T15:04:05Z07:00"
