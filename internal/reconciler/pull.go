package reconciler

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/starford/taskvault/internal/archivemover"
	"github.com/starford/taskvault/internal/backfill"
	"github.com/starford/taskvault/internal/fingerprint"
	"github.com/starford/taskvault/internal/frontmatter"
	"github.com/starford/taskvault/internal/models"
	"github.com/starford/taskvault/internal/pathpolicy"
	"github.com/starford/taskvault/internal/template"
)

// pullAndUpsert takes a fetched remote snapshot (fetching is already done by
// the caller), filters it, ensures project/section notes exist, and upserts
// tasks.
func (r *run) pullAndUpsert(snap models.RemoteSnapshot) error {
	projectByID := map[string]models.RemoteProject{}
	projectParentByID := map[string]string{}
	projectNameByID := map[string]string{}
	for _, p := range snap.Projects {
		if p.IsArchived {
			continue
		}
		projectByID[p.ID] = p
		projectParentByID[p.ID] = p.ParentID
		projectNameByID[p.ID] = p.Name
	}

	sectionByID := map[string]models.RemoteSection{}
	sectionNameByID := map[string]string{}
	sectionProjectByID := map[string]string{}
	for _, s := range snap.Sections {
		if s.IsArchived {
			continue
		}
		sectionByID[s.ID] = s
		sectionNameByID[s.ID] = s.Name
		sectionProjectByID[s.ID] = s.ProjectID
	}

	itemByID := map[string]models.RemoteItem{}
	for _, it := range snap.Items {
		itemByID[it.ID] = it
	}

	importable := map[string]bool{}
	for _, it := range snap.Items {
		if isImportable(it, projectNameByID, sectionNameByID, r.cfg.Importable) {
			importable[it.ID] = true
		}
	}
	closure := ancestorClosure(importable, itemByID)

	// Only projects/sections actually referenced by the closure need notes,
	// but ensuring the full active set keeps folder structure predictable
	// even for projects with no importable tasks yet.
	projectIDs := make([]string, 0, len(projectByID))
	for id := range projectByID {
		projectIDs = append(projectIDs, id)
	}
	order, cycled := topologicalOrderWithCycleReport(projectIDs, projectParentByID)
	if cycled {
		r.sum.Cycles = append(r.sum.Cycles, "project parent chain")
		r.sum.warn("cycle detected in project parent chain; broken deterministically")
	}

	for _, id := range order {
		if err := r.ensureProjectNote(projectByID[id], projectNameByID, projectParentByID, order); err != nil {
			r.sum.Errored++
			r.sum.warn("ensure project note %s: %v", id, err)
		}
	}

	sectionIDs := make([]string, 0, len(sectionByID))
	for id := range sectionByID {
		sectionIDs = append(sectionIDs, id)
	}
	sort.Strings(sectionIDs)
	for _, id := range sectionIDs {
		if err := r.ensureSectionNote(sectionByID[id], projectNameByID, sectionNameByID, sectionProjectByID, sectionIDs); err != nil {
			r.sum.Errored++
			r.sum.warn("ensure section note %s: %v", id, err)
		}
	}

	upsertIDs := make([]string, 0, len(closure))
	for id := range closure {
		upsertIDs = append(upsertIDs, id)
	}
	sort.Strings(upsertIDs)

	for _, id := range upsertIDs {
		item := itemByID[id]
		if err := r.upsertTask(item, projectNameByID, sectionNameByID, sectionProjectByID); err != nil {
			r.sum.Errored++
			r.sum.warn("upsert task %s: %v", id, err)
			continue
		}
		if item.ParentID != "" {
			r.parentChildPairs = append(r.parentChildPairs, parentChildPair{parentID: item.ParentID, childID: item.ID})
		}
	}

	return nil
}

func isImportable(item models.RemoteItem, projectNameByID, sectionNameByID map[string]string, f ImportableFilter) bool {
	if f.AssignedUID != "" && item.ResponsibleUID != "" && item.ResponsibleUID != f.AssignedUID {
		return false
	}
	if f.RequiredLabel != "" && !containsStr(item.Labels, f.RequiredLabel) {
		return false
	}
	if f.ExcludedLabel != "" && containsStr(item.Labels, f.ExcludedLabel) {
		return false
	}
	projectName := projectNameByID[item.ProjectID]
	if len(f.AllowedProjects) > 0 && !containsStr(f.AllowedProjects, projectName) {
		return false
	}
	if containsStr(f.ExcludedProjects, projectName) {
		return false
	}
	if sectionName := sectionNameByID[item.SectionID]; sectionName != "" && containsStr(f.ExcludedSections, sectionName) {
		return false
	}
	return true
}

func containsStr(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

// ancestorClosure returns importable plus every transitive parent so no
// importable item is ever orphaned.
func ancestorClosure(importable map[string]bool, itemByID map[string]models.RemoteItem) map[string]bool {
	closure := map[string]bool{}
	for id := range importable {
		closure[id] = true
	}
	for id := range importable {
		parent := itemByID[id].ParentID
		seen := map[string]bool{}
		for parent != "" && !closure[parent] && !seen[parent] {
			seen[parent] = true
			closure[parent] = true
			parent = itemByID[parent].ParentID
		}
	}
	return closure
}

func topologicalOrderWithCycleReport(ids []string, parentByID map[string]string) ([]string, bool) {
	order := pathpolicy.TopologicalOrder(ids, parentByID)
	// A cycle is present if some node's parent never precedes it and both
	// are in the same connected chain; pathpolicy.TopologicalOrder already
	// breaks cycles deterministically, so detect after the fact by checking
	// whether every parent edge (within this id set) points earlier.
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	cycled := false
	present := make(map[string]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}
	for _, id := range ids {
		parent := parentByID[id]
		if parent == "" || !present[parent] {
			continue
		}
		if pos[parent] > pos[id] {
			cycled = true
		}
	}
	return order, cycled
}

func (r *run) ensureProjectNote(p models.RemoteProject, nameByID, parentByID map[string]string, order []string) error {
	names := r.cfg.Names
	existingPath, found := r.idx.ProjectsByRemoteID[p.ID]

	if found {
		fm, err := r.store.Frontmatter(existingPath)
		if err != nil {
			return err
		}
		cachedName := frontmatter.GetString(fm, names.ProjectName)
		newPath := existingPath
		if cachedName != p.Name || (r.cfg.TaskFiles.UseProjectSubfolders && projectMoved(existingPath, p, nameByID, parentByID, order)) {
			segments, _ := pathpolicy.DisambiguatedProjectFolderSegments(p.ID, nameByID, parentByID, order)
			candidateDir := path.Join(append([]string{r.cfg.TaskFiles.BaseFolder}, segments...)...)
			candidatePath := path.Join(candidateDir, "_index.md")
			candidatePath = archivemover.NextFreePath(candidatePath, func(pp string) bool {
				return pp != existingPath && r.store.Exists(pp)
			})
			if candidatePath != existingPath {
				if err := r.store.EnsureFolder(path.Dir(candidatePath)); err != nil {
					return err
				}
				if err := r.store.Move(existingPath, candidatePath); err != nil {
					return err
				}
				newPath = candidatePath
				r.idx.ProjectsByRemoteID[p.ID] = newPath
				r.retargetProjectLinks(p.ID, newPath, p.Name)
			}
		}
		return r.store.ProcessFrontmatter(newPath, func(fm models.Frontmatter) (models.Frontmatter, error) {
			fm[names.ProjectID] = p.ID
			fm[names.ProjectName] = p.Name
			fm[names.Color] = p.Color
			if p.ParentID != "" {
				if parentPath, ok := r.idx.ProjectsByRemoteID[p.ParentID]; ok {
					fm[names.ParentProjectLink] = projectWikilink(parentPath, nameByID[p.ParentID])
					fm[names.ParentProjectName] = nameByID[p.ParentID]
				}
			} else {
				fm[names.ParentProjectLink] = ""
				fm[names.ParentProjectName] = ""
			}
			return fm, nil
		})
	}

	segments, _ := pathpolicy.DisambiguatedProjectFolderSegments(p.ID, nameByID, parentByID, order)
	candidateDir := path.Join(append([]string{r.cfg.TaskFiles.BaseFolder}, segments...)...)
	newPath := path.Join(candidateDir, "_index.md")
	newPath = archivemover.NextFreePath(newPath, r.store.Exists)

	if err := r.store.EnsureFolder(path.Dir(newPath)); err != nil {
		return err
	}
	body := renderTemplate(r.cfg.ProjectTemplate, r.cfg.now(), template.Context{
		ProjectName: p.Name,
		Created:     r.cfg.now().Format(timeLayout),
	})
	if err := r.store.CreateFile(newPath, body); err != nil {
		return err
	}

	uid := backfillUUID()
	if err := r.store.ProcessFrontmatter(newPath, func(fm models.Frontmatter) (models.Frontmatter, error) {
		if fm == nil {
			fm = models.Frontmatter{}
		}
		fm[names.VaultUUID] = uid
		fm[names.ProjectID] = p.ID
		fm[names.ProjectName] = p.Name
		fm[names.Color] = p.Color
		return fm, nil
	}); err != nil {
		return err
	}

	r.idx.ProjectsByRemoteID[p.ID] = newPath
	return nil
}

func projectMoved(existingPath string, p models.RemoteProject, nameByID, parentByID map[string]string, order []string) bool {
	segments, _ := pathpolicy.DisambiguatedProjectFolderSegments(p.ID, nameByID, parentByID, order)
	wantDir := path.Join(segments...)
	return path.Dir(path.Dir(existingPath)) != path.Dir(wantDir) && path.Base(path.Dir(existingPath)) != lastOrEmpty(segments)
}

func lastOrEmpty(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[len(s)-1]
}

// retargetProjectLinks repoints every task's project_link after a project
// note moves.
func (r *run) retargetProjectLinks(projectID, newPath, name string) {
	names := r.cfg.Names
	for _, taskPath := range r.idx.TasksByRemoteID {
		fm, err := r.store.Frontmatter(taskPath)
		if err != nil || fm == nil {
			continue
		}
		if frontmatter.GetIDString(fm, names.RemoteProjectID) != projectID {
			continue
		}
		_ = r.store.ProcessFrontmatter(taskPath, func(fm models.Frontmatter) (models.Frontmatter, error) {
			fm[names.ProjectLink] = projectWikilink(newPath, name)
			return fm, nil
		})
	}
}

func (r *run) ensureSectionNote(s models.RemoteSection, projectNameByID, sectionNameByID, sectionProjectByID map[string]string, sectionOrder []string) error {
	names := r.cfg.Names
	existingPath, found := r.idx.SectionsByRemoteID[s.ID]
	projectPath := r.idx.ProjectsByRemoteID[s.ProjectID]
	projectName := projectNameByID[s.ProjectID]

	if found {
		fm, err := r.store.Frontmatter(existingPath)
		if err != nil {
			return err
		}
		cachedName := frontmatter.GetString(fm, names.SectionName)
		cachedProjectLink := frontmatter.GetString(fm, names.ProjectLink)
		wantProjectLink := projectWikilink(projectPath, projectName)
		if cachedName == s.Name && cachedProjectLink == wantProjectLink {
			return nil
		}
		return r.store.ProcessFrontmatter(existingPath, func(fm models.Frontmatter) (models.Frontmatter, error) {
			fm[names.SectionID] = s.ID
			fm[names.SectionName] = s.Name
			fm[names.ProjectID] = s.ProjectID
			fm[names.ProjectName] = projectName
			fm[names.ProjectLink] = wantProjectLink
			return fm, nil
		})
	}

	dir := path.Dir(projectPath)
	segment := pathpolicy.DisambiguatedSectionSegment(s.ID, s.Name, s.ProjectID, sectionNameByID, sectionProjectByID, sectionOrder)
	newPath := path.Join(dir, fmt.Sprintf("_section-%s.md", segment))
	newPath = archivemover.NextFreePath(newPath, r.store.Exists)
	if err := r.store.EnsureFolder(path.Dir(newPath)); err != nil {
		return err
	}
	body := renderTemplate(r.cfg.SectionTemplate, r.cfg.now(), template.Context{
		SectionName: s.Name,
		ProjectName: projectName,
		Created:     r.cfg.now().Format(timeLayout),
	})
	if err := r.store.CreateFile(newPath, body); err != nil {
		return err
	}
	uid := backfillUUID()
	if err := r.store.ProcessFrontmatter(newPath, func(fm models.Frontmatter) (models.Frontmatter, error) {
		if fm == nil {
			fm = models.Frontmatter{}
		}
		fm[names.VaultUUID] = uid
		fm[names.SectionID] = s.ID
		fm[names.SectionName] = s.Name
		fm[names.ProjectID] = s.ProjectID
		fm[names.ProjectName] = projectName
		fm[names.ProjectLink] = projectWikilink(projectPath, projectName)
		return fm, nil
	}); err != nil {
		return err
	}
	r.idx.SectionsByRemoteID[s.ID] = newPath
	return nil
}

// upsertTask creates or updates a task note for item, including conflict
// resolution against local edits and relocation when its path should
// change.
func (r *run) upsertTask(item models.RemoteItem, projectNameByID, sectionNameByID, sectionProjectByID map[string]string) error {
	names := r.cfg.Names
	projectName := projectNameByID[item.ProjectID]
	sectionName := sectionNameByID[item.SectionID]
	projectPath := r.idx.ProjectsByRemoteID[item.ProjectID]
	sectionPath := r.idx.SectionsByRemoteID[item.SectionID]

	existingPath, found := r.idx.TasksByRemoteID[item.ID]
	if !found {
		return r.createTaskFromRemote(item, projectName, sectionName, projectPath, sectionPath)
	}

	fm, err := r.store.Frontmatter(existingPath)
	if err != nil {
		return err
	}
	newFP := fingerprint.RemoteImportFromItem(&item, projectName, sectionName)
	cachedFP := frontmatter.GetString(fm, names.LastImportedFingerprint)

	if newFP == cachedFP {
		wantProjectLink := ""
		if projectPath != "" {
			wantProjectLink = projectWikilink(projectPath, projectName)
		}
		wantSectionLink := ""
		if sectionPath != "" {
			wantSectionLink = sectionWikilink(sectionPath, sectionName)
		}
		if frontmatter.GetString(fm, names.ProjectLink) == wantProjectLink && frontmatter.GetString(fm, names.SectionLink) == wantSectionLink {
			return nil
		}
		return r.store.ProcessFrontmatter(existingPath, func(fm models.Frontmatter) (models.Frontmatter, error) {
			fm[names.ProjectLink] = wantProjectLink
			fm[names.SectionLink] = wantSectionLink
			return fm, nil
		})
	}

	dirtyLocal := frontmatter.GetString(fm, names.SyncStatus) == string(models.StatusDirtyLocal)
	oldDueDate := frontmatter.GetString(fm, names.DueDate)
	wasRecurring := frontmatter.GetBool(fm, names.IsRecurring)

	err = r.store.ProcessFrontmatter(existingPath, func(fm models.Frontmatter) (models.Frontmatter, error) {
		fm[names.RemoteProjectID] = item.ProjectID
		fm[names.ProjectName] = projectName
		fm[names.RemoteSectionID] = item.SectionID
		fm[names.SectionName] = sectionName
		if projectPath != "" {
			fm[names.ProjectLink] = projectWikilink(projectPath, projectName)
		}
		if sectionPath != "" {
			fm[names.SectionLink] = sectionWikilink(sectionPath, sectionName)
		}
		fm[names.Labels] = item.Labels
		fm[names.ExternalURL] = externalTaskURL(item.ID)

		if item.ParentID == "" {
			fm[names.ParentTaskLink] = ""
		}

		if wasRecurring && item.Due.IsRecurring && item.Due.Date > oldDueDate && oldDueDate != "" {
			instances := frontmatter.GetStringSlice(fm, names.CompleteInstances)
			instances = append(instances, oldDueDate)
			fm[names.CompleteInstances] = instances
		}

		if !dirtyLocal || !r.cfg.ConflictPolicyLocalWins {
			fm[names.TaskTitle] = item.Content
			fm[names.Description] = item.Description
			status := models.TaskOpen
			if item.Checked {
				status = models.TaskDone
			}
			fm[names.TaskStatus] = string(status)
			fm[names.TaskDone] = item.Checked
			fm[names.Priority] = item.Priority
			fm[names.DueDate] = item.Due.Date
			fm[names.DueString] = item.Due.String
			fm[names.Deadline] = item.DeadlineDate
			if item.Due.IsRecurring {
				if frontmatter.GetString(fm, names.Recurrence) == "" {
					fm[names.Recurrence] = item.Due.String
				}
			} else {
				fm[names.Recurrence] = ""
			}
			fm[names.IsRecurring] = item.Due.IsRecurring
		}

		fm[names.LastImportedFingerprint] = newFP
		fm[names.LastImportedAt] = r.cfg.now().Format(timeLayout)
		return fm, nil
	})
	if err != nil {
		return err
	}

	return r.relocateTaskIfNeeded(existingPath, item, projectName, sectionName)
}

func externalTaskURL(taskID string) string {
	return fmt.Sprintf("https://todoist.com/showTask?id=%s", taskID)
}

func (r *run) createTaskFromRemote(item models.RemoteItem, projectName, sectionName, projectPath, sectionPath string) error {
	names := r.cfg.Names
	fp := fingerprint.RemoteImportFromItem(&item, projectName, sectionName)

	segments := []string{}
	if r.cfg.TaskFiles.UseProjectSubfolders && projectPath != "" {
		segments = append(segments, path.Base(path.Dir(projectPath)))
	}
	sectionSeg := ""
	if r.cfg.TaskFiles.UseSectionSubfolder && sectionName != "" {
		sectionSeg = pathpolicy.Sanitize(sectionName)
	}
	newPath := pathpolicy.TaskFilePath(item.ID, item.Content, segments, sectionSeg, r.cfg.TaskFiles, r.store.Exists)

	if err := r.store.EnsureFolder(path.Dir(newPath)); err != nil {
		return err
	}
	body := renderTemplate(r.cfg.TaskTemplate, r.cfg.now(), template.Context{
		Title:         item.Content,
		Description:   item.Description,
		DueDate:       item.Due.Date,
		DueString:     item.Due.String,
		DeadlineDate:  item.DeadlineDate,
		Priority:      strconv.Itoa(item.Priority),
		Project:       projectName,
		ProjectID:     item.ProjectID,
		Section:       sectionName,
		SectionID:     item.SectionID,
		TodoistID:     item.ID,
		URL:           externalTaskURL(item.ID),
		Tags:          strings.Join(item.Labels, ", "),
		Created:       r.cfg.now().Format(timeLayout),
		ProjectLink:   projectWikilink(projectPath, projectName),
		SectionLink:   sectionWikilink(sectionPath, sectionName),
	})
	if err := r.store.CreateFile(newPath, body); err != nil {
		return err
	}

	status := models.TaskOpen
	if item.Checked {
		status = models.TaskDone
	}
	uid := backfillUUID()

	err := r.store.ProcessFrontmatter(newPath, func(fm models.Frontmatter) (models.Frontmatter, error) {
		if fm == nil {
			fm = models.Frontmatter{}
		}
		fm[names.VaultUUID] = uid
		fm[names.TaskTitle] = item.Content
		fm[names.TaskStatus] = string(status)
		fm[names.TaskDone] = item.Checked
		fm[names.RemoteTaskID] = item.ID
		fm[names.RemoteProjectID] = item.ProjectID
		fm[names.ProjectName] = projectName
		fm[names.RemoteSectionID] = item.SectionID
		fm[names.SectionName] = sectionName
		if projectPath != "" {
			fm[names.ProjectLink] = projectWikilink(projectPath, projectName)
		}
		if sectionPath != "" {
			fm[names.SectionLink] = sectionWikilink(sectionPath, sectionName)
		}
		fm[names.Priority] = item.Priority
		fm[names.DueDate] = item.Due.Date
		fm[names.DueString] = item.Due.String
		fm[names.IsRecurring] = item.Due.IsRecurring
		if item.Due.IsRecurring {
			fm[names.Recurrence] = item.Due.String
		}
		fm[names.Deadline] = item.DeadlineDate
		fm[names.Description] = item.Description
		fm[names.Labels] = item.Labels
		fm[names.ExternalURL] = externalTaskURL(item.ID)
		fm[names.SyncStatus] = string(models.StatusSynced)
		fm[names.LastImportedFingerprint] = fp
		fm[names.LastImportedAt] = r.cfg.now().Format(timeLayout)
		return fm, nil
	})
	if err != nil {
		return err
	}

	r.idx.TasksByRemoteID[item.ID] = newPath
	r.sum.Created++
	return nil
}

// relocateTaskIfNeeded moves an existing task note to the path its current
// project/section now implies, if that differs from where it already lives.
func (r *run) relocateTaskIfNeeded(existingPath string, item models.RemoteItem, projectName, sectionName string) error {
	names := r.cfg.Names
	fm, err := r.store.Frontmatter(existingPath)
	if err != nil {
		return err
	}
	title := frontmatter.GetString(fm, names.TaskTitle)

	segments := []string{}
	if r.cfg.TaskFiles.UseProjectSubfolders {
		if projectPath := r.idx.ProjectsByRemoteID[item.ProjectID]; projectPath != "" {
			segments = append(segments, path.Base(path.Dir(projectPath)))
		}
	}
	sectionSeg := ""
	if r.cfg.TaskFiles.UseSectionSubfolder && sectionName != "" {
		sectionSeg = pathpolicy.Sanitize(sectionName)
	}

	wantDir := path.Join(append([]string{r.cfg.TaskFiles.BaseFolder}, append(segments, sectionSeg)...)...)
	curDir := path.Dir(existingPath)

	newPath := existingPath
	moved := false
	if r.cfg.TaskFiles.UseProjectSubfolders && wantDir != curDir {
		candidate := path.Join(wantDir, path.Base(existingPath))
		candidate = archivemover.NextFreePath(candidate, func(p string) bool { return p != existingPath && r.store.Exists(p) })
		if err := r.store.EnsureFolder(path.Dir(candidate)); err != nil {
			return err
		}
		if err := r.store.Move(existingPath, candidate); err != nil {
			return err
		}
		newPath = candidate
		moved = true
	}

	if r.cfg.AutoRenameFiles {
		wantBase := pathpolicy.Sanitize(title) + ".md"
		if path.Base(newPath) != wantBase {
			candidate := path.Join(path.Dir(newPath), wantBase)
			candidate = archivemover.NextFreePath(candidate, func(p string) bool { return p != newPath && r.store.Exists(p) })
			if candidate != newPath {
				if err := r.store.Move(newPath, candidate); err != nil {
					return err
				}
				newPath = candidate
				moved = true
			}
		}
	}

	if moved {
		r.idx.TasksByRemoteID[item.ID] = newPath
	}
	return nil
}

func backfillUUID() string {
	return backfill.NewUUID()
}
