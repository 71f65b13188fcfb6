package reconciler

import (
	"sort"

	"github.com/starford/taskvault/internal/frontmatter"
	"github.com/starford/taskvault/internal/models"
)

// applyParentChildLinks runs two passes over the combined remote-id → file
// map using the collected parent-child pairs, after every task upsert has
// settled.
func (r *run) applyParentChildLinks() {
	names := r.cfg.Names

	// Forward pass: set each child's parent_task_link.
	for _, pair := range r.parentChildPairs {
		parentPath, ok := r.idx.TasksByRemoteID[pair.parentID]
		if !ok {
			continue
		}
		childPath, ok := r.idx.TasksByRemoteID[pair.childID]
		if !ok {
			continue
		}
		if r.isTerminal(childPath) {
			continue
		}
		parentFM, err := r.store.Frontmatter(parentPath)
		if err != nil || parentFM == nil {
			continue
		}
		parentTitle := frontmatter.GetString(parentFM, names.TaskTitle)
		_ = r.store.ProcessFrontmatter(childPath, func(fm models.Frontmatter) (models.Frontmatter, error) {
			fm[names.ParentTaskLink] = taskWikilink(parentPath, parentTitle)
			return fm, nil
		})
	}

	// Reverse pass: gather each parent's sorted child wikilink list.
	childrenOf := map[string][]string{}
	for _, pair := range r.parentChildPairs {
		if _, ok := r.idx.TasksByRemoteID[pair.parentID]; !ok {
			continue
		}
		if _, ok := r.idx.TasksByRemoteID[pair.childID]; !ok {
			continue
		}
		childrenOf[pair.parentID] = append(childrenOf[pair.parentID], pair.childID)
	}

	for parentID, childIDs := range childrenOf {
		parentPath := r.idx.TasksByRemoteID[parentID]
		if r.isTerminal(parentPath) {
			continue
		}
		links := make([]string, 0, len(childIDs))
		for _, cid := range childIDs {
			childPath := r.idx.TasksByRemoteID[cid]
			childFM, err := r.store.Frontmatter(childPath)
			if err != nil || childFM == nil {
				continue
			}
			links = append(links, taskWikilink(childPath, frontmatter.GetString(childFM, names.TaskTitle)))
		}
		sort.Strings(links)
		count := len(links)
		_ = r.store.ProcessFrontmatter(parentPath, func(fm models.Frontmatter) (models.Frontmatter, error) {
			fm[names.ChildTaskLinks] = links
			fm[names.HasChildren] = count > 0
			fm[names.ChildCount] = count
			return fm, nil
		})
	}
}

func (r *run) isTerminal(path string) bool {
	fm, err := r.store.Frontmatter(path)
	if err != nil || fm == nil {
		return false
	}
	status := frontmatter.GetString(fm, r.cfg.Names.SyncStatus)
	return status == string(models.StatusArchivedRemote) || status == string(models.StatusDeletedRemote)
}
