package reconciler

import (
	"fmt"

	"github.com/starford/taskvault/internal/frontmatter"
	"github.com/starford/taskvault/internal/models"
)

// taskNoteFromFrontmatter projects a raw frontmatter bag into the typed
// TaskNote fingerprinting and push logic operate on.
func taskNoteFromFrontmatter(fm models.Frontmatter, names frontmatter.PropNames) models.TaskNote {
	status := models.TaskOpen
	if frontmatter.GetString(fm, names.TaskStatus) == string(models.TaskDone) {
		status = models.TaskDone
	}
	return models.TaskNote{
		Title:           frontmatter.GetString(fm, names.TaskTitle),
		Status:          status,
		Done:            frontmatter.GetBool(fm, names.TaskDone),
		Description:     frontmatter.GetString(fm, names.Description),
		RemoteTaskID:    frontmatter.GetIDString(fm, names.RemoteTaskID),
		RemoteProjectID: frontmatter.GetIDString(fm, names.RemoteProjectID),
		RemoteSectionID: frontmatter.GetIDString(fm, names.RemoteSectionID),
		ProjectName:     frontmatter.GetString(fm, names.ProjectName),
		SectionName:     frontmatter.GetString(fm, names.SectionName),
		Priority:        frontmatter.GetInt(fm, names.Priority),
		PriorityLabel:   frontmatter.GetString(fm, names.PriorityLabel),
		Due: models.Due{
			Date:        frontmatter.GetString(fm, names.DueDate),
			String:      frontmatter.GetString(fm, names.DueString),
			IsRecurring: frontmatter.GetBool(fm, names.IsRecurring),
		},
		Deadline:          frontmatter.GetString(fm, names.Deadline),
		Labels:            frontmatter.GetStringSlice(fm, names.Labels),
		ParentTaskID:      frontmatter.GetIDString(fm, names.ParentTaskLink),
		SyncStatus:        models.SyncStatus(frontmatter.GetString(fm, names.SyncStatus)),
		Recurrence:        frontmatter.GetString(fm, names.Recurrence),
		CompleteInstances: frontmatter.GetStringSlice(fm, names.CompleteInstances),
	}
}

// taskWikilink returns the wikilink token the vault uses to cross-reference
// a task file from another note's frontmatter.
func taskWikilink(path, title string) string {
	return fmt.Sprintf("[[%s|%s]]", path, title)
}

func projectWikilink(path, name string) string {
	return fmt.Sprintf("[[%s|%s]]", path, name)
}

func sectionWikilink(path, name string) string {
	return fmt.Sprintf("[[%s|%s]]", path, name)
}
