package frontmatter

import "github.com/starford/taskvault/internal/models"

// Kind classifies a managed file by which identity fields its frontmatter
// carries. A file with remote_task_id is always a TaskNote even if it also
// carries remote_project_id/remote_section_id for its own back-links; a
// file with remote_section_id (and no task ID) is a SectionNote even though
// it also stores its owning remote_project_id.
func Kind(fm models.Frontmatter, names PropNames) models.NoteKind {
	if GetIDString(fm, names.RemoteTaskID) != "" {
		return models.KindTask
	}
	if GetIDString(fm, names.RemoteSectionID) != "" {
		return models.KindSection
	}
	if GetIDString(fm, names.RemoteProjectID) != "" {
		return models.KindProject
	}
	return models.KindUnmanaged
}

// IsManaged reports whether the frontmatter carries any of the identity
// fields that make a file a managed task, project, or section note.
func IsManaged(fm models.Frontmatter, names PropNames) bool {
	return GetIDString(fm, names.RemoteTaskID) != "" ||
		GetIDString(fm, names.RemoteProjectID) != "" ||
		GetIDString(fm, names.RemoteSectionID) != ""
}
