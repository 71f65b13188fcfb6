package frontmatter

import "github.com/starford/taskvault/internal/models"

// PropNames is the configurable key table read/write helpers key off of.
// Renaming a field only requires changing the value here. The legacy-key
// fallback of GetString and friends is looked up by key string in
// legacyKeys, so it applies only to fields that keep their default key; a
// renamed field is read under its new key alone.
type PropNames struct {
	VaultUUID string
	Created   string
	Modified  string
	Tags      string

	TaskTitle  string
	TaskStatus string
	TaskDone   string

	RemoteTaskID    string
	RemoteProjectID string
	RemoteSectionID string
	ProjectName     string
	SectionName     string
	ProjectLink     string
	SectionLink     string

	Priority      string
	PriorityLabel string
	DueDate       string
	DueString     string
	IsRecurring   string
	Deadline      string
	Description   string
	Labels        string

	ParentTaskLink string
	ChildTaskLinks string
	HasChildren    string
	ChildCount     string
	ExternalURL    string

	SyncFlag                string
	SyncStatus               string
	PendingRemoteID          string
	LastImportedFingerprint  string
	LastSyncedFingerprint    string
	LastImportedAt           string
	IsDeleted                string
	Recurrence               string
	CompleteInstances        string

	ProjectID         string
	SectionID         string
	Color             string
	ParentProjectLink string
	ParentProjectName string
}

// legacyKeys maps a canonical key to the hard-coded legacy key it replaced.
// Only keys with a known predecessor appear here.
var legacyKeys = map[string]string{
	"task_title":         "title",
	"remote_task_id":     "todoist_id",
	"remote_project_id":  "todoist_project_id",
	"remote_section_id":  "todoist_section_id",
	"sync_status":        "status",
	"due":                "due_date",
	"vault_uuid":         "uuid",
}

// Default returns the standard key table.
func Default() PropNames {
	return PropNames{
		VaultUUID: "vault_uuid",
		Created:   "created",
		Modified:  "modified",
		Tags:      "tags",

		TaskTitle:  "task_title",
		TaskStatus: "task_status",
		TaskDone:   "task_done",

		RemoteTaskID:    "remote_task_id",
		RemoteProjectID: "remote_project_id",
		RemoteSectionID: "remote_section_id",
		ProjectName:     "project_name",
		SectionName:     "section_name",
		ProjectLink:     "project_link",
		SectionLink:     "section_link",

		Priority:      "priority",
		PriorityLabel: "priority_label",
		DueDate:       "due",
		DueString:     "due_string",
		IsRecurring:   "is_recurring",
		Deadline:      "deadline",
		Description:   "description",
		Labels:        "labels",

		ParentTaskLink: "parent_task_link",
		ChildTaskLinks: "child_tasks",
		HasChildren:    "has_children",
		ChildCount:     "child_count",
		ExternalURL:    "url",

		SyncFlag:                "sync_flag",
		SyncStatus:              "sync_status",
		PendingRemoteID:         "pending_remote_id",
		LastImportedFingerprint: "last_imported_fingerprint",
		LastSyncedFingerprint:   "last_synced_fingerprint",
		LastImportedAt:          "last_imported_at",
		IsDeleted:               "is_deleted",
		Recurrence:              "recurrence",
		CompleteInstances:       "complete_instances",

		ProjectID:         "remote_project_id",
		SectionID:         "remote_section_id",
		Color:             "color",
		ParentProjectLink: "parent_project_link",
		ParentProjectName: "parent_project_name",
	}
}

// legacyFor returns the legacy key for a canonical key, or "" if none.
func legacyFor(key string) string {
	return legacyKeys[key]
}

// StripLegacyKeys deletes, from fm, every legacy key whose canonical
// replacement is also present in fm. Writing the canonical key is meant to
// retire its legacy predecessor, not leave it to accumulate stale data
// indefinitely; callers invoke this once per write-back rather than at every
// individual field assignment.
func StripLegacyKeys(fm models.Frontmatter) {
	for canonical, legacy := range legacyKeys {
		if _, hasCanonical := fm[canonical]; hasCanonical {
			delete(fm, legacy)
		}
	}
}
