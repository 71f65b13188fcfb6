// Package models defines the domain types shared across the reconciliation engine.
package models

import "time"

// SyncStatus is the local reconciliation state of a TaskNote.
type SyncStatus string

const (
	StatusSynced            SyncStatus = "synced"
	StatusDirtyLocal        SyncStatus = "dirty_local"
	StatusQueuedLocalCreate SyncStatus = "queued_local_create"
	StatusLocalOnly         SyncStatus = "local_only"
	StatusMissingRemote     SyncStatus = "missing_remote"
	StatusArchivedRemote    SyncStatus = "archived_remote"
	StatusDeletedRemote     SyncStatus = "deleted_remote"
)

// TaskStatus mirrors task_status frontmatter values.
type TaskStatus string

const (
	TaskOpen TaskStatus = "Open"
	TaskDone TaskStatus = "Done"
)

// Frontmatter is the generic, order-insensitive key/value bag backing every
// managed note. Values are the raw YAML-decoded types (string, bool,
// float64/int, []interface{}); FrontmatterOps performs typed access on top
// of this bag.
type Frontmatter map[string]interface{}

// NoteKind classifies a managed file by which identity fields it carries: a
// file carrying remote_section_id is a SectionNote even when it also stores
// its owning remote_project_id.
type NoteKind int

const (
	KindUnmanaged NoteKind = iota
	KindTask
	KindProject
	KindSection
)

// Due represents a Todoist-style due date/string pair.
type Due struct {
	Date        string // ISO YYYY-MM-DD, empty if unset
	String      string // natural-language due string as returned by the remote
	IsRecurring bool
}

// TaskNote is the in-memory projection of a task's frontmatter.
type TaskNote struct {
	Path string

	VaultUUID string
	Created   time.Time
	Modified  time.Time
	Tags      []string

	Title  string
	Status TaskStatus
	Done   bool

	RemoteTaskID    string
	RemoteProjectID string
	RemoteSectionID string
	ProjectName     string
	SectionName     string
	ProjectLink     string // wikilink to the owning ProjectNote
	SectionLink     string // wikilink to the owning SectionNote

	Priority      int
	PriorityLabel string
	Due           Due
	Deadline      string
	Description   string
	Labels        []string

	ParentTaskID   string
	ParentTaskLink string
	ChildTaskIDs   []string
	ChildTaskLinks []string
	HasChildren    bool
	ChildCount     int

	ExternalURL string

	SyncFlag                bool
	SyncStatus              SyncStatus
	PendingRemoteID         string
	LastImportedFingerprint string
	LastSyncedFingerprint   string
	LastImportedAt          time.Time
	IsDeleted               bool

	Recurrence        string
	CompleteInstances []string
}

// ProjectNote is the in-memory projection of a project note's frontmatter.
type ProjectNote struct {
	Path string

	VaultUUID string
	Created   time.Time
	Modified  time.Time
	Tags      []string

	Name  string
	ID    string
	Color string

	ParentProjectID   string
	ParentProjectName string
	ParentProjectLink string

	IsArchived bool
}

// SectionNote is the in-memory projection of a section note's frontmatter.
type SectionNote struct {
	Path string

	VaultUUID string
	Created   time.Time
	Modified  time.Time
	Tags      []string

	Name string
	ID   string

	ProjectID   string
	ProjectName string
	ProjectLink string

	IsArchived bool
}

// RemoteItem is a single task row as returned by the remote snapshot.
type RemoteItem struct {
	ID            string
	Content       string
	Description   string
	Checked       bool
	ProjectID     string
	SectionID     string
	ParentID      string
	Priority      int
	Due           Due
	DeadlineDate  string
	Labels        []string
	ResponsibleUID string
	IsDeleted     bool
}

// RemoteProject is a single project row as returned by the remote snapshot.
type RemoteProject struct {
	ID         string
	Name       string
	ParentID   string
	Color      string
	IsArchived bool
}

// RemoteSection is a single section row as returned by the remote snapshot.
type RemoteSection struct {
	ID         string
	Name       string
	ProjectID  string
	IsArchived bool
}

// RemoteSnapshot is the ephemeral, in-memory result of one fetch_snapshot call.
type RemoteSnapshot struct {
	Items      []RemoteItem
	Projects   []RemoteProject
	Sections   []RemoteSection
	UserID     string
	SyncToken  string
}

// CreateTaskPayload is the input to remote.Client.CreateTask.
type CreateTaskPayload struct {
	Content     string
	Description string
	ProjectID   string
	SectionID   string
	Priority    int
	DueString   string
	Labels      []string
	ParentID    string
}

// FieldClear marks an UpdateTaskPatch field as explicitly cleared, distinct
// from "not provided".
type FieldClear struct {
	Provided bool
	Cleared  bool
	Value    string
}

// UpdateTaskPatch is the input to remote.Client.UpdateTask. Every field is
// optional; only fields with Provided=true are sent to the remote.
type UpdateTaskPatch struct {
	TaskID      string
	Content     FieldClear
	Description FieldClear
	ProjectID   FieldClear
	SectionID   FieldClear
	Priority    FieldClear
	DueString   FieldClear
	Labels      *[]string
	ParentID    FieldClear
	IsDone      *bool
}
