// Package reconciler is the heart of the sync engine. It drives
// push-then-pull against a remote.Client and a vault Store, performs
// upserts, emits renames, applies parent/child back-links, and handles
// archive transitions.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/taskvault/internal/backfill"
	"github.com/starford/taskvault/internal/frontmatter"
	"github.com/starford/taskvault/internal/models"
	"github.com/starford/taskvault/internal/pathpolicy"
	"github.com/starford/taskvault/internal/remote"
	"github.com/starford/taskvault/internal/template"
	"github.com/starford/taskvault/internal/vaultindex"
)

// Store is everything the reconciler needs from the vault. Frontmatter
// read-modify-write goes through ProcessFrontmatter, which guarantees
// release of any internal lock on all exit paths; signature repair writes
// raw text with WriteFile, and new notes are first written with CreateFile.
type Store interface {
	ListAllPaths() ([]string, error)
	ListActiveTaskPaths() ([]string, error)
	Frontmatter(path string) (models.Frontmatter, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
	CreateFile(path string, data []byte) error
	ProcessFrontmatter(path string, fn func(models.Frontmatter) (models.Frontmatter, error)) error
	Exists(path string) bool
	Move(oldPath, newPath string) error
	MoveFolder(oldDir, newDir string) error
	EnsureFolder(dir string) error
	MoveToTrash(path string) error
}

// MissingRemoteMode is the configured handling for a task no longer present
// in the active remote snapshot.
type MissingRemoteMode string

const (
	ModeKeepInPlace  MissingRemoteMode = "keep-in-place"
	ModeMoveToFolder MissingRemoteMode = "move-to-folder"
	ModeStopSyncing  MissingRemoteMode = "stop-syncing" // deleted only
)

// ImportableFilter configures which remote items are eligible for import.
type ImportableFilter struct {
	AssignedUID      string
	RequiredLabel    string
	ExcludedLabel    string
	AllowedProjects  []string // project names; empty means all allowed
	ExcludedProjects []string
	ExcludedSections []string
}

// Config bundles every policy knob the reconciler consults.
type Config struct {
	Names frontmatter.PropNames

	TaskFiles       pathpolicy.TaskFileConfig
	AutoRenameFiles bool

	Importable ImportableFilter

	ConflictPolicyLocalWins bool

	CompletedMode   MissingRemoteMode
	DeletedMode     MissingRemoteMode
	CompletedFolder string
	DeletedFolder   string

	ProjectArchiveFolder string
	SectionArchiveFolder string

	RecentlyDeletedLimit int

	// TaskTemplate, ProjectTemplate, and SectionTemplate, when non-empty,
	// seed the body of a newly created note via template.Resolve before the
	// hydration step runs. Hydration always follows and overwrites every
	// identity/link/signature field the template could have omitted or
	// mistyped, so an empty or malformed template degrades to the same
	// default frontmatter a new note gets without one.
	TaskTemplate    string
	ProjectTemplate string
	SectionTemplate string

	Now func() time.Time
}

func renderTemplate(tmpl string, date time.Time, ctx template.Context) []byte {
	if tmpl == "" {
		return []byte("---\n---\n")
	}
	return []byte(template.Resolve(tmpl, date, ctx))
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Summary is the single user-visible outcome of one run.
type Summary struct {
	Created        int
	Updated        int
	MissingHandled int
	Errored        int
	Duplicates     []string
	Cycles         []string
	Warnings       []string
}

func (s *Summary) warn(format string, args ...interface{}) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// run carries the mutable state threaded through one Run call.
type run struct {
	ctx    context.Context
	store  Store
	client remote.Client
	cfg    Config
	sum    Summary

	idx *vaultindex.Index

	// projectIDByName / sectionIDByName are populated from the local vault
	// index before pending local creates are dispatched, so that a
	// sync-flagged note's project_name/section_name can be resolved to a
	// remote ID without a live remote round trip: a fresh snapshot is not
	// yet available at that point in the control flow, so the reconciler
	// treats the vault's own cached ProjectNote/SectionNote records as a
	// stand-in snapshot.
	projectIDByName map[string]string
	sectionIDByName map[string]string

	parentChildPairs []parentChildPair
}

type parentChildPair struct {
	parentID string
	childID  string
}

// vaultindexReaderAdapter lets a Store satisfy vaultindex.FileReader.
type vaultindexReaderAdapter struct{ Store }

// backfillStoreAdapter lets a Store satisfy backfill.Store.
type backfillStoreAdapter struct{ Store }

func (a backfillStoreAdapter) ManagedPaths() ([]string, error) { return a.ListAllPaths() }

// Run executes one full sync: repair → backfill → index → push → pull →
// link → missing-remote → archive.
func Run(ctx context.Context, client remote.Client, store Store, cfg Config) (Summary, error) {
	r := &run{ctx: ctx, store: store, client: client, cfg: cfg}

	if err := r.repairSignatures(); err != nil {
		return r.sum, fmt.Errorf("reconciler: repair signatures: %w", err)
	}

	if _, err := backfill.Run(backfillStoreAdapter{store}, cfg.Names); err != nil {
		return r.sum, fmt.Errorf("reconciler: backfill uuids: %w", err)
	}

	if err := r.buildIndex(); err != nil {
		return r.sum, fmt.Errorf("reconciler: build vault index: %w", err)
	}

	r.dispatchPendingLocalCreates()
	r.dispatchPendingLocalUpdates()

	snap, err := client.FetchSnapshot(ctx)
	if err != nil {
		return r.sum, fmt.Errorf("reconciler: fetch remote snapshot: %w", err)
	}

	if err := r.pullAndUpsert(snap); err != nil {
		return r.sum, fmt.Errorf("reconciler: pull and upsert: %w", err)
	}

	r.applyParentChildLinks()

	if err := r.handleMissingRemote(snap); err != nil {
		return r.sum, fmt.Errorf("reconciler: missing-remote handling: %w", err)
	}

	if err := r.applyArchiveTransitions(snap); err != nil {
		return r.sum, fmt.Errorf("reconciler: archive transitions: %w", err)
	}

	if len(r.idx.DuplicateTaskIDs) > 0 {
		r.sum.Duplicates = r.idx.DuplicateIDsSorted()
		r.sum.warn("duplicate remote_task_id detected: %v", r.sum.Duplicates)
	}

	return r.sum, nil
}

func (r *run) repairSignatures() error {
	paths, err := r.store.ListAllPaths()
	if err != nil {
		return err
	}
	keys := []string{r.cfg.Names.LastImportedFingerprint, r.cfg.Names.LastSyncedFingerprint}
	for _, path := range paths {
		data, err := r.store.ReadFile(path)
		if err != nil {
			continue // schema/read error: skip, run continues
		}
		repaired, changed := frontmatter.RepairSignatures(data, keys)
		if !changed {
			continue
		}
		if err := r.store.WriteFile(path, repaired); err != nil {
			r.sum.warn("failed to write repaired signature for %s: %v", path, err)
		}
	}
	return nil
}

func (r *run) buildIndex() error {
	paths, err := r.store.ListAllPaths()
	if err != nil {
		return err
	}
	idx, _ := vaultindex.Build(paths, vaultindexReaderAdapter{r.store}, r.cfg.Names)
	r.idx = idx

	r.projectIDByName = map[string]string{}
	for id, path := range idx.ProjectsByRemoteID {
		fm, err := r.store.Frontmatter(path)
		if err != nil || fm == nil {
			continue
		}
		if name := frontmatter.GetString(fm, r.cfg.Names.ProjectName); name != "" {
			r.projectIDByName[name] = id
		}
	}
	r.sectionIDByName = map[string]string{}
	for id, path := range idx.SectionsByRemoteID {
		fm, err := r.store.Frontmatter(path)
		if err != nil || fm == nil {
			continue
		}
		if name := frontmatter.GetString(fm, r.cfg.Names.SectionName); name != "" {
			r.sectionIDByName[name] = id
		}
	}
	return nil
}
