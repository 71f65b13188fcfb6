package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/taskvault/internal/frontmatter"
	"github.com/starford/taskvault/internal/models"
	"github.com/starford/taskvault/internal/reconciler"
)

var _ reconciler.Store = (*FS)(nil)

// FS implements the vault's Store backed by the local file system. Every
// mutating method goes through safePath, rejecting any traversal outside
// the vault root.
type FS struct {
	root string // absolute path to vault directory

	// excludeDirs are relative-to-root directories (e.g. the completed and
	// deleted folders) skipped by ListActiveTaskPaths, so a task that has
	// already transitioned out of active management is not re-scanned for
	// pending local edits on every run.
	excludeDirs []string
}

// NewFS creates a new FS provider rooted at the given directory. The
// directory must already exist. excludeDirs are additional relative
// directories ListActiveTaskPaths skips.
func NewFS(root string, excludeDirs ...string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs, excludeDirs: excludeDirs}, nil
}

// safePath resolves a relative path against the vault root and rejects any
// result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(f.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes vault root: %s", rel)
	}
	return abs, nil
}

func (f *FS) walkMarkdown(skip func(rel string) bool, fn func(rel string) error) error {
	return filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skip != nil && rel != "." && skip(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		return fn(rel)
	})
}

// List walks dir (relative to root) and returns metadata for every .md file.
func (f *FS) List(dir string) ([]NoteMetadata, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []NoteMetadata
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(f.root, p)
		out = append(out, NoteMetadata{Path: rel, Checksum: checksum(data)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	return out, nil
}

// ListAllPaths returns every managed Markdown file under the vault root.
func (f *FS) ListAllPaths() ([]string, error) {
	var out []string
	err := f.walkMarkdown(nil, func(rel string) error {
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list all paths: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

// ListActiveTaskPaths returns every Markdown file outside the configured
// completed/deleted folders, the set the reconciler scans for pending
// local creates/updates.
func (f *FS) ListActiveTaskPaths() ([]string, error) {
	var out []string
	err := f.walkMarkdown(func(rel string) bool {
		for _, ex := range f.excludeDirs {
			if ex == "" {
				continue
			}
			if rel == ex || strings.HasPrefix(rel, ex+"/") {
				return true
			}
		}
		return false
	}, func(rel string) error {
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list active task paths: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

// Frontmatter reads and parses path's YAML frontmatter block, returning nil
// (not an error) if the file has none.
func (f *FS) Frontmatter(path string) (models.Frontmatter, error) {
	data, err := f.Read(path)
	if err != nil {
		return nil, err
	}
	fm, _, err := frontmatter.Split(data)
	return fm, err
}

// ReadFile is an alias for Read, named to satisfy reconciler.Store.
func (f *FS) ReadFile(path string) ([]byte, error) { return f.Read(path) }

// Read returns the raw bytes of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// WriteFile is an alias for Write, named to satisfy reconciler.Store.
func (f *FS) WriteFile(path string, data []byte) error { return f.Write(path, data) }

// CreateFile writes a brand-new file; it is a thin wrapper over Write since
// every caller already checked Exists first under an advisory-only
// concurrency model with no O_EXCL requirement.
func (f *FS) CreateFile(path string, data []byte) error { return f.Write(path, data) }

// Write atomically writes content: tmp file -> fsync -> rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".taskvault-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// ProcessFrontmatter is the sole write path for frontmatter mutation: it
// reads the file's current frontmatter and body, hands the caller a plain
// map to mutate, then writes back the superset of old and new fields in the
// original key order (new keys appended in sorted order).
func (f *FS) ProcessFrontmatter(path string, fn func(models.Frontmatter) (models.Frontmatter, error)) error {
	data, err := f.Read(path)
	if err != nil {
		return err
	}
	order, fm, body, err := frontmatter.SplitOrdered(data)
	if err != nil {
		return err
	}
	if fm == nil {
		fm = models.Frontmatter{}
	}

	updated, err := fn(fm)
	if err != nil {
		return err
	}
	if updated == nil {
		updated = models.Frontmatter{}
	}
	frontmatter.StripLegacyKeys(updated)

	doc := frontmatter.NewDoc()
	seen := make(map[string]bool, len(order))
	for _, key := range order {
		if v, ok := updated[key]; ok {
			doc.Set(key, v)
			seen[key] = true
		}
	}
	var fresh []string
	for key := range updated {
		if !seen[key] {
			fresh = append(fresh, key)
		}
	}
	sort.Strings(fresh)
	for _, key := range fresh {
		doc.Set(key, updated[key])
	}

	out, err := doc.Render(body)
	if err != nil {
		return fmt.Errorf("storage: render frontmatter for %s: %w", path, err)
	}
	return f.Write(path, out)
}

// Exists reports whether path is present in the vault.
func (f *FS) Exists(path string) bool {
	abs, err := f.safePath(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(abs)
	return err == nil
}

// Delete removes a file from the vault outright.
func (f *FS) Delete(path string) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

// MoveToTrash moves path into a top-level .trash folder instead of deleting
// it outright, so an operator can recover from a wrongly-classified
// deleted-remote transition.
func (f *FS) MoveToTrash(path string) error {
	dest := ".trash/" + path
	return f.Move(path, dest)
}

// Move renames a file within the vault, creating any destination
// directories needed.
func (f *FS) Move(oldPath, newPath string) error {
	absOld, err := f.safePath(oldPath)
	if err != nil {
		return err
	}
	absNew, err := f.safePath(newPath)
	if err != nil {
		return err
	}
	dir := filepath.Dir(absNew)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for move: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("storage: move: %w", err)
	}
	return nil
}

// MoveFolder renames every file under oldDir to the equivalent path under
// newDir (used by archive/unarchive project and section transitions).
func (f *FS) MoveFolder(oldDir, newDir string) error {
	absOld, err := f.safePath(oldDir)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(absOld); statErr != nil {
		if os.IsNotExist(statErr) {
			return nil
		}
		return statErr
	}
	absNew, err := f.safePath(newDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(absNew), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for move folder: %w", err)
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return fmt.Errorf("storage: move folder: %w", err)
	}
	return nil
}

// EnsureFolder creates dir (and any missing parents) if it does not exist.
func (f *FS) EnsureFolder(dir string) error {
	abs, err := f.safePath(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("storage: ensure folder %s: %w", dir, err)
	}
	return nil
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
