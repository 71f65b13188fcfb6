// Package archivemover moves project, section, and task files between
// active and archive folders on remote archive/unarchive transitions, and
// provides the collision-safe path allocator relocation depends on.
package archivemover

import (
	"fmt"
	"path"
	"strings"
)

// Exists reports whether a path is already occupied by some file.
type Exists func(path string) bool

// NextFreePath returns candidate unchanged if it is free. Otherwise it
// appends "-2", "-3", … before the file extension until a free path is
// found. Occupancy is decided entirely by exists: a caller moving a file
// makes the file's own current path count as free by returning false for it.
func NextFreePath(candidate string, exists Exists) string {
	if !exists(candidate) {
		return candidate
	}

	ext := path.Ext(candidate)
	base := strings.TrimSuffix(candidate, ext)
	for n := 2; ; n++ {
		attempt := fmt.Sprintf("%s-%d%s", base, n, ext)
		if !exists(attempt) {
			return attempt
		}
	}
}

// Mover is the vault primitive archive transitions need.
type Mover interface {
	Move(oldPath, newPath string) error
	MoveFolder(oldDir, newDir string) error
	EnsureFolder(dir string) error
	Exists(path string) bool
}

// MoveToArchive relocates a project or section note (and, transitively, its
// folder if folderMode is true) into archiveFolder, falling back to
// fallbackFolder when archiveFolder is empty.
func MoveToArchive(m Mover, currentPath, archiveFolder, fallbackFolder string, folderMode bool) (string, error) {
	dest := archiveFolder
	if dest == "" {
		dest = fallbackFolder
	}
	if err := m.EnsureFolder(dest); err != nil {
		return "", fmt.Errorf("archivemover: ensure archive folder %s: %w", dest, err)
	}

	if folderMode {
		oldDir := path.Dir(currentPath)
		newDir := path.Join(dest, path.Base(oldDir))
		newDir = NextFreePath(newDir, func(p string) bool { return m.Exists(p) })
		if err := m.MoveFolder(oldDir, newDir); err != nil {
			return "", fmt.Errorf("archivemover: move folder %s -> %s: %w", oldDir, newDir, err)
		}
		return path.Join(newDir, path.Base(currentPath)), nil
	}

	newPath := path.Join(dest, path.Base(currentPath))
	newPath = NextFreePath(newPath, func(p string) bool { return m.Exists(p) })
	if err := m.Move(currentPath, newPath); err != nil {
		return "", fmt.Errorf("archivemover: move %s -> %s: %w", currentPath, newPath, err)
	}
	return newPath, nil
}

// MoveToActive relocates a note back to its freshly computed active path on
// unarchive. The caller computes the active path from current name/parent
// relationships; this never attempts to restore the pre-archive path, and a
// collision at the computed path is resolved by appending a numeric suffix.
// When folderMode is true, the note's entire containing folder (every task
// file an earlier MoveToArchive carried into the archive tree alongside it)
// is relocated as a unit, symmetric with MoveToArchive's folderMode.
func MoveToActive(m Mover, currentPath, computedActivePath string, folderMode bool) (string, error) {
	if folderMode {
		oldDir := path.Dir(currentPath)
		newDir := path.Dir(computedActivePath)
		if err := m.EnsureFolder(path.Dir(newDir)); err != nil {
			return "", fmt.Errorf("archivemover: ensure active parent folder: %w", err)
		}
		newDir = NextFreePath(newDir, func(p string) bool { return p != oldDir && m.Exists(p) })
		if newDir != oldDir {
			if err := m.MoveFolder(oldDir, newDir); err != nil {
				return "", fmt.Errorf("archivemover: move folder %s -> %s: %w", oldDir, newDir, err)
			}
		}
		return path.Join(newDir, path.Base(currentPath)), nil
	}

	if err := m.EnsureFolder(path.Dir(computedActivePath)); err != nil {
		return "", fmt.Errorf("archivemover: ensure active folder: %w", err)
	}
	newPath := NextFreePath(computedActivePath, func(p string) bool {
		return p != currentPath && m.Exists(p)
	})
	if newPath == currentPath {
		return currentPath, nil
	}
	if err := m.Move(currentPath, newPath); err != nil {
		return "", fmt.Errorf("archivemover: move %s -> %s: %w", currentPath, newPath, err)
	}
	return newPath, nil
}
