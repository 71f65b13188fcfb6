// Package storage is the vault file-system implementation: the concrete
// reconciler.Store backing every mutation the reconciliation engine makes.
package storage

import "github.com/starford/taskvault/internal/models"

// NoteMetadata is a lightweight listing entry, returned by List.
type NoteMetadata struct {
	Path     string
	Checksum string
}

// Provider is the narrow file-level contract FS satisfies; kept distinct
// from reconciler.Store so callers that only need raw file access (the
// searchindex sync pass) don't have to depend on the reconciler package.
type Provider interface {
	List(dir string) ([]NoteMetadata, error)
	Read(path string) ([]byte, error)
	Write(path string, content []byte) error
	Frontmatter(path string) (models.Frontmatter, error)
}
