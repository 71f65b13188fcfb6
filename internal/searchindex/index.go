// Package searchindex maintains a derived, rebuildable SQLite cache of the
// vault's TaskNote/ProjectNote/SectionNote frontmatter for full-text search
// and graph visualization. It is never the source of sync truth: the vault
// files are. Losing or deleting the cache file only degrades search latency;
// the next Sync rebuilds it from disk.
package searchindex

// Index defines the operations consumers need from the cache. Consumers
// should depend on this interface rather than the concrete *DB type to
// facilitate testing with fakes.
type Index interface {
	UpsertNote(n NoteRow, body string, links []GraphLink) error
	DeleteNote(path string) error
	GetNote(path string) (*NoteRow, error)
	ListNotes(limit, offset int, kind, sort string) ([]NoteRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Graph() ([]GraphNode, []GraphLink, error)
	Backlinks(path string) ([]string, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

var _ Index = (*DB)(nil)
