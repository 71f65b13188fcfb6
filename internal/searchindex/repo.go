package searchindex

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// NoteRow represents a row in the notes table: one TaskNote, ProjectNote,
// or SectionNote projected for search and listing.
type NoteRow struct {
	Path      string
	RemoteID  string
	Kind      string // "task", "project", "section"
	Title     string
	Checksum  string
	Tags      []string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Title   string
	Snippet string
}

// GraphNode is one vertex in the task/project/section graph.
type GraphNode struct {
	ID    string `json:"id"` // path
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

// GraphLink is one directed edge: parent_child, project, or section.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// UpsertNote inserts or replaces a note, its FTS entry, and outgoing links
// within a transaction.
func (db *DB) UpsertNote(n NoteRow, body string, links []GraphLink) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("searchindex: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(n.Tags)

	_, err = tx.Exec(`
		INSERT INTO notes (path, remote_id, kind, title, checksum, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			remote_id  = excluded.remote_id,
			kind       = excluded.kind,
			title      = excluded.title,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, n.Path, n.RemoteID, n.Kind, n.Title, n.Checksum, string(tagsJSON), body, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("searchindex: upsert note: %w", err)
	}

	if err := ftsUpsert(tx, n.Path, n.Title, body, n.Tags); err != nil {
		return err
	}

	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, n.Path)
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target, type) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("searchindex: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, l := range links {
			if _, err := stmt.Exec(n.Path, l.Target, l.Type); err != nil {
				return fmt.Errorf("searchindex: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note, its FTS entry, and outgoing links.
func (db *DB) DeleteNote(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("searchindex: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ? OR target = ?`, path, path)
	_, _ = tx.Exec(`DELETE FROM notes WHERE path = ?`, path)

	return tx.Commit()
}

// GetNote returns the indexed row for path, or nil if not indexed.
func (db *DB) GetNote(path string) (*NoteRow, error) {
	var n NoteRow
	var tagsJSON string
	err := db.conn.QueryRow(`
		SELECT path, remote_id, kind, title, checksum, tags, updated_at
		FROM notes WHERE path = ?
	`, path).Scan(&n.Path, &n.RemoteID, &n.Kind, &n.Title, &n.Checksum, &tagsJSON, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("searchindex: get note: %w", err)
	}
	_ = json.Unmarshal([]byte(tagsJSON), &n.Tags)
	return &n, nil
}

// ListNotes returns a page of notes, optionally filtered by kind, ordered by
// sort ("updated_at" default, "title", or "path").
func (db *DB) ListNotes(limit, offset int, kind, sort string) ([]NoteRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	orderBy := "updated_at DESC"
	switch sort {
	case "title":
		orderBy = "title ASC"
	case "path":
		orderBy = "path ASC"
	}

	where := ""
	args := []interface{}{}
	if kind != "" {
		where = "WHERE kind = ?"
		args = append(args, kind)
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM notes %s`, where)
	if err := db.conn.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("searchindex: count notes: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT path, remote_id, kind, title, checksum, tags, updated_at
		FROM notes %s ORDER BY %s LIMIT ? OFFSET ?
	`, where, orderBy)
	rows, err := db.conn.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("searchindex: list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		var n NoteRow
		var tagsJSON string
		if err := rows.Scan(&n.Path, &n.RemoteID, &n.Kind, &n.Title, &n.Checksum, &tagsJSON, &n.UpdatedAt); err != nil {
			return nil, 0, err
		}
		_ = json.Unmarshal([]byte(tagsJSON), &n.Tags)
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// Graph returns every note as a node plus every stored link as an edge.
func (db *DB) Graph() ([]GraphNode, []GraphLink, error) {
	rows, err := db.conn.Query(`SELECT path, title, kind FROM notes`)
	if err != nil {
		return nil, nil, fmt.Errorf("searchindex: graph nodes: %w", err)
	}
	var nodes []GraphNode
	for rows.Next() {
		var n GraphNode
		if err := rows.Scan(&n.ID, &n.Label, &n.Kind); err != nil {
			rows.Close()
			return nil, nil, err
		}
		nodes = append(nodes, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	// parent_child links are already stored path-to-path. project/section
	// links are stored source-path-to-target-remote-ID, since the indexer
	// knows a task's project ID before it necessarily knows that project's
	// vault path; resolve those against notes.remote_id here so every edge
	// ends up connecting two GraphNode.ID values. A project/section target
	// with no matching remote_id is an orphan reference and is dropped.
	linkRows, err := db.conn.Query(`
		SELECT source, target, type FROM links WHERE type = 'parent_child'
		UNION ALL
		SELECT links.source, notes.path, links.type
		FROM links
		JOIN notes ON notes.remote_id = links.target AND notes.remote_id != ''
		WHERE links.type IN ('project', 'section')
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("searchindex: graph links: %w", err)
	}
	defer linkRows.Close()
	var links []GraphLink
	for linkRows.Next() {
		var l GraphLink
		if err := linkRows.Scan(&l.Source, &l.Target, &l.Type); err != nil {
			return nil, nil, err
		}
		links = append(links, l)
	}
	return nodes, links, linkRows.Err()
}

// Backlinks returns every note path that links to path. parent_child links
// are stored target-as-path already; project/section links are stored
// target-as-remote-ID, so path's own remote ID (if indexed) is matched too.
func (db *DB) Backlinks(path string) ([]string, error) {
	var remoteID string
	_ = db.conn.QueryRow(`SELECT remote_id FROM notes WHERE path = ?`, path).Scan(&remoteID)

	rows, err := db.conn.Query(
		`SELECT source FROM links WHERE target = ? OR (target = ? AND ? != '')`,
		path, remoteID, remoteID,
	)
	if err != nil {
		return nil, fmt.Errorf("searchindex: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AllPaths returns every indexed note path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("searchindex: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns every indexed path's stored checksum, used by Sync
// to decide which files changed on disk since the last pass.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("searchindex: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
