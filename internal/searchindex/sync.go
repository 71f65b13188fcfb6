package searchindex

import (
	"log/slog"
	"time"

	"github.com/starford/taskvault/internal/frontmatter"
	"github.com/starford/taskvault/internal/models"
	"github.com/starford/taskvault/internal/storage"
)

// Sync walks the vault and brings the cache up to date: new or changed
// managed files are reprojected and upserted, files removed from disk (or
// that lost their identity fields) are dropped from the cache. It is safe
// to call after every reconciler run, or to skip entirely — the cache never
// feeds back into reconciliation.
func Sync(db *DB, store storage.Provider, names frontmatter.PropNames, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		fm, err := store.Frontmatter(m.Path)
		if err != nil {
			logger.Warn("searchindex: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if !frontmatter.IsManaged(fm, names) {
			if _, indexed := checksums[m.Path]; indexed {
				if err := db.DeleteNote(m.Path); err != nil {
					logger.Warn("searchindex: delete failed", slog.String("path", m.Path), slog.String("error", err.Error()))
				}
			}
			continue
		}
		if err := indexFile(db, m.Path, m.Checksum, fm, names); err != nil {
			logger.Warn("searchindex: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("searchindex: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteNote(p); err != nil {
				logger.Warn("searchindex: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("searchindex: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFile projects a managed note's frontmatter into a NoteRow plus its
// graph edges and upserts both into the cache.
func indexFile(db *DB, path, checksum string, fm models.Frontmatter, names frontmatter.PropNames) error {
	kind := frontmatter.Kind(fm, names)

	row := NoteRow{
		Path:      path,
		Checksum:  checksum,
		UpdatedAt: time.Now(),
	}
	var body string
	var links []GraphLink

	switch kind {
	case models.KindTask:
		row.Kind = "task"
		row.RemoteID = frontmatter.GetIDString(fm, names.RemoteTaskID)
		row.Title = frontmatter.GetString(fm, names.TaskTitle)
		row.Tags = frontmatter.GetStringSlice(fm, names.Labels)
		body = frontmatter.GetString(fm, names.Description)

		if parentPath := frontmatter.GetWikilinkPath(fm, names.ParentTaskLink); parentPath != "" {
			links = append(links, GraphLink{Source: path, Target: parentPath, Type: "parent_child"})
		}
		if projID := frontmatter.GetIDString(fm, names.RemoteProjectID); projID != "" {
			links = append(links, GraphLink{Source: path, Target: projID, Type: "project"})
		}
		if secID := frontmatter.GetIDString(fm, names.RemoteSectionID); secID != "" {
			links = append(links, GraphLink{Source: path, Target: secID, Type: "section"})
		}

	case models.KindProject:
		row.Kind = "project"
		row.RemoteID = frontmatter.GetIDString(fm, names.RemoteProjectID)
		row.Title = frontmatter.GetString(fm, names.ProjectName)
		if parentPath := frontmatter.GetWikilinkPath(fm, names.ParentProjectLink); parentPath != "" {
			links = append(links, GraphLink{Source: path, Target: parentPath, Type: "parent_child"})
		}

	case models.KindSection:
		row.Kind = "section"
		row.RemoteID = frontmatter.GetIDString(fm, names.RemoteSectionID)
		row.Title = frontmatter.GetString(fm, names.SectionName)
		if projID := frontmatter.GetIDString(fm, names.RemoteProjectID); projID != "" {
			links = append(links, GraphLink{Source: path, Target: projID, Type: "project"})
		}

	default:
		return nil
	}

	return db.UpsertNote(row, body, links)
}
