// Package pathpolicy computes deterministic vault folder segments and file
// names for tasks, project notes, and section notes. Every function here is
// pure and side-effect free: callers pass in whatever state (name maps,
// existing-path sets) is needed and get back a path decision, never
// performing I/O themselves.
package pathpolicy

import (
	"regexp"
	"sort"
	"strings"
)

const maxSegmentLength = 80

var reservedChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
var collapseSpace = regexp.MustCompile(`\s+`)

// Sanitize strips path-reserved characters, collapses whitespace, trims,
// and truncates to maxSegmentLength display characters.
func Sanitize(name string) string {
	s := reservedChars.ReplaceAllString(name, " ")
	s = collapseSpace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, ".")
	if s == "" {
		s = "untitled"
	}
	runes := []rune(s)
	if len(runes) > maxSegmentLength {
		s = strings.TrimSpace(string(runes[:maxSegmentLength]))
	}
	return s
}

// ProjectFolderSegments walks from the root through parents to projectID,
// producing one sanitized segment per level. If a cycle is encountered the
// first revisited node is treated as the root for that chain; callers are
// expected to log a warning when cycled is true.
func ProjectFolderSegments(projectID string, namesByID, parentByID map[string]string) (segments []string, cycled bool) {
	chain := []string{}
	seen := map[string]bool{}
	cur := projectID
	for cur != "" {
		if seen[cur] {
			cycled = true
			break
		}
		seen[cur] = true
		chain = append(chain, cur)
		cur = parentByID[cur]
	}

	// chain is child-to-root; reverse to root-to-child.
	for i := len(chain) - 1; i >= 0; i-- {
		id := chain[i]
		name := namesByID[id]
		if name == "" {
			name = id
		}
		segments = append(segments, Sanitize(name))
	}
	return segments, cycled
}

// DisambiguatedProjectFolderSegments is ProjectFolderSegments with every
// level of the chain resolved through DisambiguatedProjectSegment, so two
// distinct projects that sanitize to the same name never resolve to the
// same folder. order is the deterministic "first seen" ordering passed
// through to DisambiguatedProjectSegment at every level.
func DisambiguatedProjectFolderSegments(projectID string, namesByID, parentByID map[string]string, order []string) (segments []string, cycled bool) {
	chain := []string{}
	seen := map[string]bool{}
	cur := projectID
	for cur != "" {
		if seen[cur] {
			cycled = true
			break
		}
		seen[cur] = true
		chain = append(chain, cur)
		cur = parentByID[cur]
	}

	for i := len(chain) - 1; i >= 0; i-- {
		id := chain[i]
		segments = append(segments, DisambiguatedProjectSegment(id, namesByID[id], namesByID, order))
	}
	return segments, cycled
}

// shortSuffix derives a short, deterministic disambiguation suffix from an ID.
func shortSuffix(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}

// DisambiguatedProjectSegment returns the folder segment for projectID,
// appending a short ID-derived suffix if other projects share the same
// sanitized name. names/ordering is the topologically ordered project ID
// list used to determine "first seen".
func DisambiguatedProjectSegment(projectID, name string, namesByID map[string]string, order []string) string {
	sanitized := Sanitize(name)
	firstWithName := ""
	for _, id := range order {
		if Sanitize(namesByID[id]) == sanitized {
			firstWithName = id
			break
		}
	}
	if firstWithName == "" || firstWithName == projectID {
		return sanitized
	}
	return sanitized + "-" + shortSuffix(projectID)
}

// DisambiguatedSectionSegment returns the folder segment for sectionID,
// scoped per owning project: sections in different projects never collide,
// even if they share a name. sectionOrder must be ordered deterministically
// (e.g. by ID) so "first seen" is stable across runs.
func DisambiguatedSectionSegment(sectionID, name, projectID string, namesByID map[string]string, projectBySection map[string]string, sectionOrder []string) string {
	sanitized := Sanitize(name)
	firstWithName := ""
	for _, id := range sectionOrder {
		if projectBySection[id] != projectID {
			continue
		}
		if Sanitize(namesByID[id]) == sanitized {
			firstWithName = id
			break
		}
	}
	if firstWithName == "" || firstWithName == sectionID {
		return sanitized
	}
	return sanitized + "-" + shortSuffix(sectionID)
}

// TaskFileConfig carries the base folder and feature flags needed to compute
// a task's target path.
type TaskFileConfig struct {
	BaseFolder           string
	UseProjectSubfolders bool
	UseSectionSubfolder  bool
}

// TaskFilePath computes base + optional project segments + optional section
// segment + sanitized title. exists reports whether a candidate path is
// already occupied by a different file; on collision the remote task ID is
// appended to disambiguate.
func TaskFilePath(remoteTaskID, title string, projectSegments []string, sectionSegment string, cfg TaskFileConfig, exists func(string) bool) string {
	parts := []string{cfg.BaseFolder}
	if cfg.UseProjectSubfolders {
		parts = append(parts, projectSegments...)
	}
	if cfg.UseSectionSubfolder && sectionSegment != "" {
		parts = append(parts, sectionSegment)
	}

	base := Sanitize(title)
	candidate := joinPath(append(append([]string{}, parts...), base+".md"))
	if exists == nil || !exists(candidate) {
		return candidate
	}
	disambiguated := joinPath(append(append([]string{}, parts...), base+"-"+remoteTaskID+".md"))
	return disambiguated
}

func joinPath(segments []string) string {
	nonEmpty := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return strings.Join(nonEmpty, "/")
}

// TopologicalOrder returns project IDs ordered so parents precede children.
// Cycles break arbitrarily but deterministically (by iterating remaining IDs
// in sorted order and detaching the first one still blocked).
func TopologicalOrder(projectIDs []string, parentByID map[string]string) []string {
	remaining := make(map[string]bool, len(projectIDs))
	for _, id := range projectIDs {
		remaining[id] = true
	}

	placed := map[string]bool{}
	var order []string

	sortedIDs := append([]string{}, projectIDs...)
	sort.Strings(sortedIDs)

	for len(remaining) > 0 {
		progressed := false
		for _, id := range sortedIDs {
			if !remaining[id] {
				continue
			}
			parent := parentByID[id]
			if parent == "" || placed[parent] || !remaining[parent] {
				order = append(order, id)
				placed[id] = true
				delete(remaining, id)
				progressed = true
			}
		}
		if !progressed {
			// Cycle among all remaining IDs: break deterministically by
			// placing the lexicographically smallest remaining ID.
			var stillRemaining []string
			for id := range remaining {
				stillRemaining = append(stillRemaining, id)
			}
			sort.Strings(stillRemaining)
			id := stillRemaining[0]
			order = append(order, id)
			placed[id] = true
			delete(remaining, id)
		}
	}
	return order
}
