// Package fingerprint computes stable, advisory content hashes over a
// canonical field projection of a TaskNote. Two variants exist: the
// remote-import fingerprint (fields the remote owns) and the local-sync
// fingerprint (fields the local side pushes). Equality of hashes is taken
// as "no change"; a mismatch forces a full reconcile of the record.
package fingerprint

import (
	"encoding/json"
	"hash/fnv"

	"github.com/starford/taskvault/internal/models"
)

// Sum returns the 8-hex-digit lowercase FNV-1a hash of the UTF-8 encoding of
// the canonical JSON array of fields, in the order given.
func Sum(fields []interface{}) string {
	// json.Marshal on a []interface{} produces a stable array encoding for
	// the primitive types (string, bool, number) fingerprints are built
	// from; there is no map involved so key ordering never enters into it.
	data, err := json.Marshal(fields)
	if err != nil {
		// Fields are always primitives assembled by this package; a marshal
		// failure here would be a programming error, not a runtime one.
		data = []byte("[]")
	}

	h := fnv.New32a()
	_, _ = h.Write(data)
	return hex8(h.Sum32())
}

func hex8(v uint32) string {
	const digits = "0123456789abcdef"
	buf := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf)
}

func boolField(b bool) int {
	if b {
		return 1
	}
	return 0
}

func joinLabels(labels []string) string {
	out := ""
	for i, l := range labels {
		if i > 0 {
			out += "|"
		}
		out += l
	}
	return out
}

// RemoteImport computes the remote-import fingerprint: title, description,
// checked, project-id, project-name, section-id, section-name, priority,
// due date, due string, is-recurring, parent-task-id, labels, deadline.
func RemoteImport(t *models.TaskNote) string {
	fields := []interface{}{
		t.Title,
		t.Description,
		boolField(t.Status == models.TaskDone),
		t.RemoteProjectID,
		t.ProjectName,
		t.RemoteSectionID,
		t.SectionName,
		t.Priority,
		t.Due.Date,
		t.Due.String,
		boolField(t.Due.IsRecurring),
		t.ParentTaskID,
		joinLabels(t.Labels),
		t.Deadline,
	}
	return Sum(fields)
}

// RemoteImportFromItem computes the same fingerprint directly from a
// RemoteItem plus resolved project/section names, for use before a TaskNote
// exists locally (the create path).
func RemoteImportFromItem(item *models.RemoteItem, projectName, sectionName string) string {
	fields := []interface{}{
		item.Content,
		item.Description,
		boolField(item.Checked),
		item.ProjectID,
		projectName,
		item.SectionID,
		sectionName,
		item.Priority,
		item.Due.Date,
		item.Due.String,
		boolField(item.Due.IsRecurring),
		item.ParentID,
		joinLabels(item.Labels),
		item.DeadlineDate,
	}
	return Sum(fields)
}

// LocalSync computes the local-sync fingerprint: title, description,
// is-done, is-recurring, project-id, section-id, due date, due string.
func LocalSync(t *models.TaskNote) string {
	fields := []interface{}{
		t.Title,
		t.Description,
		boolField(t.Status == models.TaskDone),
		boolField(t.Due.IsRecurring),
		t.RemoteProjectID,
		t.RemoteSectionID,
		t.Due.Date,
		t.Due.String,
	}
	return Sum(fields)
}
