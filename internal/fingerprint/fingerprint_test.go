package fingerprint

import (
	"testing"

	"github.com/starford/taskvault/internal/models"
)

func TestSum_Deterministic(t *testing.T) {
	fields := []interface{}{"a", "b", 1, 0}
	a := Sum(fields)
	b := Sum(fields)
	if a != b {
		t.Errorf("Sum not deterministic: %q != %q", a, b)
	}
	if len(a) != 8 {
		t.Errorf("len(Sum) = %d, want 8", len(a))
	}
}

func TestSum_DifferentFieldsDifferentHash(t *testing.T) {
	a := Sum([]interface{}{"a"})
	b := Sum([]interface{}{"b"})
	if a == b {
		t.Errorf("expected different hashes, got %q for both", a)
	}
}

func TestRemoteImport_ChangesOnTitleEdit(t *testing.T) {
	base := &models.TaskNote{Title: "Buy milk", RemoteProjectID: "P1"}
	edited := &models.TaskNote{Title: "Buy oat milk", RemoteProjectID: "P1"}
	if RemoteImport(base) == RemoteImport(edited) {
		t.Error("expected fingerprint to change when title changes")
	}
}

func TestRemoteImport_StableAcrossRuns(t *testing.T) {
	tn := &models.TaskNote{
		Title:           "Call mom",
		RemoteProjectID: "P1",
		Priority:        2,
		Labels:          []string{"home", "urgent"},
	}
	if RemoteImport(tn) != RemoteImport(tn) {
		t.Error("fingerprint must be stable across repeated calls")
	}
}

func TestLocalSync_IgnoresRemoteOnlyFields(t *testing.T) {
	a := &models.TaskNote{Title: "X", Labels: []string{"a"}, Priority: 1}
	b := &models.TaskNote{Title: "X", Labels: []string{"b"}, Priority: 4}
	if LocalSync(a) != LocalSync(b) {
		t.Error("local-sync fingerprint should ignore labels/priority (remote-owned)")
	}
}

func TestRemoteImportFromItem_MatchesTaskNoteProjection(t *testing.T) {
	item := &models.RemoteItem{
		Content:   "Buy milk",
		ProjectID: "P1",
		Priority:  1,
	}
	tn := &models.TaskNote{
		Title:           "Buy milk",
		RemoteProjectID: "P1",
		ProjectName:     "Personal",
		Priority:        1,
	}
	if RemoteImportFromItem(item, "Personal", "") != RemoteImport(tn) {
		t.Error("RemoteImportFromItem should match RemoteImport of the equivalent TaskNote")
	}
}
