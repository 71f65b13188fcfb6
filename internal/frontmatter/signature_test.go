package frontmatter

import (
	"strings"
	"testing"
)

func TestRepairSignatures_LeavesValidSignatureUntouched(t *testing.T) {
	data := []byte("---\nlast_imported_fingerprint: a1b2c3d4\ntask_title: Buy milk\n---\nbody\n")
	out, changed := RepairSignatures(data, []string{"last_imported_fingerprint", "last_synced_fingerprint"})
	if changed {
		t.Error("expected no change for a valid unquoted signature")
	}
	if string(out) != string(data) {
		t.Errorf("output should be untouched:\n%s", out)
	}
}

func TestRepairSignatures_AcceptsQuotedAndEmptyForms(t *testing.T) {
	for _, line := range []string{
		`last_imported_fingerprint: "a1b2c3d4"`,
		`last_imported_fingerprint: 'a1b2c3d4'`,
		`last_imported_fingerprint: ""`,
		`last_imported_fingerprint: ''`,
		`last_imported_fingerprint:`,
	} {
		data := []byte("---\n" + line + "\n---\nbody\n")
		_, changed := RepairSignatures(data, []string{"last_imported_fingerprint"})
		if changed {
			t.Errorf("line %q should be accepted as valid, got repaired", line)
		}
	}
}

func TestRepairSignatures_RewritesCorruptedLine(t *testing.T) {
	data := []byte("---\nlast_imported_fingerprint: garbled!!not-hex\ntask_title: Keep me\n---\nbody\n")
	out, changed := RepairSignatures(data, []string{"last_imported_fingerprint"})
	if !changed {
		t.Fatal("expected corrupted signature line to be repaired")
	}
	s := string(out)
	if !strings.Contains(s, `last_imported_fingerprint: ""`) {
		t.Errorf("expected repaired line, got:\n%s", s)
	}
	if !strings.Contains(s, "task_title: Keep me") {
		t.Errorf("unrelated field should be untouched:\n%s", s)
	}
}

func TestRepairSignatures_NoFrontmatterBlockIsNoop(t *testing.T) {
	data := []byte("no frontmatter here\n")
	out, changed := RepairSignatures(data, []string{"last_imported_fingerprint"})
	if changed {
		t.Error("expected no-op when there is no frontmatter block")
	}
	if string(out) != string(data) {
		t.Error("data should be returned unchanged")
	}
}

func TestRepairSignatures_MultipleKeysIndependentlyChecked(t *testing.T) {
	data := []byte("---\nlast_imported_fingerprint: deadbeef\nlast_synced_fingerprint: not-valid-hex\n---\nbody\n")
	out, changed := RepairSignatures(data, []string{"last_imported_fingerprint", "last_synced_fingerprint"})
	if !changed {
		t.Fatal("expected a repair")
	}
	s := string(out)
	if !strings.Contains(s, "last_imported_fingerprint: deadbeef") {
		t.Errorf("valid signature should be preserved:\n%s", s)
	}
	if !strings.Contains(s, `last_synced_fingerprint: ""`) {
		t.Errorf("invalid signature should be repaired:\n%s", s)
	}
}
