package pathpolicy

import "testing"

func TestSanitize_StripsReservedChars(t *testing.T) {
	got := Sanitize(`a/b:c*d?e"f<g>h|i`)
	if got == "" {
		t.Fatal("expected non-empty result")
	}
	for _, c := range []string{"/", ":", "*", "?", `"`, "<", ">", "|"} {
		if contains(got, c) {
			t.Errorf("sanitized name %q still contains %q", got, c)
		}
	}
}

func TestSanitize_TruncatesTo80(t *testing.T) {
	long := ""
	for i := 0; i < 200; i++ {
		long += "x"
	}
	got := Sanitize(long)
	if len([]rune(got)) > 80 {
		t.Errorf("len = %d, want <= 80", len([]rune(got)))
	}
}

func TestSanitize_EmptyFallsBackToUntitled(t *testing.T) {
	if Sanitize("   ") != "untitled" {
		t.Errorf("expected 'untitled' fallback, got %q", Sanitize("   "))
	}
}

func TestProjectFolderSegments_NoParent(t *testing.T) {
	names := map[string]string{"P1": "Personal"}
	parents := map[string]string{}
	segs, cycled := ProjectFolderSegments("P1", names, parents)
	if cycled {
		t.Fatal("did not expect a cycle")
	}
	if len(segs) != 1 || segs[0] != "Personal" {
		t.Errorf("segs = %v, want [Personal]", segs)
	}
}

func TestProjectFolderSegments_NestedChain(t *testing.T) {
	names := map[string]string{"P1": "Work", "P2": "Team", "P3": "Sprint"}
	parents := map[string]string{"P3": "P2", "P2": "P1"}
	segs, cycled := ProjectFolderSegments("P3", names, parents)
	if cycled {
		t.Fatal("did not expect a cycle")
	}
	want := []string{"Work", "Team", "Sprint"}
	if len(segs) != len(want) {
		t.Fatalf("segs = %v, want %v", segs, want)
	}
	for i := range want {
		if segs[i] != want[i] {
			t.Errorf("segs[%d] = %q, want %q", i, segs[i], want[i])
		}
	}
}

func TestProjectFolderSegments_CycleIsFinite(t *testing.T) {
	names := map[string]string{"A": "A", "B": "B"}
	parents := map[string]string{"A": "B", "B": "A"}
	segs, cycled := ProjectFolderSegments("A", names, parents)
	if !cycled {
		t.Error("expected cycle to be detected")
	}
	if len(segs) == 0 {
		t.Error("expected a finite non-empty segment list even with a cycle")
	}
}

func TestDisambiguatedProjectSegment_FirstSeenNoSuffix(t *testing.T) {
	names := map[string]string{"P1": "Inbox", "P2": "Inbox"}
	order := []string{"P1", "P2"}
	if got := DisambiguatedProjectSegment("P1", "Inbox", names, order); got != "Inbox" {
		t.Errorf("first seen = %q, want Inbox", got)
	}
	got := DisambiguatedProjectSegment("P2", "Inbox", names, order)
	if got == "Inbox" {
		t.Errorf("second occurrence should be disambiguated, got %q", got)
	}
}

func TestDisambiguatedProjectFolderSegments_SiblingsWithSameNameDontCollide(t *testing.T) {
	names := map[string]string{"P1": "Work", "P2": "Work"}
	parents := map[string]string{}
	order := []string{"P1", "P2"}

	segs1, cycled := DisambiguatedProjectFolderSegments("P1", names, parents, order)
	if cycled {
		t.Fatal("did not expect a cycle")
	}
	segs2, cycled := DisambiguatedProjectFolderSegments("P2", names, parents, order)
	if cycled {
		t.Fatal("did not expect a cycle")
	}
	if len(segs1) != 1 || len(segs2) != 1 {
		t.Fatalf("segs1 = %v, segs2 = %v, want single-segment chains", segs1, segs2)
	}
	if segs1[0] == segs2[0] {
		t.Errorf("two distinct projects named %q both resolved to folder %q", "Work", segs1[0])
	}
}

func TestDisambiguatedProjectFolderSegments_NestedChainDisambiguatesEveryLevel(t *testing.T) {
	names := map[string]string{"P1": "Work", "P2": "Work", "C1": "Sprint", "C2": "Work"}
	parents := map[string]string{"C1": "P1", "C2": "P2"}
	order := []string{"P1", "P2", "C1", "C2"}

	segs, cycled := DisambiguatedProjectFolderSegments("C2", names, parents, order)
	if cycled {
		t.Fatal("did not expect a cycle")
	}
	if len(segs) != 2 {
		t.Fatalf("segs = %v, want 2 levels", segs)
	}
	if segs[0] == "Work" {
		t.Errorf("parent segment %q should be disambiguated against P1's Work", segs[0])
	}
}

func TestTopologicalOrder_ParentsBeforeChildren(t *testing.T) {
	ids := []string{"C", "A", "B"}
	parents := map[string]string{"B": "A", "C": "B"}
	order := TopologicalOrder(ids, parents)
	pos := map[string]int{}
	for i, id := range order {
		pos[id] = i
	}
	if pos["A"] > pos["B"] || pos["B"] > pos["C"] {
		t.Errorf("order = %v, want A before B before C", order)
	}
}

func TestTopologicalOrder_CycleTerminates(t *testing.T) {
	ids := []string{"A", "B"}
	parents := map[string]string{"A": "B", "B": "A"}
	order := TopologicalOrder(ids, parents)
	if len(order) != 2 {
		t.Fatalf("len(order) = %d, want 2", len(order))
	}
}

func TestTaskFilePath_CollisionAppendsID(t *testing.T) {
	cfg := TaskFileConfig{BaseFolder: "Tasks"}
	occupied := map[string]bool{"Tasks/Buy milk.md": true}
	got := TaskFilePath("A1", "Buy milk", nil, "", cfg, func(p string) bool { return occupied[p] })
	if got != "Tasks/Buy milk-A1.md" {
		t.Errorf("got %q, want collision-suffixed path", got)
	}
}

func TestTaskFilePath_NoCollision(t *testing.T) {
	cfg := TaskFileConfig{BaseFolder: "Tasks"}
	got := TaskFilePath("A1", "Buy milk", nil, "", cfg, func(string) bool { return false })
	if got != "Tasks/Buy milk.md" {
		t.Errorf("got %q, want Tasks/Buy milk.md", got)
	}
}

func TestTaskFilePath_WithProjectAndSectionSubfolders(t *testing.T) {
	cfg := TaskFileConfig{BaseFolder: "Tasks", UseProjectSubfolders: true, UseSectionSubfolder: true}
	got := TaskFilePath("A1", "Buy milk", []string{"Personal"}, "Errands", cfg, func(string) bool { return false })
	if got != "Tasks/Personal/Errands/Buy milk.md" {
		t.Errorf("got %q", got)
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
