package todoistclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/taskvault/internal/models"
)

func TestFetchSnapshotAssemblesProjectsSectionsTasks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok123" {
			t.Errorf("Authorization = %q", auth)
		}
		switch r.URL.Path {
		case "/projects":
			json.NewEncoder(w).Encode([]map[string]any{
				{"id": "p1", "name": "Personal", "parent_id": "", "color": "charcoal", "is_archived": false},
			})
		case "/sections":
			json.NewEncoder(w).Encode([]map[string]any{
				{"id": "s1", "name": "Groceries", "project_id": "p1", "is_archived": false},
			})
		case "/tasks":
			json.NewEncoder(w).Encode([]map[string]any{
				{
					"id": "t1", "content": "Buy milk", "description": "", "is_completed": false,
					"project_id": "p1", "section_id": "s1", "parent_id": "", "priority": 1,
					"due": map[string]any{"date": "2026-03-09", "string": "next sunday", "is_recurring": false},
					"labels": []string{"home"},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New("tok123", srv.URL, 0)
	snap, err := c.FetchSnapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Projects) != 1 || snap.Projects[0].ID != "p1" {
		t.Errorf("projects = %+v", snap.Projects)
	}
	if len(snap.Sections) != 1 || snap.Sections[0].ProjectID != "p1" {
		t.Errorf("sections = %+v", snap.Sections)
	}
	if len(snap.Items) != 1 || snap.Items[0].Due.String != "next sunday" {
		t.Errorf("items = %+v", snap.Items)
	}
	if snap.SyncToken == "" {
		t.Error("expected a non-empty sync token")
	}
}

func TestFetchSnapshotPropagatesErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid token"}`))
	}))
	defer srv.Close()

	c := New("bad", srv.URL, 0)
	if _, err := c.FetchSnapshot(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
}

func TestFetchRecentlyDeletedIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/activity" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "5" {
			t.Errorf("limit = %s", r.URL.Query().Get("limit"))
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"object_id": "t1", "event_type": "deleted"},
			{"object_id": "t2", "event_type": "deleted"},
			{"object_id": "", "event_type": "deleted"},
		})
	}))
	defer srv.Close()

	c := New("tok", srv.URL, 0)
	ids, err := c.FetchRecentlyDeletedIDs(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Errorf("ids = %v, want 2 entries", ids)
	}
	if _, ok := ids["t1"]; !ok {
		t.Error("expected t1 in deleted set")
	}
}

func TestCreateTaskReturnsRemoteID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tasks" {
			t.Fatalf("method/path = %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["content"] != "Buy milk" {
			t.Errorf("content = %v", body["content"])
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "t99"})
	}))
	defer srv.Close()

	c := New("tok", srv.URL, 0)
	id, err := c.CreateTask(context.Background(), models.CreateTaskPayload{Content: "Buy milk"})
	if err != nil {
		t.Fatal(err)
	}
	if id != "t99" {
		t.Errorf("id = %q, want t99", id)
	}
}

func TestUpdateTaskClosesAndPatchesFields(t *testing.T) {
	var gotClose, gotPatch bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tasks/t1/close":
			gotClose = true
		case "/tasks/t1":
			gotPatch = true
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			if body["content"] != "Buy oat milk" {
				t.Errorf("content = %v", body["content"])
			}
			if _, ok := body["description"]; !ok {
				t.Error("expected description field present (cleared) in patch body")
			}
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New("tok", srv.URL, 0)
	done := true
	err := c.UpdateTask(context.Background(), models.UpdateTaskPatch{
		TaskID:      "t1",
		IsDone:      &done,
		Content:     models.FieldClear{Provided: true, Value: "Buy oat milk"},
		Description: models.FieldClear{Provided: true, Cleared: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !gotClose {
		t.Error("expected a close call")
	}
	if !gotPatch {
		t.Error("expected a patch call")
	}
}

func TestUpdateTaskNoFieldsSkipsPatchCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := New("tok", srv.URL, 0)
	if err := c.UpdateTask(context.Background(), models.UpdateTaskPatch{TaskID: "t1"}); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("expected no HTTP call when the patch is empty")
	}
}
