package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/taskvault/internal/reconciler"
	"github.com/starford/taskvault/internal/scheduler"
	"github.com/starford/taskvault/internal/searchindex"
	"github.com/starford/taskvault/internal/testutil"
)

func newScheduler(runFn scheduler.RunFunc) *scheduler.Scheduler {
	return scheduler.New(runFn, testutil.DiscardLogger())
}

func TestTriggerSyncAccepted(t *testing.T) {
	db := testutil.TestDB(t)
	var calls int
	sched := newScheduler(func(ctx context.Context) (reconciler.Summary, error) {
		calls++
		return reconciler.Summary{Created: 1}, nil
	})
	router := NewRouter(NewService(sched, db), false, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	// Wait for the background run to land.
	for i := 0; i < 20 && calls == 0; i++ {
		time.Sleep(5 * time.Millisecond)
	}
	if calls == 0 {
		t.Fatal("expected the scheduler to run")
	}
}

func TestTriggerSyncConflictWhenRunning(t *testing.T) {
	db := testutil.TestDB(t)
	block := make(chan struct{})
	sched := newScheduler(func(ctx context.Context) (reconciler.Summary, error) {
		<-block
		return reconciler.Summary{}, nil
	})
	router := NewRouter(NewService(sched, db), false, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("first trigger = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/sync", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("second trigger while running = %d, want 409", w.Code)
	}
	close(block)
}

func TestLastSyncReportsErrorAndSummary(t *testing.T) {
	db := testutil.TestDB(t)
	sched := newScheduler(func(ctx context.Context) (reconciler.Summary, error) {
		return reconciler.Summary{}, errors.New("snapshot fetch failed")
	})
	router := NewRouter(NewService(sched, db), false, "", nil)

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("trigger = %d", w.Code)
	}

	var status SyncStatus
	for i := 0; i < 40; i++ {
		req = httptest.NewRequest(http.MethodGet, "/sync/last", nil)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		_ = json.Unmarshal(w.Body.Bytes(), &status)
		if status.Error != "" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if status.Error != "snapshot fetch failed" {
		t.Errorf("error = %q, want %q", status.Error, "snapshot fetch failed")
	}
}

func TestSearchEndpoint(t *testing.T) {
	db := testutil.TestDB(t)
	if err := db.UpsertNote(searchindex.NoteRow{Path: "Tasks/find.md", Kind: "task", Title: "Buy uniquetoken milk"}, "body", nil); err != nil {
		t.Fatal(err)
	}
	sched := newScheduler(func(ctx context.Context) (reconciler.Summary, error) { return reconciler.Summary{}, nil })
	router := NewRouter(NewService(sched, db), false, "", nil)

	req := httptest.NewRequest(http.MethodGet, "/search?q=uniquetoken", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	results := resp["results"].([]any)
	if len(results) != 1 {
		t.Errorf("search results = %d, want 1", len(results))
	}
}

func TestSearchMissingQuery(t *testing.T) {
	db := testutil.TestDB(t)
	sched := newScheduler(func(ctx context.Context) (reconciler.Summary, error) { return reconciler.Summary{}, nil })
	router := NewRouter(NewService(sched, db), false, "", nil)

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestGraphEndpoint(t *testing.T) {
	db := testutil.TestDB(t)
	if err := db.UpsertNote(searchindex.NoteRow{Path: "Tasks/a.md", Kind: "task", Title: "A"}, "", []searchindex.GraphLink{{Source: "Tasks/a.md", Target: "Tasks/b.md", Type: "parent_child"}}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertNote(searchindex.NoteRow{Path: "Tasks/b.md", Kind: "task", Title: "B"}, "", nil); err != nil {
		t.Fatal(err)
	}
	sched := newScheduler(func(ctx context.Context) (reconciler.Summary, error) { return reconciler.Summary{}, nil })
	router := NewRouter(NewService(sched, db), false, "", nil)

	req := httptest.NewRequest(http.MethodGet, "/graph", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("graph = %d", w.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	nodes := resp["nodes"].([]any)
	links := resp["links"].([]any)
	if len(nodes) < 2 {
		t.Errorf("nodes = %d, want >= 2", len(nodes))
	}
	if len(links) < 1 {
		t.Errorf("links = %d, want >= 1", len(links))
	}
}

func TestListNotes(t *testing.T) {
	db := testutil.TestDB(t)
	for _, name := range []string{"a.md", "b.md"} {
		if err := db.UpsertNote(searchindex.NoteRow{Path: "Tasks/" + name, Kind: "task", Title: name}, "", nil); err != nil {
			t.Fatal(err)
		}
	}
	sched := newScheduler(func(ctx context.Context) (reconciler.Summary, error) { return reconciler.Summary{}, nil })
	router := NewRouter(NewService(sched, db), false, "", nil)

	req := httptest.NewRequest(http.MethodGet, "/notes?limit=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	notes := resp["notes"].([]any)
	if len(notes) != 2 {
		t.Errorf("len(notes) = %d, want 2", len(notes))
	}
}

func TestGetNote_NotFound(t *testing.T) {
	db := testutil.TestDB(t)
	sched := newScheduler(func(ctx context.Context) (reconciler.Summary, error) { return reconciler.Summary{}, nil })
	router := NewRouter(NewService(sched, db), false, "", nil)

	req := httptest.NewRequest(http.MethodGet, "/notes/nope.md", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing note = %d, want 404", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	db := testutil.TestDB(t)
	sched := newScheduler(func(ctx context.Context) (reconciler.Summary, error) { return reconciler.Summary{}, nil })
	router := NewRouter(NewService(sched, db), true, "secret123", nil)

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Errorf("authed trigger = %d, want 202", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	db := testutil.TestDB(t)
	sched := newScheduler(func(ctx context.Context) (reconciler.Summary, error) { return reconciler.Summary{}, nil })
	router := NewRouter(NewService(sched, db), true, "secret123", nil)

	req := httptest.NewRequest(http.MethodGet, "/sync/last", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	db := testutil.TestDB(t)
	sched := newScheduler(func(ctx context.Context) (reconciler.Summary, error) { return reconciler.Summary{}, nil })
	router := NewRouter(NewService(sched, db), true, "secret123", nil)

	req := httptest.NewRequest(http.MethodGet, "/sync/last", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	db := testutil.TestDB(t)
	sched := newScheduler(func(ctx context.Context) (reconciler.Summary, error) { return reconciler.Summary{}, nil })
	router := NewRouter(NewService(sched, db), false, "", nil)

	req := httptest.NewRequest(http.MethodGet, "/sync/last", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

func TestSSEEventsMounted(t *testing.T) {
	db := testutil.TestDB(t)
	sched := newScheduler(func(ctx context.Context) (reconciler.Summary, error) { return reconciler.Summary{}, nil })
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
	})
	router := NewRouter(NewService(sched, db), false, "", sseHandler)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("events = %d, want 200", w.Code)
	}
}
