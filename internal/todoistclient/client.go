// Package todoistclient is a minimal net/http REST v2 client for the
// Todoist task service. It is the one concrete implementation of
// remote.Client this repository ships; the reconciler itself only ever
// depends on the narrow remote.Client interface.
package todoistclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/starford/taskvault/internal/models"
)

// Client is a thin REST v2 client for the subset of the Todoist API the
// reconciler needs: snapshot fetch, recently-deleted lookup, task create
// and update.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// New builds a Client. baseURL defaults to the public REST v2 endpoint when
// empty; timeout defaults to 30s when zero.
func New(token, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.todoist.com/rest/v2"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		token:   token,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type itemDTO struct {
	ID             string   `json:"id"`
	Content        string   `json:"content"`
	Description    string   `json:"description"`
	IsCompleted    bool     `json:"is_completed"`
	ProjectID      string   `json:"project_id"`
	SectionID      string   `json:"section_id"`
	ParentID       string   `json:"parent_id"`
	Priority       int      `json:"priority"`
	Due            *dueDTO  `json:"due"`
	Deadline       *dateDTO `json:"deadline"`
	Labels         []string `json:"labels"`
	ResponsibleUID string   `json:"responsible_uid"`
}

type dueDTO struct {
	Date        string `json:"date"`
	String      string `json:"string"`
	IsRecurring bool   `json:"is_recurring"`
}

type dateDTO struct {
	Date string `json:"date"`
}

type projectDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ParentID   string `json:"parent_id"`
	Color      string `json:"color"`
	IsArchived bool   `json:"is_archived"`
}

type sectionDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ProjectID  string `json:"project_id"`
	IsArchived bool   `json:"is_archived"`
}

// FetchSnapshot fetches active projects, sections, and all non-deleted
// items. Todoist's REST v2 does not expose a single combined snapshot
// endpoint, so this issues three calls and assembles them; the sync token
// is a best-effort timestamp since REST v2 has no incremental sync cursor
// (that lives only in the Sync API, which this minimal client does not use).
func (c *Client) FetchSnapshot(ctx context.Context) (models.RemoteSnapshot, error) {
	var projects []projectDTO
	if err := c.get(ctx, "/projects", &projects); err != nil {
		return models.RemoteSnapshot{}, fmt.Errorf("todoistclient: fetch projects: %w", err)
	}
	var sections []sectionDTO
	if err := c.get(ctx, "/sections", &sections); err != nil {
		return models.RemoteSnapshot{}, fmt.Errorf("todoistclient: fetch sections: %w", err)
	}
	var items []itemDTO
	if err := c.get(ctx, "/tasks", &items); err != nil {
		return models.RemoteSnapshot{}, fmt.Errorf("todoistclient: fetch tasks: %w", err)
	}

	snap := models.RemoteSnapshot{
		SyncToken: strconv.FormatInt(time.Now().UnixNano(), 10),
	}
	for _, p := range projects {
		snap.Projects = append(snap.Projects, models.RemoteProject{
			ID: p.ID, Name: p.Name, ParentID: p.ParentID, Color: p.Color, IsArchived: p.IsArchived,
		})
	}
	for _, s := range sections {
		snap.Sections = append(snap.Sections, models.RemoteSection{
			ID: s.ID, Name: s.Name, ProjectID: s.ProjectID, IsArchived: s.IsArchived,
		})
	}
	for _, it := range items {
		ri := models.RemoteItem{
			ID: it.ID, Content: it.Content, Description: it.Description,
			Checked: it.IsCompleted, ProjectID: it.ProjectID, SectionID: it.SectionID,
			ParentID: it.ParentID, Priority: it.Priority, Labels: it.Labels,
			ResponsibleUID: it.ResponsibleUID,
		}
		if it.Due != nil {
			ri.Due = models.Due{Date: it.Due.Date, String: it.Due.String, IsRecurring: it.Due.IsRecurring}
		}
		if it.Deadline != nil {
			ri.DeadlineDate = it.Deadline.Date
		}
		snap.Items = append(snap.Items, ri)
	}
	return snap, nil
}

// FetchRecentlyDeletedIDs queries the activity log for the most recent
// "deleted" events on items, bounded by limit.
func (c *Client) FetchRecentlyDeletedIDs(ctx context.Context, limit int) (map[string]struct{}, error) {
	if limit <= 0 {
		limit = 1
	}
	var events []struct {
		ObjectID  string `json:"object_id"`
		EventType string `json:"event_type"`
	}
	path := fmt.Sprintf("/activity?event_type=deleted&object_type=item&limit=%d", limit)
	if err := c.get(ctx, path, &events); err != nil {
		return nil, fmt.Errorf("todoistclient: fetch recently deleted: %w", err)
	}
	ids := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e.ObjectID != "" {
			ids[e.ObjectID] = struct{}{}
		}
	}
	return ids, nil
}

// CreateTask posts a new task and returns its remote ID.
func (c *Client) CreateTask(ctx context.Context, payload models.CreateTaskPayload) (string, error) {
	body := map[string]interface{}{
		"content": payload.Content,
	}
	if payload.Description != "" {
		body["description"] = payload.Description
	}
	if payload.ProjectID != "" {
		body["project_id"] = payload.ProjectID
	}
	if payload.SectionID != "" {
		body["section_id"] = payload.SectionID
	}
	if payload.Priority != 0 {
		body["priority"] = payload.Priority
	}
	if payload.DueString != "" {
		body["due_string"] = payload.DueString
	}
	if len(payload.Labels) > 0 {
		body["labels"] = payload.Labels
	}
	if payload.ParentID != "" {
		body["parent_id"] = payload.ParentID
	}

	var created itemDTO
	if err := c.post(ctx, "/tasks", body, &created); err != nil {
		return "", fmt.Errorf("todoistclient: create task: %w", err)
	}
	return created.ID, nil
}

// UpdateTask applies a partial patch, honoring FieldClear's distinction
// between "not provided" (field omitted from the body) and "provided but
// cleared" (field sent as an empty string).
func (c *Client) UpdateTask(ctx context.Context, patch models.UpdateTaskPatch) error {
	if patch.IsDone != nil {
		if *patch.IsDone {
			if err := c.postNoBody(ctx, fmt.Sprintf("/tasks/%s/close", patch.TaskID)); err != nil {
				return fmt.Errorf("todoistclient: close task %s: %w", patch.TaskID, err)
			}
		} else {
			if err := c.postNoBody(ctx, fmt.Sprintf("/tasks/%s/reopen", patch.TaskID)); err != nil {
				return fmt.Errorf("todoistclient: reopen task %s: %w", patch.TaskID, err)
			}
		}
	}

	body := map[string]interface{}{}
	addClear := func(key string, fc models.FieldClear) {
		if !fc.Provided {
			return
		}
		if fc.Cleared {
			body[key] = ""
			return
		}
		body[key] = fc.Value
	}
	addClear("content", patch.Content)
	addClear("description", patch.Description)
	addClear("due_string", patch.DueString)
	if patch.Priority.Provided {
		if patch.Priority.Cleared {
			body["priority"] = 1
		} else if n, err := strconv.Atoi(patch.Priority.Value); err == nil {
			body["priority"] = n
		}
	}
	if patch.Labels != nil {
		body["labels"] = *patch.Labels
	}
	if patch.ProjectID.Provided && !patch.ProjectID.Cleared {
		body["project_id"] = patch.ProjectID.Value
	}
	if patch.SectionID.Provided {
		body["section_id"] = patch.SectionID.Value
	}
	if patch.ParentID.Provided {
		body["parent_id"] = patch.ParentID.Value
	}

	if len(body) == 0 {
		return nil
	}
	if err := c.post(ctx, fmt.Sprintf("/tasks/%s", patch.TaskID), body, nil); err != nil {
		return fmt.Errorf("todoistclient: update task %s: %w", patch.TaskID, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) postNoBody(ctx context.Context, path string) error {
	return c.post(ctx, path, nil, nil)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("todoistclient: %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, string(data))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
