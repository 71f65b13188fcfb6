// Package remote defines the narrow contract the reconciler drives against
// a remote task service. It is a consumer-side interface only: no
// implementation lives here (see internal/todoistclient for the concrete
// REST client).
package remote

import (
	"context"

	"github.com/starford/taskvault/internal/models"
)

// Client is everything the reconciler needs from the remote service.
type Client interface {
	// FetchSnapshot returns a full listing of active projects, sections and
	// non-deleted items, plus the user identity and a sync token.
	FetchSnapshot(ctx context.Context) (models.RemoteSnapshot, error)

	// FetchRecentlyDeletedIDs returns up to limit item IDs recently removed
	// from the activity log, used to distinguish "deleted" from "completed"
	// in missing-remote handling.
	FetchRecentlyDeletedIDs(ctx context.Context, limit int) (map[string]struct{}, error)

	// CreateTask creates a remote task and returns its new ID.
	CreateTask(ctx context.Context, payload models.CreateTaskPayload) (string, error)

	// UpdateTask applies a partial patch, honoring explicit field clears.
	UpdateTask(ctx context.Context, patch models.UpdateTaskPatch) error
}
