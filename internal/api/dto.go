package api

import "github.com/starford/taskvault/internal/searchindex"

// NoteListItem mirrors a searchindex.NoteRow in list responses.
type NoteListItem = searchindex.NoteRow

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []searchindex.SearchResult `json:"results" validate:"required"`
}

// GraphResponse wraps the task/project/section link graph.
type GraphResponse struct {
	Nodes []searchindex.GraphNode `json:"nodes" validate:"required"`
	Links []searchindex.GraphLink `json:"links" validate:"required"`
}

// SyncTriggerResponse is returned after POST /sync is accepted.
type SyncTriggerResponse struct {
	Started bool `json:"started" example:"true"`
}
