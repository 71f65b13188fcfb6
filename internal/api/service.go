package api

import (
	"context"
	"time"

	"github.com/starford/taskvault/internal/reconciler"
	"github.com/starford/taskvault/internal/scheduler"
	"github.com/starford/taskvault/internal/searchindex"
)

// Service coordinates the scheduler and search index for the API layer.
type Service struct {
	sched *scheduler.Scheduler
	idx   searchindex.Index
}

// NewService creates a new API service.
func NewService(sched *scheduler.Scheduler, idx searchindex.Index) *Service {
	return &Service{sched: sched, idx: idx}
}

// SyncStatus is the response payload for the last completed run.
type SyncStatus struct {
	InProgress bool              `json:"in_progress"`
	RanAt      time.Time         `json:"ran_at,omitempty"`
	Summary    reconciler.Summary `json:"summary,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// TriggerSync requests a run without blocking. started is false if a run
// was already in progress when the request landed.
func (s *Service) TriggerSync(ctx context.Context) (started bool) {
	return s.sched.TryTrigger(ctx)
}

// LastSyncStatus reports the outcome of the most recently completed run,
// plus whether a run is currently executing.
func (s *Service) LastSyncStatus() SyncStatus {
	sum, err, at := s.sched.LastResult()
	st := SyncStatus{
		InProgress: s.sched.InProgress(),
		RanAt:      at,
		Summary:    sum,
	}
	if err != nil {
		st.Error = err.Error()
	}
	return st
}

// Search delegates to the search index.
func (s *Service) Search(query string, limit int) ([]searchindex.SearchResult, error) {
	return s.idx.Search(query, limit)
}

// Graph delegates to the search index.
func (s *Service) Graph() ([]searchindex.GraphNode, []searchindex.GraphLink, error) {
	return s.idx.Graph()
}

// GetNote delegates to the search index.
func (s *Service) GetNote(path string) (*searchindex.NoteRow, error) {
	return s.idx.GetNote(path)
}

// ListNotes delegates to the search index.
func (s *Service) ListNotes(limit, offset int, kind, sort string) ([]searchindex.NoteRow, int, error) {
	return s.idx.ListNotes(limit, offset, kind, sort)
}
