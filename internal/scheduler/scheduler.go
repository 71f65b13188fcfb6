// Package scheduler coordinates reconciliation runs triggered from the
// filesystem watcher, the HTTP API, and the MCP tools onto a single run
// guard. The CLI's one-shot `sync` subcommand calls the reconciler
// directly and does not pass through a Scheduler. The watcher never runs a sync itself; it only requests
// one.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/taskvault/internal/reconciler"
)

// RunFunc executes one reconciliation pass.
type RunFunc func(ctx context.Context) (reconciler.Summary, error)

// Scheduler collapses concurrent trigger sources into the currently
// in-flight run, and queues exactly one follow-up run if a new trigger
// lands while a run is executing — never a stack of queued runs.
type Scheduler struct {
	runFn  RunFunc
	logger *slog.Logger
	sf     singleflight.Group

	mu      sync.Mutex
	running bool
	pending bool

	lastSummary reconciler.Summary
	lastErr     error
	lastRunAt   time.Time
}

// New builds a Scheduler around runFn.
func New(runFn RunFunc, logger *slog.Logger) *Scheduler {
	return &Scheduler{runFn: runFn, logger: logger}
}

// RunNow executes a reconciliation run, or joins one already in flight,
// and blocks until it completes, recording the run's Summary and error as
// the last result. The background loop started by TryTrigger runs every
// triggered run through it.
func (s *Scheduler) RunNow(ctx context.Context) (reconciler.Summary, error) {
	v, err, _ := s.sf.Do("sync", func() (interface{}, error) {
		sum, runErr := s.runFn(ctx)
		s.mu.Lock()
		s.lastSummary = sum
		s.lastErr = runErr
		s.lastRunAt = time.Now()
		s.mu.Unlock()
		return sum, runErr
	})
	if err != nil {
		return reconciler.Summary{}, err
	}
	return v.(reconciler.Summary), nil
}

// TryTrigger requests a run without blocking the caller. It returns
// started=false if a run is already in progress — callers like the HTTP
// API surface that as a 409 — but still arms exactly one follow-up run to
// fire once the in-flight run completes, so the request is never simply
// dropped.
func (s *Scheduler) TryTrigger(ctx context.Context) (started bool) {
	s.mu.Lock()
	if s.running {
		s.pending = true
		s.mu.Unlock()
		return false
	}
	s.running = true
	s.mu.Unlock()

	go s.drive(ctx)
	return true
}

func (s *Scheduler) drive(ctx context.Context) {
	for {
		if _, err := s.RunNow(ctx); err != nil {
			s.logger.Warn("scheduler: run failed", slog.String("error", err.Error()))
		}

		s.mu.Lock()
		if s.pending {
			s.pending = false
			s.mu.Unlock()
			continue
		}
		s.running = false
		s.mu.Unlock()
		return
	}
}

// InProgress reports whether a run is currently executing.
func (s *Scheduler) InProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastResult returns the most recently completed run's outcome.
func (s *Scheduler) LastResult() (reconciler.Summary, error, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSummary, s.lastErr, s.lastRunAt
}
