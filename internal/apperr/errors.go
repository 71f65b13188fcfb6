// Package apperr carries the sentinel errors shared across the
// reconciliation engine and its operator surfaces.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	ErrSchemaInvalid  = errors.New("schema invalid")
	ErrDuplicateID    = errors.New("duplicate remote id")
	ErrCycleDetected  = errors.New("cycle detected")
	ErrRunInProgress  = errors.New("sync run already in progress")
	ErrAuthFailed     = errors.New("remote authentication failed")
	ErrSnapshotFailed = errors.New("remote snapshot fetch failed")
)
