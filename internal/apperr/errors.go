// Package apperr defines sentinel errors shared across layers.
// Callers match them with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")

	// ErrStorage marks a durable read or write that did not complete.
	// The operation was not applied and may be retried by the caller.
	ErrStorage = errors.New("storage failure")

	// ErrInvalidState is returned for operations on a session that has no
	// current card, is not initialized, or has already been closed.
	ErrInvalidState = errors.New("invalid session state")

	// ErrBusy is returned when a rating arrives while a previous one is
	// still being persisted.
	ErrBusy = errors.New("session busy")

	// ErrCheckpoint means the rating was applied and the card persisted,
	// but the session snapshot or the end-of-session bookkeeping could not
	// be saved.
	ErrCheckpoint = errors.New("session checkpoint not saved")
)
