// Package sentinel holds the storage-level facts stores report. The
// assessment service maps them onto coded domain errors; handlers never see
// them directly.
package sentinel

import "errors"

var (
	// ErrNotFound: no assessment (or catalog year) with that key.
	ErrNotFound = errors.New("not found")
	// ErrConflict: the stored version moved since the caller loaded it.
	ErrConflict = errors.New("version conflict")
	// ErrAlreadyUsed: an assessment already exists for the (unit, year) pair.
	ErrAlreadyUsed = errors.New("already exists")
	// ErrLockHeld: another writer holds the per-assessment lock.
	ErrLockHeld = errors.New("lock held")
)
