package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the authoring core and the archive API.
var (
	// ErrNotFound is returned when an article or autosave record does not
	// exist. For autosave reads, absence is a normal outcome.
	ErrNotFound = errors.New("not found")

	// ErrSaveConflict is returned when a conditional save is rejected
	// because the concurrency token (etag) no longer matches server state.
	// Callers must surface it to the user, never retry silently.
	ErrSaveConflict = errors.New("save conflict: article was changed by someone else")

	// ErrLockConflict is returned when an editing lock is held by another
	// session.
	ErrLockConflict = errors.New("lock conflict: article is locked in another session")
)

// InvalidSectionError reports a content-profile field that declares a section
// other than header or content. Rendering cannot proceed without a valid
// section assignment, so this is fatal for the load.
type InvalidSectionError struct {
	FieldID string
	Section string
}

func (e *InvalidSectionError) Error() string {
	return fmt.Sprintf("invalid section %q for field %q", e.Section, e.FieldID)
}
