package domain

import (
	"errors"
	"fmt"
)

// Timer state errors.
var (
	ErrAlreadyRunning  = errors.New("a timer is already running for this user")
	ErrNoActiveTimer   = errors.New("no timer is running for this user")
	ErrInvalidDuration = errors.New("entry end time must be after its start time")
)

// ErrSchemaTooNew is returned when a record file declares a schema version
// newer than this build understands. The file is left untouched.
var ErrSchemaTooNew = errors.New("record schema version is newer than this build supports")

// ValidationError reports bad input that was rejected before anything was
// written to the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an id with no matching record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// ConflictError reports an invariant violation, such as a duplicate lookup
// name or a lookup value that is still referenced.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// CorruptError reports a persisted file that failed to parse. The file is
// never deleted or rewritten; the path is surfaced for manual recovery.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt record file %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// IOError reports a filesystem failure that survived one retry. Shared-folder
// sync clients hold transient locks, so a single retry is attempted first.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("storage failure at %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
