package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the workflow taxonomy. ErrNoFormFound and
// ErrPermissionDenied are non-fatal: callers skip and continue.
// ErrSubmissionTimeout is fatal to the current attempt only; the caller
// decides whether to start a new session. Nothing in this module retries
// automatically.
var (
	ErrNoFormFound       = errors.New("no signup form found on page")
	ErrPermissionDenied  = errors.New("permission denied by human operator")
	ErrSubmissionTimeout = errors.New("timed out waiting for human submission")
	ErrNoActiveSession   = errors.New("no active session")
	ErrSessionActive     = errors.New("a session is already active")
)

// FieldWriteError reports a failed write to a single form field. It is
// logged and skipped; it never aborts the session.
type FieldWriteError struct {
	Field string
	Err   error
}

func (e *FieldWriteError) Error() string {
	return fmt.Sprintf("write field %q: %v", e.Field, e.Err)
}

func (e *FieldWriteError) Unwrap() error { return e.Err }

// CollaboratorError reports a failed call to an optional external
// collaborator (persistent store, status updater). Always caught and
// logged, never propagated into the workflow result.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("collaborator %s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }
