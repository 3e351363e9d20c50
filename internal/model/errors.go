package model

import (
    "errors"
    "fmt"
)

// Error kinds.  Every error returned by the service layer wraps exactly one
// of these so handlers can translate it into a status code.
var (
    ErrValidation   = errors.New("validation failed")
    ErrNotFound     = errors.New("not found")
    ErrForbidden    = errors.New("forbidden")
    ErrConflict     = errors.New("conflict")
    ErrInvalidState = errors.New("invalid state")
)

// ErrDuplicate is returned by the store when an insert lost a race on a
// unique key (or the row lock guarding it).  Services turn it into ErrConflict.
var ErrDuplicate = errors.New("duplicate key")

// Error carries a user-facing message together with its kind.
type Error struct {
    Kind error
    Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

// Errorf builds an Error of the given kind.
func Errorf(kind error, format string, args ...any) error {
    return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// ScheduleConflictError is returned when a requested time range collides
// with existing bookings.  It matches ErrConflict.
type ScheduleConflictError struct {
    Conflicts []ConflictInfo
}

func (e *ScheduleConflictError) Error() string {
    return fmt.Sprintf("time range overlaps %d existing booking(s)", len(e.Conflicts))
}

func (e *ScheduleConflictError) Is(target error) bool { return target == ErrConflict }
