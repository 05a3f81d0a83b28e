package storage

import "errors"

// Sentinel errors shared by all Store implementations. The service layer
// translates these into its user-facing error kinds; nothing below this
// line should leak to HTTP responses directly.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when creating a user whose email is
	// already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrDuplicateMember is returned when appending a membership for a
	// user who is already a member of the family.
	ErrDuplicateMember = errors.New("user already a member of family")

	// ErrDuplicatePending is returned when a pending invitation already
	// exists for the same (family, email) pair.
	ErrDuplicatePending = errors.New("pending invitation already exists")

	// ErrDuplicateInstance is returned when a task instance already exists
	// for the same (template, calendar day) pair.
	ErrDuplicateInstance = errors.New("task instance already exists for day")

	// ErrStaleInvitation is returned when a status transition finds the
	// invitation no longer PENDING: a concurrent operation won the race.
	ErrStaleInvitation = errors.New("invitation no longer pending")
)
