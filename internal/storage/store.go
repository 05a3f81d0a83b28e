// Package storage defines the persistence boundary of the application.
//
// The Store interface groups per-entity stores behind a single transactional
// unit of work. InTx runs a function against a transaction-bound view of the
// store: either every write inside the function commits, or none do. This
// abstraction allows swapping the MySQL backend for the in-memory
// implementation used in tests without touching the service layer.
package storage

import (
	"context"
	"time"

	"github.com/mkravets/famhub/internal/model"
)

// Store aggregates the per-entity stores and the transaction boundary.
type Store interface {
	Users() UserStore
	Families() FamilyStore
	Invitations() InvitationStore
	Tasks() TaskStore
	Tokens() TokenStore

	// InTx executes fn against a transaction-bound Store. If fn returns an
	// error the transaction is rolled back and the error is returned
	// unchanged. Calling InTx on an already transaction-bound Store joins
	// the enclosing transaction.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

// UserStore persists user records.
type UserStore interface {
	// Create inserts the user and populates ID and timestamps. The email
	// must already be normalized to lower case; a duplicate yields
	// ErrDuplicateEmail.
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// FamilyStore persists families and their membership lists. The membership
// list is owned by the family: all member mutations go through this store
// and rely on the (family_id, user_id) uniqueness constraint.
type FamilyStore interface {
	// Create inserts the family together with any members already present
	// on it, atomically. Callers create a family with exactly its PRIMARY
	// membership.
	Create(ctx context.Context, f *model.Family) error
	Get(ctx context.Context, id uint64) (model.Family, error)
	// GetLocked is Get with the family row locked for the duration of the
	// enclosing transaction, serializing concurrent membership mutations.
	// Outside a transaction it behaves like Get.
	GetLocked(ctx context.Context, id uint64) (model.Family, error)
	// AddMember appends a membership row; a duplicate (family, user) pair
	// yields ErrDuplicateMember.
	AddMember(ctx context.Context, m *model.FamilyMember) error
	RemoveMember(ctx context.Context, familyID, userID uint64) error
	UpdateMemberRole(ctx context.Context, familyID, userID uint64, role model.Role) error
	GetMember(ctx context.Context, familyID, userID uint64) (model.FamilyMember, error)
}

// InvitationStore persists invitations. Status transitions are
// compare-and-swap on the PENDING state: a transition whose precondition no
// longer holds yields ErrStaleInvitation so that concurrent acceptors lose
// cleanly instead of overwriting each other.
type InvitationStore interface {
	// Create inserts a PENDING invitation. A second pending invitation for
	// the same (family, email) pair yields ErrDuplicatePending.
	Create(ctx context.Context, inv *model.Invitation) error
	GetByID(ctx context.Context, id uint64) (model.Invitation, error)
	GetByToken(ctx context.Context, token string) (model.Invitation, error)
	ListPendingByFamily(ctx context.Context, familyID uint64) ([]model.Invitation, error)
	// MarkAccepted flips PENDING→ACCEPTED and records who accepted when.
	MarkAccepted(ctx context.Context, id uint64, acceptedBy uint64, acceptedAt time.Time) error
	// MarkExpired flips PENDING→EXPIRED.
	MarkExpired(ctx context.Context, id uint64) error
	// MarkRevoked flips PENDING→REVOKED.
	MarkRevoked(ctx context.Context, id uint64) error
}

// TaskStore persists task templates and instances.
type TaskStore interface {
	// Create inserts a task and populates ID and timestamps. For a
	// generated instance (RecurringTaskID set) the storage enforces the
	// one-instance-per-(template, day) invariant atomically: a duplicate
	// yields ErrDuplicateInstance. This is the idempotency primitive the
	// generator relies on; there is no racy check-then-insert.
	Create(ctx context.Context, t *model.Task) error
	GetByID(ctx context.Context, id uint64) (model.Task, error)
	ListByFamily(ctx context.Context, familyID uint64) ([]model.Task, error)
	// ListRecurringTemplates returns all tasks with recurring=true and a
	// non-empty recurrence rule, across all families.
	ListRecurringTemplates(ctx context.Context) ([]model.Task, error)
	Complete(ctx context.Context, id, completedBy uint64, completedAt time.Time) error
}

// TokenStore persists hashed refresh tokens for session management.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, expiresAt time.Time) error
	// ValidateRefresh returns the owning user id for a live (non-revoked,
	// non-expired) token hash, or ErrNotFound.
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}
