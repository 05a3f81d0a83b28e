// Package mysql implements storage.Store on top of database/sql and the
// go-sql-driver/mysql driver.
//
// Every entity store runs its queries against a shared querier, which is
// either the root *sql.DB or, inside InTx, the open *sql.Tx. Uniqueness
// invariants (user email, membership pair, pending invitation pair,
// instance-per-day) are enforced by the schema's unique indexes; duplicate
// key errors are translated into the storage sentinel errors by key name.
package mysql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/mkravets/famhub/internal/storage"
)

// querier is the subset of *sql.DB and *sql.Tx the stores need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements storage.Store. The zero value is not usable; construct
// with New.
type Store struct {
	db *sql.DB
	q  querier // db outside a transaction, tx inside
}

var _ storage.Store = (*Store)(nil)

// New returns a Store bound to the given database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

func (s *Store) Users() storage.UserStore             { return &userStore{q: s.q} }
func (s *Store) Families() storage.FamilyStore        { return &familyStore{q: s.q, inTx: s.inTx()} }
func (s *Store) Invitations() storage.InvitationStore { return &invitationStore{q: s.q} }
func (s *Store) Tasks() storage.TaskStore             { return &taskStore{q: s.q} }
func (s *Store) Tokens() storage.TokenStore           { return &tokenStore{q: s.q} }

func (s *Store) inTx() bool {
	_, ok := s.q.(*sql.Tx)
	return ok
}

// InTx begins a transaction and runs fn against a transaction-bound Store.
// On error or panic the transaction is rolled back; otherwise it commits.
// A nested call joins the enclosing transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx storage.Store) error) error {
	if s.inTx() {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// mapDuplicate inspects a MySQL duplicate-key error (1062) and returns the
// sentinel matching the violated index, or the original error when it is
// not a duplicate-key failure.
func mapDuplicate(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if !strings.Contains(msg, "1062") && !strings.Contains(msg, "Duplicate entry") {
		return err
	}
	switch {
	case strings.Contains(msg, "uq_users_email"):
		return storage.ErrDuplicateEmail
	case strings.Contains(msg, "uq_member"):
		return storage.ErrDuplicateMember
	case strings.Contains(msg, "uq_inv_pending"):
		return storage.ErrDuplicatePending
	case strings.Contains(msg, "uq_task_instance"):
		return storage.ErrDuplicateInstance
	}
	return err
}

// notFound normalizes sql.ErrNoRows into the storage sentinel.
func notFound(err error) error {
	if err == sql.ErrNoRows {
		return storage.ErrNotFound
	}
	return err
}
