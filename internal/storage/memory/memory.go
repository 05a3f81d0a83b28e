// Package memory implements storage.Store entirely in memory.
//
// It backs the service-layer tests and doubles as a throwaway backend for
// local experiments. Transactions are modeled by serializing InTx blocks
// under one mutex and restoring a snapshot of the whole state when the
// block fails, so the rollback semantics match the MySQL implementation:
// either every write inside InTx lands, or none do.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mkravets/famhub/internal/model"
	"github.com/mkravets/famhub/internal/storage"
)

type refreshRecord struct {
	userID    uint64
	expiresAt time.Time
	revoked   bool
}

type state struct {
	nextID uint64

	users        map[uint64]model.User
	usersByEmail map[string]uint64

	families map[uint64]model.Family
	members  map[uint64][]model.FamilyMember

	invitations map[uint64]model.Invitation
	invByToken  map[string]uint64
	pendingKeys map[string]uint64 // "familyID:email" -> pending invitation id

	tasks        map[uint64]model.Task
	instanceKeys map[string]uint64 // "templateID:YYYY-MM-DD" -> instance id

	refresh map[string]refreshRecord
}

func newState() *state {
	return &state{
		users:        map[uint64]model.User{},
		usersByEmail: map[string]uint64{},
		families:     map[uint64]model.Family{},
		members:      map[uint64][]model.FamilyMember{},
		invitations:  map[uint64]model.Invitation{},
		invByToken:   map[string]uint64{},
		pendingKeys:  map[string]uint64{},
		tasks:        map[uint64]model.Task{},
		instanceKeys: map[string]uint64{},
		refresh:      map[string]refreshRecord{},
	}
}

// clone copies every map and member slice. Records are stored and replaced
// as whole values, never mutated in place, so a shallow copy of the values
// is a correct snapshot.
func (st *state) clone() *state {
	cp := newState()
	cp.nextID = st.nextID
	for k, v := range st.users {
		cp.users[k] = v
	}
	for k, v := range st.usersByEmail {
		cp.usersByEmail[k] = v
	}
	for k, v := range st.families {
		cp.families[k] = v
	}
	for k, v := range st.members {
		cp.members[k] = append([]model.FamilyMember(nil), v...)
	}
	for k, v := range st.invitations {
		cp.invitations[k] = v
	}
	for k, v := range st.invByToken {
		cp.invByToken[k] = v
	}
	for k, v := range st.pendingKeys {
		cp.pendingKeys[k] = v
	}
	for k, v := range st.tasks {
		cp.tasks[k] = v
	}
	for k, v := range st.instanceKeys {
		cp.instanceKeys[k] = v
	}
	for k, v := range st.refresh {
		cp.refresh[k] = v
	}
	return cp
}

func (st *state) id() uint64 {
	st.nextID++
	return st.nextID
}

// Store implements storage.Store in memory. Construct with New; the zero
// value is not usable.
type Store struct {
	mu     *sync.Mutex
	st     *state
	locked bool // true for the transaction-bound view handed to InTx callbacks
}

var _ storage.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{mu: &sync.Mutex{}, st: newState()}
}

// lock acquires the store mutex unless this view already holds it as part
// of a transaction. It returns the matching unlock.
func (s *Store) lock() func() {
	if s.locked {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// InTx serializes the whole block under the store mutex and rolls the
// state back to a snapshot when fn fails. Nested calls join the enclosing
// block.
func (s *Store) InTx(ctx context.Context, fn func(tx storage.Store) error) error {
	if s.locked {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.st.clone()
	if err := fn(&Store{mu: s.mu, st: s.st, locked: true}); err != nil {
		*s.st = *snap
		return err
	}
	return nil
}

func (s *Store) Users() storage.UserStore             { return &userStore{s} }
func (s *Store) Families() storage.FamilyStore        { return &familyStore{s} }
func (s *Store) Invitations() storage.InvitationStore { return &invitationStore{s} }
func (s *Store) Tasks() storage.TaskStore             { return &taskStore{s} }
func (s *Store) Tokens() storage.TokenStore           { return &tokenStore{s} }

func nowUTC() time.Time { return time.Now().UTC() }
