package memory

import (
	"context"

	"github.com/mkravets/famhub/internal/model"
	"github.com/mkravets/famhub/internal/storage"
)

type familyStore struct {
	s *Store
}

func (f *familyStore) Create(ctx context.Context, fam *model.Family) error {
	unlock := f.s.lock()
	defer unlock()
	st := f.s.st
	fam.ID = st.id()
	if fam.CreatedAt.IsZero() {
		fam.CreatedAt = nowUTC()
	}
	fam.UpdatedAt = fam.CreatedAt
	members := fam.Members
	fam.Members = nil
	st.families[fam.ID] = *fam
	for i := range members {
		members[i].FamilyID = fam.ID
		if err := f.addMemberLocked(&members[i]); err != nil {
			return err
		}
	}
	fam.Members = append([]model.FamilyMember(nil), st.members[fam.ID]...)
	return nil
}

func (f *familyStore) Get(ctx context.Context, id uint64) (model.Family, error) {
	unlock := f.s.lock()
	defer unlock()
	return f.getLocked(id)
}

// GetLocked has no extra locking to do here: InTx already serializes every
// concurrent transaction under the store mutex.
func (f *familyStore) GetLocked(ctx context.Context, id uint64) (model.Family, error) {
	return f.Get(ctx, id)
}

func (f *familyStore) getLocked(id uint64) (model.Family, error) {
	fam, ok := f.s.st.families[id]
	if !ok {
		return model.Family{}, storage.ErrNotFound
	}
	fam.Members = append([]model.FamilyMember(nil), f.s.st.members[id]...)
	return fam, nil
}

func (f *familyStore) AddMember(ctx context.Context, m *model.FamilyMember) error {
	unlock := f.s.lock()
	defer unlock()
	return f.addMemberLocked(m)
}

func (f *familyStore) addMemberLocked(m *model.FamilyMember) error {
	st := f.s.st
	if _, ok := st.families[m.FamilyID]; !ok {
		return storage.ErrNotFound
	}
	for _, existing := range st.members[m.FamilyID] {
		if existing.UserID == m.UserID {
			return storage.ErrDuplicateMember
		}
	}
	m.ID = st.id()
	if m.JoinedAt.IsZero() {
		m.JoinedAt = nowUTC()
	}
	st.members[m.FamilyID] = append(st.members[m.FamilyID], *m)
	return nil
}

func (f *familyStore) RemoveMember(ctx context.Context, familyID, userID uint64) error {
	unlock := f.s.lock()
	defer unlock()
	st := f.s.st
	members := st.members[familyID]
	for i, m := range members {
		if m.UserID == userID {
			st.members[familyID] = append(append([]model.FamilyMember(nil), members[:i]...), members[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *familyStore) UpdateMemberRole(ctx context.Context, familyID, userID uint64, role model.Role) error {
	unlock := f.s.lock()
	defer unlock()
	st := f.s.st
	members := append([]model.FamilyMember(nil), st.members[familyID]...)
	for i, m := range members {
		if m.UserID == userID {
			m.Role = role
			members[i] = m
			st.members[familyID] = members
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *familyStore) GetMember(ctx context.Context, familyID, userID uint64) (model.FamilyMember, error) {
	unlock := f.s.lock()
	defer unlock()
	for _, m := range f.s.st.members[familyID] {
		if m.UserID == userID {
			return m, nil
		}
	}
	return model.FamilyMember{}, storage.ErrNotFound
}
