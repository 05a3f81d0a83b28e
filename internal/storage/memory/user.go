package memory

import (
	"context"

	"github.com/mkravets/famhub/internal/model"
	"github.com/mkravets/famhub/internal/storage"
)

type userStore struct {
	s *Store
}

func (u *userStore) Create(ctx context.Context, usr *model.User) error {
	unlock := u.s.lock()
	defer unlock()
	st := u.s.st
	if _, exists := st.usersByEmail[usr.Email]; exists {
		return storage.ErrDuplicateEmail
	}
	usr.ID = st.id()
	usr.IsActive = true
	if usr.CreatedAt.IsZero() {
		usr.CreatedAt = nowUTC()
	}
	usr.UpdatedAt = usr.CreatedAt
	st.users[usr.ID] = *usr
	st.usersByEmail[usr.Email] = usr.ID
	return nil
}

func (u *userStore) GetByID(ctx context.Context, id uint64) (model.User, error) {
	unlock := u.s.lock()
	defer unlock()
	usr, ok := u.s.st.users[id]
	if !ok {
		return model.User{}, storage.ErrNotFound
	}
	return usr, nil
}

func (u *userStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	unlock := u.s.lock()
	defer unlock()
	id, ok := u.s.st.usersByEmail[email]
	if !ok {
		return model.User{}, storage.ErrNotFound
	}
	return u.s.st.users[id], nil
}
