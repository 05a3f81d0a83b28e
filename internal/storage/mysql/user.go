package mysql

import (
	"context"

	"github.com/mkravets/famhub/internal/model"
	"github.com/mkravets/famhub/internal/storage"
)

type userStore struct {
	q querier
}

var _ storage.UserStore = (*userStore)(nil)

const userColumns = `id, email, password_hash, first_name, last_name, is_active, created_at, updated_at`

// Create inserts the user and reads the row back to populate ID and the
// database-assigned timestamps.
func (s *userStore) Create(ctx context.Context, u *model.User) error {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, first_name, last_name) VALUES (?,?,?,?)`,
		u.Email, u.PasswordHash, u.FirstName, u.LastName)
	if err != nil {
		return mapDuplicate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := s.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*u = created
	return nil
}

func (s *userStore) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return s.scanOne(s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id))
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return s.scanOne(s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, email))
}

func (s *userStore) scanOne(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, notFound(err)
	}
	return u, nil
}
