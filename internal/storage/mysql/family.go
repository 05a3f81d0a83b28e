package mysql

import (
	"context"
	"time"

	"github.com/mkravets/famhub/internal/model"
	"github.com/mkravets/famhub/internal/storage"
)

type familyStore struct {
	q    querier
	inTx bool
}

var _ storage.FamilyStore = (*familyStore)(nil)

// Create inserts the family row and every membership already attached to
// it. Callers run this inside InTx so the family and its PRIMARY membership
// appear atomically.
func (s *familyStore) Create(ctx context.Context, f *model.Family) error {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO families (name, created_by) VALUES (?,?)`, f.Name, f.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = uint64(id)
	for i := range f.Members {
		f.Members[i].FamilyID = f.ID
		if err := s.AddMember(ctx, &f.Members[i]); err != nil {
			return err
		}
	}
	created, err := s.Get(ctx, f.ID)
	if err != nil {
		return err
	}
	*f = created
	return nil
}

func (s *familyStore) Get(ctx context.Context, id uint64) (model.Family, error) {
	return s.get(ctx, id, false)
}

// GetLocked reads the family row FOR UPDATE, serializing concurrent
// membership mutations on the same family for the duration of the
// enclosing transaction. Outside a transaction the lock would be released
// immediately, so it degrades to a plain read.
func (s *familyStore) GetLocked(ctx context.Context, id uint64) (model.Family, error) {
	return s.get(ctx, id, s.inTx)
}

func (s *familyStore) get(ctx context.Context, id uint64, lock bool) (model.Family, error) {
	q := `SELECT id, name, created_by, created_at, updated_at FROM families WHERE id = ?`
	if lock {
		q += ` FOR UPDATE`
	}
	var f model.Family
	err := s.q.QueryRowContext(ctx, q, id).Scan(
		&f.ID, &f.Name, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return model.Family{}, notFound(err)
	}
	members, err := s.listMembers(ctx, id)
	if err != nil {
		return model.Family{}, err
	}
	f.Members = members
	return f, nil
}

func (s *familyStore) listMembers(ctx context.Context, familyID uint64) ([]model.FamilyMember, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, family_id, user_id, role, permissions, joined_at
		 FROM family_members WHERE family_id = ? ORDER BY joined_at, id`, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []model.FamilyMember
	for rows.Next() {
		var m model.FamilyMember
		if err := rows.Scan(&m.ID, &m.FamilyID, &m.UserID, &m.Role, &m.Permissions, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *familyStore) AddMember(ctx context.Context, m *model.FamilyMember) error {
	joinedAt := m.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = time.Now().UTC()
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO family_members (family_id, user_id, role, permissions, joined_at)
		 VALUES (?,?,?,?,?)`,
		m.FamilyID, m.UserID, m.Role, m.Permissions, joinedAt.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return mapDuplicate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	m.JoinedAt = joinedAt
	return nil
}

func (s *familyStore) RemoveMember(ctx context.Context, familyID, userID uint64) error {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM family_members WHERE family_id = ? AND user_id = ?`, familyID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *familyStore) UpdateMemberRole(ctx context.Context, familyID, userID uint64, role model.Role) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE family_members SET role = ? WHERE family_id = ? AND user_id = ?`,
		role, familyID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "no such member" from "role unchanged": MySQL reports
		// zero affected rows for both.
		if _, err := s.GetMember(ctx, familyID, userID); err != nil {
			return err
		}
	}
	return nil
}

func (s *familyStore) GetMember(ctx context.Context, familyID, userID uint64) (model.FamilyMember, error) {
	var m model.FamilyMember
	err := s.q.QueryRowContext(ctx,
		`SELECT id, family_id, user_id, role, permissions, joined_at
		 FROM family_members WHERE family_id = ? AND user_id = ? LIMIT 1`,
		familyID, userID).Scan(&m.ID, &m.FamilyID, &m.UserID, &m.Role, &m.Permissions, &m.JoinedAt)
	if err != nil {
		return model.FamilyMember{}, notFound(err)
	}
	return m, nil
}
