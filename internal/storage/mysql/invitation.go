package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/mkravets/famhub/internal/model"
	"github.com/mkravets/famhub/internal/storage"
)

type invitationStore struct {
	q querier
}

var _ storage.InvitationStore = (*invitationStore)(nil)

const invitationColumns = `id, family_id, email, role, invited_by, token, status,
	expires_at, accepted_at, accepted_by, created_at, updated_at`

func (s *invitationStore) Create(ctx context.Context, inv *model.Invitation) error {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO invitations (family_id, email, role, invited_by, token, status, expires_at)
		 VALUES (?,?,?,?,?,?,?)`,
		inv.FamilyID, inv.Email, inv.Role, inv.InvitedBy, inv.Token, inv.Status,
		inv.ExpiresAt.UTC().Format("2006-01-02 15:04:05"))
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
	*inv = created
	return nil
}

func (s *invitationStore) GetByID(ctx context.Context, id uint64) (model.Invitation, error) {
	return s.scanOne(s.q.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = ? LIMIT 1`, id))
}

func (s *invitationStore) GetByToken(ctx context.Context, token string) (model.Invitation, error) {
	return s.scanOne(s.q.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE token = ? LIMIT 1`, token))
}

func (s *invitationStore) ListPendingByFamily(ctx context.Context, familyID uint64) ([]model.Invitation, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations
		 WHERE family_id = ? AND status = ? ORDER BY created_at, id`,
		familyID, model.InvitationPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var invs []model.Invitation
	for rows.Next() {
		inv, err := s.scanOne(rows)
		if err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

// MarkAccepted flips PENDING→ACCEPTED with a compare-and-swap on the status
// column. When zero rows are affected another transition won the race and
// ErrStaleInvitation is returned; callers must not retry the transition.
func (s *invitationStore) MarkAccepted(ctx context.Context, id uint64, acceptedBy uint64, acceptedAt time.Time) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE invitations SET status = ?, accepted_by = ?, accepted_at = ?
		 WHERE id = ? AND status = ?`,
		model.InvitationAccepted, acceptedBy,
		acceptedAt.UTC().Format("2006-01-02 15:04:05"),
		id, model.InvitationPending)
	return s.casResult(res, err)
}

func (s *invitationStore) MarkExpired(ctx context.Context, id uint64) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE invitations SET status = ? WHERE id = ? AND status = ?`,
		model.InvitationExpired, id, model.InvitationPending)
	return s.casResult(res, err)
}

func (s *invitationStore) MarkRevoked(ctx context.Context, id uint64) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE invitations SET status = ? WHERE id = ? AND status = ?`,
		model.InvitationRevoked, id, model.InvitationPending)
	return s.casResult(res, err)
}

func (s *invitationStore) casResult(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrStaleInvitation
	}
	return nil
}

func (s *invitationStore) scanOne(row interface{ Scan(...any) error }) (model.Invitation, error) {
	var (
		inv        model.Invitation
		acceptedAt sql.NullTime
		acceptedBy sql.NullInt64
	)
	err := row.Scan(&inv.ID, &inv.FamilyID, &inv.Email, &inv.Role, &inv.InvitedBy,
		&inv.Token, &inv.Status, &inv.ExpiresAt, &acceptedAt, &acceptedBy,
		&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return model.Invitation{}, notFound(err)
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		inv.AcceptedAt = &t
	}
	if acceptedBy.Valid {
		id := uint64(acceptedBy.Int64)
		inv.AcceptedBy = &id
	}
	return inv, nil
}
