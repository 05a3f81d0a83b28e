package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/mkravets/famhub/internal/model"
	"github.com/mkravets/famhub/internal/storage"
)

type invitationStore struct {
	s *Store
}

func pendingKey(familyID uint64, email string) string {
	return fmt.Sprintf("%d:%s", familyID, email)
}

func (i *invitationStore) Create(ctx context.Context, inv *model.Invitation) error {
	unlock := i.s.lock()
	defer unlock()
	st := i.s.st
	key := pendingKey(inv.FamilyID, inv.Email)
	if _, exists := st.pendingKeys[key]; exists {
		return storage.ErrDuplicatePending
	}
	inv.ID = st.id()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = nowUTC()
	}
	inv.UpdatedAt = inv.CreatedAt
	st.invitations[inv.ID] = *inv
	st.invByToken[inv.Token] = inv.ID
	st.pendingKeys[key] = inv.ID
	return nil
}

func (i *invitationStore) GetByID(ctx context.Context, id uint64) (model.Invitation, error) {
	unlock := i.s.lock()
	defer unlock()
	inv, ok := i.s.st.invitations[id]
	if !ok {
		return model.Invitation{}, storage.ErrNotFound
	}
	return inv, nil
}

func (i *invitationStore) GetByToken(ctx context.Context, token string) (model.Invitation, error) {
	unlock := i.s.lock()
	defer unlock()
	id, ok := i.s.st.invByToken[token]
	if !ok {
		return model.Invitation{}, storage.ErrNotFound
	}
	return i.s.st.invitations[id], nil
}

func (i *invitationStore) ListPendingByFamily(ctx context.Context, familyID uint64) ([]model.Invitation, error) {
	unlock := i.s.lock()
	defer unlock()
	var invs []model.Invitation
	for _, inv := range i.s.st.invitations {
		if inv.FamilyID == familyID && inv.Status == model.InvitationPending {
			invs = append(invs, inv)
		}
	}
	return invs, nil
}

func (i *invitationStore) MarkAccepted(ctx context.Context, id uint64, acceptedBy uint64, acceptedAt time.Time) error {
	return i.transition(id, func(inv *model.Invitation) {
		inv.Status = model.InvitationAccepted
		at := acceptedAt
		by := acceptedBy
		inv.AcceptedAt = &at
		inv.AcceptedBy = &by
	})
}

func (i *invitationStore) MarkExpired(ctx context.Context, id uint64) error {
	return i.transition(id, func(inv *model.Invitation) {
		inv.Status = model.InvitationExpired
	})
}

func (i *invitationStore) MarkRevoked(ctx context.Context, id uint64) error {
	return i.transition(id, func(inv *model.Invitation) {
		inv.Status = model.InvitationRevoked
	})
}

// transition applies a PENDING-only state change, mirroring the
// compare-and-swap UPDATE of the MySQL implementation.
func (i *invitationStore) transition(id uint64, apply func(*model.Invitation)) error {
	unlock := i.s.lock()
	defer unlock()
	st := i.s.st
	inv, ok := st.invitations[id]
	if !ok {
		return storage.ErrNotFound
	}
	if inv.Status != model.InvitationPending {
		return storage.ErrStaleInvitation
	}
	apply(&inv)
	inv.UpdatedAt = nowUTC()
	st.invitations[id] = inv
	delete(st.pendingKeys, pendingKey(inv.FamilyID, inv.Email))
	return nil
}
