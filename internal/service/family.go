package service

import (
	"context"
	"errors"
	"strings"

	"github.com/mkravets/famhub/internal/model"
	"github.com/mkravets/famhub/internal/storage"
)

// FamilyService implements household membership policy. The invariants
// it protects: exactly one PRIMARY member per family, established at
// creation and never reassigned, removed or demoted; membership
// mutations by the PRIMARY member only, with no delegation; nobody
// mutates their own membership.
type FamilyService struct {
	store storage.Store
	clock Clock
}

// NewFamilyService wires a FamilyService.
func NewFamilyService(store storage.Store, clock Clock) *FamilyService {
	return &FamilyService{store: store, clock: clock}
}

// Create makes a new family with the creator as its sole PRIMARY
// member, atomically.
func (s *FamilyService) Create(ctx context.Context, creatorID uint64, name string) (model.Family, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Family{}, E(KindInvalidInput, "family name is required")
	}
	fam := model.Family{
		Name:      name,
		CreatedBy: creatorID,
		Members: []model.FamilyMember{{
			UserID:   creatorID,
			Role:     model.RolePrimary,
			JoinedAt: s.clock.Now(),
		}},
	}
	err := s.store.InTx(ctx, func(tx storage.Store) error {
		if err := tx.Families().Create(ctx, &fam); err != nil {
			return E(KindIntegrityViolation, "create family", err)
		}
		return nil
	})
	if err != nil {
		return model.Family{}, err
	}
	return fam, nil
}

// Get returns a family with its membership list. Only members may look
// a family up.
func (s *FamilyService) Get(ctx context.Context, familyID, actorID uint64) (model.Family, error) {
	fam, err := s.store.Families().Get(ctx, familyID)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Family{}, E(KindNotFound, "family not found")
	}
	if err != nil {
		return model.Family{}, E(KindIntegrityViolation, "load family", err)
	}
	if _, ok := fam.Member(actorID); !ok {
		return model.Family{}, E(KindPermissionDenied, "not a member of this family")
	}
	return fam, nil
}

// RemoveMember deletes a membership. PRIMARY can never be removed, and
// actors cannot remove themselves.
func (s *FamilyService) RemoveMember(ctx context.Context, familyID, actorID, targetID uint64) error {
	if actorID == targetID {
		return E(KindPermissionDenied, "members cannot remove themselves")
	}
	return s.store.InTx(ctx, func(tx storage.Store) error {
		fam, err := s.loadForMutation(ctx, tx, familyID, actorID)
		if err != nil {
			return err
		}
		target, ok := fam.Member(targetID)
		if !ok {
			return E(KindNotFound, "member not found")
		}
		if target.Role == model.RolePrimary {
			return E(KindPermissionDenied, "the PRIMARY member cannot be removed")
		}
		if err := tx.Families().RemoveMember(ctx, familyID, targetID); err != nil {
			return E(KindIntegrityViolation, "remove member", err)
		}
		return nil
	})
}

// UpdateMemberRole changes a member's role within the closed assignable
// set. PRIMARY can never be granted or taken away, and actors cannot
// re-role themselves.
func (s *FamilyService) UpdateMemberRole(ctx context.Context, familyID, actorID, targetID uint64, role model.Role) error {
	if !role.Assignable() {
		return E(KindInvalidInput, "role must be ADMIN or MEMBER")
	}
	if actorID == targetID {
		return E(KindPermissionDenied, "members cannot change their own role")
	}
	return s.store.InTx(ctx, func(tx storage.Store) error {
		fam, err := s.loadForMutation(ctx, tx, familyID, actorID)
		if err != nil {
			return err
		}
		target, ok := fam.Member(targetID)
		if !ok {
			return E(KindNotFound, "member not found")
		}
		if target.Role == model.RolePrimary {
			return E(KindPermissionDenied, "the PRIMARY member's role cannot change")
		}
		if err := tx.Families().UpdateMemberRole(ctx, familyID, targetID, role); err != nil {
			return E(KindIntegrityViolation, "update member role", err)
		}
		return nil
	})
}

// loadForMutation locks the family row and verifies the actor may
// mutate its membership.
func (s *FamilyService) loadForMutation(ctx context.Context, tx storage.Store, familyID, actorID uint64) (model.Family, error) {
	fam, err := tx.Families().GetLocked(ctx, familyID)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Family{}, E(KindNotFound, "family not found")
	}
	if err != nil {
		return model.Family{}, E(KindIntegrityViolation, "lock family", err)
	}
	actor, ok := fam.Member(actorID)
	if !ok || actor.Role != model.RolePrimary {
		return model.Family{}, E(KindPermissionDenied, "only the PRIMARY member may manage membership")
	}
	return fam, nil
}

// IsMember reports whether the user belongs to the family.
func (s *FamilyService) IsMember(ctx context.Context, familyID, userID uint64) (bool, error) {
	_, err := s.store.Families().GetMember(ctx, familyID, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, E(KindIntegrityViolation, "load membership", err)
	}
	return true, nil
}

// CanMutateMembership reports whether the requester may add, remove or
// re-role members. Only the PRIMARY member holds that power.
func (s *FamilyService) CanMutateMembership(ctx context.Context, familyID, requesterID uint64) (bool, error) {
	m, err := s.store.Families().GetMember(ctx, familyID, requesterID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, E(KindIntegrityViolation, "load membership", err)
	}
	return m.Role == model.RolePrimary, nil
}
