package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mkravets/famhub/internal/metrics"
	"github.com/mkravets/famhub/internal/model"
	"github.com/mkravets/famhub/internal/notify"
	"github.com/mkravets/famhub/internal/storage"
	"github.com/mkravets/famhub/internal/utils"
)

// SessionIssuer mints an access/refresh token pair for a user. The
// registration acceptance path uses it to log the new account in
// immediately.
type SessionIssuer interface {
	Issue(ctx context.Context, u model.User) (model.Session, error)
}

// Registration is the profile payload for the combined
// register-and-accept path. Email must match the invitation's invitee
// email; the account is always created under the invitation's address.
type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// PublicInvitation is the unauthenticated view of a pending invitation,
// shown on the invite landing page before the invitee decides how to
// accept.
type PublicInvitation struct {
	FamilyName  string
	InviterName string
	Email       string
	Role        model.Role
	ExpiresAt   time.Time
	// IsExistingUser tells the landing page which acceptance path to
	// offer: sign-in or registration.
	IsExistingUser bool
}

// InvitationService implements the invitation lifecycle: issuance,
// public lookup, the two acceptance paths and revocation. Expiry is
// lazy: nothing scans for overdue invitations, each operation checks
// the deadline against its own clock and flips the state on first
// touch.
type InvitationService struct {
	store      storage.Store
	clock      Clock
	sender     notify.Sender
	sessions   SessionIssuer
	inviteTTL  time.Duration
	bcryptCost int
}

// NewInvitationService wires an InvitationService.
func NewInvitationService(store storage.Store, clock Clock, sender notify.Sender, sessions SessionIssuer, inviteTTL time.Duration, bcryptCost int) *InvitationService {
	return &InvitationService{
		store:      store,
		clock:      clock,
		sender:     sender,
		sessions:   sessions,
		inviteTTL:  inviteTTL,
		bcryptCost: bcryptCost,
	}
}

// Issue creates a PENDING invitation for email to join the family with
// the given role. Only the PRIMARY member may invite, the role must be
// assignable, and the invitee must not already be a member. A
// live pending invitation for the same (family, email) pair blocks a
// second one; a stale pending one is expired in place and replaced.
func (s *InvitationService) Issue(ctx context.Context, familyID, inviterID uint64, email string, role model.Role) (model.Invitation, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return model.Invitation{}, E(KindInvalidInput, "a valid invitee email is required")
	}
	if !role.Assignable() {
		return model.Invitation{}, E(KindInvalidInput, "role must be ADMIN or MEMBER")
	}

	token, err := utils.RandomToken(32)
	if err != nil {
		return model.Invitation{}, E(KindIntegrityViolation, "generate invitation token", err)
	}
	now := s.clock.Now()
	inv := model.Invitation{
		FamilyID:  familyID,
		Email:     email,
		Role:      role,
		InvitedBy: inviterID,
		Token:     token,
		Status:    model.InvitationPending,
		ExpiresAt: now.Add(s.inviteTTL),
	}

	var fam model.Family
	var inviter model.User
	err = s.store.InTx(ctx, func(tx storage.Store) error {
		var err error
		fam, err = tx.Families().GetLocked(ctx, familyID)
		if errors.Is(err, storage.ErrNotFound) {
			return E(KindNotFound, "family not found")
		}
		if err != nil {
			return E(KindIntegrityViolation, "load family", err)
		}

		member, ok := fam.Member(inviterID)
		if !ok {
			return E(KindPermissionDenied, "inviter is not a member of this family")
		}
		if member.Role != model.RolePrimary {
			return E(KindPermissionDenied, "only the PRIMARY member may invite")
		}

		// An existing account with this email that is already a member
		// makes the invitation pointless.
		if existing, err := tx.Users().GetByEmail(ctx, email); err == nil {
			if _, isMember := fam.Member(existing.ID); isMember {
				return E(KindConflict, "this email already belongs to a family member")
			}
		} else if !errors.Is(err, storage.ErrNotFound) {
			return E(KindIntegrityViolation, "look up invitee account", err)
		}

		inviter, err = tx.Users().GetByID(ctx, inviterID)
		if err != nil {
			return E(KindIntegrityViolation, "load inviter", err)
		}

		if err := tx.Invitations().Create(ctx, &inv); err != nil {
			if !errors.Is(err, storage.ErrDuplicatePending) {
				return E(KindIntegrityViolation, "create invitation", err)
			}
			// A pending invitation already exists for this pair. If it
			// has lapsed, expire it and take its place; otherwise the
			// new one is rejected.
			if retryErr := s.replaceStalePending(ctx, tx, &inv, now); retryErr != nil {
				return retryErr
			}
		}
		return nil
	})
	if err != nil {
		return model.Invitation{}, err
	}

	metrics.InvitationsIssued.Inc()
	s.dispatchNotification(fam, inviter, inv)
	return inv, nil
}

// replaceStalePending handles a duplicate-pending collision during
// Issue: the colliding invitation is expired if overdue, then the new
// one is inserted. A still-live collision is a conflict.
func (s *InvitationService) replaceStalePending(ctx context.Context, tx storage.Store, inv *model.Invitation, now time.Time) error {
	pending, err := tx.Invitations().ListPendingByFamily(ctx, inv.FamilyID)
	if err != nil {
		return E(KindIntegrityViolation, "list pending invitations", err)
	}
	for _, p := range pending {
		if p.Email != inv.Email {
			continue
		}
		if !p.ExpiredBy(now) {
			return E(KindConflict, "a pending invitation already exists for this email")
		}
		if err := tx.Invitations().MarkExpired(ctx, p.ID); err != nil {
			return E(KindIntegrityViolation, "expire stale invitation", err)
		}
		if err := tx.Invitations().Create(ctx, inv); err != nil {
			return E(KindIntegrityViolation, "create invitation", err)
		}
		return nil
	}
	return E(KindConflict, "a pending invitation already exists for this email")
}

// GetPublicDetails resolves a token for the unauthenticated landing
// page. Accepted and revoked invitations read as conflicts, overdue
// pending ones are expired on the spot.
func (s *InvitationService) GetPublicDetails(ctx context.Context, token string) (PublicInvitation, error) {
	inv, err := s.store.Invitations().GetByToken(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return PublicInvitation{}, E(KindNotFound, "invitation not found")
	}
	if err != nil {
		return PublicInvitation{}, E(KindIntegrityViolation, "load invitation", err)
	}
	if err := s.checkLive(ctx, inv); err != nil {
		return PublicInvitation{}, err
	}

	fam, err := s.store.Families().Get(ctx, inv.FamilyID)
	if err != nil {
		return PublicInvitation{}, E(KindIntegrityViolation, "load family", err)
	}
	inviter, err := s.store.Users().GetByID(ctx, inv.InvitedBy)
	if err != nil {
		return PublicInvitation{}, E(KindIntegrityViolation, "load inviter", err)
	}
	existing := true
	if _, err := s.store.Users().GetByEmail(ctx, inv.Email); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return PublicInvitation{}, E(KindIntegrityViolation, "look up invitee account", err)
		}
		existing = false
	}
	return PublicInvitation{
		FamilyName:     fam.Name,
		InviterName:    inviter.FullName(),
		Email:          inv.Email,
		Role:           inv.Role,
		ExpiresAt:      inv.ExpiresAt,
		IsExistingUser: existing,
	}, nil
}

// AcceptAsExistingUser accepts an invitation on behalf of a logged-in
// account. The account's email must match the invitee email. Accepting
// when already a member succeeds quietly; the invitation is still
// consumed.
func (s *InvitationService) AcceptAsExistingUser(ctx context.Context, token string, userID uint64) error {
	inv, err := s.store.Invitations().GetByToken(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return E(KindNotFound, "invitation not found")
	}
	if err != nil {
		return E(KindIntegrityViolation, "load invitation", err)
	}
	if err := s.checkLive(ctx, inv); err != nil {
		return err
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return E(KindIntegrityViolation, "load account", err)
	}
	if !strings.EqualFold(user.Email, inv.Email) {
		return E(KindPermissionDenied, "this invitation was issued to a different email address")
	}

	err = s.store.InTx(ctx, func(tx storage.Store) error {
		if _, err := tx.Families().GetLocked(ctx, inv.FamilyID); err != nil {
			return E(KindIntegrityViolation, "lock family", err)
		}
		if err := tx.Invitations().MarkAccepted(ctx, inv.ID, userID, s.clock.Now()); err != nil {
			if errors.Is(err, storage.ErrStaleInvitation) {
				return E(KindConflict, "invitation is no longer pending")
			}
			return E(KindIntegrityViolation, "accept invitation", err)
		}
		err := tx.Families().AddMember(ctx, &model.FamilyMember{
			FamilyID: inv.FamilyID,
			UserID:   userID,
			Role:     inv.Role,
			JoinedAt: s.clock.Now(),
		})
		if errors.Is(err, storage.ErrDuplicateMember) {
			// Already a member through some other path. The invitation
			// is consumed and the existing membership stands untouched.
			return nil
		}
		if err != nil {
			return E(KindIntegrityViolation, "add member", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.InvitationsAccepted.Inc()
	return nil
}

// AcceptWithRegistration creates an account for the invitee email,
// accepts the invitation and adds the membership in one transaction,
// then logs the new account in. The submitted email must match the
// invitation's; the account is always created under the invitation's
// address.
func (s *InvitationService) AcceptWithRegistration(ctx context.Context, token string, reg Registration) (model.User, model.Session, error) {
	if len(reg.Password) < 8 {
		return model.User{}, model.Session{}, E(KindInvalidInput, "password must be at least 8 characters")
	}

	inv, err := s.store.Invitations().GetByToken(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return model.User{}, model.Session{}, E(KindNotFound, "invitation not found")
	}
	if err != nil {
		return model.User{}, model.Session{}, E(KindIntegrityViolation, "load invitation", err)
	}
	if err := s.checkLive(ctx, inv); err != nil {
		return model.User{}, model.Session{}, err
	}
	if !strings.EqualFold(strings.TrimSpace(reg.Email), inv.Email) {
		return model.User{}, model.Session{}, E(KindPermissionDenied, "this invitation was issued to a different email address")
	}

	hash, err := utils.HashPassword(reg.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, model.Session{}, E(KindIntegrityViolation, "hash password", err)
	}

	user := model.User{
		Email:        inv.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(reg.FirstName),
		LastName:     strings.TrimSpace(reg.LastName),
	}
	err = s.store.InTx(ctx, func(tx storage.Store) error {
		if _, err := tx.Families().GetLocked(ctx, inv.FamilyID); err != nil {
			return E(KindIntegrityViolation, "lock family", err)
		}
		if err := tx.Users().Create(ctx, &user); err != nil {
			if errors.Is(err, storage.ErrDuplicateEmail) {
				return E(KindConflict, "an account with this email already exists; sign in to accept")
			}
			return E(KindIntegrityViolation, "create account", err)
		}
		if err := tx.Invitations().MarkAccepted(ctx, inv.ID, user.ID, s.clock.Now()); err != nil {
			if errors.Is(err, storage.ErrStaleInvitation) {
				return E(KindConflict, "invitation is no longer pending")
			}
			return E(KindIntegrityViolation, "accept invitation", err)
		}
		if err := tx.Families().AddMember(ctx, &model.FamilyMember{
			FamilyID: inv.FamilyID,
			UserID:   user.ID,
			Role:     inv.Role,
			JoinedAt: s.clock.Now(),
		}); err != nil {
			return E(KindIntegrityViolation, "add member", err)
		}
		return nil
	})
	if err != nil {
		return model.User{}, model.Session{}, err
	}

	metrics.InvitationsAccepted.Inc()

	session, err := s.sessions.Issue(ctx, user)
	if err != nil {
		// The membership is committed; a session failure only means the
		// user signs in manually.
		slog.Error("issue session after registration", "user_id", user.ID, "error", err)
		return user, model.Session{}, nil
	}
	return user, session, nil
}

// Revoke withdraws a pending invitation. Only the PRIMARY member of the
// invitation's family may revoke.
func (s *InvitationService) Revoke(ctx context.Context, invitationID, actorID uint64) error {
	inv, err := s.store.Invitations().GetByID(ctx, invitationID)
	if errors.Is(err, storage.ErrNotFound) {
		return E(KindNotFound, "invitation not found")
	}
	if err != nil {
		return E(KindIntegrityViolation, "load invitation", err)
	}

	fam, err := s.store.Families().Get(ctx, inv.FamilyID)
	if err != nil {
		return E(KindIntegrityViolation, "load family", err)
	}
	member, ok := fam.Member(actorID)
	if !ok || member.Role != model.RolePrimary {
		return E(KindPermissionDenied, "only the PRIMARY member may revoke invitations")
	}

	if err := s.checkLive(ctx, inv); err != nil {
		return err
	}
	if err := s.store.Invitations().MarkRevoked(ctx, inv.ID); err != nil {
		if errors.Is(err, storage.ErrStaleInvitation) {
			return E(KindConflict, "invitation is no longer pending")
		}
		return E(KindIntegrityViolation, "revoke invitation", err)
	}
	return nil
}

// ListPending returns the family's live pending invitations for members.
// Overdue invitations encountered during the listing are expired and
// omitted.
func (s *InvitationService) ListPending(ctx context.Context, familyID, actorID uint64) ([]model.Invitation, error) {
	fam, err := s.store.Families().Get(ctx, familyID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, E(KindNotFound, "family not found")
	}
	if err != nil {
		return nil, E(KindIntegrityViolation, "load family", err)
	}
	if _, ok := fam.Member(actorID); !ok {
		return nil, E(KindPermissionDenied, "not a member of this family")
	}

	pending, err := s.store.Invitations().ListPendingByFamily(ctx, familyID)
	if err != nil {
		return nil, E(KindIntegrityViolation, "list invitations", err)
	}
	now := s.clock.Now()
	live := pending[:0]
	for _, inv := range pending {
		if inv.ExpiredBy(now) {
			s.expireQuietly(ctx, inv.ID)
			continue
		}
		live = append(live, inv)
	}
	return live, nil
}

// checkLive verifies an invitation is usable right now. A pending but
// overdue invitation is flipped to EXPIRED before the error is
// returned, so the flip sticks even though the caller's operation
// fails.
func (s *InvitationService) checkLive(ctx context.Context, inv model.Invitation) error {
	switch inv.Status {
	case model.InvitationAccepted:
		return E(KindConflict, "invitation has already been accepted")
	case model.InvitationRevoked:
		return E(KindConflict, "invitation has been revoked")
	case model.InvitationExpired:
		return E(KindExpired, "invitation has expired")
	}
	if inv.ExpiredBy(s.clock.Now()) {
		s.expireQuietly(ctx, inv.ID)
		return E(KindExpired, "invitation has expired")
	}
	return nil
}

// expireQuietly performs the lazy PENDING to EXPIRED flip outside any
// enclosing transaction. Losing the compare-and-swap means someone else
// transitioned the row first, which is fine.
func (s *InvitationService) expireQuietly(ctx context.Context, id uint64) {
	err := s.store.Invitations().MarkExpired(ctx, id)
	if err != nil && !errors.Is(err, storage.ErrStaleInvitation) {
		slog.Warn("lazy expiry failed", "invitation_id", id, "error", err)
	}
}

// dispatchNotification hands the committed invitation to the delivery
// channel without blocking the request.
func (s *InvitationService) dispatchNotification(fam model.Family, inviter model.User, inv model.Invitation) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.sender.SendInvite(ctx, notify.Invite{
			FamilyID:   fam.ID,
			FamilyName: fam.Name,
			Email:      inv.Email,
			Role:       string(inv.Role),
			Token:      inv.Token,
			InvitedBy:  inviter.FullName(),
			ExpiresAt:  inv.ExpiresAt.Format(time.RFC3339),
		})
		if err != nil {
			slog.Warn("invitation notification failed", "invitation_id", inv.ID, "error", err)
		}
	}()
}
