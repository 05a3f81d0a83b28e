package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mkravets/famhub/internal/model"
	"github.com/mkravets/famhub/internal/notify"
	"github.com/mkravets/famhub/internal/storage/memory"
)

type fakeSessions struct {
	issued int
}

func (f *fakeSessions) Issue(ctx context.Context, u model.User) (model.Session, error) {
	f.issued++
	return model.Session{AccessToken: "access-token", RefreshToken: "refresh-token"}, nil
}

type recordingSender struct {
	mu      sync.Mutex
	invites []notify.Invite
}

func (r *recordingSender) SendInvite(ctx context.Context, inv notify.Invite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invites = append(r.invites, inv)
	return nil
}

type invTestEnv struct {
	store    *memory.Store
	clock    *FixedClock
	sender   *recordingSender
	sessions *fakeSessions
	svc      *InvitationService
}

func newInvTestEnv(t *testing.T) *invTestEnv {
	t.Helper()
	env := &invTestEnv{
		store:    memory.New(),
		clock:    &FixedClock{T: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)},
		sender:   &recordingSender{},
		sessions: &fakeSessions{},
	}
	env.svc = NewInvitationService(env.store, env.clock, env.sender, env.sessions, 7*24*time.Hour, bcrypt.MinCost)
	return env
}

func (e *invTestEnv) user(t *testing.T, email string) model.User {
	t.Helper()
	u := model.User{Email: email, PasswordHash: "x"}
	if err := e.store.Users().Create(context.Background(), &u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func (e *invTestEnv) family(t *testing.T, creator model.User) model.Family {
	t.Helper()
	f := model.Family{
		Name:      "Smith Household",
		CreatedBy: creator.ID,
		Members: []model.FamilyMember{{
			UserID:   creator.ID,
			Role:     model.RolePrimary,
			JoinedAt: e.clock.Now(),
		}},
	}
	if err := e.store.Families().Create(context.Background(), &f); err != nil {
		t.Fatalf("create family: %v", err)
	}
	return f
}

func (e *invTestEnv) addMember(t *testing.T, familyID uint64, u model.User, role model.Role) {
	t.Helper()
	err := e.store.Families().AddMember(context.Background(), &model.FamilyMember{
		FamilyID: familyID, UserID: u.ID, Role: role, JoinedAt: e.clock.Now(),
	})
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
}

func TestIssue(t *testing.T) {
	env := newInvTestEnv(t)
	owner := env.user(t, "owner@example.com")
	fam := env.family(t, owner)
	ctx := context.Background()

	inv, err := env.svc.Issue(ctx, fam.ID, owner.ID, "Invitee@Example.com ", model.RoleMember)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if inv.Email != "invitee@example.com" {
		t.Errorf("email not normalized: %q", inv.Email)
	}
	if inv.Status != model.InvitationPending {
		t.Errorf("status = %s, want PENDING", inv.Status)
	}
	if len(inv.Token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(inv.Token))
	}
	if want := env.clock.Now().Add(7 * 24 * time.Hour); !inv.ExpiresAt.Equal(want) {
		t.Errorf("expires at %v, want %v", inv.ExpiresAt, want)
	}

	// A second pending invitation for the same pair is rejected.
	if _, err := env.svc.Issue(ctx, fam.ID, owner.ID, "invitee@example.com", model.RoleAdmin); KindOf(err) != KindConflict {
		t.Errorf("duplicate pending: kind = %v, want conflict", KindOf(err))
	}
}

func TestIssueGuards(t *testing.T) {
	env := newInvTestEnv(t)
	owner := env.user(t, "owner@example.com")
	admin := env.user(t, "admin@example.com")
	plain := env.user(t, "plain@example.com")
	outsider := env.user(t, "outsider@example.com")
	fam := env.family(t, owner)
	env.addMember(t, fam.ID, admin, model.RoleAdmin)
	env.addMember(t, fam.ID, plain, model.RoleMember)
	ctx := context.Background()

	cases := []struct {
		name    string
		inviter uint64
		email   string
		role    model.Role
		kind    Kind
	}{
		{"member cannot invite", plain.ID, "a@example.com", model.RoleMember, KindPermissionDenied},
		{"admin cannot invite", admin.ID, "a@example.com", model.RoleMember, KindPermissionDenied},
		{"outsider cannot invite", outsider.ID, "a@example.com", model.RoleMember, KindPermissionDenied},
		{"primary role not assignable", owner.ID, "a@example.com", model.RolePrimary, KindInvalidInput},
		{"unknown role", owner.ID, "a@example.com", model.Role("GUEST"), KindInvalidInput},
		{"bad email", owner.ID, "not-an-email", model.RoleMember, KindInvalidInput},
		{"existing member email", owner.ID, "plain@example.com", model.RoleMember, KindConflict},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := env.svc.Issue(ctx, fam.ID, c.inviter, c.email, c.role)
			if KindOf(err) != c.kind {
				t.Errorf("kind = %v (%v), want %v", KindOf(err), err, c.kind)
			}
		})
	}

	if _, err := env.svc.Issue(ctx, 9999, owner.ID, "a@example.com", model.RoleMember); KindOf(err) != KindNotFound {
		t.Errorf("missing family: kind = %v, want not_found", KindOf(err))
	}
}

func TestIssueReplacesStalePending(t *testing.T) {
	env := newInvTestEnv(t)
	owner := env.user(t, "owner@example.com")
	fam := env.family(t, owner)
	ctx := context.Background()

	first, err := env.svc.Issue(ctx, fam.ID, owner.ID, "invitee@example.com", model.RoleMember)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Past the deadline the stale invitation no longer blocks a new one.
	env.clock.T = env.clock.T.Add(8 * 24 * time.Hour)
	second, err := env.svc.Issue(ctx, fam.ID, owner.ID, "invitee@example.com", model.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue after expiry: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("expected a fresh invitation")
	}

	got, err := env.store.Invitations().GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("reload first: %v", err)
	}
	if got.Status != model.InvitationExpired {
		t.Errorf("stale invitation status = %s, want EXPIRED", got.Status)
	}
}

func TestAcceptAsExistingUser(t *testing.T) {
	env := newInvTestEnv(t)
	owner := env.user(t, "owner@example.com")
	invitee := env.user(t, "invitee@example.com")
	fam := env.family(t, owner)
	ctx := context.Background()

	inv, err := env.svc.Issue(ctx, fam.ID, owner.ID, invitee.Email, model.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := env.svc.AcceptAsExistingUser(ctx, inv.Token, invitee.ID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	m, err := env.store.Families().GetMember(ctx, fam.ID, invitee.ID)
	if err != nil {
		t.Fatalf("membership missing: %v", err)
	}
	if m.Role != model.RoleAdmin {
		t.Errorf("member role = %s, want ADMIN", m.Role)
	}

	got, _ := env.store.Invitations().GetByID(ctx, inv.ID)
	if got.Status != model.InvitationAccepted {
		t.Errorf("status = %s, want ACCEPTED", got.Status)
	}
	if got.AcceptedBy == nil || *got.AcceptedBy != invitee.ID {
		t.Errorf("accepted_by = %v, want %d", got.AcceptedBy, invitee.ID)
	}
	if got.AcceptedAt == nil || !got.AcceptedAt.Equal(env.clock.Now()) {
		t.Errorf("accepted_at = %v, want %v", got.AcceptedAt, env.clock.Now())
	}

	// Second accept of a consumed invitation conflicts.
	if err := env.svc.AcceptAsExistingUser(ctx, inv.Token, invitee.ID); KindOf(err) != KindConflict {
		t.Errorf("double accept: kind = %v, want conflict", KindOf(err))
	}
}

func TestAcceptIdentityMismatch(t *testing.T) {
	env := newInvTestEnv(t)
	owner := env.user(t, "owner@example.com")
	other := env.user(t, "other@example.com")
	fam := env.family(t, owner)
	ctx := context.Background()

	inv, err := env.svc.Issue(ctx, fam.ID, owner.ID, "invitee@example.com", model.RoleMember)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := env.svc.AcceptAsExistingUser(ctx, inv.Token, other.ID); KindOf(err) != KindPermissionDenied {
		t.Errorf("kind = %v, want permission_denied", KindOf(err))
	}
	got, _ := env.store.Invitations().GetByID(ctx, inv.ID)
	if got.Status != model.InvitationPending {
		t.Errorf("mismatched accept must not consume the invitation, status = %s", got.Status)
	}
}

func TestAcceptLazyExpiry(t *testing.T) {
	env := newInvTestEnv(t)
	owner := env.user(t, "owner@example.com")
	invitee := env.user(t, "invitee@example.com")
	fam := env.family(t, owner)
	ctx := context.Background()

	inv, err := env.svc.Issue(ctx, fam.ID, owner.ID, invitee.Email, model.RoleMember)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	env.clock.T = env.clock.T.Add(7*24*time.Hour + time.Minute)
	if err := env.svc.AcceptAsExistingUser(ctx, inv.Token, invitee.ID); KindOf(err) != KindExpired {
		t.Fatalf("kind = %v, want expired", KindOf(err))
	}

	// The expiry flip persists even though the accept failed.
	got, _ := env.store.Invitations().GetByID(ctx, inv.ID)
	if got.Status != model.InvitationExpired {
		t.Errorf("status = %s, want EXPIRED", got.Status)
	}
	if _, err := env.store.Families().GetMember(ctx, fam.ID, invitee.ID); err == nil {
		t.Error("no membership must be created on an expired accept")
	}
}

func TestAcceptAlreadyMember(t *testing.T) {
	env := newInvTestEnv(t)
	owner := env.user(t, "owner@example.com")
	invitee := env.user(t, "invitee@example.com")
	fam := env.family(t, owner)
	ctx := context.Background()

	inv, err := env.svc.Issue(ctx, fam.ID, owner.ID, invitee.Email, model.RoleMember)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	// The invitee joins through another path before accepting.
	env.addMember(t, fam.ID, invitee, model.RoleAdmin)

	if err := env.svc.AcceptAsExistingUser(ctx, inv.Token, invitee.ID); err != nil {
		t.Fatalf("accept as existing member: %v", err)
	}
	got, _ := env.store.Invitations().GetByID(ctx, inv.ID)
	if got.Status != model.InvitationAccepted {
		t.Errorf("status = %s, want ACCEPTED", got.Status)
	}
	m, _ := env.store.Families().GetMember(ctx, fam.ID, invitee.ID)
	if m.Role != model.RoleAdmin {
		t.Errorf("existing membership must stand untouched, role = %s", m.Role)
	}
}

func TestConcurrentAccepts(t *testing.T) {
	env := newInvTestEnv(t)
	owner := env.user(t, "owner@example.com")
	invitee := env.user(t, "invitee@example.com")
	fam := env.family(t, owner)
	ctx := context.Background()

	inv, err := env.svc.Issue(ctx, fam.ID, owner.ID, invitee.Email, model.RoleMember)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = env.svc.AcceptAsExistingUser(ctx, inv.Token, invitee.ID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else if KindOf(err) != KindConflict {
			t.Errorf("unexpected error kind %v: %v", KindOf(err), err)
		}
	}
	if ok != 1 {
		t.Errorf("exactly one accept must win, got %d", ok)
	}
}

func TestAcceptWithRegistration(t *testing.T) {
	env := newInvTestEnv(t)
	owner := env.user(t, "owner@example.com")
	fam := env.family(t, owner)
	ctx := context.Background()

	inv, err := env.svc.Issue(ctx, fam.ID, owner.ID, "newbie@example.com", model.RoleMember)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	user, sess, err := env.svc.AcceptWithRegistration(ctx, inv.Token, Registration{
		Email: "Newbie@Example.com", Password: "s3cret-pass", FirstName: "Nora", LastName: "Smith",
	})
	if err != nil {
		t.Fatalf("AcceptWithRegistration: %v", err)
	}
	if user.Email != "newbie@example.com" {
		t.Errorf("account email = %q, want the invitation's email", user.Email)
	}
	if sess.AccessToken == "" {
		t.Error("expected a session to be issued")
	}
	if env.sessions.issued != 1 {
		t.Errorf("sessions issued = %d, want 1", env.sessions.issued)
	}
	if _, err := env.store.Families().GetMember(ctx, fam.ID, user.ID); err != nil {
		t.Errorf("membership missing: %v", err)
	}
	got, _ := env.store.Invitations().GetByID(ctx, inv.ID)
	if got.Status != model.InvitationAccepted {
		t.Errorf("status = %s, want ACCEPTED", got.Status)
	}
}

func TestAcceptWithRegistrationEmailMismatch(t *testing.T) {
	env := newInvTestEnv(t)
	owner := env.user(t, "owner@example.com")
	fam := env.family(t, owner)
	ctx := context.Background()

	inv, err := env.svc.Issue(ctx, fam.ID, owner.ID, "newbie@example.com", model.RoleMember)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, _, err = env.svc.AcceptWithRegistration(ctx, inv.Token, Registration{
		Email: "someone-else@example.com", Password: "s3cret-pass",
	})
	if KindOf(err) != KindPermissionDenied {
		t.Fatalf("kind = %v, want permission_denied", KindOf(err))
	}
	got, _ := env.store.Invitations().GetByID(ctx, inv.ID)
	if got.Status != model.InvitationPending {
		t.Errorf("mismatched accept must not consume the invitation, status = %s", got.Status)
	}
}

func TestAcceptWithRegistrationExistingEmail(t *testing.T) {
	env := newInvTestEnv(t)
	owner := env.user(t, "owner@example.com")
	env.user(t, "invitee@example.com")
	fam := env.family(t, owner)
	ctx := context.Background()

	inv, err := env.svc.Issue(ctx, fam.ID, owner.ID, "invitee@example.com", model.RoleMember)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, _, err = env.svc.AcceptWithRegistration(ctx, inv.Token, Registration{
		Email: "invitee@example.com", Password: "s3cret-pass",
	})
	if KindOf(err) != KindConflict {
		t.Fatalf("kind = %v, want conflict", KindOf(err))
	}

	// The whole transaction rolled back: the invitation is still usable.
	got, _ := env.store.Invitations().GetByID(ctx, inv.ID)
	if got.Status != model.InvitationPending {
		t.Errorf("status = %s, want PENDING after rollback", got.Status)
	}
}

func TestAcceptWithRegistrationWeakPassword(t *testing.T) {
	env := newInvTestEnv(t)
	_, _, err := env.svc.AcceptWithRegistration(context.Background(), "whatever", Registration{Password: "short"})
	if KindOf(err) != KindInvalidInput {
		t.Errorf("kind = %v, want invalid_input", KindOf(err))
	}
}

func TestRevoke(t *testing.T) {
	env := newInvTestEnv(t)
	owner := env.user(t, "owner@example.com")
	admin := env.user(t, "admin@example.com")
	plain := env.user(t, "plain@example.com")
	fam := env.family(t, owner)
	env.addMember(t, fam.ID, admin, model.RoleAdmin)
	env.addMember(t, fam.ID, plain, model.RoleMember)
	ctx := context.Background()

	inv, err := env.svc.Issue(ctx, fam.ID, owner.ID, "invitee@example.com", model.RoleMember)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := env.svc.Revoke(ctx, inv.ID, plain.ID); KindOf(err) != KindPermissionDenied {
		t.Errorf("member revoke: kind = %v, want permission_denied", KindOf(err))
	}
	if err := env.svc.Revoke(ctx, inv.ID, admin.ID); KindOf(err) != KindPermissionDenied {
		t.Errorf("admin revoke: kind = %v, want permission_denied", KindOf(err))
	}
	if err := env.svc.Revoke(ctx, inv.ID, owner.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	got, _ := env.store.Invitations().GetByID(ctx, inv.ID)
	if got.Status != model.InvitationRevoked {
		t.Errorf("status = %s, want REVOKED", got.Status)
	}
	if err := env.svc.Revoke(ctx, inv.ID, owner.ID); KindOf(err) != KindConflict {
		t.Errorf("revoking a revoked invitation: kind = %v, want conflict", KindOf(err))
	}
}

func TestGetPublicDetails(t *testing.T) {
	env := newInvTestEnv(t)
	owner := env.user(t, "owner@example.com")
	owner.FirstName = "Ann"
	fam := env.family(t, owner)
	ctx := context.Background()

	inv, err := env.svc.Issue(ctx, fam.ID, owner.ID, "invitee@example.com", model.RoleMember)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	details, err := env.svc.GetPublicDetails(ctx, inv.Token)
	if err != nil {
		t.Fatalf("GetPublicDetails: %v", err)
	}
	if details.FamilyName != fam.Name {
		t.Errorf("family name = %q, want %q", details.FamilyName, fam.Name)
	}
	if details.Email != "invitee@example.com" || details.Role != model.RoleMember {
		t.Errorf("unexpected details: %+v", details)
	}
	if details.IsExistingUser {
		t.Error("no account exists for the invitee yet")
	}

	env.user(t, "invitee@example.com")
	details, err = env.svc.GetPublicDetails(ctx, inv.Token)
	if err != nil {
		t.Fatalf("GetPublicDetails: %v", err)
	}
	if !details.IsExistingUser {
		t.Error("invitee account exists now; IsExistingUser must be true")
	}

	if _, err := env.svc.GetPublicDetails(ctx, "no-such-token"); KindOf(err) != KindNotFound {
		t.Errorf("unknown token: kind = %v, want not_found", KindOf(err))
	}

	env.clock.T = env.clock.T.Add(8 * 24 * time.Hour)
	if _, err := env.svc.GetPublicDetails(ctx, inv.Token); KindOf(err) != KindExpired {
		t.Errorf("expired token: kind = %v, want expired", KindOf(err))
	}
	got, _ := env.store.Invitations().GetByID(ctx, inv.ID)
	if got.Status != model.InvitationExpired {
		t.Errorf("lazy expiry through public lookup: status = %s", got.Status)
	}
}

func TestIssueNotifies(t *testing.T) {
	env := newInvTestEnv(t)
	owner := env.user(t, "owner@example.com")
	fam := env.family(t, owner)

	inv, err := env.svc.Issue(context.Background(), fam.ID, owner.ID, "invitee@example.com", model.RoleMember)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Delivery is asynchronous; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for {
		env.sender.mu.Lock()
		n := len(env.sender.invites)
		env.sender.mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	env.sender.mu.Lock()
	defer env.sender.mu.Unlock()
	if len(env.sender.invites) != 1 {
		t.Fatalf("notifications sent = %d, want 1", len(env.sender.invites))
	}
	sent := env.sender.invites[0]
	if sent.Token != inv.Token || sent.Email != inv.Email || sent.FamilyName != fam.Name {
		t.Errorf("unexpected notification payload: %+v", sent)
	}
}
