package service

import (
	"context"
	"testing"
	"time"

	"github.com/mkravets/famhub/internal/model"
	"github.com/mkravets/famhub/internal/storage/memory"
)

type famTestEnv struct {
	store *memory.Store
	clock *FixedClock
	svc   *FamilyService
}

func newFamTestEnv(t *testing.T) *famTestEnv {
	t.Helper()
	env := &famTestEnv{
		store: memory.New(),
		clock: &FixedClock{T: time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)},
	}
	env.svc = NewFamilyService(env.store, env.clock)
	return env
}

func (e *famTestEnv) user(t *testing.T, email string) model.User {
	t.Helper()
	u := model.User{Email: email, PasswordHash: "x"}
	if err := e.store.Users().Create(context.Background(), &u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func TestCreateFamily(t *testing.T) {
	env := newFamTestEnv(t)
	owner := env.user(t, "owner@example.com")
	ctx := context.Background()

	fam, err := env.svc.Create(ctx, owner.ID, "  Smith Household ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if fam.Name != "Smith Household" {
		t.Errorf("name = %q", fam.Name)
	}
	if len(fam.Members) != 1 {
		t.Fatalf("members = %d, want exactly the creator", len(fam.Members))
	}
	if fam.Members[0].UserID != owner.ID || fam.Members[0].Role != model.RolePrimary {
		t.Errorf("creator membership = %+v, want PRIMARY", fam.Members[0])
	}

	if _, err := env.svc.Create(ctx, owner.ID, "   "); KindOf(err) != KindInvalidInput {
		t.Errorf("blank name: kind = %v, want invalid_input", KindOf(err))
	}
}

func TestGetFamilyMembersOnly(t *testing.T) {
	env := newFamTestEnv(t)
	owner := env.user(t, "owner@example.com")
	outsider := env.user(t, "outsider@example.com")
	ctx := context.Background()

	fam, err := env.svc.Create(ctx, owner.ID, "Smith Household")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := env.svc.Get(ctx, fam.ID, owner.ID); err != nil {
		t.Errorf("member lookup: %v", err)
	}
	if _, err := env.svc.Get(ctx, fam.ID, outsider.ID); KindOf(err) != KindPermissionDenied {
		t.Errorf("outsider lookup: kind = %v, want permission_denied", KindOf(err))
	}
	if _, err := env.svc.Get(ctx, 9999, owner.ID); KindOf(err) != KindNotFound {
		t.Errorf("missing family: kind = %v, want not_found", KindOf(err))
	}
}

func TestRemoveMember(t *testing.T) {
	env := newFamTestEnv(t)
	owner := env.user(t, "owner@example.com")
	admin := env.user(t, "admin@example.com")
	plain := env.user(t, "plain@example.com")
	ctx := context.Background()

	fam, err := env.svc.Create(ctx, owner.ID, "Smith Household")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, m := range []struct {
		u    model.User
		role model.Role
	}{{admin, model.RoleAdmin}, {plain, model.RoleMember}} {
		err := env.store.Families().AddMember(ctx, &model.FamilyMember{
			FamilyID: fam.ID, UserID: m.u.ID, Role: m.role, JoinedAt: env.clock.Now(),
		})
		if err != nil {
			t.Fatalf("seed member: %v", err)
		}
	}

	t.Run("member cannot remove", func(t *testing.T) {
		if err := env.svc.RemoveMember(ctx, fam.ID, plain.ID, admin.ID); KindOf(err) != KindPermissionDenied {
			t.Errorf("kind = %v, want permission_denied", KindOf(err))
		}
	})
	t.Run("admin cannot remove", func(t *testing.T) {
		if err := env.svc.RemoveMember(ctx, fam.ID, admin.ID, plain.ID); KindOf(err) != KindPermissionDenied {
			t.Errorf("kind = %v, want permission_denied", KindOf(err))
		}
	})
	t.Run("primary cannot be removed", func(t *testing.T) {
		if err := env.svc.RemoveMember(ctx, fam.ID, admin.ID, owner.ID); KindOf(err) != KindPermissionDenied {
			t.Errorf("kind = %v, want permission_denied", KindOf(err))
		}
	})
	t.Run("no self-removal", func(t *testing.T) {
		if err := env.svc.RemoveMember(ctx, fam.ID, admin.ID, admin.ID); KindOf(err) != KindPermissionDenied {
			t.Errorf("kind = %v, want permission_denied", KindOf(err))
		}
	})
	t.Run("primary removes member", func(t *testing.T) {
		if err := env.svc.RemoveMember(ctx, fam.ID, owner.ID, plain.ID); err != nil {
			t.Fatalf("RemoveMember: %v", err)
		}
		if _, err := env.store.Families().GetMember(ctx, fam.ID, plain.ID); err == nil {
			t.Error("membership still present")
		}
	})
	t.Run("removing a non-member", func(t *testing.T) {
		if err := env.svc.RemoveMember(ctx, fam.ID, owner.ID, plain.ID); KindOf(err) != KindNotFound {
			t.Errorf("kind = %v, want not_found", KindOf(err))
		}
	})
}

func TestUpdateMemberRole(t *testing.T) {
	env := newFamTestEnv(t)
	owner := env.user(t, "owner@example.com")
	plain := env.user(t, "plain@example.com")
	ctx := context.Background()

	fam, err := env.svc.Create(ctx, owner.ID, "Smith Household")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	err = env.store.Families().AddMember(ctx, &model.FamilyMember{
		FamilyID: fam.ID, UserID: plain.ID, Role: model.RoleMember, JoinedAt: env.clock.Now(),
	})
	if err != nil {
		t.Fatalf("seed member: %v", err)
	}

	t.Run("promote to admin", func(t *testing.T) {
		if err := env.svc.UpdateMemberRole(ctx, fam.ID, owner.ID, plain.ID, model.RoleAdmin); err != nil {
			t.Fatalf("UpdateMemberRole: %v", err)
		}
		m, _ := env.store.Families().GetMember(ctx, fam.ID, plain.ID)
		if m.Role != model.RoleAdmin {
			t.Errorf("role = %s, want ADMIN", m.Role)
		}
	})
	t.Run("primary is never assignable", func(t *testing.T) {
		if err := env.svc.UpdateMemberRole(ctx, fam.ID, owner.ID, plain.ID, model.RolePrimary); KindOf(err) != KindInvalidInput {
			t.Errorf("kind = %v, want invalid_input", KindOf(err))
		}
	})
	t.Run("primary cannot be re-roled", func(t *testing.T) {
		if err := env.svc.UpdateMemberRole(ctx, fam.ID, plain.ID, owner.ID, model.RoleMember); KindOf(err) != KindPermissionDenied {
			t.Errorf("kind = %v, want permission_denied", KindOf(err))
		}
	})
	t.Run("no self re-role", func(t *testing.T) {
		if err := env.svc.UpdateMemberRole(ctx, fam.ID, plain.ID, plain.ID, model.RoleMember); KindOf(err) != KindPermissionDenied {
			t.Errorf("kind = %v, want permission_denied", KindOf(err))
		}
	})
	t.Run("unknown role", func(t *testing.T) {
		if err := env.svc.UpdateMemberRole(ctx, fam.ID, owner.ID, plain.ID, model.Role("GUEST")); KindOf(err) != KindInvalidInput {
			t.Errorf("kind = %v, want invalid_input", KindOf(err))
		}
	})
}

func TestMembershipQueries(t *testing.T) {
	env := newFamTestEnv(t)
	owner := env.user(t, "owner@example.com")
	admin := env.user(t, "admin@example.com")
	outsider := env.user(t, "outsider@example.com")
	ctx := context.Background()

	fam, err := env.svc.Create(ctx, owner.ID, "Smith Household")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	err = env.store.Families().AddMember(ctx, &model.FamilyMember{
		FamilyID: fam.ID, UserID: admin.ID, Role: model.RoleAdmin, JoinedAt: env.clock.Now(),
	})
	if err != nil {
		t.Fatalf("seed member: %v", err)
	}

	cases := []struct {
		name              string
		userID            uint64
		isMember, mutates bool
	}{
		{"primary", owner.ID, true, true},
		{"admin", admin.ID, true, false},
		{"outsider", outsider.ID, false, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := env.svc.IsMember(ctx, fam.ID, c.userID)
			if err != nil || got != c.isMember {
				t.Errorf("IsMember = %v, %v; want %v", got, err, c.isMember)
			}
			got, err = env.svc.CanMutateMembership(ctx, fam.ID, c.userID)
			if err != nil || got != c.mutates {
				t.Errorf("CanMutateMembership = %v, %v; want %v", got, err, c.mutates)
			}
		})
	}
}
