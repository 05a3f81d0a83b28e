package service

import (
	"context"
	"testing"
	"time"

	"github.com/mkravets/famhub/internal/model"
	"github.com/mkravets/famhub/internal/storage/memory"
)

func newTaskTestEnv(t *testing.T) (*memory.Store, *FixedClock, *TaskService, model.User, model.Family) {
	t.Helper()
	store := memory.New()
	clock := &FixedClock{T: time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewTaskService(store, clock)

	ctx := context.Background()
	owner := model.User{Email: "owner@example.com", PasswordHash: "x"}
	if err := store.Users().Create(ctx, &owner); err != nil {
		t.Fatalf("create user: %v", err)
	}
	fam := model.Family{
		Name:      "Smith Household",
		CreatedBy: owner.ID,
		Members: []model.FamilyMember{{
			UserID: owner.ID, Role: model.RolePrimary, JoinedAt: clock.Now(),
		}},
	}
	if err := store.Families().Create(ctx, &fam); err != nil {
		t.Fatalf("create family: %v", err)
	}
	return store, clock, svc, owner, fam
}

func TestCreateTask(t *testing.T) {
	_, _, svc, owner, fam := newTaskTestEnv(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, fam.ID, owner.ID, model.Task{Title: "Buy groceries"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.Status != model.TaskPending || task.Priority != model.PriorityMedium {
		t.Errorf("defaults not applied: status=%s priority=%s", task.Status, task.Priority)
	}

	t.Run("template with valid rule", func(t *testing.T) {
		tpl, err := svc.Create(ctx, fam.ID, owner.ID, model.Task{
			Title: "Water plants", Recurring: true, RecurrenceRule: "every 3 days",
		})
		if err != nil {
			t.Fatalf("Create template: %v", err)
		}
		if !tpl.IsTemplate() {
			t.Error("expected a template")
		}
	})
	t.Run("bad rule rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, fam.ID, owner.ID, model.Task{
			Title: "x", Recurring: true, RecurrenceRule: "every blue moon",
		})
		if KindOf(err) != KindInvalidInput {
			t.Errorf("kind = %v, want invalid_input", KindOf(err))
		}
	})
	t.Run("rule without recurring flag", func(t *testing.T) {
		_, err := svc.Create(ctx, fam.ID, owner.ID, model.Task{Title: "x", RecurrenceRule: "daily"})
		if KindOf(err) != KindInvalidInput {
			t.Errorf("kind = %v, want invalid_input", KindOf(err))
		}
	})
	t.Run("blank title", func(t *testing.T) {
		_, err := svc.Create(ctx, fam.ID, owner.ID, model.Task{Title: "   "})
		if KindOf(err) != KindInvalidInput {
			t.Errorf("kind = %v, want invalid_input", KindOf(err))
		}
	})
	t.Run("non-member denied", func(t *testing.T) {
		_, err := svc.Create(ctx, fam.ID, 9999, model.Task{Title: "x"})
		if KindOf(err) != KindPermissionDenied {
			t.Errorf("kind = %v, want permission_denied", KindOf(err))
		}
	})
}

func TestCompleteTask(t *testing.T) {
	store, clock, svc, owner, fam := newTaskTestEnv(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, fam.ID, owner.ID, model.Task{Title: "Buy groceries"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	done, err := svc.Complete(ctx, task.ID, owner.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != model.TaskDone {
		t.Errorf("status = %s, want DONE", done.Status)
	}
	if done.CompletedAt == nil || !done.CompletedAt.Equal(clock.Now()) {
		t.Errorf("completed_at = %v, want %v", done.CompletedAt, clock.Now())
	}
	if done.CompletedBy == nil || *done.CompletedBy != owner.ID {
		t.Errorf("completed_by = %v, want %d", done.CompletedBy, owner.ID)
	}

	// Completing twice is a no-op, not an error.
	if _, err := svc.Complete(ctx, task.ID, owner.ID); err != nil {
		t.Errorf("second complete: %v", err)
	}

	t.Run("template cannot be completed", func(t *testing.T) {
		tpl := model.Task{FamilyID: fam.ID, CreatedBy: owner.ID, Title: "Water plants", Recurring: true, RecurrenceRule: "daily"}
		if err := store.Tasks().Create(ctx, &tpl); err != nil {
			t.Fatalf("seed template: %v", err)
		}
		if _, err := svc.Complete(ctx, tpl.ID, owner.ID); KindOf(err) != KindConflict {
			t.Errorf("kind = %v, want conflict", KindOf(err))
		}
	})
	t.Run("missing task", func(t *testing.T) {
		if _, err := svc.Complete(ctx, 9999, owner.ID); KindOf(err) != KindNotFound {
			t.Errorf("kind = %v, want not_found", KindOf(err))
		}
	})
}
