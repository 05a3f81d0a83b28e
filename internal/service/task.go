package service

import (
	"context"
	"errors"
	"strings"

	"github.com/mkravets/famhub/internal/model"
	"github.com/mkravets/famhub/internal/recurrence"
	"github.com/mkravets/famhub/internal/storage"
)

// TaskService implements task creation, listing and completion for
// family members. Recurring templates are validated here; their
// expansion into instances belongs to the Generator.
type TaskService struct {
	store storage.Store
	clock Clock
}

// NewTaskService wires a TaskService.
func NewTaskService(store storage.Store, clock Clock) *TaskService {
	return &TaskService{store: store, clock: clock}
}

// Create inserts a one-off task or a recurring template for the
// family. Template rules are parsed up front so a bad rule is rejected
// at creation time instead of silently producing no instances.
func (s *TaskService) Create(ctx context.Context, familyID, creatorID uint64, t model.Task) (model.Task, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return model.Task{}, E(KindInvalidInput, "task title is required")
	}
	if t.Priority != "" && t.Priority != model.PriorityLow && t.Priority != model.PriorityMedium && t.Priority != model.PriorityHigh {
		return model.Task{}, E(KindInvalidInput, "priority must be LOW, MEDIUM or HIGH")
	}
	if t.Recurring {
		if _, err := recurrence.Parse(t.RecurrenceRule); err != nil {
			return model.Task{}, E(KindInvalidInput, "unsupported recurrence rule", err)
		}
	} else if t.RecurrenceRule != "" {
		return model.Task{}, E(KindInvalidInput, "a recurrence rule requires recurring=true")
	}
	t.FamilyID = familyID
	t.CreatedBy = creatorID
	t.Status = model.TaskPending
	t.RecurringTaskID = nil

	if err := s.requireMember(ctx, familyID, creatorID); err != nil {
		return model.Task{}, err
	}
	if err := s.store.Tasks().Create(ctx, &t); err != nil {
		return model.Task{}, E(KindIntegrityViolation, "create task", err)
	}
	return t, nil
}

// List returns every task of the family, templates included.
func (s *TaskService) List(ctx context.Context, familyID, actorID uint64) ([]model.Task, error) {
	if err := s.requireMember(ctx, familyID, actorID); err != nil {
		return nil, err
	}
	tasks, err := s.store.Tasks().ListByFamily(ctx, familyID)
	if err != nil {
		return nil, E(KindIntegrityViolation, "list tasks", err)
	}
	return tasks, nil
}

// Complete marks a task done. Templates are never completed, only
// their generated instances and ordinary tasks.
func (s *TaskService) Complete(ctx context.Context, taskID, actorID uint64) (model.Task, error) {
	task, err := s.store.Tasks().GetByID(ctx, taskID)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Task{}, E(KindNotFound, "task not found")
	}
	if err != nil {
		return model.Task{}, E(KindIntegrityViolation, "load task", err)
	}
	if task.IsTemplate() {
		return model.Task{}, E(KindConflict, "recurring templates cannot be completed")
	}
	if err := s.requireMember(ctx, task.FamilyID, actorID); err != nil {
		return model.Task{}, err
	}
	if task.Status == model.TaskDone {
		return task, nil
	}
	now := s.clock.Now()
	if err := s.store.Tasks().Complete(ctx, taskID, actorID, now); err != nil {
		return model.Task{}, E(KindIntegrityViolation, "complete task", err)
	}
	task.Status = model.TaskDone
	task.CompletedAt = &now
	task.CompletedBy = &actorID
	return task, nil
}

func (s *TaskService) requireMember(ctx context.Context, familyID, userID uint64) error {
	fam, err := s.store.Families().Get(ctx, familyID)
	if errors.Is(err, storage.ErrNotFound) {
		return E(KindNotFound, "family not found")
	}
	if err != nil {
		return E(KindIntegrityViolation, "load family", err)
	}
	if _, ok := fam.Member(userID); !ok {
		return E(KindPermissionDenied, "not a member of this family")
	}
	return nil
}
