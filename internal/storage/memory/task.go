package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mkravets/famhub/internal/model"
	"github.com/mkravets/famhub/internal/storage"
)

type taskStore struct {
	s *Store
}

func instanceKey(templateID uint64, due time.Time) string {
	return fmt.Sprintf("%d:%s", templateID, due.UTC().Format("2006-01-02"))
}

func (t *taskStore) Create(ctx context.Context, task *model.Task) error {
	unlock := t.s.lock()
	defer unlock()
	st := t.s.st
	var key string
	if task.RecurringTaskID != nil && task.DueDate != nil {
		key = instanceKey(*task.RecurringTaskID, *task.DueDate)
		if _, exists := st.instanceKeys[key]; exists {
			return storage.ErrDuplicateInstance
		}
	}
	task.ID = st.id()
	if task.Status == "" {
		task.Status = model.TaskPending
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = nowUTC()
	}
	task.UpdatedAt = task.CreatedAt
	st.tasks[task.ID] = *task
	if key != "" {
		st.instanceKeys[key] = task.ID
	}
	return nil
}

func (t *taskStore) GetByID(ctx context.Context, id uint64) (model.Task, error) {
	unlock := t.s.lock()
	defer unlock()
	task, ok := t.s.st.tasks[id]
	if !ok {
		return model.Task{}, storage.ErrNotFound
	}
	return task, nil
}

func (t *taskStore) ListByFamily(ctx context.Context, familyID uint64) ([]model.Task, error) {
	unlock := t.s.lock()
	defer unlock()
	var tasks []model.Task
	for _, task := range t.s.st.tasks {
		if task.FamilyID == familyID {
			tasks = append(tasks, task)
		}
	}
	sortTasks(tasks)
	return tasks, nil
}

func (t *taskStore) ListRecurringTemplates(ctx context.Context) ([]model.Task, error) {
	unlock := t.s.lock()
	defer unlock()
	var tasks []model.Task
	for _, task := range t.s.st.tasks {
		if task.IsTemplate() {
			tasks = append(tasks, task)
		}
	}
	sortTasks(tasks)
	return tasks, nil
}

func (t *taskStore) Complete(ctx context.Context, id, completedBy uint64, completedAt time.Time) error {
	unlock := t.s.lock()
	defer unlock()
	st := t.s.st
	task, ok := st.tasks[id]
	if !ok {
		return storage.ErrNotFound
	}
	task.Status = model.TaskDone
	at := completedAt
	by := completedBy
	task.CompletedAt = &at
	task.CompletedBy = &by
	task.UpdatedAt = nowUTC()
	st.tasks[id] = task
	return nil
}

func sortTasks(tasks []model.Task) {
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
}
