package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/mkravets/famhub/internal/model"
	"github.com/mkravets/famhub/internal/storage"
)

type taskStore struct {
	q querier
}

var _ storage.TaskStore = (*taskStore)(nil)

const taskColumns = `id, family_id, created_by, title, description, due_date, status,
	priority, recurring, recurrence_rule, recurring_task_id, completed_at,
	completed_by, created_at, updated_at`

// Create inserts a task. For generated instances the schema's
// uq_task_instance index on (recurring_task_id, due_day) rejects a second
// instance for the same template and calendar day atomically, which is what
// makes generation runs idempotent under concurrency.
func (s *taskStore) Create(ctx context.Context, t *model.Task) error {
	var due any
	if t.DueDate != nil {
		due = t.DueDate.UTC().Format("2006-01-02 15:04:05")
	}
	var rule any
	if t.RecurrenceRule != "" {
		rule = t.RecurrenceRule
	}
	var templateID any
	if t.RecurringTaskID != nil {
		templateID = *t.RecurringTaskID
	}
	status := t.Status
	if status == "" {
		status = model.TaskPending
	}
	priority := t.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO tasks (family_id, created_by, title, description, due_date,
		   status, priority, recurring, recurrence_rule, recurring_task_id)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		t.FamilyID, t.CreatedBy, t.Title, t.Description, due,
		status, priority, t.Recurring, rule, templateID)
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
	*t = created
	return nil
}

func (s *taskStore) GetByID(ctx context.Context, id uint64) (model.Task, error) {
	return s.scanOne(s.q.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? LIMIT 1`, id))
}

func (s *taskStore) ListByFamily(ctx context.Context, familyID uint64) ([]model.Task, error) {
	return s.list(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE family_id = ? ORDER BY created_at, id`,
		familyID)
}

func (s *taskStore) ListRecurringTemplates(ctx context.Context) ([]model.Task, error) {
	return s.list(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE recurring = 1 AND recurrence_rule IS NOT NULL AND recurrence_rule <> ''
		 ORDER BY id`)
}

func (s *taskStore) Complete(ctx context.Context, id, completedBy uint64, completedAt time.Time) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE tasks SET status = ?, completed_at = ?, completed_by = ? WHERE id = ?`,
		model.TaskDone, completedAt.UTC().Format("2006-01-02 15:04:05"), completedBy, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *taskStore) list(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tasks []model.Task
	for rows.Next() {
		t, err := s.scanOne(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *taskStore) scanOne(row interface{ Scan(...any) error }) (model.Task, error) {
	var (
		t           model.Task
		due         sql.NullTime
		rule        sql.NullString
		templateID  sql.NullInt64
		completedAt sql.NullTime
		completedBy sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.FamilyID, &t.CreatedBy, &t.Title, &t.Description,
		&due, &t.Status, &t.Priority, &t.Recurring, &rule, &templateID,
		&completedAt, &completedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Task{}, notFound(err)
	}
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	if rule.Valid {
		t.RecurrenceRule = rule.String
	}
	if templateID.Valid {
		id := uint64(templateID.Int64)
		t.RecurringTaskID = &id
	}
	if completedAt.Valid {
		c := completedAt.Time
		t.CompletedAt = &c
	}
	if completedBy.Valid {
		id := uint64(completedBy.Int64)
		t.CompletedBy = &id
	}
	return t, nil
}
