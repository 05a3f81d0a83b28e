package model

import "time"

// TaskStatus enumerates the workflow states of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskDone       TaskStatus = "DONE"
)

// TaskPriority enumerates coarse priorities.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
)

// Task models both recurring templates and concrete task instances in the
// `tasks` table. A template has Recurring=true and a non-empty
// RecurrenceRule; it is never assigned or completed itself. An instance is
// an ordinary task generated from a template for one occurrence date,
// carrying a back-reference in RecurringTaskID. For a given
// (RecurringTaskID, calendar day) pair at most one instance exists.
//
// Fields:
//  ID              – primary key identifier.
//  FamilyID        – owning family.
//  CreatedBy       – user who created the template or, for generated
//                    instances, the template's creator.
//  DueDate         – scheduled date; anchors recurrence expansion on templates.
//  Recurring       – marks a template.
//  RecurrenceRule  – rule string, present only on templates.
//  RecurringTaskID – template back-reference, set only on generated instances.
type Task struct {
	ID              uint64
	FamilyID        uint64
	CreatedBy       uint64
	Title           string
	Description     string
	DueDate         *time.Time
	Status          TaskStatus
	Priority        TaskPriority
	Recurring       bool
	RecurrenceRule  string
	RecurringTaskID *uint64
	CompletedAt     *time.Time
	CompletedBy     *uint64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsTemplate reports whether the task is a recurrence template eligible for
// instance generation.
func (t Task) IsTemplate() bool {
	return t.Recurring && t.RecurrenceRule != ""
}
