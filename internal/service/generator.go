package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mkravets/famhub/internal/metrics"
	"github.com/mkravets/famhub/internal/model"
	"github.com/mkravets/famhub/internal/recurrence"
	"github.com/mkravets/famhub/internal/storage"
)

// Generator materializes task instances from recurring templates inside
// a rolling window starting at "now". Cycles are idempotent: the
// one-instance-per-(template, day) constraint in storage makes a rerun
// a sequence of harmless duplicate rejections, so overlapping or
// repeated cycles never double-create.
type Generator struct {
	store  storage.Store
	clock  Clock
	window time.Duration
}

// NewGenerator wires a Generator with the given look-ahead window.
func NewGenerator(store storage.Store, clock Clock, window time.Duration) *Generator {
	return &Generator{store: store, clock: clock, window: window}
}

// CycleStats summarizes one generation cycle.
type CycleStats struct {
	Templates int
	Created   int
	Skipped   int
	Failed    int
}

// RunGenerationCycle expands every recurring template into the window
// [now, now+window] and inserts the missing instances. A failure on one
// template is logged and counted but never aborts the cycle; the
// remaining templates still run.
func (g *Generator) RunGenerationCycle(ctx context.Context) (CycleStats, error) {
	templates, err := g.store.Tasks().ListRecurringTemplates(ctx)
	if err != nil {
		return CycleStats{}, E(KindIntegrityViolation, "list recurring templates", err)
	}

	now := g.clock.Now()
	stats := CycleStats{Templates: len(templates)}
	for _, tpl := range templates {
		created, skipped, err := g.generateForTemplate(ctx, tpl, now)
		if err != nil {
			stats.Failed++
			metrics.TemplateFailures.Inc()
			slog.Error("template generation failed", "template_id", tpl.ID, "rule", tpl.RecurrenceRule, "error", err)
			continue
		}
		stats.Created += created
		stats.Skipped += skipped
	}

	metrics.GeneratorRuns.Inc()
	slog.Info("generation cycle complete",
		"templates", stats.Templates, "created", stats.Created,
		"skipped", stats.Skipped, "failed", stats.Failed)
	return stats, nil
}

// generateForTemplate expands one template. The recurrence anchor is
// the template's due date when present, its creation time otherwise.
func (g *Generator) generateForTemplate(ctx context.Context, tpl model.Task, now time.Time) (created, skipped int, err error) {
	rule, err := recurrence.Parse(tpl.RecurrenceRule)
	if err != nil {
		return 0, 0, err
	}

	anchor := tpl.CreatedAt
	if tpl.DueDate != nil {
		anchor = *tpl.DueDate
	}

	for _, due := range rule.Occurrences(anchor, now, now.Add(g.window)) {
		due := due
		templateID := tpl.ID
		inst := model.Task{
			FamilyID:        tpl.FamilyID,
			CreatedBy:       tpl.CreatedBy,
			Title:           tpl.Title,
			Description:     tpl.Description,
			DueDate:         &due,
			Status:          model.TaskPending,
			Priority:        tpl.Priority,
			RecurringTaskID: &templateID,
		}
		insErr := g.store.Tasks().Create(ctx, &inst)
		switch {
		case insErr == nil:
			created++
			metrics.InstancesCreated.Inc()
		case errors.Is(insErr, storage.ErrDuplicateInstance):
			skipped++
		default:
			return created, skipped, insErr
		}
	}
	return created, skipped, nil
}

// Run executes a cycle immediately and then on every tick of interval
// until ctx is cancelled. Meant to be started in its own goroutine.
func (g *Generator) Run(ctx context.Context, interval time.Duration) {
	if _, err := g.RunGenerationCycle(ctx); err != nil {
		slog.Error("generation cycle failed", "error", err)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := g.RunGenerationCycle(ctx); err != nil {
				slog.Error("generation cycle failed", "error", err)
			}
		}
	}
}
