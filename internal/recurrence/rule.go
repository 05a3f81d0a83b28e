// Package recurrence parses recurrence rules and expands them into
// concrete occurrence dates inside a time window.
package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Unit is the calendar step a rule advances by.
type Unit string

const (
	UnitDay   Unit = "day"
	UnitWeek  Unit = "week"
	UnitMonth Unit = "month"
)

// ErrInvalidRule is returned when a rule string cannot be parsed.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// Rule is a parsed recurrence rule: every Interval Units starting from
// an anchor date.
type Rule struct {
	Interval int
	Unit     Unit
}

// Parse accepts the supported rule forms:
//
//	daily | weekly | monthly
//	every N days | every N weeks | every N months
//
// Matching is case-insensitive and tolerant of surrounding whitespace.
func Parse(raw string) (Rule, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "daily":
		return Rule{Interval: 1, Unit: UnitDay}, nil
	case "weekly":
		return Rule{Interval: 1, Unit: UnitWeek}, nil
	case "monthly":
		return Rule{Interval: 1, Unit: UnitMonth}, nil
	}

	fields := strings.Fields(s)
	if len(fields) != 3 || fields[0] != "every" {
		return Rule{}, fmt.Errorf("%w: %q", ErrInvalidRule, raw)
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 {
		return Rule{}, fmt.Errorf("%w: %q", ErrInvalidRule, raw)
	}
	var unit Unit
	switch fields[2] {
	case "day", "days":
		unit = UnitDay
	case "week", "weeks":
		unit = UnitWeek
	case "month", "months":
		unit = UnitMonth
	default:
		return Rule{}, fmt.Errorf("%w: %q", ErrInvalidRule, raw)
	}
	return Rule{Interval: n, Unit: unit}, nil
}

// step advances t by one rule interval. Month steps use AddDate, so a
// Jan 31 anchor normalizes forward the way the Go time package does.
func (r Rule) step(t time.Time) time.Time {
	switch r.Unit {
	case UnitDay:
		return t.AddDate(0, 0, r.Interval)
	case UnitWeek:
		return t.AddDate(0, 0, 7*r.Interval)
	case UnitMonth:
		return t.AddDate(0, r.Interval, 0)
	}
	return t
}

// Occurrences expands the rule from anchor and returns every occurrence
// inside [from, to], both bounds inclusive. Occurrences before the
// window are skipped; anchors in the future simply produce their first
// hit once the window reaches them.
func (r Rule) Occurrences(anchor, from, to time.Time) []time.Time {
	if to.Before(from) {
		return nil
	}
	cur := anchor

	// Fast-forward fixed-length periods instead of looping day by day
	// from an old anchor.
	if cur.Before(from) && (r.Unit == UnitDay || r.Unit == UnitWeek) {
		stepDays := r.Interval
		if r.Unit == UnitWeek {
			stepDays = 7 * r.Interval
		}
		behind := int(from.Sub(cur).Hours() / 24)
		skip := behind / stepDays
		cur = cur.AddDate(0, 0, skip*stepDays)
	}
	for cur.Before(from) {
		cur = r.step(cur)
	}

	var out []time.Time
	for !cur.After(to) {
		out = append(out, cur)
		cur = r.step(cur)
	}
	return out
}
