package recurrence

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Rule
	}{
		{"daily", Rule{1, UnitDay}},
		{"weekly", Rule{1, UnitWeek}},
		{"monthly", Rule{1, UnitMonth}},
		{"every 3 days", Rule{3, UnitDay}},
		{"every 2 weeks", Rule{2, UnitWeek}},
		{"every 1 month", Rule{1, UnitMonth}},
		{"  Every 2 Weeks ", Rule{2, UnitWeek}},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := Parse(c.in)
			if err != nil {
				t.Fatalf("Parse(%q): %v", c.in, err)
			}
			if got != c.want {
				t.Errorf("Parse(%q) = %+v, want %+v", c.in, got, c.want)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "yearly", "every days", "every 0 days", "every -1 weeks", "every two weeks", "every 2 fortnights"} {
		t.Run(in, func(t *testing.T) {
			if _, err := Parse(in); !errors.Is(err, ErrInvalidRule) {
				t.Errorf("Parse(%q) err = %v, want ErrInvalidRule", in, err)
			}
		})
	}
}

func TestOccurrencesDaily(t *testing.T) {
	r := Rule{Interval: 1, Unit: UnitDay}
	from := date(2026, time.March, 1)
	to := date(2026, time.March, 5)
	got := r.Occurrences(date(2026, time.March, 1), from, to)
	if len(got) != 5 {
		t.Fatalf("got %d occurrences, want 5: %v", len(got), got)
	}
	if !got[0].Equal(from) || !got[4].Equal(to) {
		t.Errorf("window bounds not inclusive: first=%v last=%v", got[0], got[4])
	}
}

func TestOccurrencesAnchorInPast(t *testing.T) {
	// Anchor two weeks before the window. Weekly expansion should land
	// exactly on the anchor's weekday inside the window.
	anchor := date(2026, time.February, 10)
	from := date(2026, time.February, 24)
	to := date(2026, time.March, 26)
	got := Rule{Interval: 1, Unit: UnitWeek}.Occurrences(anchor, from, to)
	want := []time.Time{
		date(2026, time.February, 24),
		date(2026, time.March, 3),
		date(2026, time.March, 10),
		date(2026, time.March, 17),
		date(2026, time.March, 24),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d occurrences, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("occurrence %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestOccurrencesAnchorInFuture(t *testing.T) {
	anchor := date(2026, time.March, 20)
	got := Rule{Interval: 1, Unit: UnitDay}.Occurrences(anchor, date(2026, time.March, 1), date(2026, time.March, 22))
	if len(got) != 3 {
		t.Fatalf("got %d occurrences, want 3: %v", len(got), got)
	}
	if !got[0].Equal(anchor) {
		t.Errorf("first occurrence = %v, want anchor %v", got[0], anchor)
	}
}

func TestOccurrencesMonthly(t *testing.T) {
	anchor := date(2026, time.January, 15)
	got := Rule{Interval: 1, Unit: UnitMonth}.Occurrences(anchor, date(2026, time.March, 1), date(2026, time.April, 30))
	want := []time.Time{date(2026, time.March, 15), date(2026, time.April, 15)}
	if len(got) != len(want) {
		t.Fatalf("got %d occurrences, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("occurrence %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestOccurrencesEmptyWindow(t *testing.T) {
	anchor := date(2026, time.January, 1)
	if got := (Rule{Interval: 1, Unit: UnitDay}).Occurrences(anchor, date(2026, time.March, 5), date(2026, time.March, 4)); got != nil {
		t.Errorf("inverted window: got %v, want nil", got)
	}
}

func TestOccurrencesEveryNDaysAlignment(t *testing.T) {
	// every 3 days from Jan 1; window starting Jan 8 must produce
	// Jan 10, 13, ... (multiples of 3 from the anchor), not Jan 8.
	anchor := date(2026, time.January, 1)
	got := Rule{Interval: 3, Unit: UnitDay}.Occurrences(anchor, date(2026, time.January, 8), date(2026, time.January, 16))
	want := []time.Time{
		date(2026, time.January, 10),
		date(2026, time.January, 13),
		date(2026, time.January, 16),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d occurrences, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("occurrence %d = %v, want %v", i, got[i], want[i])
		}
	}
}
