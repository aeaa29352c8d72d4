package timewindow

import (
	"testing"
	"time"
)

// 2026-10-14 is a Wednesday.
var fixedNow = time.Date(2026, 10, 14, 15, 30, 0, 0, time.UTC)

func newTestResolver() *Resolver {
	return NewResolver(time.UTC, 7, WithClock(func() time.Time { return fixedNow }))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolve_Recognized(t *testing.T) {
	r := newTestResolver()
	cases := map[string]time.Time{
		"today":      day(2026, 10, 14),
		"  Today ":   day(2026, 10, 14),
		"YESTERDAY":  day(2026, 10, 13),
		"wednesday":  day(2026, 10, 14),
		"Monday":     day(2026, 10, 12),
		"thursday":   day(2026, 10, 8),
		"sun":        day(2026, 10, 11),
		"2026-10-01": day(2026, 10, 1),
	}
	for ref, want := range cases {
		w := r.Resolve(ref)
		if w == nil {
			t.Fatalf("%q: expected window", ref)
		}
		if !w.Start.Equal(want) {
			t.Errorf("%q: start got %s want %s", ref, w.Start, want)
		}
		if !w.End.Equal(want.AddDate(0, 0, 1)) {
			t.Errorf("%q: end got %s", ref, w.End)
		}
	}
}

func TestResolve_Unrecognized(t *testing.T) {
	r := newTestResolver()
	for _, ref := range []string{"", "tomorrowish", "last week", "2026/10/01", "13-10-2026", "mo"} {
		if w := r.Resolve(ref); w != nil {
			t.Errorf("%q: expected nil, got %+v", ref, w)
		}
	}
}

func TestResolve_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 20:00 UTC on the 14th is already the 15th at UTC+9.
	now := time.Date(2026, 10, 14, 20, 0, 0, 0, time.UTC)
	r := NewResolver(loc, 7, WithClock(func() time.Time { return now }))
	w := r.Resolve("today")
	want := time.Date(2026, 10, 15, 0, 0, 0, 0, loc)
	if !w.Start.Equal(want) {
		t.Fatalf("got %s want %s", w.Start, want)
	}
}

func TestIsWithinLookbackLimit(t *testing.T) {
	r := newTestResolver()
	if !r.IsWithinLookbackLimit(day(2026, 10, 7)) {
		t.Fatalf("boundary day must be allowed")
	}
	if !r.IsWithinLookbackLimit(day(2026, 10, 7).Add(23 * time.Hour)) {
		t.Fatalf("late on boundary day must be allowed")
	}
	if r.IsWithinLookbackLimit(day(2026, 10, 6).Add(23 * time.Hour)) {
		t.Fatalf("day before boundary must be rejected")
	}
	if r.IsWithinLookbackLimit(day(2025, 1, 1)) {
		t.Fatalf("old date must be rejected")
	}
	if !r.IsWithinLookbackLimit(fixedNow) {
		t.Fatalf("now must be allowed")
	}
	if r.IsWithinLookbackLimit(time.Time{}) {
		t.Fatalf("zero time must be rejected")
	}
}

func TestWindowContains(t *testing.T) {
	w := &Window{Start: day(2026, 10, 14), End: day(2026, 10, 15)}
	if !w.Contains(day(2026, 10, 14)) {
		t.Fatalf("start is inclusive")
	}
	if w.Contains(day(2026, 10, 15)) {
		t.Fatalf("end is exclusive")
	}
	var unbounded *Window
	if !unbounded.Contains(day(1999, 1, 1)) {
		t.Fatalf("nil window contains everything")
	}
	if w.Label() != "2026-10-14" {
		t.Fatalf("label: %s", w.Label())
	}
}
