// Package timewindow turns date references such as "today", "yesterday",
// weekday names or ISO dates into whole calendar-day windows and enforces the
// lookback limit on them.
package timewindow

import (
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// Window is a half-open calendar-day interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w *Window) Contains(t time.Time) bool {
	if w == nil {
		return true
	}
	return !t.Before(w.Start) && t.Before(w.End)
}

// Label formats the window's day as an ISO date.
func (w *Window) Label() string {
	if w == nil {
		return ""
	}
	return w.Start.Format(isoDate)
}

type Option func(*Resolver)

// WithClock replaces time.Now, used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

type Resolver struct {
	loc         *time.Location
	maxLookback int
	now         func() time.Time
}

func NewResolver(loc *time.Location, maxLookbackDays int, opts ...Option) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	r := &Resolver{loc: loc, maxLookback: maxLookbackDays, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MaxLookbackDays returns the configured limit.
func (r *Resolver) MaxLookbackDays() int { return r.maxLookback }

// Now returns the current time in the resolver's location.
func (r *Resolver) Now() time.Time { return r.now().In(r.loc) }

// Today returns the window covering the current calendar day.
func (r *Resolver) Today() *Window { return r.DayOf(r.Now()) }

// DayOf returns the calendar-day window containing t.
func (r *Resolver) DayOf(t time.Time) *Window {
	start := r.startOfDay(t)
	return &Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// Resolve returns nil when the reference is not recognized.
func (r *Resolver) Resolve(reference string) *Window {
	ref := strings.ToLower(strings.TrimSpace(reference))
	if ref == "" {
		return nil
	}
	now := r.Now()
	switch ref {
	case "today":
		return r.DayOf(now)
	case "yesterday":
		return r.DayOf(now.AddDate(0, 0, -1))
	}
	if wd, ok := parseWeekday(ref); ok {
		back := (int(now.Weekday()) - int(wd) + 7) % 7
		return r.DayOf(now.AddDate(0, 0, -back))
	}
	if d, err := time.ParseInLocation(isoDate, ref, r.loc); err == nil {
		return r.DayOf(d)
	}
	return nil
}

// IsWithinLookbackLimit fails closed: a zero time or a day strictly before
// the lookback boundary is rejected. The boundary day itself is allowed.
func (r *Resolver) IsWithinLookbackLimit(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	boundary := r.startOfDay(r.Now()).AddDate(0, 0, -r.maxLookback)
	return !r.startOfDay(t).Before(boundary)
}

func (r *Resolver) startOfDay(t time.Time) time.Time {
	t = t.In(r.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, r.loc)
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekday(s string) (time.Weekday, bool) {
	if wd, ok := weekdays[s]; ok {
		return wd, true
	}
	if len(s) == 3 {
		for name, wd := range weekdays {
			if strings.HasPrefix(name, s) {
				return wd, true
			}
		}
	}
	return 0, false
}
