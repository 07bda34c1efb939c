package asrslog

import (
	"errors"
	"time"
)

// DateLayout is the day format used by query parameters and report links.
const DateLayout = "2006-01-02"

// ErrInvalidWindow is returned when a window ends before it starts.
var ErrInvalidWindow = errors.New("asrslog: invalid window")

// Window is a half-open time range [From, To). The zero Window applies no range.
type Window struct {
	From time.Time
	To   time.Time
}

// DayWindow returns the window covering one calendar day in loc.
func DayWindow(day time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	day = day.In(loc)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	return Window{From: start, To: start.AddDate(0, 0, 1)}
}

// DaysWindow covers whole days from first through last inclusive. A zero
// last covers first only.
func DaysWindow(first, last time.Time, loc *time.Location) (Window, error) {
	w := DayWindow(first, loc)
	if last.IsZero() {
		return w, nil
	}
	end := DayWindow(last, loc)
	if end.To.Before(w.To) {
		return Window{}, ErrInvalidWindow
	}
	w.To = end.To
	return w, nil
}

// IsZero reports whether no range is applied.
func (w Window) IsZero() bool {
	return w.From.IsZero() && w.To.IsZero()
}

// Contains reports whether t lies in the window. A null timestamp is never
// inside a non-zero window.
func (w Window) Contains(t time.Time) bool {
	if w.IsZero() {
		return true
	}
	if t.IsZero() {
		return false
	}
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && !t.Before(w.To) {
		return false
	}
	return true
}

// Filter selects records by line, status and time window. Nil fields match all.
type Filter struct {
	Line   *int64
	Status *int64
	Window Window
}

// Match reports whether rec passes the filter.
func (f Filter) Match(rec NormalizedRecord) bool {
	if f.Line != nil {
		line, ok := rec.LineValue()
		if !ok || line != *f.Line {
			return false
		}
	}
	if f.Status != nil {
		status, ok := rec.StatusValue()
		if !ok || status != *f.Status {
			return false
		}
	}
	return f.Window.Contains(rec.Timestamp)
}

// Filter returns a new table with the matching rows.
func (t *Table) Filter(f Filter) *Table {
	return t.Where(f.Match)
}
