package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for all persisted dates.
const DateLayout = "2006-01-02"

// NewDate returns midnight UTC for the given calendar day. All dates in the
// system are normalized this way so they can be compared and used as map keys.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected %s", s, DateLayout)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Midnight truncates t to its calendar day in UTC.
func Midnight(t time.Time) time.Time {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// WeekStart returns the Monday of the week containing t.
func WeekStart(t time.Time) time.Time {
	d := Midnight(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// DateSpan is a closed range of calendar days. A single day is a span with
// Start == End.
type DateSpan struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DaySpan returns the span covering just the calendar day of t.
func DaySpan(t time.Time) DateSpan {
	d := Midnight(t)
	return DateSpan{Start: d, End: d}
}

func (s DateSpan) Contains(t time.Time) bool {
	return !t.Before(s.Start) && !t.After(s.End)
}

// StrictlyInside reports whether t falls inside the span excluding both
// endpoints.
func (s DateSpan) StrictlyInside(t time.Time) bool {
	return t.After(s.Start) && t.Before(s.End)
}

// Touches reports whether the two spans overlap or are adjacent, i.e. whether
// they can be merged into one.
func (s DateSpan) Touches(o DateSpan) bool {
	return !s.Start.After(o.End.AddDate(0, 0, 1)) && !o.Start.After(s.End.AddDate(0, 0, 1))
}

func (s DateSpan) Union(o DateSpan) DateSpan {
	u := s
	if o.Start.Before(u.Start) {
		u.Start = o.Start
	}
	if o.End.After(u.End) {
		u.End = o.End
	}
	return u
}

func (s DateSpan) Days() int {
	return int(s.End.Sub(s.Start).Hours()/24) + 1
}
