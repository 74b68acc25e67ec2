package models

import (
	"slices"
	"strings"
	"time"
)

// Assignment binds one task occurrence on one date to a physician. An empty
// PhysicianID denotes a gap: the task fell due but nobody could take it.
type Assignment struct {
	Date        time.Time `json:"date"`
	TaskCode    string    `json:"task_code"`
	PhysicianID string    `json:"physician_id,omitempty"`
}

func (a Assignment) IsGap() bool {
	return a.PhysicianID == ""
}

// Schedule is the engine's output: one Assignment for every (date, task due
// that date) pair inside the period, ordered by date then task code. It is
// pure data; reloading a persisted Schedule never re-runs the allocation.
type Schedule struct {
	StartDate   time.Time
	EndDate     time.Time
	Assignments []Assignment
}

func NewSchedule(start, end time.Time) *Schedule {
	return &Schedule{StartDate: Midnight(start), EndDate: Midnight(end)}
}

func (s *Schedule) Add(a Assignment) {
	s.Assignments = append(s.Assignments, a)
}

// Sort orders assignments by date, then task code. This is the canonical
// order for export and persistence.
func (s *Schedule) Sort() {
	slices.SortFunc(s.Assignments, func(a, b Assignment) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return strings.Compare(a.TaskCode, b.TaskCode)
	})
}

// Gaps returns the assignments without a physician, in schedule order.
func (s *Schedule) Gaps() []Assignment {
	var gaps []Assignment
	for _, a := range s.Assignments {
		if a.IsGap() {
			gaps = append(gaps, a)
		}
	}
	return gaps
}

// ByPhysician groups non-gap assignments per physician id.
func (s *Schedule) ByPhysician() map[string][]Assignment {
	out := make(map[string][]Assignment)
	for _, a := range s.Assignments {
		if a.IsGap() {
			continue
		}
		out[a.PhysicianID] = append(out[a.PhysicianID], a)
	}
	return out
}

// Clone returns a deep copy; used for per-date checkpoints.
func (s *Schedule) Clone() *Schedule {
	cp := &Schedule{StartDate: s.StartDate, EndDate: s.EndDate}
	cp.Assignments = slices.Clone(s.Assignments)
	return cp
}
