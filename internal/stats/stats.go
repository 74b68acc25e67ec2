// Package stats derives per-physician workload and revenue summaries from a
// finished schedule. Collection is pure read-only aggregation; it never
// re-runs the allocation.
package stats

import (
	"slices"
	"strings"

	"physician-scheduler/internal/models"
)

// Catalog is the slice of the task catalog the collector reads.
type Catalog interface {
	Task(code string) (*models.Task, bool)
	Category(name string) (*models.TaskCategory, bool)
	MainOf(callCode string) (string, bool)
}

// Roster lists the physicians the summaries are keyed by.
type Roster interface {
	Physicians() []*models.Physician
}

// PhysicianStats summarizes one physician's share of a schedule.
type PhysicianStats struct {
	TotalHeaviness   int            `json:"total_heaviness"`
	TotalRevenue     float64        `json:"total_revenue"`
	CountPerCategory map[string]int `json:"count_per_category"`
	// Utilization is total heaviness over the physician's fairness ceiling
	// of fte_fraction * capacity basis; 1.0 means exactly at the ceiling.
	Utilization float64             `json:"utilization"`
	Assignments []models.Assignment `json:"assignments,omitempty"`
}

// Collect aggregates the schedule per physician id. Every roster physician
// gets an entry, idle ones with zero totals. Call tasks accrue their
// category's call revenue, all other tasks the weekday revenue. Records
// referencing a task that is no longer in the catalog are skipped; Check
// reports those.
func Collect(s *models.Schedule, catalog Catalog, roster Roster, basis float64) map[string]*PhysicianStats {
	out := make(map[string]*PhysicianStats)
	fte := make(map[string]float64)
	for _, p := range roster.Physicians() {
		out[p.ID] = &PhysicianStats{CountPerCategory: make(map[string]int)}
		fte[p.ID] = p.FTEFraction
	}
	if s == nil {
		return out
	}

	for _, a := range s.Assignments {
		if a.IsGap() {
			continue
		}
		task, ok := catalog.Task(a.TaskCode)
		if !ok {
			continue
		}
		st := out[a.PhysicianID]
		if st == nil {
			// An off-roster id in a loaded schedule still gets totals,
			// just no utilization.
			st = &PhysicianStats{CountPerCategory: make(map[string]int)}
			out[a.PhysicianID] = st
		}
		st.TotalHeaviness += task.Heaviness
		st.CountPerCategory[task.Category]++
		st.Assignments = append(st.Assignments, a)
		if cat, ok := catalog.Category(task.Category); ok {
			if _, isCall := catalog.MainOf(task.Code); isCall {
				st.TotalRevenue += cat.CallRevenue
			} else {
				st.TotalRevenue += cat.WeekdayRevenue
			}
		}
	}

	for id, st := range out {
		if ceiling := fte[id] * basis; ceiling > 0 {
			st.Utilization = float64(st.TotalHeaviness) / ceiling
		}
	}
	return out
}

// UnassignedTasks returns the schedule's gaps ordered by date then task code.
func UnassignedTasks(s *models.Schedule) []models.Assignment {
	if s == nil {
		return nil
	}
	gaps := s.Gaps()
	slices.SortFunc(gaps, func(a, b models.Assignment) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return strings.Compare(a.TaskCode, b.TaskCode)
	})
	return gaps
}
