package assignment

import (
	"physician-scheduler/internal/models"
	"time"
)

// Catalog is the task, category and linkage surface the engine reads. It is
// treated as immutable for the duration of a run.
type Catalog interface {
	Tasks() []*models.Task
	Task(code string) (*models.Task, bool)
	Category(name string) (*models.TaskCategory, bool)
	TasksDueOn(date time.Time, isWorking func(time.Time) bool, anchor time.Time) []*models.Task
	LinkedCall(mainCode string) (string, bool)
	MainOf(callCode string) (string, bool)
	SpanFor(t *models.Task, date time.Time, anchor time.Time) (models.DateSpan, bool)
	IsRestricted(category string) bool
}

// Roster is the physician surface the engine reads. Physicians must return a
// stable id-sorted slice; candidate iteration depends on that order for
// reproducible runs.
type Roster interface {
	Physicians() []*models.Physician
	Physician(id string) (*models.Physician, bool)
	IsEligible(p *models.Physician, cat *models.TaskCategory) bool
	IsAvailable(id string, date time.Time) bool
	RemainingCapacity(id string, assignedSoFar int, basis float64) float64
	TotalFTE() float64
}

// Calendar is the read-only day oracle. IsWorkingDay must answer for dates
// outside the generation period too, since occurrence windows can reach past
// the period end.
type Calendar interface {
	Days() []models.CalendarDay
	Day(date time.Time) (models.CalendarDay, bool)
	IsWorkingDay(date time.Time) bool
	Anchor() time.Time
}
