package assignment

import (
	"physician-scheduler/internal/models"
	"time"
)

// Function-field mocks for the engine's dependencies. Tests normally build
// the real catalog, registry and calendar; the mocks cover inputs the real
// types refuse to represent, such as dangling references or an unsorted
// roster.

type MockCatalog struct {
	TasksFunc        func() []*models.Task
	TaskFunc         func(code string) (*models.Task, bool)
	CategoryFunc     func(name string) (*models.TaskCategory, bool)
	TasksDueOnFunc   func(date time.Time, isWorking func(time.Time) bool, anchor time.Time) []*models.Task
	LinkedCallFunc   func(mainCode string) (string, bool)
	MainOfFunc       func(callCode string) (string, bool)
	SpanForFunc      func(t *models.Task, date time.Time, anchor time.Time) (models.DateSpan, bool)
	IsRestrictedFunc func(category string) bool
}

func (m *MockCatalog) Tasks() []*models.Task {
	if m.TasksFunc != nil {
		return m.TasksFunc()
	}
	return nil
}

func (m *MockCatalog) Task(code string) (*models.Task, bool) {
	if m.TaskFunc != nil {
		return m.TaskFunc(code)
	}
	return nil, false
}

func (m *MockCatalog) Category(name string) (*models.TaskCategory, bool) {
	if m.CategoryFunc != nil {
		return m.CategoryFunc(name)
	}
	return nil, false
}

func (m *MockCatalog) TasksDueOn(date time.Time, isWorking func(time.Time) bool, anchor time.Time) []*models.Task {
	if m.TasksDueOnFunc != nil {
		return m.TasksDueOnFunc(date, isWorking, anchor)
	}
	return nil
}

func (m *MockCatalog) LinkedCall(mainCode string) (string, bool) {
	if m.LinkedCallFunc != nil {
		return m.LinkedCallFunc(mainCode)
	}
	return "", false
}

func (m *MockCatalog) MainOf(callCode string) (string, bool) {
	if m.MainOfFunc != nil {
		return m.MainOfFunc(callCode)
	}
	return "", false
}

func (m *MockCatalog) SpanFor(t *models.Task, date time.Time, anchor time.Time) (models.DateSpan, bool) {
	if m.SpanForFunc != nil {
		return m.SpanForFunc(t, date, anchor)
	}
	return models.DateSpan{}, false
}

func (m *MockCatalog) IsRestricted(category string) bool {
	if m.IsRestrictedFunc != nil {
		return m.IsRestrictedFunc(category)
	}
	return false
}

type MockRoster struct {
	PhysiciansFunc        func() []*models.Physician
	PhysicianFunc         func(id string) (*models.Physician, bool)
	IsEligibleFunc        func(p *models.Physician, cat *models.TaskCategory) bool
	IsAvailableFunc       func(id string, date time.Time) bool
	RemainingCapacityFunc func(id string, assignedSoFar int, basis float64) float64
	TotalFTEFunc          func() float64
}

func (m *MockRoster) Physicians() []*models.Physician {
	if m.PhysiciansFunc != nil {
		return m.PhysiciansFunc()
	}
	return nil
}

func (m *MockRoster) Physician(id string) (*models.Physician, bool) {
	if m.PhysicianFunc != nil {
		return m.PhysicianFunc(id)
	}
	return nil, false
}

func (m *MockRoster) IsEligible(p *models.Physician, cat *models.TaskCategory) bool {
	if m.IsEligibleFunc != nil {
		return m.IsEligibleFunc(p, cat)
	}
	return false
}

func (m *MockRoster) IsAvailable(id string, date time.Time) bool {
	if m.IsAvailableFunc != nil {
		return m.IsAvailableFunc(id, date)
	}
	return true
}

func (m *MockRoster) RemainingCapacity(id string, assignedSoFar int, basis float64) float64 {
	if m.RemainingCapacityFunc != nil {
		return m.RemainingCapacityFunc(id, assignedSoFar, basis)
	}
	return 0
}

func (m *MockRoster) TotalFTE() float64 {
	if m.TotalFTEFunc != nil {
		return m.TotalFTEFunc()
	}
	return 0
}

type MockCalendar struct {
	DaysFunc         func() []models.CalendarDay
	DayFunc          func(date time.Time) (models.CalendarDay, bool)
	IsWorkingDayFunc func(date time.Time) bool
	AnchorFunc       func() time.Time
}

func (m *MockCalendar) Days() []models.CalendarDay {
	if m.DaysFunc != nil {
		return m.DaysFunc()
	}
	return nil
}

func (m *MockCalendar) Day(date time.Time) (models.CalendarDay, bool) {
	if m.DayFunc != nil {
		return m.DayFunc(date)
	}
	return models.CalendarDay{}, false
}

func (m *MockCalendar) IsWorkingDay(date time.Time) bool {
	if m.IsWorkingDayFunc != nil {
		return m.IsWorkingDayFunc(date)
	}
	return false
}

func (m *MockCalendar) Anchor() time.Time {
	if m.AnchorFunc != nil {
		return m.AnchorFunc()
	}
	return time.Time{}
}
