package main

import (
	"context"
	"testing"
	"time"

	"physician-scheduler/internal/assignment"
	"physician-scheduler/internal/calendar"
	"physician-scheduler/internal/metrics"
	"physician-scheduler/internal/models"
)

// resetAppState rebuilds the demo configuration and pins the scheduling
// period so handler tests see the same state regardless of run order.
func resetAppState(t *testing.T) {
	t.Helper()

	seedDemoData()

	settingsMu.Lock()
	settings = Settings{
		Region:    calendar.RegionCanadaQC,
		StartDate: models.NewDate(2025, time.January, 6),
		EndDate:   models.NewDate(2025, time.February, 2),
	}
	settingsMu.Unlock()

	runMu.Lock()
	lastRun = nil
	runMu.Unlock()

	metrics.Reset()
}

// seedTestRun generates a schedule for the pinned period and installs it as
// the latest run.
func seedTestRun(t *testing.T) *assignment.Result {
	t.Helper()

	settingsMu.RLock()
	s := settings
	settingsMu.RUnlock()

	cal, err := calendar.New(s.Region, s.StartDate, s.EndDate)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}

	catalogMu.RLock()
	registryMu.RLock()
	engine := assignment.NewEngine(cat, reg, cal)
	res, err := engine.Generate(context.Background(), s.StartDate, s.EndDate)
	registryMu.RUnlock()
	catalogMu.RUnlock()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	runMu.Lock()
	lastRun = &runState{Result: res, Cal: cal, GeneratedAt: time.Now(), Elapsed: 5 * time.Millisecond}
	runMu.Unlock()
	return res
}
