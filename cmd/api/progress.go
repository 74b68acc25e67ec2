package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/starfederation/datastar-go/datastar"

	"physician-scheduler/internal/assignment"
	"physician-scheduler/internal/calendar"
	"physician-scheduler/internal/metrics"
	"physician-scheduler/internal/models"
)

// handleGenerateLive runs a generation while streaming per-day progress into
// the dashboard via server-sent events.
func handleGenerateLive(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sse := datastar.NewSSE(w, r)

	settingsMu.RLock()
	s := settings
	settingsMu.RUnlock()

	cal, err := calendar.New(s.Region, s.StartDate, s.EndDate)
	if err != nil {
		sse.PatchElements(fmt.Sprintf(`<div id="generate-progress" class="error">%s</div>`, err.Error()))
		return
	}
	total := len(cal.Days())

	catalogMu.RLock()
	registryMu.RLock()
	done := 0
	engine := assignment.NewEngine(cat, reg, cal,
		assignment.WithLogger(logger),
		assignment.WithCheckpoint(func(date time.Time, partial *models.Schedule) {
			done++
			sse.PatchElements(fmt.Sprintf(
				`<div id="generate-progress">Allocating %s: day %d of %d, %d records</div>`,
				models.FormatDate(date), done, total, len(partial.Assignments)))
		}))
	started := time.Now()
	res, err := engine.Generate(r.Context(), s.StartDate, s.EndDate)
	elapsed := time.Since(started)
	roster := reg.Physicians()
	registryMu.RUnlock()
	catalogMu.RUnlock()
	if err != nil {
		logger.Warn("live generation aborted", "err", err)
		sse.PatchElements(fmt.Sprintf(`<div id="generate-progress" class="error">%s</div>`, err.Error()))
		return
	}

	metrics.ObserveRun(res.Schedule, res.Anomalies, res.CapacityBasis, elapsed)

	runMu.Lock()
	lastRun = &runState{Result: res, Cal: cal, GeneratedAt: time.Now(), Elapsed: elapsed}
	runMu.Unlock()

	gaps := len(res.Schedule.Gaps())
	logger.Info("schedule generated",
		"run_id", res.RunID,
		"assignments", len(res.Schedule.Assignments)-gaps,
		"gaps", gaps,
		"anomalies", len(res.Anomalies),
		"elapsed", elapsed)

	if archive != nil {
		ctx := context.Background()
		if err := archive.SaveRun(ctx, res.RunID.String(), res.Schedule, res.CapacityBasis); err != nil {
			logger.Error("archive run", "run_id", res.RunID, "err", err)
		} else if err := archive.SaveRoster(ctx, roster); err != nil {
			logger.Error("archive roster", "err", err)
		}
	}

	sse.PatchElements(fmt.Sprintf(
		`<div id="generate-progress">Run %s finished: %d assignments, %d gaps, %d anomalies in %s. <a href="/calendar">View the calendar</a></div>`,
		res.RunID, len(res.Schedule.Assignments)-gaps, gaps, len(res.Anomalies),
		elapsed.Round(time.Millisecond)))
}
